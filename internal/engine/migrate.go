package engine

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
)

//go:embed migrations/*.sql
var migrations embed.FS

// migrateStore brings the catalog schema of the store at path up to date.
func migrateStore(path string, logger *slog.Logger) error {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return errors.Wrap(err, "unable to open store")
	}
	defer db.Close()

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return errors.Wrap(err, "unable to create sqlite migration driver")
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return errors.Wrap(err, "unable to read embedded migrations")
	}

	m, err := migrate.NewWithInstance("iofs", source, driverName, driver)
	if err != nil {
		return errors.Wrap(err, "unable to create migrate instance")
	}
	m.Log = &migrateLogger{logger: logger}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "migration up failed")
	}

	// closing m closes db as well
	if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
		return errors.Errorf("unable to close migrate instance: source %v, database %v", srcErr, dbErr)
	}

	return nil
}

type migrateLogger struct {
	logger *slog.Logger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...), "component", "migrate")
}

func (l *migrateLogger) Verbose() bool {
	return false
}
