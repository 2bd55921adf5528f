package engine

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const catalogTable = "_table_versions"

// WriteMode selects how WriteRows builds the new version.
type WriteMode int

const (
	// Overwrite replaces the content of the table.
	Overwrite WriteMode = iota
	// Append adds rows to the content of the current version.
	Append
)

func (m WriteMode) String() string {
	if m == Append {
		return "append"
	}

	return "overwrite"
}

// Version is a committed version of a table.
type Version struct {
	Table       string
	Version     int64
	Operation   string
	Rows        int64
	CommittedAt time.Time
}

func physicalName(name string, version int64) string {
	return name + "__v" + strconv.FormatInt(version, 10)
}

// VersionRef returns the qualified reference of a given version of a table.
func VersionRef(alias, name string, version int64) string {
	return Ref(alias, physicalName(name, version))
}

// WriteTable commits the result of query as the new version of alias.name.
func (s *Session) WriteTable(ctx context.Context, alias, name, query string, args ...any) (Version, error) {
	if err := s.checkStore(alias); err != nil {
		return Version{}, err
	}

	return s.commit(ctx, alias, name, Overwrite.String(), func(tx *sql.Tx, physical string, _ int64) error {
		_, err := tx.ExecContext(ctx, "CREATE TABLE "+Ref(alias, physical)+" AS "+query, args...)
		if err != nil {
			return errors.Wrap(err, "unable to create table from query")
		}

		return nil
	})
}

// WriteRows commits rows as the new version of alias.name. Every column is
// stored as TEXT; an empty string is stored as is. With Append, columns must
// match the ones of the current version.
func (s *Session) WriteRows(ctx context.Context, alias, name string, columns []string, rows [][]string, mode WriteMode) (Version, error) {
	if err := s.checkStore(alias); err != nil {
		return Version{}, err
	}
	if len(columns) == 0 {
		return Version{}, errors.WithStack(ErrNoColumns)
	}

	var previous []string
	if mode == Append {
		cols, err := s.Columns(ctx, alias, name)
		switch {
		case errors.Is(err, ErrTableNotFound):
		case err != nil:
			return Version{}, err
		default:
			if !sameColumns(cols, columns) {
				return Version{}, errors.Wrapf(ErrSchemaMismatch, "%s has %v, got %v", name, cols, columns)
			}
			previous = cols
		}
	}

	return s.commit(ctx, alias, name, mode.String(), func(tx *sql.Tx, physical string, last int64) error {
		if previous != nil {
			_, err := tx.ExecContext(ctx, "CREATE TABLE "+Ref(alias, physical)+" AS SELECT * FROM "+VersionRef(alias, name, last))
			if err != nil {
				return errors.Wrap(err, "unable to copy previous version")
			}
		} else {
			defs := make([]string, len(columns))
			for i, col := range columns {
				defs[i] = QuoteIdent(col) + " TEXT"
			}
			_, err := tx.ExecContext(ctx, "CREATE TABLE "+Ref(alias, physical)+" ("+strings.Join(defs, ", ")+")")
			if err != nil {
				return errors.Wrap(err, "unable to create table")
			}
		}

		return insertRows(ctx, tx, Ref(alias, physical), columns, rows)
	})
}

func insertRows(ctx context.Context, tx *sql.Tx, ref string, columns []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = QuoteIdent(col)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+ref+" ("+strings.Join(quoted, ", ")+") VALUES ("+placeholders+")")
	if err != nil {
		return errors.Wrap(err, "unable to prepare insert")
	}
	defer stmt.Close()

	args := make([]any, len(columns))
	for i, row := range rows {
		if len(row) != len(columns) {
			return errors.Wrapf(ErrRowWidth, "row %d has %d values for %d columns", i, len(row), len(columns))
		}
		for j, v := range row {
			args[j] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return errors.Wrapf(err, "unable to insert row %d", i)
		}
	}

	return nil
}

// commit runs build inside a transaction, then publishes the new version.
func (s *Session) commit(ctx context.Context, alias, name, operation string, build func(tx *sql.Tx, physical string, last int64) error) (Version, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return Version{}, errors.Wrap(err, "unable to begin transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var last int64
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM "+Ref(alias, catalogTable)+" WHERE table_name = ?", name,
	).Scan(&last)
	if err != nil {
		return Version{}, errors.Wrapf(err, "unable to read catalog of %s", alias)
	}

	version := Version{
		Table:       name,
		Version:     last + 1,
		Operation:   operation,
		CommittedAt: time.Now().UTC(),
	}
	physical := physicalName(name, version.Version)

	if err := build(tx, physical, last); err != nil {
		return Version{}, errors.Wrapf(err, "unable to build %s.%s", alias, name)
	}

	stmts := []string{
		"DROP VIEW IF EXISTS " + Ref(alias, name),
		// views of an attached database resolve unqualified names in that database
		"CREATE VIEW " + Ref(alias, name) + " AS SELECT * FROM " + QuoteIdent(physical),
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return Version{}, errors.Wrapf(err, "unable to publish %s.%s", alias, name)
		}
	}

	err = tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+Ref(alias, physical)).Scan(&version.Rows)
	if err != nil {
		return Version{}, errors.Wrap(err, "unable to count rows")
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO "+Ref(alias, catalogTable)+" (table_name, version, operation, row_count, committed_at) VALUES (?, ?, ?, ?, ?)",
		name, version.Version, version.Operation, version.Rows, version.CommittedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Version{}, errors.Wrap(err, "unable to record version")
	}

	if err := tx.Commit(); err != nil {
		return Version{}, errors.Wrap(err, "unable to commit")
	}
	committed = true

	s.logger.Debug("table version committed",
		"store", alias, "table", name, "version", version.Version, "rows", version.Rows, "operation", operation)

	return version, nil
}

// Tables lists the tables of a store, sorted by name.
func (s *Session) Tables(ctx context.Context, alias string) ([]string, error) {
	if err := s.checkStore(alias); err != nil {
		return nil, err
	}

	rows, err := s.conn.QueryContext(ctx, "SELECT DISTINCT table_name FROM "+Ref(alias, catalogTable)+" ORDER BY table_name")
	if err != nil {
		return nil, errors.Wrapf(err, "unable to list tables of %s", alias)
	}
	defer rows.Close()

	res := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "unable to scan table name")
		}
		res = append(res, name)
	}

	return res, errors.Wrap(rows.Err(), "unable to list tables")
}

// Columns returns the columns of the current version of alias.name.
func (s *Session) Columns(ctx context.Context, alias, name string) ([]string, error) {
	if err := s.checkStore(alias); err != nil {
		return nil, err
	}

	rows, err := s.conn.QueryContext(ctx, "SELECT name FROM pragma_table_info(?, ?) ORDER BY cid", name, alias)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read columns of %s.%s", alias, name)
	}
	defer rows.Close()

	res := []string{}
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, errors.Wrap(err, "unable to scan column")
		}
		res = append(res, col)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "unable to read columns")
	}
	if len(res) == 0 {
		return nil, errors.Wrapf(ErrTableNotFound, "%s.%s", alias, name)
	}

	return res, nil
}

// RowCount returns the number of rows of the current version of alias.name.
func (s *Session) RowCount(ctx context.Context, alias, name string) (int64, error) {
	if _, err := s.Columns(ctx, alias, name); err != nil {
		return 0, err
	}

	var count int64
	err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+Ref(alias, name)).Scan(&count)
	if err != nil {
		return 0, errors.Wrapf(err, "unable to count %s.%s", alias, name)
	}

	return count, nil
}

// History returns every committed version of alias.name, oldest first.
func (s *Session) History(ctx context.Context, alias, name string) ([]Version, error) {
	if err := s.checkStore(alias); err != nil {
		return nil, err
	}

	rows, err := s.conn.QueryContext(ctx,
		"SELECT version, operation, row_count, committed_at FROM "+Ref(alias, catalogTable)+
			" WHERE table_name = ? ORDER BY version", name)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read history of %s.%s", alias, name)
	}
	defer rows.Close()

	res := []Version{}
	for rows.Next() {
		v := Version{Table: name}
		var committedAt string
		if err := rows.Scan(&v.Version, &v.Operation, &v.Rows, &committedAt); err != nil {
			return nil, errors.Wrap(err, "unable to scan version")
		}
		v.CommittedAt, err = time.Parse(time.RFC3339Nano, committedAt)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to parse commit time of %s version %d", name, v.Version)
		}
		res = append(res, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "unable to read history")
	}
	if len(res) == 0 {
		return nil, errors.Wrapf(ErrTableNotFound, "%s.%s", alias, name)
	}

	return res, nil
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
