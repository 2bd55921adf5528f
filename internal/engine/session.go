package engine

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const (
	// DefaultAppName names sessions built without an explicit name.
	DefaultAppName = "medallion_pipeline"
	// StoreFile is the table store file created in every attached directory.
	StoreFile = "tables.db"

	driverName = "sqlite"
)

// Config configures a session.
type Config struct {
	// AppName identifies the session in logs.
	AppName string
	// Pragmas are executed on the session connection, e.g. "temp_store = MEMORY".
	Pragmas []string
	Logger  *slog.Logger
}

// DefaultConfig returns the configuration used by the pipeline.
func DefaultConfig() Config {
	return Config{
		AppName: DefaultAppName,
		Pragmas: []string{"temp_store = MEMORY"},
	}
}

// Session is a processing context. It is not safe for concurrent use.
type Session struct {
	appName string
	logger  *slog.Logger
	db      *sql.DB
	conn    *sql.Conn

	mu     sync.Mutex
	stores map[string]string // alias -> absolute directory
	byDir  map[string]string // absolute directory -> alias

	stopOnce sync.Once
	stopped  atomic.Bool
	stopErr  error
}

var (
	registryMu sync.Mutex
	active     *Session
)

// GetOrCreate returns the live session, building one from cfg when there is
// none. cfg is ignored when a live session already exists.
func GetOrCreate(ctx context.Context, cfg Config) (*Session, error) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if active != nil && !active.Stopped() {
		return active, nil
	}

	sess, err := newSession(ctx, cfg)
	if err != nil {
		return nil, err
	}
	active = sess

	return sess, nil
}

// New builds a session that is not shared through GetOrCreate.
func New(ctx context.Context, cfg Config) (*Session, error) {
	return newSession(ctx, cfg)
}

func newSession(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.AppName == "" {
		cfg.AppName = DefaultAppName
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, errors.Wrap(err, "unable to open engine")
	}
	// attached stores live on the connection, so the session keeps exactly one
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "unable to open engine connection")
	}

	for _, pragma := range cfg.Pragmas {
		if _, err := conn.ExecContext(ctx, "PRAGMA "+pragma); err != nil {
			conn.Close()
			db.Close()
			return nil, errors.Wrapf(err, "unable to apply pragma %q", pragma)
		}
	}

	sess := &Session{
		appName: cfg.AppName,
		logger:  cfg.Logger.With("app_name", cfg.AppName),
		db:      db,
		conn:    conn,
		stores:  make(map[string]string),
		byDir:   make(map[string]string),
	}
	sess.logger.Debug("engine session started")

	return sess, nil
}

// AppName returns the name the session was built with.
func (s *Session) AppName() string {
	return s.appName
}

// Stopped reports whether Stop was called.
func (s *Session) Stopped() bool {
	return s.stopped.Load()
}

// Stop releases the session. Only the first call has an effect; later calls
// return the result of the first one.
func (s *Session) Stop() error {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)

		registryMu.Lock()
		if active == s {
			active = nil
		}
		registryMu.Unlock()

		connErr := s.conn.Close()
		dbErr := s.db.Close()
		switch {
		case connErr != nil:
			s.stopErr = errors.Wrap(connErr, "unable to close engine connection")
		case dbErr != nil:
			s.stopErr = errors.Wrap(dbErr, "unable to close engine")
		}
		s.logger.Debug("engine session stopped")
	})

	return s.stopErr
}

func (s *Session) checkLive() error {
	if s.Stopped() {
		return errors.WithStack(ErrSessionStopped)
	}

	return nil
}

// Attach makes the table store of dir available under the returned alias,
// creating the directory and the store when needed. Attaching the same
// directory twice returns the same alias.
func (s *Session) Attach(ctx context.Context, dir string) (string, error) {
	if err := s.checkLive(); err != nil {
		return "", err
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Wrapf(err, "unable to resolve %s", dir)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if alias, ok := s.byDir[abs]; ok {
		return alias, nil
	}

	alias := s.freeAlias(Identifier(filepath.Base(abs)))

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", errors.Wrapf(err, "unable to create %s", abs)
	}

	storePath := filepath.Join(abs, StoreFile)
	if err := migrateStore(storePath, s.logger); err != nil {
		return "", errors.Wrapf(err, "unable to prepare store %s", storePath)
	}

	if _, err := s.conn.ExecContext(ctx, "ATTACH DATABASE ? AS "+QuoteIdent(alias), storePath); err != nil {
		return "", errors.Wrapf(err, "unable to attach %s", storePath)
	}

	s.stores[alias] = abs
	s.byDir[abs] = alias
	s.logger.Debug("store attached", "alias", alias, "path", storePath)

	return alias, nil
}

func (s *Session) freeAlias(base string) string {
	alias := base
	for i := 2; ; i++ {
		_, used := s.stores[alias]
		if !used && alias != "main" && alias != "temp" {
			return alias
		}
		alias = base + "_" + strconv.Itoa(i)
	}
}

func (s *Session) checkStore(alias string) error {
	if err := s.checkLive(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stores[alias]; !ok {
		return errors.Wrap(ErrStoreNotFound, alias)
	}

	return nil
}

// Query runs a read query on the session.
func (s *Session) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if err := s.checkLive(); err != nil {
		return nil, err
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to run query")
	}

	return rows, nil
}

// QueryRow runs a query returning at most one row.
func (s *Session) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.conn.QueryRowContext(ctx, query, args...)
}
