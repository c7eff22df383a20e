package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/quintave/quintave/internal/common"
	"github.com/quintave/quintave/internal/service"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// querier is the subset of *sql.DB and *sql.Tx the storage methods use.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStorage implements service.Storage on top of database/sql. The same
// queries run against SQLite and PostgreSQL; dialect differences are
// confined to dialect.go.
type SQLStorage struct {
	db      *sql.DB
	q       querier
	logger  *zap.Logger
	dialect dialect
	inTx    bool
}

// Options tunes the connection pool.
type Options struct {
	Retry        service.RetryOptions
	MaxOpenConns int
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections, and a single
	// connection serializes write transactions.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return newSQLStorage(db, sqliteDialect, zap.NewNop()), nil
}

// NewPostgresStorage connects to PostgreSQL, retrying the initial ping so a
// database that is still starting up does not abort the server.
func NewPostgresStorage(ctx context.Context, dsn string, opts Options, logger *zap.Logger) (*SQLStorage, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(dsn, "dsn"); err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 5
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)

	err = common.WithRetry(ctx, logger, func() error {
		return classifyConnError(db.PingContext(ctx))
	}, opts.Retry)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return newSQLStorage(db, postgresDialect, logger), nil
}

// Open picks the driver by name ("sqlite3" or "postgres").
func Open(ctx context.Context, driver, dsn string, opts Options, logger *zap.Logger) (*SQLStorage, error) {
	switch driver {
	case "sqlite3", "sqlite":
		s, err := NewSQLiteStorage(dsn)
		if err != nil {
			return nil, err
		}
		return s.WithLogger(logger), nil
	case "postgres", "postgresql":
		return NewPostgresStorage(ctx, dsn, opts, logger)
	default:
		return nil, fmt.Errorf("%w: unsupported database driver %q", common.ErrInvalidConfig, driver)
	}
}

func newSQLStorage(db *sql.DB, d dialect, logger *zap.Logger) *SQLStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStorage{db: db, q: db, dialect: d, logger: logger}
}

// WithLogger sets the logger used for migration and maintenance messages.
func (s *SQLStorage) WithLogger(logger *zap.Logger) *SQLStorage {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Dialect returns the driver name the storage was opened with.
func (s *SQLStorage) Dialect() string {
	return s.dialect.name
}

// Close closes the database connection.
func (s *SQLStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new database transaction.
func (s *SQLStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqlTransaction{
		SQLStorage: &SQLStorage{db: s.db, q: tx, logger: s.logger, dialect: s.dialect, inTx: true},
		tx:         tx,
	}, nil
}

func (s *SQLStorage) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.q.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLStorage) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.q.QueryContext(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLStorage) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.q.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

// forUpdate returns the row-locking suffix for reads that feed a
// read-modify-write inside a transaction.
func (s *SQLStorage) forUpdate() string {
	if !s.inTx {
		return ""
	}
	return s.dialect.forUpdate
}

// expectAffected turns a zero-row update or delete into common.ErrNotFound.
func expectAffected(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows for %s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, common.ErrNotFound)
	}
	return nil
}

// sqlTransaction wraps sql.Tx to implement service.Transaction.
type sqlTransaction struct {
	*SQLStorage
	tx *sql.Tx
}

func (t *sqlTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqlTransaction) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqlTransaction) Migrate(_ context.Context) error {
	// Migrations should not be run within a transaction
	return fmt.Errorf("migrations cannot be run within a transaction")
}

func (t *sqlTransaction) BeginTx(_ context.Context) (service.Transaction, error) {
	// Nested transactions not supported
	return nil, fmt.Errorf("nested transactions not supported")
}

func (t *sqlTransaction) Close() error {
	// Transactions should be committed or rolled back, not closed
	return fmt.Errorf("transactions must be committed or rolled back, not closed")
}
