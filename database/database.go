package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Dialect names the SQL backend behind a DB. Queries in this repo are written so they run
// unchanged on both: $N placeholders first appear in ascending order and timestamps come
// from Go rather than NOW().
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

// maxTxAttempts bounds retries of serializable transactions that lost a conflict.
const maxTxAttempts = 3

type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects to the database named by dsn. postgres:// and postgresql:// URLs use lib/pq;
// sqlite://<path> opens a local SQLite file.
func Open(dsn string) (*DB, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return open(Postgres, dsn)
	case strings.HasPrefix(dsn, "sqlite://"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		return open(SQLite, path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	default:
		return nil, errors.Errorf("unsupported database url %q", dsn)
	}
}

// OpenMemory opens a private in-memory SQLite database and applies all migrations.
func OpenMemory() (*DB, error) {
	name := uuid.NewString()
	db, err := open(SQLite, "file:"+name+"?mode=memory&cache=shared&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	if _, err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func open(dialect Dialect, dsn string) (*DB, error) {
	sqlDB, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open db")
	}
	if dialect == SQLite {
		// SQLite allows one writer; a single connection serializes transactions
		// instead of failing them with SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "ping db")
	}
	return &DB{DB: sqlDB, Dialect: dialect}, nil
}

// WithTx runs fn in a transaction. On PostgreSQL the transaction is SERIALIZABLE and is
// retried when it loses a serialization conflict; fn must therefore be safe to re-run.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var opts *sql.TxOptions
	if db.Dialect == Postgres {
		opts = &sql.TxOptions{Isolation: sql.LevelSerializable}
	}

	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = db.runTx(ctx, opts, fn)
		if !IsSerializationFailure(err) {
			return err
		}
		log.Debug().Int("attempt", attempt).Err(err).Msg("retrying serializable transaction")
	}
	return err
}

func (db *DB) runTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// IsUniqueViolation reports whether err is a primary key or unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// IsSerializationFailure reports whether err means the transaction must be retried.
func IsSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

// ConstraintName returns the violated constraint for PostgreSQL errors, or the raw
// message for SQLite ones ("UNIQUE constraint failed: users.email").
func ConstraintName(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Error()
	}
	return ""
}
