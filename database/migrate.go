package database

import (
	"context"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"

	"linkinpurry/backend/database/migrations"
)

// MigrateResult describes what happened during migration.
type MigrateResult struct {
	Version uint
	Dirty   bool
	Changed bool
}

// Migrate runs all pending migrations for the DB's dialect.
func (db *DB) Migrate() (*MigrateResult, error) {
	source, err := iofs.New(migrations.FS, db.migrationDir())
	if err != nil {
		return nil, errors.Wrap(err, "migration source")
	}

	driver, release, err := db.migrationDriver()
	if err != nil {
		return nil, errors.Wrap(err, "migration driver")
	}
	defer release()

	m, err := migrate.NewWithInstance("iofs", source, string(db.Dialect), driver)
	if err != nil {
		return nil, errors.Wrap(err, "migration instance")
	}

	err = m.Up()
	changed := true
	if errors.Is(err, migrate.ErrNoChange) {
		changed = false
		err = nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "migration up")
	}

	version, dirty, _ := m.Version()
	return &MigrateResult{
		Version: version,
		Dirty:   dirty,
		Changed: changed,
	}, nil
}

func (db *DB) migrationDir() string {
	if db.Dialect == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// migrationDriver never hands the *sql.DB itself to a driver whose Close would close it.
func (db *DB) migrationDriver() (migratedb.Driver, func(), error) {
	if db.Dialect == Postgres {
		ctx := context.Background()
		conn, err := db.Conn(ctx)
		if err != nil {
			return nil, nil, err
		}
		driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
		if err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
		return driver, func() { _ = conn.Close() }, nil
	}

	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	if err != nil {
		return nil, nil, err
	}
	return driver, func() {}, nil
}
