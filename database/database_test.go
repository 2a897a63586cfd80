package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func insertUser(t *testing.T, db *DB, username string) int64 {
	t.Helper()
	now := time.Now().UTC()
	var id int64
	err := db.QueryRow(`
		INSERT INTO users (username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, username, username+"@example.com", "x", now, now).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	require.NoError(t, err)
	assert.False(t, result.Changed, "second Migrate() should report Changed=false")
	assert.Equal(t, uint(1), result.Version)
	assert.False(t, result.Dirty)
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	_, err := Open("mysql://localhost/app")
	assert.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	db := testDB(t)
	insertUser(t, db, "alice")

	now := time.Now().UTC()
	_, err := db.Exec(`
		INSERT INTO users (username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, "alice", "other@example.com", "x", now, now)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.Contains(t, ConstraintName(err), "users.username")
	assert.False(t, IsUniqueViolation(errors.New("unrelated")))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := testDB(t)
	a := insertUser(t, db, "alice")
	b := insertUser(t, db, "bob")

	boom := errors.New("boom")
	err := db.WithTx(context.Background(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO connections (from_id, to_id, created_at) VALUES ($1, $2, $3)`, a, b, time.Now().UTC()); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM connections`).Scan(&count))
	assert.Zero(t, count)
}

func TestForeignKeysEnforced(t *testing.T) {
	db := testDB(t)
	a := insertUser(t, db, "alice")

	_, err := db.Exec(`INSERT INTO connections (from_id, to_id, created_at) VALUES ($1, $2, $3)`, a, a+100, time.Now().UTC())
	assert.Error(t, err)
}
