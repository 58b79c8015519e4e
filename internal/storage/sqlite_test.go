package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestCache(t *testing.T) *SQLiteCache {
	t.Helper()
	c, err := NewSQLiteCache(":memory:")
	require.NoError(t, err)
	require.NoError(t, c.Migrate(context.Background()))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSQLiteCache_GetSetItem(t *testing.T) {
	ctx := context.Background()
	c := createTestCache(t)

	_, ok, err := c.GetItem(ctx, "userSettings")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetItem(ctx, "userSettings", `{"categories":{"Rent":100}}`))
	require.NoError(t, c.SetItem(ctx, "userSettings", `{"categories":{"Rent":90,"Fun":10}}`))

	v, ok, err := c.GetItem(ctx, "userSettings")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"categories":{"Rent":90,"Fun":10}}`, v)

	writes, err := c.Writes(ctx, "userSettings")
	require.NoError(t, err)
	assert.Equal(t, 2, writes)

	writes, err = c.Writes(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, 0, writes)
}

func TestSQLiteCache_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "cache.db")

	c, err := NewSQLiteCache(path)
	require.NoError(t, err)
	require.NoError(t, c.Migrate(ctx))
	require.NoError(t, c.SetItem(ctx, "userSettings", "saved"))
	require.NoError(t, c.Close())

	c, err = NewSQLiteCache(path)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Migrate(ctx))

	v, ok, err := c.GetItem(ctx, "userSettings")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "saved", v)
}

func TestSQLiteCache_MigrateIsIdempotent(t *testing.T) {
	c := createTestCache(t)
	require.NoError(t, c.Migrate(context.Background()))

	var version int
	require.NoError(t, c.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func TestSQLiteCache_Validation(t *testing.T) {
	c := createTestCache(t)

	//nolint:staticcheck // nil context is the case under test
	_, _, err := c.GetItem(nil, "userSettings")
	assert.ErrorIs(t, err, ErrNilContext)

	err = c.SetItem(context.Background(), "  ", "x")
	assert.ErrorIs(t, err, ErrEmptyString)

	_, err = NewSQLiteCache("")
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestSQLiteCache_DriverErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	c := &SQLiteCache{db: db, dbPath: "mock"}
	ctx := context.Background()
	diskErr := errors.New("disk I/O error")

	mock.ExpectExec("INSERT INTO kv_store").
		WithArgs("userSettings", "{}").
		WillReturnError(diskErr)
	mock.ExpectQuery("SELECT value FROM kv_store").
		WithArgs("userSettings").
		WillReturnError(diskErr)

	err = c.SetItem(ctx, "userSettings", "{}")
	require.ErrorIs(t, err, diskErr)
	assert.Contains(t, err.Error(), "failed to write userSettings")

	_, ok, err := c.GetItem(ctx, "userSettings")
	require.ErrorIs(t, err, diskErr)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}
