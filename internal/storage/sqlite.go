package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteCache keeps cached values in a single SQLite table.
type SQLiteCache struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteCache opens (creating if needed) the cache database at dbPath.
// Call Migrate before use.
func NewSQLiteCache(dbPath string) (*SQLiteCache, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}

	return &SQLiteCache{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteCache) Close() error {
	return s.db.Close()
}

// GetItem returns the value stored under key. The boolean is false when the
// key has never been written.
func (s *SQLiteCache) GetItem(ctx context.Context, key string) (string, bool, error) {
	if err := validateKey(ctx, key); err != nil {
		return "", false, err
	}

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

// SetItem stores value under key, replacing any previous value.
func (s *SQLiteCache) SetItem(ctx context.Context, key, value string) error {
	if err := validateKey(ctx, key); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, updated_at, writes)
		VALUES (?, ?, CURRENT_TIMESTAMP, 1)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP,
			writes = kv_store.writes + 1`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}

	slog.Debug("Cached value", "key", key, "bytes", len(value), "path", s.dbPath)
	return nil
}

// Writes reports how many times key has been written.
func (s *SQLiteCache) Writes(ctx context.Context, key string) (int, error) {
	if err := validateKey(ctx, key); err != nil {
		return 0, err
	}

	var writes int
	err := s.db.QueryRowContext(ctx, `SELECT writes FROM kv_store WHERE key = ?`, key).Scan(&writes)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count writes for %s: %w", key, err)
	}
	return writes, nil
}
