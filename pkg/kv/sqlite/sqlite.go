// Package sqlite provides a SQLite-backed kv.Driver using mattn/go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver

	"github.com/papercomputeco/drift/pkg/kv"
)

// Driver implements kv.Driver on a SQLite database.
type Driver struct {
	db *sql.DB
}

// NewDriver opens (or creates) the database at dbPath and prepares the
// schema. dbPath can be a file path or ":memory:".
func NewDriver(dbPath string) (*Driver, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}

	d := &Driver{db: db}

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return d, nil
}

// migrate creates the entries table if it doesn't exist.
func (d *Driver) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := d.db.Exec(schema)
	return err
}

// Get retrieves the value stored under key.
func (d *Driver) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM entries WHERE key = ?`

	var value []byte
	err := d.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kv.NotFoundError{Key: key}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan entry: %w", err)
	}

	return value, nil
}

// Set writes value under key, overwriting any existing entry.
func (d *Driver) Set(ctx context.Context, key string, value []byte) error {
	query := `
	INSERT INTO entries (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`

	if _, err := d.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to upsert entry: %w", err)
	}

	return nil
}

// Remove deletes the entry under key. Absent keys are a no-op.
func (d *Driver) Remove(ctx context.Context, key string) error {
	query := `DELETE FROM entries WHERE key = ?`

	if _, err := d.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}

	return nil
}

// ListKeys returns all keys beginning with prefix, sorted ascending.
// The prefix match uses substr so LIKE metacharacters in keys need no escaping.
func (d *Driver) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	query := `SELECT key FROM entries WHERE substr(key, 1, ?) = ? ORDER BY key`

	rows, err := d.db.QueryContext(ctx, query, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to query keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return keys, nil
}

// Close closes the database connection.
func (d *Driver) Close() error {
	return d.db.Close()
}

// Ensure Driver implements kv.Driver
var _ kv.Driver = (*Driver)(nil)
