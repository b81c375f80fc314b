// Package store provides the embedded SQLite database behind logbook.
//
// The database runs through ncruces/go-sqlite3 (a pure Go, wasm-backed build
// of SQLite) in WAL mode with foreign keys on. Besides the record CRUD used by
// the CLI it implements the two collaborator roles of the export/import
// engine: a read-only Snapshot for export and reconcile.Target for import.
//
// Timestamps are stored as RFC 3339 UTC text and decimals as exact base-10
// text, so nothing is ever converted through binary floating point.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB wraps the SQLite connection.
type DB struct {
	conn *sql.DB
	path string
	now  func() time.Time
}

// Open creates or opens the database at path and applies connection pragmas.
// The caller must call Close.
//
// Example:
//
//	db, err := store.Open("~/.local/share/logbook/logbook.db")
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.InitSchema(); err != nil {
//	    return err
//	}
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// A single writer keeps imports serialised at the connection level.
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, path: path, now: time.Now}

	pragmas := []struct {
		stmt string
		what string
	}{
		{"PRAGMA journal_mode=WAL", "enable WAL mode"},
		{"PRAGMA busy_timeout=5000", "set busy timeout"},
		{"PRAGMA foreign_keys=ON", "enable foreign keys"},
	}
	for _, p := range pragmas {
		if _, err := db.conn.Exec(p.stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to %s: %w", p.what, err)
		}
	}

	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// InitSchema creates the tables if they don't exist. Safe to call repeatedly.
func (db *DB) InitSchema() error {
	return db.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the schema with context support.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		tag TEXT NOT NULL DEFAULT '',
		hourly_rate TEXT NOT NULL DEFAULT '0'
	);

	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		kind INTEGER NOT NULL,      -- 0 task, 1 note, 2 payment
		occurs_at TEXT,
		created_at TEXT,
		description TEXT NOT NULL,
		is_complete INTEGER NOT NULL DEFAULT 0,
		amount TEXT NOT NULL DEFAULT '0',
		tag TEXT NOT NULL DEFAULT '',
		client_id TEXT REFERENCES clients(id) ON DELETE SET NULL
	);

	CREATE INDEX IF NOT EXISTS idx_clients_name ON clients(name);
	CREATE INDEX IF NOT EXISTS idx_entries_kind ON entries(kind);
	CREATE INDEX IF NOT EXISTS idx_entries_occurs ON entries(occurs_at);
	CREATE INDEX IF NOT EXISTS idx_entries_client ON entries(client_id);
	`

	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// ClientCount returns the number of clients.
func (db *DB) ClientCount() (int, error) {
	return db.ClientCountContext(context.Background())
}

// ClientCountContext returns the number of clients with context support.
func (db *DB) ClientCountContext(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM clients").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get client count: %w", err)
	}
	return count, nil
}

// EntryCount returns the number of entries.
func (db *DB) EntryCount() (int, error) {
	return db.EntryCountContext(context.Background())
}

// EntryCountContext returns the number of entries with context support.
func (db *DB) EntryCountContext(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get entry count: %w", err)
	}
	return count, nil
}
