package cryptofolio

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore is the durable DocumentStore backend: one row per named JSON
// document in a single table.
type SQLiteStore struct {
	conn *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the documents database.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	// WAL mode for better concurrency
	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := conn.Exec(`CREATE TABLE IF NOT EXISTS documents (
		name TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		updated_at INTEGER NOT NULL DEFAULT (unixepoch())
	)`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create documents table: %w", err)
	}
	return &SQLiteStore{conn: conn}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error { return s.conn.Close() }

// Get returns the named document, ok=false when it does not exist.
func (s *SQLiteStore) Get(name string) ([]byte, bool, error) {
	var data []byte
	err := s.conn.QueryRow(`SELECT data FROM documents WHERE name = ?`, name).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read document %q: %w", name, err)
	}
	return data, true, nil
}

// Put writes the named document, replacing any previous version.
func (s *SQLiteStore) Put(name string, data []byte) error {
	_, err := s.conn.Exec(`INSERT INTO documents (name, data, updated_at)
		VALUES (?, ?, unixepoch())
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		name, data)
	if err != nil {
		return fmt.Errorf("failed to write document %q: %w", name, err)
	}
	return nil
}

// Delete removes the named document if present.
func (s *SQLiteStore) Delete(name string) error {
	if _, err := s.conn.Exec(`DELETE FROM documents WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete document %q: %w", name, err)
	}
	return nil
}
