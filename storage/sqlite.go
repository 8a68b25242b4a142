package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLite is a durable Storage implementation backed by a local SQLite
// file, for hosts that want a persistent default store without writing
// their own (spec.md §6's storage abstraction is "typically the
// host-provided persistent store"; this is a concrete one). Modeled on
// internal/database/database.go's connection setup (single-connection
// pool, WAL journal — SQLite does not support concurrent writers).
type SQLite struct {
	db *sql.DB
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS identitypool_storage (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// NewSQLite opens (creating if necessary) a SQLite-backed store at path.
func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: creating directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: opening sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA journal_mode = WAL"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("storage: setting pragma: %w", err)
		}
	}

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: creating table: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) GetItem(key string) (string, bool) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM identitypool_storage WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

func (s *SQLite) SetItem(key, value string) {
	_, _ = s.db.Exec(
		`INSERT INTO identitypool_storage (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
}

func (s *SQLite) RemoveItem(key string) {
	_, _ = s.db.Exec(`DELETE FROM identitypool_storage WHERE key = ?`, key)
}

func (s *SQLite) Clear() {
	_, _ = s.db.Exec(`DELETE FROM identitypool_storage`)
}
