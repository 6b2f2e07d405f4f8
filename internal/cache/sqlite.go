package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/nocdn/volumes/internal/bookmark"
)

// SQLite stores the snapshot as a JSON payload in a single-row table.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the cache database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	_, err = db.Exec(`
		PRAGMA busy_timeout = 5000;

		CREATE TABLE IF NOT EXISTS snapshot (
			slot INTEGER PRIMARY KEY CHECK (slot = 1),
			payload TEXT NOT NULL
		);
	`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setup cache database: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Load reads the cached snapshot.
func (s *SQLite) Load() ([]bookmark.Item, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM snapshot WHERE slot = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot cache: %w", err)
	}
	var e entry
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return nil, fmt.Errorf("decode snapshot cache: %w", err)
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	return e.items(), nil
}

// Save overwrites the cached snapshot.
func (s *SQLite) Save(items []bookmark.Item) error {
	payload, err := json.Marshal(newEntry(items))
	if err != nil {
		return fmt.Errorf("encode snapshot cache: %w", err)
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO snapshot (slot, payload) VALUES (1, ?)`, string(payload))
	if err != nil {
		return fmt.Errorf("write snapshot cache: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
