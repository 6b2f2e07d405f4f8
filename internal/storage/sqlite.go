package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nocdn/volumes/internal/bookmark"
)

var _ Repository = (*SQLite)(nil)

// SQLite stores one row per bookmark. Tags are kept as a JSON array.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	// modernc.org/sqlite registers as "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps per-connection pragmas in force and serializes
	// writers.
	db.SetMaxOpenConns(1)
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db, now: time.Now}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS bookmarks (
			id TEXT PRIMARY KEY,
			created_at_unixns INTEGER NOT NULL,
			url TEXT NOT NULL,
			title TEXT NOT NULL,
			favicon TEXT NOT NULL,
			tags_json TEXT NOT NULL DEFAULT '[]',
			comment TEXT NOT NULL DEFAULT '',
			client_id TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_bookmarks_created ON bookmarks(created_at_unixns DESC);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
	}
	// Databases created before client ids were stored lack the column.
	return addColumn(ctx, db, "client_id", `TEXT NOT NULL DEFAULT ''`)
}

func addColumn(ctx context.Context, db *sql.DB, name, decl string) error {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info('bookmarks') WHERE name = ?`, name).Scan(&n)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := db.ExecContext(ctx, `ALTER TABLE bookmarks ADD COLUMN `+name+` `+decl); err != nil {
		return fmt.Errorf("migrate database: add %s: %w", name, err)
	}
	return nil
}

const selectColumns = `id, created_at_unixns, url, title, favicon, tags_json, comment, client_id`

func (s *SQLite) List(ctx context.Context, limit int) ([]bookmark.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM bookmarks ORDER BY created_at_unixns DESC, rowid DESC LIMIT ?`,
		clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()

	items := []bookmark.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	return items, nil
}

func (s *SQLite) Get(ctx context.Context, id string) (bookmark.Item, error) {
	return s.get(ctx, s.db, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLite) get(ctx context.Context, q queryer, id string) (bookmark.Item, error) {
	row := q.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM bookmarks WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return bookmark.Item{}, ErrNotFound
	}
	return item, err
}

func (s *SQLite) Create(ctx context.Context, draft bookmark.Draft) (bookmark.Item, error) {
	item, err := newItem(draft, s.now())
	if err != nil {
		return bookmark.Item{}, err
	}
	tags, err := encodeTags(item.Tags)
	if err != nil {
		return bookmark.Item{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO bookmarks (id, created_at_unixns, url, title, favicon, tags_json, comment, client_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.CreatedAt.UnixNano(), item.URL, item.Title, item.FaviconURL, tags, item.Comment, item.ClientID)
	if err != nil {
		return bookmark.Item{}, fmt.Errorf("insert bookmark: %w", err)
	}
	return item, nil
}

func (s *SQLite) Update(ctx context.Context, id string, patch bookmark.Patch) (bookmark.Item, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return bookmark.Item{}, fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := s.get(ctx, tx, id)
	if err != nil {
		return bookmark.Item{}, err
	}
	updated, err := applyPatch(current, patch)
	if err != nil {
		return bookmark.Item{}, err
	}
	tags, err := encodeTags(updated.Tags)
	if err != nil {
		return bookmark.Item{}, err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE bookmarks SET url = ?, title = ?, favicon = ?, tags_json = ? WHERE id = ?`,
		updated.URL, updated.Title, updated.FaviconURL, tags, id)
	if err != nil {
		return bookmark.Item{}, fmt.Errorf("update bookmark: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return bookmark.Item{}, fmt.Errorf("commit update: %w", err)
	}
	return updated, nil
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(sc scanner) (bookmark.Item, error) {
	var (
		item     bookmark.Item
		created  int64
		tagsJSON string
	)
	err := sc.Scan(&item.ID, &created, &item.URL, &item.Title, &item.FaviconURL, &tagsJSON, &item.Comment, &item.ClientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return bookmark.Item{}, err
		}
		return bookmark.Item{}, fmt.Errorf("scan bookmark: %w", err)
	}
	item.CreatedAt = time.Unix(0, created).UTC()
	if err := json.Unmarshal([]byte(tagsJSON), &item.Tags); err != nil {
		return bookmark.Item{}, fmt.Errorf("decode tags for %s: %w", item.ID, err)
	}
	if item.Tags == nil {
		item.Tags = []string{}
	}
	return item, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}
