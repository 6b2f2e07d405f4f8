package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nocdn/volumes/internal/bookmark"
)

// clock returns increasing timestamps so newest-first order is deterministic.
func clock() func() time.Time {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func repositories(t *testing.T) map[string]Repository {
	t.Helper()

	mem := NewMemory()
	mem.now = clock()

	sq, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "data", "volumes.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	sq.now = clock()
	t.Cleanup(func() { _ = sq.Close() })

	repos := map[string]Repository{"memory": mem, "sqlite": sq}

	// Redis runs only against a real server; it flushes the selected DB.
	if addr := os.Getenv("VOLUMES_TEST_REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
		if err := client.FlushDB(context.Background()).Err(); err != nil {
			t.Fatalf("flush redis: %v", err)
		}
		r := NewRedis(client)
		r.now = clock()
		t.Cleanup(func() { _ = r.Close() })
		repos["redis"] = r
	}
	return repos
}

func TestRepository_CreateListNewestFirst(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		a, err := repo.Create(ctx, bookmark.Draft{URL: "a.com", Title: "  A  ", Tags: []string{"#Go", "go"}})
		if err != nil {
			t.Fatalf("%s: Create a: %v", name, err)
		}
		if a.ID == "" || a.URL != "https://a.com" || a.Title != "A" {
			t.Fatalf("%s: created = %#v", name, a)
		}
		if a.FaviconURL != bookmark.FaviconURL("https://a.com") {
			t.Fatalf("%s: FaviconURL = %q", name, a.FaviconURL)
		}
		if len(a.Tags) != 1 || a.Tags[0] != "go" {
			t.Fatalf("%s: Tags = %v, want [go]", name, a.Tags)
		}

		b, err := repo.Create(ctx, bookmark.Draft{URL: "https://b.com", Comment: "read later"})
		if err != nil {
			t.Fatalf("%s: Create b: %v", name, err)
		}
		if b.Title != bookmark.FallbackTitle {
			t.Fatalf("%s: Title = %q, want fallback", name, b.Title)
		}

		items, err := repo.List(ctx, 0)
		if err != nil {
			t.Fatalf("%s: List: %v", name, err)
		}
		if len(items) != 2 || items[0].ID != b.ID || items[1].ID != a.ID {
			t.Fatalf("%s: List = %#v, want b then a", name, items)
		}
		if items[0].Comment != "read later" {
			t.Fatalf("%s: Comment = %q", name, items[0].Comment)
		}

		limited, err := repo.List(ctx, 1)
		if err != nil || len(limited) != 1 || limited[0].ID != b.ID {
			t.Fatalf("%s: List(1) = %#v, %v", name, limited, err)
		}
	}
}

func TestRepository_ListCapsAtSnapshotLimit(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		for range bookmark.SnapshotLimit + 5 {
			if _, err := repo.Create(ctx, bookmark.Draft{URL: "x.com"}); err != nil {
				t.Fatalf("%s: Create: %v", name, err)
			}
		}
		items, err := repo.List(ctx, 1000)
		if err != nil {
			t.Fatalf("%s: List: %v", name, err)
		}
		if len(items) != bookmark.SnapshotLimit {
			t.Fatalf("%s: len(List) = %d, want %d", name, len(items), bookmark.SnapshotLimit)
		}
	}
}

func TestRepository_UpdateRederivesFavicon(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		created, err := repo.Create(ctx, bookmark.Draft{URL: "old.com", Title: "Old", Tags: []string{"x"}})
		if err != nil {
			t.Fatalf("%s: Create: %v", name, err)
		}

		newURL := "new.org"
		updated, err := repo.Update(ctx, created.ID, bookmark.Patch{URL: &newURL})
		if err != nil {
			t.Fatalf("%s: Update: %v", name, err)
		}
		if updated.URL != "https://new.org" || updated.FaviconURL != bookmark.FaviconURL("https://new.org") {
			t.Fatalf("%s: updated = %#v", name, updated)
		}
		if updated.Title != "Old" || len(updated.Tags) != 1 {
			t.Fatalf("%s: untouched fields changed: %#v", name, updated)
		}

		title := "New title"
		tags := []string{}
		if _, err := repo.Update(ctx, created.ID, bookmark.Patch{Title: &title, Tags: &tags}); err != nil {
			t.Fatalf("%s: Update title: %v", name, err)
		}
		got, err := repo.Get(ctx, created.ID)
		if err != nil {
			t.Fatalf("%s: Get: %v", name, err)
		}
		if got.Title != "New title" || len(got.Tags) != 0 || got.URL != "https://new.org" {
			t.Fatalf("%s: Get = %#v", name, got)
		}
		if !got.CreatedAt.Equal(created.CreatedAt) {
			t.Fatalf("%s: CreatedAt = %v, want %v", name, got.CreatedAt, created.CreatedAt)
		}
	}
}

func TestRepository_Errors(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		if _, err := repo.Create(ctx, bookmark.Draft{URL: "   "}); !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s: Create(blank) err = %v, want ErrInvalid", name, err)
		}

		title := "x"
		if _, err := repo.Update(ctx, "missing", bookmark.Patch{Title: &title}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s: Update(missing) err = %v, want ErrNotFound", name, err)
		}
		if err := repo.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s: Delete(missing) err = %v, want ErrNotFound", name, err)
		}
		if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s: Get(missing) err = %v, want ErrNotFound", name, err)
		}

		created, _ := repo.Create(ctx, bookmark.Draft{URL: "a.com"})
		empty := " "
		if _, err := repo.Update(ctx, created.ID, bookmark.Patch{URL: &empty}); !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s: Update(empty url) err = %v, want ErrInvalid", name, err)
		}
	}
}

func TestRepository_Delete(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		a, _ := repo.Create(ctx, bookmark.Draft{URL: "a.com"})
		b, _ := repo.Create(ctx, bookmark.Draft{URL: "b.com"})

		if err := repo.Delete(ctx, a.ID); err != nil {
			t.Fatalf("%s: Delete: %v", name, err)
		}
		items, _ := repo.List(ctx, 0)
		if len(items) != 1 || items[0].ID != b.ID {
			t.Fatalf("%s: List after delete = %#v", name, items)
		}
		if err := repo.Delete(ctx, a.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s: second Delete err = %v, want ErrNotFound", name, err)
		}
	}
}

func TestRepository_KeepsClientID(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		created, err := repo.Create(ctx, bookmark.Draft{URL: "a.com", ClientID: " c1 "})
		if err != nil {
			t.Fatalf("%s: Create: %v", name, err)
		}
		if created.ClientID != "c1" {
			t.Fatalf("%s: ClientID = %q, want c1", name, created.ClientID)
		}
		title := "Renamed"
		if _, err := repo.Update(ctx, created.ID, bookmark.Patch{Title: &title}); err != nil {
			t.Fatalf("%s: Update: %v", name, err)
		}
		items, err := repo.List(ctx, 0)
		if err != nil || len(items) != 1 || items[0].ClientID != "c1" {
			t.Fatalf("%s: List = %#v, %v, want client id c1 kept", name, items, err)
		}
	}
}

func TestSQLite_AddsClientIDColumnToOldDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "old.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err = db.ExecContext(ctx, `CREATE TABLE bookmarks (
		id TEXT PRIMARY KEY,
		created_at_unixns INTEGER NOT NULL,
		url TEXT NOT NULL,
		title TEXT NOT NULL,
		favicon TEXT NOT NULL,
		tags_json TEXT NOT NULL DEFAULT '[]',
		comment TEXT NOT NULL DEFAULT ''
	);`)
	if err != nil {
		t.Fatalf("create old table: %v", err)
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO bookmarks (id, created_at_unixns, url, title, favicon) VALUES ('old', 1, 'https://old.com', 'Old', '')`)
	if err != nil {
		t.Fatalf("insert old row: %v", err)
	}
	_ = db.Close()

	repo, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer repo.Close()
	got, err := repo.Get(ctx, "old")
	if err != nil || got.ClientID != "" || got.Title != "Old" {
		t.Fatalf("Get(old) = %#v, %v", got, err)
	}
	if _, err := repo.Create(ctx, bookmark.Draft{URL: "new.com", ClientID: "c2"}); err != nil {
		t.Fatalf("Create after migration: %v", err)
	}
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "volumes.db")

	first, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	created, err := first.Create(ctx, bookmark.Draft{URL: "a.com", Tags: []string{"keep"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_ = first.Close()

	second, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	got, err := second.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.URL != "https://a.com" || !bookmark.TagsEqual(got.Tags, []string{"keep"}) {
		t.Fatalf("Get = %#v", got)
	}
}

func TestOpenAndParseBackend(t *testing.T) {
	repo, err := Open(context.Background(), Options{Backend: BackendMemory})
	if err != nil {
		t.Fatalf("Open memory: %v", err)
	}
	if _, ok := repo.(*Memory); !ok {
		t.Fatalf("Open memory = %T", repo)
	}
	if _, err := Open(context.Background(), Options{Backend: "bolt"}); err == nil {
		t.Fatalf("Open(bolt) should fail")
	}
	if _, err := Open(context.Background(), Options{Backend: BackendSQLite}); err == nil {
		t.Fatalf("Open(sqlite) without a path should fail")
	}

	tests := map[string]Backend{"": BackendSQLite, "Redis": BackendRedis, " memory ": BackendMemory}
	for in, want := range tests {
		got, err := ParseBackend(in)
		if err != nil || got != want {
			t.Fatalf("ParseBackend(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseBackend("postgres"); err == nil {
		t.Fatalf("ParseBackend(postgres) should fail")
	}
}
