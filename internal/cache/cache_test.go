package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nocdn/volumes/internal/bookmark"
)

func sampleItems() []bookmark.Item {
	return []bookmark.Item{
		{
			ID:         "b",
			CreatedAt:  time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC),
			URL:        "https://b.com",
			Title:      "B",
			FaviconURL: bookmark.FaviconURL("https://b.com"),
			Tags:       []string{"go", "tools"},
			Comment:    "later",
		},
		{
			ID:        "a",
			CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
			URL:       "https://a.com",
			Title:     "A",
		},
	}
}

func openBoth(t *testing.T) map[string]Slot {
	t.Helper()
	dir := t.TempDir()

	sqlite, err := OpenSQLite(filepath.Join(dir, "nested", "cache.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Slot{
		"toml":   NewFile(filepath.Join(dir, "nested", "snapshot.toml")),
		"sqlite": sqlite,
	}
}

func TestSlot_MissingIsAbsent(t *testing.T) {
	for name, slot := range openBoth(t) {
		items, err := slot.Load()
		if err != nil || items != nil {
			t.Fatalf("%s: Load on empty slot = %#v, %v; want nil, nil", name, items, err)
		}
	}
}

func TestSlot_SaveThenLoad(t *testing.T) {
	for name, slot := range openBoth(t) {
		if err := slot.Save(sampleItems()); err != nil {
			t.Fatalf("%s: Save: %v", name, err)
		}
		got, err := slot.Load()
		if err != nil {
			t.Fatalf("%s: Load: %v", name, err)
		}
		if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
			t.Fatalf("%s: Load = %#v, want b,a", name, got)
		}
		if !got[0].CreatedAt.Equal(sampleItems()[0].CreatedAt) {
			t.Fatalf("%s: CreatedAt = %v", name, got[0].CreatedAt)
		}
		if !bookmark.TagsEqual(got[0].Tags, []string{"go", "tools"}) || got[0].Comment != "later" {
			t.Fatalf("%s: item = %#v", name, got[0])
		}
	}
}

func TestSlot_SaveOverwritesWhole(t *testing.T) {
	for name, slot := range openBoth(t) {
		_ = slot.Save(sampleItems())
		if err := slot.Save([]bookmark.Item{{ID: "only"}}); err != nil {
			t.Fatalf("%s: Save: %v", name, err)
		}
		got, _ := slot.Load()
		if len(got) != 1 || got[0].ID != "only" {
			t.Fatalf("%s: Load = %#v, want only the latest snapshot", name, got)
		}

		if err := slot.Save(nil); err != nil {
			t.Fatalf("%s: Save(nil): %v", name, err)
		}
		got, err := slot.Load()
		if err != nil || got == nil || len(got) != 0 {
			t.Fatalf("%s: Load after empty save = %#v, %v; want empty non-nil", name, got, err)
		}
	}
}

func TestFile_CorruptContentIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.toml")
	if err := os.WriteFile(path, []byte("this is = = not toml"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFile(path).Load(); err == nil {
		t.Fatalf("Load of corrupt file returned nil error")
	}

	if err := os.WriteFile(path, []byte("version = 99\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFile(path).Load(); err == nil {
		t.Fatalf("Load of foreign version returned nil error")
	}
}

func TestSQLite_CorruptPayloadIsAnError(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()

	if _, err := s.db.Exec(`INSERT INTO snapshot (slot, payload) VALUES (1, '{broken')`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := s.Load(); err == nil {
		t.Fatalf("Load of corrupt payload returned nil error")
	}
}

func TestOpenAndParseBackend(t *testing.T) {
	if _, err := Open(BackendTOML, ""); err == nil {
		t.Fatalf("Open with empty path should fail")
	}
	if _, err := Open("redis", "/tmp/x"); err == nil {
		t.Fatalf("Open with unknown backend should fail")
	}
	slot, err := Open("", filepath.Join(t.TempDir(), "s.toml"))
	if err != nil {
		t.Fatalf("Open default: %v", err)
	}
	if _, ok := slot.(*File); !ok {
		t.Fatalf("default backend = %T, want *File", slot)
	}

	if b, err := ParseBackend(" SQLite "); err != nil || b != BackendSQLite {
		t.Fatalf("ParseBackend(SQLite) = %q, %v", b, err)
	}
	if _, err := ParseBackend("bolt"); err == nil {
		t.Fatalf("ParseBackend(bolt) should fail")
	}
}
