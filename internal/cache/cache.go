// Package cache implements the local persistent snapshot slot: one value,
// read once at startup, overwritten whole on every fresh snapshot.
package cache

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nocdn/volumes/internal/bookmark"
)

// Backend names a cache implementation.
type Backend string

const (
	BackendTOML   Backend = "toml"
	BackendSQLite Backend = "sqlite"
)

// formatVersion is bumped when the stored layout changes. Entries written
// with another version are treated as a miss.
const formatVersion = 1

// Slot is a snapshot cache. Load returns (nil, nil) when nothing has been
// saved. Content that cannot be decoded is reported as an error, which
// callers treat as a miss.
type Slot interface {
	Load() ([]bookmark.Item, error)
	Save(items []bookmark.Item) error
	io.Closer
}

// Open returns the slot for backend at path.
func Open(backend Backend, path string) (Slot, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("cache path required")
	}
	switch backend {
	case "", BackendTOML:
		return NewFile(path), nil
	case BackendSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

// ParseBackend validates a backend name. Empty selects TOML.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case "", BackendTOML:
		return BackendTOML, nil
	case BackendSQLite:
		return BackendSQLite, nil
	default:
		return "", fmt.Errorf("unknown cache backend %q (want toml or sqlite)", s)
	}
}

// entry is the persisted envelope around a snapshot.
type entry struct {
	Version int             `toml:"version" json:"version"`
	SavedAt time.Time       `toml:"saved_at" json:"savedAt"`
	Items   []bookmark.Item `toml:"items" json:"items"`
}

func newEntry(items []bookmark.Item) entry {
	return entry{Version: formatVersion, SavedAt: time.Now().UTC(), Items: items}
}

func (e entry) validate() error {
	if e.Version != formatVersion {
		return fmt.Errorf("snapshot cache version %d, want %d", e.Version, formatVersion)
	}
	for i, item := range e.Items {
		if strings.TrimSpace(item.ID) == "" {
			return fmt.Errorf("snapshot cache item %d has no id", i)
		}
	}
	return nil
}

func (e entry) items() []bookmark.Item {
	if e.Items == nil {
		return []bookmark.Item{}
	}
	return e.Items
}
