// Package storage persists the bookmark collection behind the server API.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nocdn/volumes/internal/bookmark"
	"github.com/nocdn/volumes/internal/logger"
)

var (
	// ErrNotFound is returned for operations on an id the store does not hold.
	ErrNotFound = errors.New("bookmark not found")
	// ErrInvalid is returned when a draft or patch would store an item
	// without a URL.
	ErrInvalid = errors.New("invalid bookmark")
)

// Repository is the authoritative bookmark collection.
type Repository interface {
	// List returns up to limit items, newest first.
	List(ctx context.Context, limit int) ([]bookmark.Item, error)
	Get(ctx context.Context, id string) (bookmark.Item, error)
	// Create assigns an id and creation time and derives the favicon.
	Create(ctx context.Context, draft bookmark.Draft) (bookmark.Item, error)
	// Update applies the non-nil fields of patch. A URL change re-derives
	// the favicon.
	Update(ctx context.Context, id string, patch bookmark.Patch) (bookmark.Item, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Backend names a Repository implementation.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendSQLite Backend = "sqlite"
	BackendRedis  Backend = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Backend       Backend
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Logger        logger.Logger
}

// Open builds the configured backend. Backends that talk to a server
// verify the connection before returning.
func Open(ctx context.Context, opts Options) (Repository, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	switch opts.Backend {
	case BackendMemory:
		return NewMemory(), nil
	case "", BackendSQLite:
		return OpenSQLite(ctx, opts.SQLitePath)
	case BackendRedis:
		return OpenRedis(ctx, RedisOptions{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		}, log)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}

// ParseBackend validates a backend name. Empty selects SQLite.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case "":
		return BackendSQLite, nil
	case BackendMemory, BackendSQLite, BackendRedis:
		return b, nil
	default:
		return "", fmt.Errorf("unknown storage backend %q (want sqlite, redis or memory)", s)
	}
}

func newItem(draft bookmark.Draft, now time.Time) (bookmark.Item, error) {
	d := draft.Normalize()
	if d.URL == "" {
		return bookmark.Item{}, fmt.Errorf("%w: url required", ErrInvalid)
	}
	return bookmark.Item{
		ID:         uuid.NewString(),
		CreatedAt:  now.UTC(),
		URL:        d.URL,
		Title:      d.Title,
		FaviconURL: bookmark.FaviconURL(d.URL),
		Tags:       d.Tags,
		Comment:    strings.TrimSpace(d.Comment),
		ClientID:   d.ClientID,
	}, nil
}

func applyPatch(item bookmark.Item, patch bookmark.Patch) (bookmark.Item, error) {
	p := patch.Normalize()
	if p.URL != nil && *p.URL == "" {
		return bookmark.Item{}, fmt.Errorf("%w: url cannot be empty", ErrInvalid)
	}
	if p.Title != nil && *p.Title == "" {
		title := bookmark.FallbackTitle
		p.Title = &title
	}
	return p.Apply(item), nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > bookmark.SnapshotLimit {
		return bookmark.SnapshotLimit
	}
	return limit
}

func sortNewestFirst(items []bookmark.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
