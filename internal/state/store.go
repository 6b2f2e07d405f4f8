package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/nocdn/volumes/internal/bookmark"
	"github.com/nocdn/volumes/internal/logger"
)

// Cache is the local persistent slot holding the most recent snapshot.
// Load returns (nil, nil) when nothing has been saved yet; any error is
// treated by the Store as a cache miss.
type Cache interface {
	Load() ([]bookmark.Item, error)
	Save(items []bookmark.Item) error
}

// Snapshot represents the latest collection data available to the UI.
type Snapshot struct {
	Items []bookmark.Item

	// Loaded is set once a remote snapshot has arrived. Before that, Items
	// holds whatever the local cache had (Cached) or nothing.
	Loaded bool
	Cached bool

	// Version counts successful remote updates.
	Version uint64

	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive poll failures
}

// Ready reports whether Items came from either the remote or the cache.
func (s Snapshot) Ready() bool {
	return s.Loaded || s.Cached
}

// IsOffline returns true when the API has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates to the snapshot and writes every
// fresh snapshot through to the cache.
type Store struct {
	mu       sync.RWMutex
	saveMu   sync.Mutex
	snapshot Snapshot
	cache    Cache
	log      logger.Logger
}

// NewStore returns a Store backed by cache. Both arguments may be nil.
func NewStore(cache Cache, log logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{cache: cache, log: log}
}

// Bootstrap loads the cached snapshot so that the first render is not empty.
// It does nothing once a remote snapshot has arrived. Corrupt or unreadable
// cache content is logged and ignored.
func (s *Store) Bootstrap() bool {
	if s.cache == nil {
		return false
	}
	items, err := s.cache.Load()
	if err != nil {
		s.logger().Warn("snapshot cache unreadable, starting empty", logger.Error(err))
		return false
	}
	if items == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot.Loaded {
		return false
	}
	s.snapshot.Items = capItems(bookmark.CloneItems(items))
	s.snapshot.Cached = true
	return true
}

// Update replaces the stored snapshot. When err is non-nil the previous data is
// kept but the error is recorded for visibility. It returns the version now
// in effect.
func (s *Store) Update(items []bookmark.Item, err error) uint64 {
	s.mu.Lock()
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		s.snapshot.ConsecutiveFailures++
		version := s.snapshot.Version
		s.mu.Unlock()
		return version
	}

	s.snapshot.Items = capItems(bookmark.CloneItems(items))
	s.snapshot.Loaded = true
	s.snapshot.Cached = false
	s.snapshot.Version++
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
	version := s.snapshot.Version
	toSave := bookmark.CloneItems(s.snapshot.Items)
	s.mu.Unlock()

	s.persist(version, toSave)
	return version
}

// persist writes a snapshot to the cache outside the state lock. Saves are
// serialised so an older snapshot never overwrites a newer one.
func (s *Store) persist(version uint64, items []bookmark.Item) {
	if s.cache == nil {
		return
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	stale := s.snapshot.Version != version
	s.mu.RUnlock()
	if stale {
		return
	}
	if items == nil {
		items = []bookmark.Item{}
	}
	if err := s.cache.Save(items); err != nil {
		s.logger().Warn("snapshot cache write failed", logger.Error(err), logger.Uint64("version", version))
	}
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Items = bookmark.CloneItems(s.snapshot.Items)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

// Item looks up id in the current snapshot.
func (s *Store) Item(id string) (bookmark.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.snapshot.Items {
		if item.ID == id {
			return item.Clone(), true
		}
	}
	return bookmark.Item{}, false
}

// Version returns the number of successful remote updates so far.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Version
}

func (s *Store) logger() logger.Logger {
	if s.log == nil {
		return logger.Nop()
	}
	return s.log
}

func capItems(items []bookmark.Item) []bookmark.Item {
	if len(items) > bookmark.SnapshotLimit {
		return items[:bookmark.SnapshotLimit]
	}
	return items
}
