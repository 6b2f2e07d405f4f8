package storage

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/nocdn/volumes/internal/bookmark"
)

var _ Repository = (*Memory)(nil)

// Memory keeps the collection in process. Used by tests and `serve
// --storage memory`.
type Memory struct {
	mu    sync.RWMutex
	items []bookmark.Item // newest first
	now   func() time.Time
}

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

func (m *Memory) List(_ context.Context, limit int) ([]bookmark.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := min(clampLimit(limit), len(m.items))
	out := make([]bookmark.Item, n)
	for i := range n {
		out[i] = m.items[i].Clone()
	}
	return out, nil
}

func (m *Memory) Get(_ context.Context, id string) (bookmark.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.index(id)
	if i < 0 {
		return bookmark.Item{}, ErrNotFound
	}
	return m.items[i].Clone(), nil
}

func (m *Memory) Create(_ context.Context, draft bookmark.Draft) (bookmark.Item, error) {
	item, err := newItem(draft, m.now())
	if err != nil {
		return bookmark.Item{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = slices.Insert(m.items, 0, item)
	sortNewestFirst(m.items)
	return item.Clone(), nil
}

func (m *Memory) Update(_ context.Context, id string, patch bookmark.Patch) (bookmark.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(id)
	if i < 0 {
		return bookmark.Item{}, ErrNotFound
	}
	updated, err := applyPatch(m.items[i], patch)
	if err != nil {
		return bookmark.Item{}, err
	}
	m.items[i] = updated
	return updated.Clone(), nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(id)
	if i < 0 {
		return ErrNotFound
	}
	m.items = slices.Delete(m.items, i, i+1)
	return nil
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) index(id string) int {
	return slices.IndexFunc(m.items, func(item bookmark.Item) bool {
		return item.ID == id
	})
}
