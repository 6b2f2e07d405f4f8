package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nocdn/volumes/internal/bookmark"
	"github.com/nocdn/volumes/internal/logger"
	"github.com/nocdn/volumes/internal/remote"
	"github.com/nocdn/volumes/internal/search"
)

const (
	defaultExtractTimeout = 5 * time.Second
	eventBuffer           = 64
)

var (
	// ErrClosed is returned by operations on a closed Session.
	ErrClosed = errors.New("session closed")
	// ErrUnknownItem is returned when an id is not in the current view.
	ErrUnknownItem = errors.New("unknown item")
	// ErrInFlight is returned when acting on a creation that has not resolved.
	ErrInFlight = errors.New("creation still in progress")
)

// EventKind classifies Session events.
type EventKind int

const (
	// EventSnapshot follows every subscription delivery, failed or not.
	EventSnapshot EventKind = iota + 1
	// EventChanged follows a local change: an edit, delete or enqueue.
	EventChanged
	EventCreated
	EventCreateFailed
	EventEditFailed
	EventDeleteFailed
)

func (k EventKind) String() string {
	switch k {
	case EventSnapshot:
		return "snapshot"
	case EventChanged:
		return "changed"
	case EventCreated:
		return "created"
	case EventCreateFailed:
		return "create_failed"
	case EventEditFailed:
		return "edit_failed"
	case EventDeleteFailed:
		return "delete_failed"
	default:
		return "unknown"
	}
}

// Event tells the presentation layer that Rows may have changed, and why.
type Event struct {
	Kind     EventKind
	ID       string
	ClientID string
	Field    bookmark.Field
	Err      error
}

// Options configure a Session. Service is required.
type Options struct {
	Service   remote.Service
	Extractor remote.Extractor
	Cache     Cache
	Logger    logger.Logger
	Search    search.Engine

	// ExtractTimeout bounds title extraction. Zero uses 5s.
	ExtractTimeout time.Duration
	// RestoreFailedDeletes un-hides an item when its delete fails.
	RestoreFailedDeletes bool
	// NewClientID generates placeholder ids. Defaults to random UUIDs.
	NewClientID func() string
}

// Session owns the client-side view of the collection: the snapshot store
// and the pending creations, tombstones and field overlays layered on top
// of it. It is created per view with NewSession, started with Start and torn
// down with Close. Completions that arrive after Close are ignored.
//
// All methods are safe for concurrent use.
type Session struct {
	service              remote.Service
	extractor            remote.Extractor
	log                  logger.Logger
	store                *Store
	extractTimeout       time.Duration
	restoreFailedDeletes bool
	newClientID          func() string

	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group
	events chan Event

	mu         sync.Mutex
	pending    PendingQueue
	tombstones Tombstones
	overlays   Overlays
	updates    map[overlayKey]*updateSlot
	query      string
	engine     search.Engine
	started    bool
	closed     bool
}

// NewSession builds a Session. Nothing runs until Start.
func NewSession(opts Options) (*Session, error) {
	if opts.Service == nil {
		return nil, fmt.Errorf("session requires a remote service")
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	timeout := opts.ExtractTimeout
	if timeout <= 0 {
		timeout = defaultExtractTimeout
	}
	newID := opts.NewClientID
	if newID == nil {
		newID = uuid.NewString
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		service:              opts.Service,
		extractor:            opts.Extractor,
		log:                  log,
		store:                NewStore(opts.Cache, log),
		extractTimeout:       timeout,
		restoreFailedDeletes: opts.RestoreFailedDeletes,
		newClientID:          newID,
		ctx:                  ctx,
		cancel:               cancel,
		events:               make(chan Event, eventBuffer),
		updates:              make(map[overlayKey]*updateSlot),
		engine:               opts.Search,
	}, nil
}

// Start loads the cached snapshot and begins consuming the remote
// subscription. The Session also stops when ctx is done.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("session already started")
	}
	s.started = true
	s.mu.Unlock()

	if s.store.Bootstrap() {
		s.log.Debug("bootstrapped from snapshot cache")
		s.emit(Event{Kind: EventSnapshot})
	}

	stop := context.AfterFunc(ctx, s.cancel)
	updates := s.service.Subscribe(s.ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		stop()
		return ErrClosed
	}
	s.goLocked(func() {
		defer stop()
		for update := range updates {
			s.apply(update)
		}
	})
	return nil
}

// Close cancels in-flight work, waits for it to finish and closes the event
// channel. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()

	s.cancel()
	return s.group.Wait()
}

// Events delivers change notifications. Sends never block: when the buffer
// is full the event is dropped, which is safe because any event already
// queued will cause the reader to re-read Rows. The channel is closed by
// Close.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Snapshot returns the current snapshot store state.
func (s *Session) Snapshot() Snapshot {
	return s.store.Snapshot()
}

// Rows materializes the current view.
func (s *Session) Rows() []Row {
	snap := s.store.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	return Materialize(Inputs{
		Base:       snap.Items,
		Pending:    s.pending.Items(),
		Tombstones: &s.tombstones,
		Overlays:   &s.overlays,
		Query:      s.query,
		Search:     s.engine,
	})
}

// SetQuery replaces the active search query.
func (s *Session) SetQuery(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = query
}

// Query returns the active search query.
func (s *Session) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// SetSearchMode switches the matching strategy.
func (s *Session) SetSearchMode(mode search.Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine = search.New(mode)
}

// SearchMode returns the active matching strategy.
func (s *Session) SearchMode() search.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Mode()
}

// Add enqueues a placeholder for sub and starts the creation flow: resolve
// the title, then create. It returns the placeholder's client id.
func (s *Session) Add(sub bookmark.Submission) (string, error) {
	rawURL := bookmark.NormalizeURL(sub.Text)
	if rawURL == "" {
		return "", fmt.Errorf("url required")
	}
	p := bookmark.Pending{
		ClientID:   s.newClientID(),
		URL:        rawURL,
		FaviconURL: bookmark.FaviconURL(rawURL),
		Tags:       bookmark.NormalizeTags(sub.Tags),
		Comment:    strings.TrimSpace(sub.Comment),
		State:      bookmark.PendingExtracting,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	s.pending.Enqueue(p)
	s.emitLocked(Event{Kind: EventChanged, ClientID: p.ClientID})
	s.goLocked(func() { s.runCreate(p.ClientID, true) })
	return p.ClientID, nil
}

// Retry re-issues the create for a failed placeholder.
func (s *Session) Retry(clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	p, ok := s.pending.Get(clientID)
	if !ok {
		return ErrUnknownItem
	}
	if p.State != bookmark.PendingFailed {
		return ErrInFlight
	}
	title := p.Title
	if title == "" {
		title = bookmark.FallbackTitle
	}
	s.pending.Resolve(clientID, title)
	s.emitLocked(Event{Kind: EventChanged, ClientID: clientID})
	s.goLocked(func() { s.runCreate(clientID, false) })
	return nil
}

// Discard drops a failed placeholder. Placeholders still in flight cannot
// be discarded.
func (s *Session) Discard(clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	p, ok := s.pending.Get(clientID)
	if !ok {
		return ErrUnknownItem
	}
	if p.State != bookmark.PendingFailed {
		return ErrInFlight
	}
	s.pending.Dequeue(clientID)
	s.emitLocked(Event{Kind: EventChanged, ClientID: clientID})
	return nil
}

// Edit commits a new value for one field of a confirmed item. The value is
// shown immediately and rolled back if the update fails. Committing the
// value already displayed is a no-op.
//
// At most one update per (id, field) is in flight. Commits made while one
// runs collapse into a single follow-up carrying the latest value, so the
// server never applies an older value after a newer one.
func (s *Session) Edit(id string, field bookmark.Field, value bookmark.Value) error {
	if _, err := bookmark.ParseField(string(field)); err != nil {
		return err
	}
	normalized := field.Normalize(value)
	if field == bookmark.FieldURL && normalized.Text == "" {
		return fmt.Errorf("url required")
	}

	item, ok := s.store.Item(id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if !ok || s.tombstones.Contains(id) {
		return ErrUnknownItem
	}
	if s.overlays.Apply(item).Get(field).Equal(normalized) {
		return nil
	}
	seq := s.overlays.Set(id, field, normalized)
	s.emitLocked(Event{Kind: EventChanged, ID: id, Field: field})

	next := queuedUpdate{value: normalized, seq: seq}
	key := overlayKey{id, field}
	if slot, busy := s.updates[key]; busy {
		slot.next = &next
		return nil
	}
	s.updates[key] = &updateSlot{}
	s.goLocked(func() { s.runUpdates(key, next) })
	return nil
}

// Delete hides id immediately and issues the delete.
func (s *Session) Delete(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrUnknownItem
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.tombstones.Contains(id) {
		return nil
	}
	s.tombstones.Add(id)
	for _, p := range s.pending.Items() {
		if p.ConfirmedID == id {
			s.pending.Dequeue(p.ClientID)
		}
	}
	s.emitLocked(Event{Kind: EventChanged, ID: id})
	s.goLocked(func() { s.runDelete(id) })
	return nil
}

// DeleteRow deletes whatever row is: a confirmed item, an acknowledged
// placeholder, or a failed placeholder (which is discarded).
func (s *Session) DeleteRow(row Row) error {
	if !row.IsPending() {
		return s.Delete(row.Item.ID)
	}
	switch {
	case row.Pending.ConfirmedID != "":
		return s.Delete(row.Pending.ConfirmedID)
	case row.Pending.State == bookmark.PendingFailed:
		return s.Discard(row.Pending.ClientID)
	default:
		return ErrInFlight
	}
}

// apply folds one subscription delivery into the view.
func (s *Session) apply(update remote.Update) {
	version := s.store.Update(update.Items, update.Err)
	if update.Err != nil {
		s.log.Warn("collection poll failed", logger.Error(update.Err))
		s.emit(Event{Kind: EventSnapshot, Err: update.Err})
		return
	}

	items := s.store.Snapshot().Items

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	cleared := s.overlays.Reconcile(items)
	confirmed := s.pending.Reconcile(items, version)
	if cleared > 0 || len(confirmed) > 0 {
		s.log.Debug("snapshot reconciled",
			logger.Uint64("version", version),
			logger.Int("overlays_cleared", cleared),
			logger.Strings("pending_confirmed", confirmed),
		)
	}
	s.emitLocked(Event{Kind: EventSnapshot})
}

func (s *Session) runCreate(clientID string, extract bool) {
	if extract {
		s.mu.Lock()
		p, ok := s.pending.Get(clientID)
		s.mu.Unlock()
		if !ok {
			return
		}

		title := s.extractTitle(p.URL, clientID)

		s.mu.Lock()
		if s.closed || !s.pending.Resolve(clientID, title) {
			s.mu.Unlock()
			return
		}
		s.emitLocked(Event{Kind: EventChanged, ClientID: clientID})
		s.mu.Unlock()
	}

	s.mu.Lock()
	p, ok := s.pending.Get(clientID)
	s.mu.Unlock()
	if !ok {
		return
	}

	id, err := s.service.Create(s.ctx, p.Draft())
	if s.ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if err != nil {
		s.pending.Fail(clientID, err)
		s.log.Warn("create failed", logger.String("client_id", clientID), logger.String("url", p.URL), logger.Error(err))
		s.emitLocked(Event{Kind: EventCreateFailed, ClientID: clientID, Err: err})
		return
	}
	s.pending.Acknowledge(clientID, id, s.store.Version())
	s.log.Debug("create acknowledged", logger.String("client_id", clientID), logger.String("id", id))
	s.emitLocked(Event{Kind: EventCreated, ID: id, ClientID: clientID})
	s.refresh()
}

func (s *Session) extractTitle(rawURL, clientID string) string {
	if s.extractor == nil {
		return bookmark.FallbackTitle
	}
	ctx, cancel := context.WithTimeout(s.ctx, s.extractTimeout)
	defer cancel()

	title, err := s.extractor.Extract(ctx, rawURL)
	if err != nil {
		s.log.Warn("title extraction failed, using fallback",
			logger.String("client_id", clientID), logger.String("url", rawURL), logger.Error(err))
		return bookmark.FallbackTitle
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return bookmark.FallbackTitle
	}
	return title
}

// updateSlot marks an update in flight for one (id, field). next is the
// latest value committed since it was sent.
type updateSlot struct {
	next *queuedUpdate
}

type queuedUpdate struct {
	value bookmark.Value
	seq   uint64
}

// runUpdates sends u, then any value committed while it was in flight, until
// the slot for key is drained.
func (s *Session) runUpdates(key overlayKey, u queuedUpdate) {
	for {
		err := s.service.Update(s.ctx, key.id, bookmark.PatchFor(key.field, u.value))
		if s.ctx.Err() != nil {
			return
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		if err != nil {
			rolledBack := s.overlays.Rollback(key.id, key.field, u.seq)
			s.log.Warn("update failed",
				logger.String("id", key.id), logger.String("field", string(key.field)),
				logger.Bool("rolled_back", rolledBack), logger.Error(err))
			s.emitLocked(Event{Kind: EventEditFailed, ID: key.id, Field: key.field, Err: err})
		}
		slot := s.updates[key]
		if slot == nil || slot.next == nil || (err == nil && slot.next.value.Equal(u.value)) {
			delete(s.updates, key)
			s.mu.Unlock()
			if err == nil {
				s.refresh()
			}
			return
		}
		u = *slot.next
		slot.next = nil
		s.mu.Unlock()
	}
}

func (s *Session) runDelete(id string) {
	err := s.service.Delete(s.ctx, id)
	if s.ctx.Err() != nil {
		return
	}
	if err == nil || errors.Is(err, remote.ErrNotFound) {
		s.refresh()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.log.Warn("delete failed", logger.String("id", id), logger.Bool("restored", s.restoreFailedDeletes), logger.Error(err))
	if s.restoreFailedDeletes {
		s.tombstones.Remove(id)
	}
	s.emitLocked(Event{Kind: EventDeleteFailed, ID: id, Err: err})
}

func (s *Session) refresh() {
	if r, ok := s.service.(remote.Refresher); ok {
		r.Refresh()
	}
}

// goLocked runs fn in the session's task group. Callers hold s.mu, which
// orders every Go before the Wait in Close.
func (s *Session) goLocked(fn func()) {
	if s.closed {
		return
	}
	s.group.Go(func() error {
		fn()
		return nil
	})
}

func (s *Session) emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitLocked(ev)
}

func (s *Session) emitLocked(ev Event) {
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
	}
}
