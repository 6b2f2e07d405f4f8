package state

import "github.com/nocdn/volumes/internal/bookmark"

// Overlays holds at most one provisional value per (item, field). A value is
// cleared when a snapshot carries an equal value, or when the mutation that
// set it fails.
//
// Confirmation is equality based. If the user commits a value that the
// server already held, the next snapshot clears the overlay before the
// mutation resolves and the old value may show briefly. Under a single
// writer this is accepted.
//
// Each Set returns a sequence number. Rollback takes it so that a failing
// older mutation cannot discard a newer commit for the same field.
type Overlays struct {
	entries map[overlayKey]overlay
	seq     uint64
}

type overlayKey struct {
	id    string
	field bookmark.Field
}

type overlay struct {
	value bookmark.Value
	seq   uint64
}

// Set stores value for (id, field), replacing any pending value.
func (o *Overlays) Set(id string, field bookmark.Field, value bookmark.Value) uint64 {
	if o.entries == nil {
		o.entries = make(map[overlayKey]overlay)
	}
	o.seq++
	o.entries[overlayKey{id, field}] = overlay{value: value, seq: o.seq}
	return o.seq
}

// Get returns the provisional value for (id, field).
func (o *Overlays) Get(id string, field bookmark.Field) (bookmark.Value, bool) {
	ov, ok := o.entries[overlayKey{id, field}]
	return ov.value, ok
}

// ClearIfConfirmed removes the overlay when serverValue equals it.
func (o *Overlays) ClearIfConfirmed(id string, field bookmark.Field, serverValue bookmark.Value) bool {
	key := overlayKey{id, field}
	ov, ok := o.entries[key]
	if !ok || !ov.value.Equal(serverValue) {
		return false
	}
	delete(o.entries, key)
	return true
}

// Rollback removes the overlay for (id, field) if it is still the one
// created with seq.
func (o *Overlays) Rollback(id string, field bookmark.Field, seq uint64) bool {
	key := overlayKey{id, field}
	ov, ok := o.entries[key]
	if !ok || ov.seq != seq {
		return false
	}
	delete(o.entries, key)
	return true
}

// Reconcile runs ClearIfConfirmed for every overlay against a fresh
// snapshot. Overlays for items the snapshot no longer carries are dropped.
// It returns the number of overlays removed.
func (o *Overlays) Reconcile(items []bookmark.Item) int {
	if len(o.entries) == 0 {
		return 0
	}
	byID := make(map[string]bookmark.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	removed := 0
	for key, ov := range o.entries {
		item, ok := byID[key.id]
		if !ok || ov.value.Equal(item.Get(key.field)) {
			delete(o.entries, key)
			removed++
		}
	}
	return removed
}

// Apply substitutes every overlaid field of item.
func (o *Overlays) Apply(item bookmark.Item) bookmark.Item {
	if len(o.entries) == 0 {
		return item
	}
	for _, field := range bookmark.EditableFields {
		if ov, ok := o.entries[overlayKey{item.ID, field}]; ok {
			item = item.With(field, ov.value)
		}
	}
	return item
}

// Len returns the number of pending overlays.
func (o *Overlays) Len() int {
	return len(o.entries)
}
