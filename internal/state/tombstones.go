package state

// Tombstones is the set of item ids removed locally. Items in the set stay
// hidden whatever later snapshots say. The zero value is ready to use.
type Tombstones struct {
	ids map[string]struct{}
}

// Add hides id.
func (t *Tombstones) Add(id string) {
	if t.ids == nil {
		t.ids = make(map[string]struct{})
	}
	t.ids[id] = struct{}{}
}

// Contains reports whether id is hidden.
func (t *Tombstones) Contains(id string) bool {
	_, ok := t.ids[id]
	return ok
}

// Remove un-hides id. Only used when a failed delete is surfaced.
func (t *Tombstones) Remove(id string) {
	delete(t.ids, id)
}

// Len returns the number of tombstoned ids.
func (t *Tombstones) Len() int {
	return len(t.ids)
}
