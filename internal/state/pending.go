package state

import "github.com/nocdn/volumes/internal/bookmark"

// PendingQueue holds client-originated creations that no snapshot has
// confirmed yet, newest first. It is not safe for concurrent use; Session
// guards it.
type PendingQueue struct {
	entries []pendingEntry
}

type pendingEntry struct {
	bookmark.Pending
	// ackVersion is the store version observed when the create was
	// acknowledged.
	ackVersion uint64
}

// Enqueue prepends p so that it renders above older placeholders.
func (q *PendingQueue) Enqueue(p bookmark.Pending) {
	q.entries = append([]pendingEntry{{Pending: p.Clone()}}, q.entries...)
}

// Dequeue removes the entry with clientID. Unknown ids are ignored.
func (q *PendingQueue) Dequeue(clientID string) bool {
	for i, e := range q.entries {
		if e.ClientID == clientID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns a copy of the entry with clientID.
func (q *PendingQueue) Get(clientID string) (bookmark.Pending, bool) {
	if e := q.find(clientID); e != nil {
		return e.Pending.Clone(), true
	}
	return bookmark.Pending{}, false
}

// Len returns the number of queued creations.
func (q *PendingQueue) Len() int {
	return len(q.entries)
}

// Items returns copies of the queued creations, newest first.
func (q *PendingQueue) Items() []bookmark.Pending {
	if len(q.entries) == 0 {
		return nil
	}
	out := make([]bookmark.Pending, len(q.entries))
	for i, e := range q.entries {
		out[i] = e.Pending.Clone()
	}
	return out
}

// Resolve records a resolved title and moves the entry to saving.
func (q *PendingQueue) Resolve(clientID, title string) bool {
	e := q.find(clientID)
	if e == nil {
		return false
	}
	e.Title = title
	e.State = bookmark.PendingSaving
	e.LastError = ""
	return true
}

// Acknowledge records the id the store assigned and the store version at
// the time of acknowledgement.
func (q *PendingQueue) Acknowledge(clientID, id string, version uint64) bool {
	e := q.find(clientID)
	if e == nil {
		return false
	}
	e.State = bookmark.PendingConfirmed
	e.ConfirmedID = id
	e.ackVersion = version
	return true
}

// Fail marks the entry failed. It stays queued until retried or dismissed.
func (q *PendingQueue) Fail(clientID string, err error) bool {
	e := q.find(clientID)
	if e == nil {
		return false
	}
	e.State = bookmark.PendingFailed
	if err != nil {
		e.LastError = err.Error()
	}
	return true
}

// Reconcile drops entries that a snapshot has caught up with. An entry
// goes when the snapshot carries an item stamped with its client id, which
// can happen before the create is acknowledged. An acknowledged entry also
// goes when the snapshot contains the confirmed id, or when the snapshot is
// the second since the acknowledgement and so was requested after it. That
// last case covers an item deleted elsewhere before we ever saw it.
// It returns the client ids removed.
func (q *PendingQueue) Reconcile(items []bookmark.Item, version uint64) []string {
	if len(q.entries) == 0 {
		return nil
	}
	ids := make(map[string]struct{}, len(items))
	clients := make(map[string]struct{})
	for _, item := range items {
		ids[item.ID] = struct{}{}
		if item.ClientID != "" {
			clients[item.ClientID] = struct{}{}
		}
	}

	var removed []string
	kept := q.entries[:0]
	for _, e := range q.entries {
		if _, ok := clients[e.ClientID]; ok {
			removed = append(removed, e.ClientID)
			continue
		}
		if e.State == bookmark.PendingConfirmed {
			_, seen := ids[e.ConfirmedID]
			if seen || version >= e.ackVersion+2 {
				removed = append(removed, e.ClientID)
				continue
			}
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(q.entries); i++ {
		q.entries[i] = pendingEntry{}
	}
	q.entries = kept
	return removed
}

func (q *PendingQueue) find(clientID string) *pendingEntry {
	for i := range q.entries {
		if q.entries[i].ClientID == clientID {
			return &q.entries[i]
		}
	}
	return nil
}
