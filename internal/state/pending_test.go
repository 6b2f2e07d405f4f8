package state

import (
	"errors"
	"testing"

	"github.com/nocdn/volumes/internal/bookmark"
)

func TestPendingQueue_EnqueuePrepends(t *testing.T) {
	var q PendingQueue
	q.Enqueue(bookmark.Pending{ClientID: "a"})
	q.Enqueue(bookmark.Pending{ClientID: "b"})
	q.Enqueue(bookmark.Pending{ClientID: "c"})

	items := q.Items()
	if len(items) != 3 || items[0].ClientID != "c" || items[2].ClientID != "a" {
		t.Fatalf("Items = %#v, want c,b,a", items)
	}
}

func TestPendingQueue_DequeueRemovesOnlyMatch(t *testing.T) {
	var q PendingQueue
	q.Enqueue(bookmark.Pending{ClientID: "a"})
	q.Enqueue(bookmark.Pending{ClientID: "b"})

	if !q.Dequeue("a") {
		t.Fatalf("Dequeue(a) = false")
	}
	if q.Dequeue("a") {
		t.Fatalf("second Dequeue(a) = true, want false")
	}
	if q.Len() != 1 {
		t.Fatalf("Len = %d, want 1", q.Len())
	}
	if _, ok := q.Get("b"); !ok {
		t.Fatalf("b should remain")
	}
}

func TestPendingQueue_Lifecycle(t *testing.T) {
	var q PendingQueue
	q.Enqueue(bookmark.Pending{ClientID: "a", URL: "https://a.com", State: bookmark.PendingExtracting})

	q.Resolve("a", "Title")
	p, _ := q.Get("a")
	if p.State != bookmark.PendingSaving || p.Title != "Title" {
		t.Fatalf("after Resolve: %#v", p)
	}

	q.Fail("a", errors.New("boom"))
	p, _ = q.Get("a")
	if p.State != bookmark.PendingFailed || p.LastError != "boom" {
		t.Fatalf("after Fail: %#v", p)
	}

	q.Resolve("a", "Title")
	q.Acknowledge("a", "srv-1", 4)
	p, _ = q.Get("a")
	if p.State != bookmark.PendingConfirmed || p.ConfirmedID != "srv-1" || p.LastError != "" {
		t.Fatalf("after Acknowledge: %#v", p)
	}

	if q.Resolve("missing", "x") || q.Fail("missing", nil) || q.Acknowledge("missing", "x", 0) {
		t.Fatalf("operations on unknown client ids should report false")
	}
}

func TestPendingQueue_ReconcileBySnapshot(t *testing.T) {
	var q PendingQueue
	q.Enqueue(bookmark.Pending{ClientID: "seen"})
	q.Enqueue(bookmark.Pending{ClientID: "late"})
	q.Enqueue(bookmark.Pending{ClientID: "inflight"})
	q.Acknowledge("seen", "id-seen", 3)
	q.Acknowledge("late", "id-late", 3)

	// Snapshot 4 may have been requested before the ack: only the id match counts.
	removed := q.Reconcile([]bookmark.Item{{ID: "id-seen"}}, 4)
	if len(removed) != 1 || removed[0] != "seen" {
		t.Fatalf("Reconcile(v4) removed %v, want [seen]", removed)
	}

	// Snapshot 5 was requested after the ack; an absent item is gone for good.
	removed = q.Reconcile(nil, 5)
	if len(removed) != 1 || removed[0] != "late" {
		t.Fatalf("Reconcile(v5) removed %v, want [late]", removed)
	}

	// Unacknowledged entries stay until a snapshot carries their client id.
	removed = q.Reconcile([]bookmark.Item{{ID: "other", ClientID: "someone-else"}}, 100)
	if len(removed) != 0 || q.Len() != 1 {
		t.Fatalf("Reconcile removed %v, len %d; in-flight entry must remain", removed, q.Len())
	}
	removed = q.Reconcile([]bookmark.Item{{ID: "srv-9", ClientID: "inflight"}}, 101)
	if len(removed) != 1 || removed[0] != "inflight" || q.Len() != 0 {
		t.Fatalf("Reconcile removed %v, len %d; want the entry matched by client id", removed, q.Len())
	}
}

func TestTombstones(t *testing.T) {
	var ts Tombstones
	if ts.Contains("1") {
		t.Fatalf("zero Tombstones should be empty")
	}
	ts.Add("1")
	ts.Add("1")
	if !ts.Contains("1") || ts.Len() != 1 {
		t.Fatalf("Contains/Len after Add = %v/%d", ts.Contains("1"), ts.Len())
	}
	ts.Remove("1")
	if ts.Contains("1") {
		t.Fatalf("Remove did not remove")
	}
}
