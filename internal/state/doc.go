// Package state holds the client-side optimistic view of the bookmark
// collection.
//
// # Overview
//
// The authoritative collection lives on the server. The client shows it
// with no perceptible latency while the user's own creates, edits and
// deletes are still in flight. Four sources feed the rendered list:
//
//   - the last snapshot received from the server (Store)
//   - the locally cached snapshot, used until the first one arrives (Cache)
//   - placeholders for creations not yet seen in any snapshot (PendingQueue)
//   - ids deleted locally (Tombstones) and per-field edits (Overlays)
//
// Materialize combines them, with the active search query, into the rows
// the UI renders.
//
// # Architecture
//
//	Subscription goroutine:         Presentation layer:
//	┌─────────────────────┐        ┌────────────────────┐
//	│ remote.Subscribe()  │        │ Add / Edit / Delete │
//	│        ↓            │        │        ↓            │
//	│ store.Update()      │        │ overlay / tombstone │
//	│   ↳ cache.Save()    │        │ / pending change    │
//	│        ↓            │        │        ↓            │
//	│ reconcile overlays  │        │ mutation goroutine  │
//	│ and pending         │        │        ↓            │
//	└────────┬────────────┘        │ ack / rollback      │
//	         │                     └────────┬───────────┘
//	         └──────→ Events() ←────────────┘
//	                     ↓
//	               session.Rows()
//
// Session is the container that owns all of it. It is constructed
// explicitly, started, and closed; nothing in this package is global.
//
// # Core Types
//
// Store:
//   - Latest snapshot, newest-first, capped at 100 items
//   - Update(err) keeps the previous items and counts the failure
//   - Every successful Update is written through to the Cache
//
// PendingQueue, Tombstones, Overlays:
//   - Plain data structures, not safe for concurrent use on their own
//   - Session guards them with a single mutex
//
// Materialize:
//   - Pure function from Inputs to []Row
//   - Pending rows come first and are never filtered by search
//
// # Reconciliation Rules
//
// Overlays clear when a snapshot carries an equal value, or when the
// mutation that created them fails. A newer commit for the same field
// replaces the older one; the older mutation's failure does not touch it.
//
// Tombstones are never cleared by success. The item simply stops appearing
// in snapshots. A failed delete leaves the tombstone in place unless
// Options.RestoreFailedDeletes is set.
//
// A pending creation is acknowledged with the server id, then dequeued once
// a snapshot contains that id (or the second snapshot after the ack does
// not). Until then Materialize hides it if the id is already in the base
// list, so the item never shows twice and never disappears.
//
// # Concurrency Model
//
// The subscription and every mutation run in the Session's errgroup.
// Completion handlers take the Session lock and check that the Session is
// still open before touching state, so a Close during a mutation is safe.
// Events are sent without blocking; a full buffer drops the event, since
// any queued event already tells the reader to re-read Rows.
//
// # Usage Example
//
//	session, err := state.NewSession(state.Options{
//		Service:   client,
//		Extractor: client,
//		Cache:     snapshotCache,
//		Logger:    log,
//	})
//	if err != nil {
//		return err
//	}
//	if err := session.Start(ctx); err != nil {
//		return err
//	}
//	defer session.Close()
//
//	for range session.Events() {
//		render(session.Rows())
//	}
package state
