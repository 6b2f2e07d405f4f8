// Package remote provides the client side of the volumes collection API.
//
// # Overview
//
// The client core never talks HTTP directly. It depends on two small
// contracts defined here:
//
//   - Service: subscribe to snapshots, create, update and delete items
//   - Extractor: resolve a page title for a URL
//
// *Client implements both against the server in internal/server.
//
// # Client Usage
//
//	client, err := remote.NewClient("127.0.0.1:7490", remote.WithPollInterval(2*time.Second))
//	if err != nil {
//		return err
//	}
//
//	for update := range client.Subscribe(ctx) {
//		if update.Err != nil {
//			// keep showing the last good snapshot
//			continue
//		}
//		render(update.Items)
//	}
//
// # API Endpoints
//
//   - GET    /api/bookmarks?limit=N   newest-first list, N <= 100
//   - POST   /api/bookmarks           create, returns {"id": ...}
//   - PATCH  /api/bookmarks/{id}      partial update
//   - DELETE /api/bookmarks/{id}      delete
//   - GET    /api/metadata?url=U      page title lookup
//   - GET    /healthz                 liveness
//
// # Subscription
//
// Subscribe is a poll loop. Snapshots are delivered in request order on an
// unbuffered channel, so a consumer always sees them oldest to newest. After
// a failed poll the next one waits twice as long, capped at 30 seconds; a
// success resets the cadence. Refresh wakes the loop early so mutations
// become visible without waiting a full interval.
//
// # Error Handling
//
// Responses with status >= 400 return *StatusError. A 404 also matches
// ErrNotFound under errors.Is.
package remote
