// Package app provides the orchestration layer for volumes.
//
// # Overview
//
// This package wires together configuration, logging, the API client, the
// snapshot cache, the sync session and the UI. It is the composition root
// behind every subcommand of cmd/volumes.
//
// # Startup
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()        Read ~/.config/volumes/config.toml
//	       ├─────> logger.New()         Log to client.log_file
//	       ├─────> remote.NewClient()   HTTP client + polling subscription
//	       ├─────> cache.Open()         Snapshot cache (optional)
//	       ├─────> prefs.Load()         Theme and search mode
//	       ├─────> state.NewSession()   Optimistic sync session
//	       ├─────> session.Start()      Bootstrap from cache, subscribe
//	       └─────> ui.Run()             Start TUI (blocks)
//
// Polling lives in the remote client: its subscription fetches the newest
// snapshot on an interval, backs off while the server is unreachable, and
// fetches early after a mutation is acknowledged.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Config file present but invalid
//   - Unparseable api_bind or search_mode
//
// Recoverable errors (logged, the client keeps going):
//   - Snapshot cache cannot be opened or is from another version
//   - Server unreachable; the header shows OFFLINE and polling backs off
//
// # Other Entry Points
//
//   - Add and List: one-shot CLI commands over the same client
//   - Serve: the HTTP API (storage backend + metadata fetcher + chi router)
//   - ServeMCP: MCP tools over stdio, backed by the API client
package app
