// Package ui provides the terminal client for volumes.
//
// # Architecture Overview
//
// The UI is a single Bubble Tea model over a state.Session. The session
// owns every piece of collection state; the model only keeps presentation
// state (theme, window size, the edit menu) and a copy of the materialized
// rows, re-read whenever the session emits an event. The selection cursor
// is a selection.Controller reconciled against the row count on each
// re-read.
//
// # Layout
//
//   - Header: connection state (synced, cached, offline), item count,
//     search mode and the time of the last successful poll
//   - Input bar: always focused. Typing filters the list; #tag words filter
//     by tag. Enter on text that looks like a URL adds it as a bookmark,
//     with #tags and a trailing // comment
//   - List: pending creations first, then bookmarks newest first. The edit
//     menu and field editor open inline under their row
//   - Footer: key hints, or the latest notice
//
// # Key Bindings
//
//   - ↑/↓ or ctrl+p/ctrl+n: Move selection (the menu cursor while the edit
//     menu is open)
//   - enter: Add the typed URL, or open the selected bookmark
//   - ctrl+e: Edit menu (title, URL, tags) for the selected bookmark
//   - ctrl+x: Delete the selected bookmark, or dismiss a failed save
//   - ctrl+r: Retry a failed save
//   - ctrl+y: Copy the selected URL
//   - tab: Complete a #tag from the tags in the collection
//   - ctrl+f: Toggle substring/fuzzy search
//   - ctrl+t: Cycle theme
//   - ?: Help (when the input is empty)
//   - esc: Close the menu, or clear the input
//   - ctrl+c: Quit
//
// Theme and search mode changes are saved to the prefs file.
package ui
