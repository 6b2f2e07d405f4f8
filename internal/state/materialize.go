package state

import (
	"slices"

	"github.com/nocdn/volumes/internal/bookmark"
	"github.com/nocdn/volumes/internal/search"
)

// Row is one entry of the materialized list. Pending is non-nil for
// placeholders of creations that no snapshot has confirmed yet; for those,
// Item is synthesised from the placeholder and Item.ID is empty until the
// store acknowledges the create.
type Row struct {
	Item    bookmark.Item
	Pending *bookmark.Pending
}

// IsPending reports whether the row is an in-progress creation.
func (r Row) IsPending() bool {
	return r.Pending != nil
}

// Inputs are everything Materialize reads. Nil pointers are treated as
// empty.
type Inputs struct {
	Base       []bookmark.Item
	Pending    []bookmark.Pending
	Tombstones *Tombstones
	Overlays   *Overlays
	Query      string
	Search     search.Engine
}

// Materialize combines the base snapshot with local state into the ordered
// list the UI renders:
//
//  1. start from Base (the remote snapshot, or the cached one before it)
//  2. drop tombstoned ids
//  3. substitute overlaid field values
//  4. keep items matching Query
//  5. prepend pending creations, which search never hides
//
// A pending entry is omitted once Base carries its item, recognised by the
// confirmed id or by the client id the item was created with, so the item
// never shows twice. The function is pure: equal inputs give equal
// output and no input is modified.
func Materialize(in Inputs) []Row {
	query := search.Parse(in.Query)

	present := make(map[string]struct{}, len(in.Base))
	clients := make(map[string]struct{})
	for _, item := range in.Base {
		present[item.ID] = struct{}{}
		if item.ClientID != "" {
			clients[item.ClientID] = struct{}{}
		}
	}

	rows := make([]Row, 0, len(in.Pending)+len(in.Base))
	for _, p := range in.Pending {
		if _, ok := clients[p.ClientID]; ok {
			continue
		}
		if p.ConfirmedID != "" {
			if _, ok := present[p.ConfirmedID]; ok {
				continue
			}
			if in.Tombstones != nil && in.Tombstones.Contains(p.ConfirmedID) {
				continue
			}
		}
		pending := p.Clone()
		rows = append(rows, Row{Item: pendingItem(pending), Pending: &pending})
	}

	for _, item := range in.Base {
		if in.Tombstones != nil && in.Tombstones.Contains(item.ID) {
			continue
		}
		display := item.Clone()
		if in.Overlays != nil {
			display = in.Overlays.Apply(display)
		}
		if !query.Empty() && !in.Search.MatchesQuery(display, query) {
			continue
		}
		rows = append(rows, Row{Item: display})
	}
	return rows
}

func pendingItem(p bookmark.Pending) bookmark.Item {
	return bookmark.Item{
		ID:         p.ConfirmedID,
		URL:        p.URL,
		Title:      p.Title,
		FaviconURL: p.FaviconURL,
		Tags:       slices.Clone(p.Tags),
		Comment:    p.Comment,
	}
}
