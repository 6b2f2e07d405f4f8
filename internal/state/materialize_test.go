package state

import (
	"reflect"
	"testing"

	"github.com/nocdn/volumes/internal/bookmark"
	"github.com/nocdn/volumes/internal/search"
)

func ids(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		if r.IsPending() {
			out[i] = "pending:" + r.Pending.ClientID
			continue
		}
		out[i] = r.Item.ID
	}
	return out
}

func TestMaterialize_Order(t *testing.T) {
	base := []bookmark.Item{{ID: "3"}, {ID: "2"}, {ID: "1"}}
	pending := []bookmark.Pending{{ClientID: "b"}, {ClientID: "a"}}

	rows := Materialize(Inputs{Base: base, Pending: pending})
	want := []string{"pending:b", "pending:a", "3", "2", "1"}
	if got := ids(rows); !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestMaterialize_TombstoneHidesEvenWhenSnapshotStillHasItem(t *testing.T) {
	var ts Tombstones
	ts.Add("1")

	base := []bookmark.Item{{ID: "2"}, {ID: "1"}}
	rows := Materialize(Inputs{Base: base, Tombstones: &ts})
	if got := ids(rows); !reflect.DeepEqual(got, []string{"2"}) {
		t.Fatalf("rows = %v, want [2]", got)
	}
}

func TestMaterialize_OverlayThenSearch(t *testing.T) {
	var o Overlays
	o.Set("1", bookmark.FieldTitle, bookmark.TextValue("Rust book"))

	base := []bookmark.Item{
		{ID: "2", Title: "Go blog"},
		{ID: "1", Title: "Old title"},
	}
	rows := Materialize(Inputs{Base: base, Overlays: &o, Query: "rust"})
	if len(rows) != 1 || rows[0].Item.ID != "1" || rows[0].Item.Title != "Rust book" {
		t.Fatalf("rows = %#v, want overlaid item 1 only", rows)
	}

	// Search sees the displayed value, not the stale server value.
	rows = Materialize(Inputs{Base: base, Overlays: &o, Query: "old"})
	if len(rows) != 0 {
		t.Fatalf("rows = %#v, want none for the replaced title", rows)
	}
}

func TestMaterialize_PendingIgnoresQuery(t *testing.T) {
	base := []bookmark.Item{{ID: "1", Title: "alpha"}}
	pending := []bookmark.Pending{{ClientID: "p", URL: "https://zzz.com"}}

	rows := Materialize(Inputs{Base: base, Pending: pending, Query: "no-match"})
	if got := ids(rows); !reflect.DeepEqual(got, []string{"pending:p"}) {
		t.Fatalf("rows = %v, want only the pending row", got)
	}
}

func TestMaterialize_EmptyQueryKeepsAll(t *testing.T) {
	var ts Tombstones
	ts.Add("2")
	base := []bookmark.Item{{ID: "3"}, {ID: "2"}, {ID: "1"}}

	rows := Materialize(Inputs{Base: base, Tombstones: &ts, Query: "  "})
	if got := ids(rows); !reflect.DeepEqual(got, []string{"3", "1"}) {
		t.Fatalf("rows = %v, want [3 1]", got)
	}
}

func TestMaterialize_ConfirmedPendingNotDuplicated(t *testing.T) {
	base := []bookmark.Item{{ID: "srv-1", Title: "Real"}}
	pending := []bookmark.Pending{
		{ClientID: "p1", ConfirmedID: "srv-1", State: bookmark.PendingConfirmed},
		{ClientID: "p2", ConfirmedID: "srv-2", State: bookmark.PendingConfirmed},
	}

	rows := Materialize(Inputs{Base: base, Pending: pending})
	want := []string{"pending:p2", "srv-1"}
	if got := ids(rows); !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %v, want %v", got, want)
	}
	if rows[0].Item.ID != "srv-2" {
		t.Fatalf("acknowledged placeholder should carry its confirmed id, got %q", rows[0].Item.ID)
	}
}

func TestMaterialize_PendingHiddenOnceItsItemArrives(t *testing.T) {
	// The snapshot can carry the created item before the create is acked.
	base := []bookmark.Item{{ID: "srv-1", ClientID: "p1", Title: "Real"}}
	pending := []bookmark.Pending{{ClientID: "p1", State: bookmark.PendingSaving}}

	rows := Materialize(Inputs{Base: base, Pending: pending})
	if got, want := ids(rows), []string{"srv-1"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %v, want %v", got, want)
	}
}

func TestMaterialize_Deterministic(t *testing.T) {
	var o Overlays
	o.Set("1", bookmark.FieldTags, bookmark.TagsValue([]string{"x"}))
	o.Set("2", bookmark.FieldTitle, bookmark.TextValue("two"))
	var ts Tombstones
	ts.Add("3")

	in := Inputs{
		Base:       []bookmark.Item{{ID: "3"}, {ID: "2"}, {ID: "1", Tags: []string{"y"}}},
		Pending:    []bookmark.Pending{{ClientID: "p", Tags: []string{"t"}}},
		Tombstones: &ts,
		Overlays:   &o,
		Query:      "",
		Search:     search.New(search.ModeFuzzy),
	}
	first := Materialize(in)
	for i := 0; i < 10; i++ {
		if got := Materialize(in); !reflect.DeepEqual(got, first) {
			t.Fatalf("Materialize not deterministic:\n%#v\n%#v", got, first)
		}
	}
	if in.Base[2].Tags[0] != "y" {
		t.Fatalf("Materialize modified its input")
	}
}

func TestMaterialize_NoInputs(t *testing.T) {
	if rows := Materialize(Inputs{}); len(rows) != 0 {
		t.Fatalf("rows = %#v, want empty", rows)
	}
}
