package state

import (
	"testing"

	"github.com/nocdn/volumes/internal/bookmark"
)

func TestOverlays_ConfirmationClears(t *testing.T) {
	var o Overlays
	o.Set("1", bookmark.FieldTitle, bookmark.TextValue("B"))

	if o.ClearIfConfirmed("1", bookmark.FieldTitle, bookmark.TextValue("A")) {
		t.Fatalf("ClearIfConfirmed with a different value should keep the overlay")
	}
	if !o.ClearIfConfirmed("1", bookmark.FieldTitle, bookmark.TextValue("B")) {
		t.Fatalf("ClearIfConfirmed with the same value should clear")
	}
	if o.Len() != 0 {
		t.Fatalf("Len = %d, want 0", o.Len())
	}
}

func TestOverlays_NewerCommitReplaces(t *testing.T) {
	var o Overlays
	first := o.Set("1", bookmark.FieldTitle, bookmark.TextValue("B"))
	second := o.Set("1", bookmark.FieldTitle, bookmark.TextValue("C"))

	if o.Len() != 1 {
		t.Fatalf("Len = %d, want 1 overlay per (item, field)", o.Len())
	}
	if v, _ := o.Get("1", bookmark.FieldTitle); v.Text != "C" {
		t.Fatalf("Get = %q, want C", v.Text)
	}

	if o.Rollback("1", bookmark.FieldTitle, first) {
		t.Fatalf("Rollback with a stale sequence should not clear the newer commit")
	}
	if !o.Rollback("1", bookmark.FieldTitle, second) {
		t.Fatalf("Rollback with the current sequence should clear")
	}
}

func TestOverlays_ReconcileAgainstSnapshot(t *testing.T) {
	var o Overlays
	o.Set("1", bookmark.FieldTitle, bookmark.TextValue("B"))
	o.Set("1", bookmark.FieldTags, bookmark.TagsValue([]string{"b", "a"}))
	o.Set("2", bookmark.FieldURL, bookmark.TextValue("https://new.com"))
	o.Set("gone", bookmark.FieldTitle, bookmark.TextValue("X"))

	snapshot := []bookmark.Item{
		{ID: "1", Title: "A", Tags: []string{"a", "b"}},
		{ID: "2", URL: "https://old.com"},
	}
	removed := o.Reconcile(snapshot)
	if removed != 2 {
		t.Fatalf("Reconcile removed %d, want 2 (matching tags and missing item)", removed)
	}
	if _, ok := o.Get("1", bookmark.FieldTitle); !ok {
		t.Fatalf("unconfirmed title overlay should remain")
	}
	if _, ok := o.Get("1", bookmark.FieldTags); ok {
		t.Fatalf("tags overlay equal as a set should clear")
	}
	if _, ok := o.Get("gone", bookmark.FieldTitle); ok {
		t.Fatalf("overlay for an item absent from the snapshot should be dropped")
	}
}

func TestOverlays_ApplySubstitutesFields(t *testing.T) {
	var o Overlays
	o.Set("1", bookmark.FieldTitle, bookmark.TextValue("B"))
	o.Set("1", bookmark.FieldURL, bookmark.TextValue("https://b.org"))

	item := bookmark.Item{ID: "1", Title: "A", URL: "https://a.com", FaviconURL: bookmark.FaviconURL("https://a.com")}
	got := o.Apply(item)
	if got.Title != "B" || got.URL != "https://b.org" {
		t.Fatalf("Apply = %#v, want overlaid title and url", got)
	}
	if got.FaviconURL != bookmark.FaviconURL("https://b.org") {
		t.Fatalf("FaviconURL = %q, want derived from overlaid url", got.FaviconURL)
	}
	if item.Title != "A" {
		t.Fatalf("Apply mutated its input")
	}

	other := bookmark.Item{ID: "2", Title: "Z"}
	if o.Apply(other).Title != "Z" {
		t.Fatalf("Apply changed an item without overlays")
	}
}
