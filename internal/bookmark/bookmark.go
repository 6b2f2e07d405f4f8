// Package bookmark defines the records shared by the client cache, the
// collection server and the CLI.
package bookmark

import (
	"slices"
	"strings"
	"time"
)

const (
	// SnapshotLimit caps how many of the newest items a snapshot carries.
	SnapshotLimit = 100

	// FallbackTitle is stored when title extraction fails or returns nothing.
	FallbackTitle = "Untitled"
)

// Item is a confirmed bookmark as stored by the collection service.
type Item struct {
	ID         string    `json:"id" toml:"id"`
	CreatedAt  time.Time `json:"createdAt" toml:"created_at"`
	URL        string    `json:"url" toml:"url"`
	Title      string    `json:"title" toml:"title"`
	FaviconURL string    `json:"favicon" toml:"favicon"`
	Tags       []string  `json:"tags" toml:"tags"`
	Comment    string    `json:"comment,omitempty" toml:"comment,omitempty"`
	// ClientID is the placeholder id the creating client sent, if any.
	ClientID   string    `json:"clientId,omitempty" toml:"client_id,omitempty"`
}

// Clone returns a copy that shares no slices with i.
func (i Item) Clone() Item {
	i.Tags = slices.Clone(i.Tags)
	return i
}

// Get returns the current value of an editable field.
func (i Item) Get(f Field) Value {
	switch f {
	case FieldTitle:
		return TextValue(i.Title)
	case FieldURL:
		return TextValue(i.URL)
	case FieldTags:
		return TagsValue(i.Tags)
	default:
		return Value{}
	}
}

// With returns a copy of i with field f replaced by v. Replacing the URL
// also re-derives the favicon, matching what the store does on update.
func (i Item) With(f Field, v Value) Item {
	out := i.Clone()
	switch f {
	case FieldTitle:
		out.Title = v.Text
	case FieldURL:
		out.URL = v.Text
		out.FaviconURL = FaviconURL(v.Text)
	case FieldTags:
		out.Tags = slices.Clone(v.Tags)
	}
	return out
}

// CloneItems deep-copies a slice of items. Empty input yields nil.
func CloneItems(items []Item) []Item {
	if len(items) == 0 {
		return nil
	}
	dup := make([]Item, len(items))
	for i, item := range items {
		dup[i] = item.Clone()
	}
	return dup
}

// Draft is the payload of a create mutation.
type Draft struct {
	URL     string   `json:"url"`
	Title   string   `json:"title"`
	Tags    []string `json:"tags"`
	Comment string   `json:"comment,omitempty"`

	// ClientID lets the creating client recognise the stored item in a
	// snapshot before the create is acknowledged.
	ClientID string `json:"clientId,omitempty"`
}

// Normalize returns the draft the way the store persists it.
func (d Draft) Normalize() Draft {
	d.URL = NormalizeURL(d.URL)
	d.Title = normalizeTitle(d.Title)
	if d.Title == "" {
		d.Title = FallbackTitle
	}
	d.Tags = NormalizeTags(d.Tags)
	d.ClientID = strings.TrimSpace(d.ClientID)
	return d
}

// PendingState tracks where a client-originated creation is in its lifecycle.
type PendingState int

const (
	PendingExtracting PendingState = iota
	PendingSaving
	PendingConfirmed
	PendingFailed
)

func (s PendingState) String() string {
	switch s {
	case PendingExtracting:
		return "extracting"
	case PendingSaving:
		return "saving"
	case PendingConfirmed:
		return "confirmed"
	case PendingFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Pending is a placeholder for an item that has been submitted but is not
// yet part of any snapshot. ClientID is generated locally and sent with the
// create, so the stored item carries it back.
type Pending struct {
	ClientID   string
	URL        string
	FaviconURL string
	Title      string // empty until extraction resolves
	Tags       []string
	Comment    string
	State      PendingState

	// ConfirmedID is the store id returned by the create acknowledgement.
	ConfirmedID string
	// LastError holds the message of the most recent failed create.
	LastError string
}

// Clone returns a copy that shares no slices with p.
func (p Pending) Clone() Pending {
	p.Tags = slices.Clone(p.Tags)
	return p
}

// Draft builds the create payload for the placeholder.
func (p Pending) Draft() Draft {
	return Draft{
		URL:      p.URL,
		Title:    p.Title,
		Tags:     slices.Clone(p.Tags),
		Comment:  p.Comment,
		ClientID: p.ClientID,
	}
}
