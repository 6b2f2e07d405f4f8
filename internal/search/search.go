// Package search decides which bookmarks match a free-text query.
//
// A query is split on whitespace. Words starting with # are required tags;
// every other word must match at least one of the item's title, URL, tags
// or comment. The per-field comparison is either case-insensitive substring
// containment (the default) or ordered-subsequence fuzzy matching.
package search

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/nocdn/volumes/internal/bookmark"
)

// Mode selects the per-field matching strategy.
type Mode string

const (
	ModeSubstring Mode = "substring"
	ModeFuzzy     Mode = "fuzzy"
)

// ParseMode validates a mode name. Empty selects the substring default.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeSubstring:
		return ModeSubstring, nil
	case ModeFuzzy:
		return ModeFuzzy, nil
	default:
		return "", fmt.Errorf("unknown search mode %q (want substring or fuzzy)", s)
	}
}

// Next returns the other mode, for toggling.
func (m Mode) Next() Mode {
	if m == ModeFuzzy {
		return ModeSubstring
	}
	return ModeFuzzy
}

// Query is a parsed search string.
type Query struct {
	Terms []string
	Tags  []string
}

// Parse splits raw into lowercase terms and required tags.
func Parse(raw string) Query {
	var q Query
	for _, word := range strings.Fields(strings.ToLower(raw)) {
		if len(word) > 1 && word[0] == '#' {
			q.Tags = append(q.Tags, word[1:])
			continue
		}
		q.Terms = append(q.Terms, word)
	}
	return q
}

// Empty reports whether the query filters nothing.
func (q Query) Empty() bool {
	return len(q.Terms) == 0 && len(q.Tags) == 0
}

// Engine evaluates queries with a fixed strategy. The zero value uses
// substring matching.
type Engine struct {
	mode Mode
}

// New returns an engine for mode.
func New(mode Mode) Engine {
	return Engine{mode: mode}
}

// Mode returns the engine's strategy.
func (e Engine) Mode() Mode {
	if e.mode == "" {
		return ModeSubstring
	}
	return e.mode
}

// Matches reports whether item satisfies the raw query. An empty query
// matches everything.
func (e Engine) Matches(item bookmark.Item, query string) bool {
	return e.MatchesQuery(item, Parse(query))
}

// MatchesQuery is Matches for an already parsed query.
func (e Engine) MatchesQuery(item bookmark.Item, q Query) bool {
	for _, tag := range q.Tags {
		if !bookmark.HasTag(item.Tags, tag) {
			return false
		}
	}
	if len(q.Terms) == 0 {
		return true
	}
	fields := searchable(item)
	for _, term := range q.Terms {
		if !e.anyField(fields, term) {
			return false
		}
	}
	return true
}

// Filter returns the items matching query, in their original order.
func (e Engine) Filter(items []bookmark.Item, query string) []bookmark.Item {
	q := Parse(query)
	if q.Empty() {
		return items
	}
	out := make([]bookmark.Item, 0, len(items))
	for _, item := range items {
		if e.MatchesQuery(item, q) {
			out = append(out, item)
		}
	}
	return out
}

func (e Engine) anyField(fields []string, term string) bool {
	if e.Mode() == ModeFuzzy {
		return len(fuzzy.Find(term, fields)) > 0
	}
	for _, field := range fields {
		if strings.Contains(field, term) {
			return true
		}
	}
	return false
}

// searchable lists the lowercase field values a term is checked against,
// in short-circuit order.
func searchable(item bookmark.Item) []string {
	fields := make([]string, 0, 3+len(item.Tags))
	fields = append(fields, strings.ToLower(item.Title), strings.ToLower(item.URL))
	for _, tag := range item.Tags {
		fields = append(fields, strings.ToLower(tag))
	}
	if item.Comment != "" {
		fields = append(fields, strings.ToLower(item.Comment))
	}
	return fields
}

// Tags returns the distinct tags across items, sorted.
func Tags(items []bookmark.Item) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, item := range items {
		for _, tag := range item.Tags {
			tag = strings.ToLower(tag)
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	slices.Sort(out)
	return out
}
