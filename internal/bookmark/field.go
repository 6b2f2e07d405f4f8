package bookmark

import (
	"fmt"
	"slices"
	"strings"
)

// Field names an individually editable attribute of an Item.
type Field string

const (
	FieldTitle Field = "title"
	FieldURL   Field = "url"
	FieldTags  Field = "tags"
)

// EditableFields lists the fields exposed in the per-item edit menu, in menu order.
var EditableFields = []Field{FieldTitle, FieldURL, FieldTags}

// ParseField maps a field name to a Field.
func ParseField(name string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(name)))
	if !slices.Contains(EditableFields, f) {
		return "", fmt.Errorf("unknown field %q", name)
	}
	return f, nil
}

// Label returns the menu label for the field.
func (f Field) Label() string {
	switch f {
	case FieldTitle:
		return "Title"
	case FieldURL:
		return "Edit URL"
	case FieldTags:
		return "Tags"
	default:
		return string(f)
	}
}

// Normalize canonicalizes v the way the store persists values of f, so that
// equality against a later snapshot is meaningful. An empty title becomes
// FallbackTitle.
func (f Field) Normalize(v Value) Value {
	switch f {
	case FieldTitle:
		title := normalizeTitle(v.Text)
		if title == "" {
			title = FallbackTitle
		}
		return TextValue(title)
	case FieldURL:
		return TextValue(NormalizeURL(v.Text))
	case FieldTags:
		return TagsValue(NormalizeTags(v.Tags))
	default:
		return v
	}
}

// Value is the content of one editable field. Text is used by title and url,
// Tags by tags.
type Value struct {
	Text string
	Tags []string
}

// TextValue wraps a string field value.
func TextValue(s string) Value {
	return Value{Text: s}
}

// TagsValue wraps a tag list.
func TagsValue(tags []string) Value {
	return Value{Tags: slices.Clone(tags)}
}

// Equal reports whether two values are the same. Tags compare as sets.
func (v Value) Equal(other Value) bool {
	return v.Text == other.Text && TagsEqual(v.Tags, other.Tags)
}

// String renders the value for editing.
func (v Value) String() string {
	if v.Tags != nil {
		return strings.Join(v.Tags, ", ")
	}
	return v.Text
}

// Patch is a partial update. Nil fields are left unchanged by the store.
type Patch struct {
	Title *string   `json:"title,omitempty"`
	URL   *string   `json:"url,omitempty"`
	Tags  *[]string `json:"tags,omitempty"`
}

// PatchFor builds a single-field patch.
func PatchFor(f Field, v Value) Patch {
	var p Patch
	switch f {
	case FieldTitle:
		title := v.Text
		p.Title = &title
	case FieldURL:
		u := v.Text
		p.URL = &u
	case FieldTags:
		tags := slices.Clone(v.Tags)
		if tags == nil {
			tags = []string{}
		}
		p.Tags = &tags
	}
	return p
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.URL == nil && p.Tags == nil
}

// Normalize canonicalizes every set field.
func (p Patch) Normalize() Patch {
	if p.Title != nil {
		title := normalizeTitle(*p.Title)
		p.Title = &title
	}
	if p.URL != nil {
		u := NormalizeURL(*p.URL)
		p.URL = &u
	}
	if p.Tags != nil {
		tags := NormalizeTags(*p.Tags)
		p.Tags = &tags
	}
	return p
}

// Apply returns item with the patch applied.
func (p Patch) Apply(item Item) Item {
	out := item.Clone()
	if p.Title != nil {
		out = out.With(FieldTitle, TextValue(*p.Title))
	}
	if p.URL != nil {
		out = out.With(FieldURL, TextValue(*p.URL))
	}
	if p.Tags != nil {
		out = out.With(FieldTags, TagsValue(*p.Tags))
	}
	return out
}

func normalizeTitle(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
