package ui

import (
	"strings"

	"github.com/nocdn/volumes/internal/bookmark"
)

// truncate shortens a string to the given limit, adding ellipsis if needed.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// formatTags renders tags the way they are typed: "#go #tools".
func formatTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	parts := make([]string, len(tags))
	for i, tag := range tags {
		parts[i] = "#" + tag
	}
	return strings.Join(parts, " ")
}

// editValue is the text an edit input starts with for field of item.
func editValue(item bookmark.Item, field bookmark.Field) string {
	if field == bookmark.FieldTags {
		return strings.Join(item.Tags, ", ")
	}
	return item.Get(field).Text
}

// parseEditValue turns edit input text back into a field value.
func parseEditValue(field bookmark.Field, text string) bookmark.Value {
	if field == bookmark.FieldTags {
		return bookmark.TagsValue(bookmark.ParseTagList(text))
	}
	return bookmark.TextValue(text)
}

// completeTag completes a trailing "#prefix" word of value to the first
// known tag starting with prefix. It reports false when the last word is
// not a tag or nothing longer matches.
func completeTag(value string, tags []string) (string, bool) {
	if value == "" || strings.HasSuffix(value, " ") {
		return value, false
	}
	start := strings.LastIndex(value, " ") + 1
	word := value[start:]
	if !strings.HasPrefix(word, "#") {
		return value, false
	}
	prefix := strings.ToLower(word[1:])
	for _, tag := range tags {
		if tag != prefix && strings.HasPrefix(tag, prefix) {
			return value[:start] + "#" + tag + " ", true
		}
	}
	return value, false
}
