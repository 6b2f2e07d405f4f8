package bookmark

import "strings"

// NormalizeTags trims, lowercases and de-duplicates tags while keeping the
// order they were first given in. A leading # is stripped. The result is
// never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#")))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// ParseTagList splits a comma or whitespace separated tag string.
func ParseTagList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	return NormalizeTags(fields)
}

// TagsEqual compares two tag lists as sets.
func TagsEqual(a, b []string) bool {
	setA := tagSet(a)
	setB := tagSet(b)
	if len(setA) != len(setB) {
		return false
	}
	for tag := range setA {
		if _, ok := setB[tag]; !ok {
			return false
		}
	}
	return true
}

// HasTag reports whether tags contains tag, ignoring case.
func HasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return set
}
