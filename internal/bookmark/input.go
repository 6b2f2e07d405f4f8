package bookmark

import (
	"strings"
	"time"
)

// Submission is the parsed form of a line typed into the input bar.
type Submission struct {
	Text    string
	Tags    []string
	Comment string
}

// ParseSubmission splits raw input into free text, #tags and a trailing
// comment introduced by a word starting with //.
//
//	example.com #go #tools // read later
func ParseSubmission(raw string) Submission {
	var (
		sub     Submission
		text    []string
		tags    []string
		comment []string
		inNote  bool
	)
	for _, word := range strings.Fields(raw) {
		switch {
		case inNote:
			comment = append(comment, word)
		case strings.HasPrefix(word, "//"):
			inNote = true
			if rest := strings.TrimPrefix(word, "//"); rest != "" {
				comment = append(comment, rest)
			}
		case len(word) > 1 && word[0] == '#':
			tags = append(tags, word[1:])
		default:
			text = append(text, word)
		}
	}
	sub.Text = strings.Join(text, " ")
	sub.Tags = NormalizeTags(tags)
	sub.Comment = strings.Join(comment, " ")
	return sub
}

// FormatDate renders a creation time the way the list shows it, e.g. "Jan 2".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("Jan 2")
}
