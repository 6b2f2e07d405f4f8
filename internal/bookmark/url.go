package bookmark

import (
	"net/url"
	"strings"
)

const (
	faviconService = "https://icons.duckduckgo.com/ip3/"

	// FallbackFavicon is used when no hostname can be derived from a URL.
	FallbackFavicon = "https://www.google.com/s2/favicons?domain=example.com&sz=128"
)

// NormalizeURL trims raw and prefixes https:// when no scheme is present.
func NormalizeURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if strings.Contains(trimmed, "://") {
		return trimmed
	}
	return "https://" + trimmed
}

// Hostname extracts the host of raw after normalization, or "" when the URL
// cannot be parsed.
func Hostname(raw string) string {
	normalized := NormalizeURL(raw)
	if normalized == "" {
		return ""
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// FaviconURL derives the icon location for a bookmark URL.
func FaviconURL(raw string) string {
	host := Hostname(raw)
	if host == "" {
		return FallbackFavicon
	}
	return faviconService + url.PathEscape(host) + ".ico"
}

// DisplayURL renders a URL for the list as its hostname without a leading
// www. plus a trailing slash. Unparseable input is returned trimmed.
func DisplayURL(raw string) string {
	host := Hostname(raw)
	if host == "" {
		return strings.TrimSpace(raw)
	}
	return strings.TrimPrefix(host, "www.") + "/"
}

// LooksLikeURL reports whether text should be submitted as a new bookmark
// rather than treated as a search query.
func LooksLikeURL(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" || strings.ContainsAny(text, " \t\n") {
		return false
	}
	if strings.Contains(text, "://") {
		return true
	}
	host := text
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	dot := strings.LastIndex(host, ".")
	return dot > 0 && dot < len(host)-1
}
