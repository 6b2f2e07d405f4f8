// Package metadata fetches a page and extracts its display title.
package metadata

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nocdn/volumes/internal/bookmark"
)

const (
	defaultTimeout = 5 * time.Second
	maxBodyBytes   = 1 << 20
	userAgent      = "Mozilla/5.0 (compatible; volumes/0.1; +https://github.com/nocdn/volumes)"
)

// Fetcher retrieves pages over HTTP.
type Fetcher struct {
	http    *http.Client
	timeout time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.http = c
		}
	}
}

// WithTimeout bounds a single Extract call.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// NewFetcher builds a Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		http:    &http.Client{},
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Extract returns the page title for rawURL. The URL is normalized first,
// so bare hosts work. An empty title with a nil error means the page had
// none.
func (f *Fetcher) Extract(ctx context.Context, rawURL string) (string, error) {
	target := bookmark.NormalizeURL(rawURL)
	if target == "" {
		return "", fmt.Errorf("url required")
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := f.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch page: status %d", resp.StatusCode)
	}
	if !isHTML(resp.Header.Get("Content-Type")) {
		return "", nil
	}
	return Title(io.LimitReader(resp.Body, maxBodyBytes))
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// Title parses an HTML document and returns the best available title:
// og:title, then twitter:title, then the <title> element.
func Title(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	var og, twitter, plain string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Meta:
				key := strings.ToLower(attr(n, "property"))
				if key == "" {
					key = strings.ToLower(attr(n, "name"))
				}
				content := clean(attr(n, "content"))
				switch {
				case key == "og:title" && og == "":
					og = content
				case key == "twitter:title" && twitter == "":
					twitter = content
				}
			case atom.Title:
				if plain == "" {
					plain = clean(text(n))
				}
			case atom.Svg:
				// <title> inside inline SVG is not the document title.
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, candidate := range []string{og, twitter, plain} {
		if candidate != "" {
			return candidate, nil
		}
	}
	return "", nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
