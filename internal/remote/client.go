package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nocdn/volumes/internal/bookmark"
)

// Ensure Client implements the collection contracts at compile time.
var (
	_ Service   = (*Client)(nil)
	_ Extractor = (*Client)(nil)
	_ Refresher = (*Client)(nil)
)

// Client talks to the volumes HTTP API.
type Client struct {
	baseURL      *url.URL
	http         *http.Client
	userAgent    string
	pollInterval time.Duration
	nudge        chan struct{}
}

const (
	defaultAPIBind   = "127.0.0.1:7490"
	defaultUserAgent = "volumes/0.1"
	requestTimeout   = 10 * time.Second
)

// Option customises a Client.
type Option func(*Client)

// WithPollInterval sets the base cadence of Subscribe.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// NewClient builds a Client using the provided apiBind host:port value.
func NewClient(apiBind string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(apiBind)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent:    defaultUserAgent,
		pollInterval: defaultPollInterval,
		nudge:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// List retrieves up to limit of the newest items. A non-positive limit uses
// bookmark.SnapshotLimit.
func (c *Client) List(ctx context.Context, limit int) ([]bookmark.Item, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if limit <= 0 || limit > bookmark.SnapshotLimit {
		limit = bookmark.SnapshotLimit
	}
	values := url.Values{}
	values.Set("limit", strconv.Itoa(limit))
	rel := &url.URL{Path: "/api/bookmarks", RawQuery: values.Encode()}
	var payload ListResponse
	if err := c.doURL(ctx, http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

// Subscribe polls List until ctx is done, backing off while the API is
// unreachable. Refresh triggers an early poll.
func (c *Client) Subscribe(ctx context.Context) <-chan Update {
	list := func(ctx context.Context) ([]bookmark.Item, error) {
		return c.List(ctx, bookmark.SnapshotLimit)
	}
	return Poll(ctx, list, c.pollInterval, c.nudge)
}

// Refresh asks the running subscription to poll now. It never blocks.
func (c *Client) Refresh() {
	select {
	case c.nudge <- struct{}{}:
	default:
	}
}

// Create stores a new item and returns the id assigned by the server.
func (c *Client) Create(ctx context.Context, draft bookmark.Draft) (string, error) {
	if c == nil {
		return "", fmt.Errorf("client is nil")
	}
	var payload CreateResponse
	if err := c.do(ctx, http.MethodPost, "/api/bookmarks", draft, &payload); err != nil {
		return "", err
	}
	if payload.ID == "" {
		return "", fmt.Errorf("create response missing id")
	}
	return payload.ID, nil
}

// Update applies a partial update. Fields left nil are unchanged.
func (c *Client) Update(ctx context.Context, id string, patch bookmark.Patch) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("item id required")
	}
	return c.doURL(ctx, http.MethodPatch, itemURL(id), patch, nil)
}

// Delete removes an item.
func (c *Client) Delete(ctx context.Context, id string) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("item id required")
	}
	return c.doURL(ctx, http.MethodDelete, itemURL(id), nil, nil)
}

// Extract asks the server to resolve the page title of rawURL.
func (c *Client) Extract(ctx context.Context, rawURL string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("client is nil")
	}
	values := url.Values{}
	values.Set("url", rawURL)
	rel := &url.URL{Path: "/api/metadata", RawQuery: values.Encode()}
	var payload MetadataResponse
	if err := c.doURL(ctx, http.MethodGet, rel, nil, &payload); err != nil {
		return "", err
	}
	return strings.TrimSpace(payload.Title), nil
}

// Health checks that the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	var payload HealthResponse
	return c.do(ctx, http.MethodGet, "/healthz", nil, &payload)
}

func itemURL(id string) *url.URL {
	const prefix = "/api/bookmarks/"
	return &url.URL{Path: prefix + id, RawPath: prefix + url.PathEscape(id)}
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	rel := &url.URL{Path: path}
	return c.doURL(ctx, method, rel, body, dest)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body, dest any) error {
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return &StatusError{Path: rel.Path, Code: resp.StatusCode}
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(apiBind string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiBind)
	if trimmed == "" {
		trimmed = defaultAPIBind
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_bind %q: %w", apiBind, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
