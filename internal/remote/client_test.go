package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nocdn/volumes/internal/bookmark"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" {
		t.Fatalf("scheme = %q, want http", u.Scheme)
	}
	if u.Host != defaultAPIBind {
		t.Fatalf("host = %q, want %q", u.Host, defaultAPIBind)
	}

	u, err = parseBaseURL("http://example.com:1234/path?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
}

func TestClient_EndpointsAndPayloads(t *testing.T) {
	t.Parallel()

	var (
		gotLimit     string
		gotCreate    bookmark.Draft
		gotPatchPath string
		gotPatch     map[string]any
		gotDelete    string
		gotMetaURL   string
		gotUserAgent string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/bookmarks":
			gotLimit = r.URL.Query().Get("limit")
			_ = json.NewEncoder(w).Encode(ListResponse{Items: []bookmark.Item{{ID: "a", Title: "A"}}})
		case r.Method == http.MethodPost && r.URL.Path == "/api/bookmarks":
			_ = json.NewDecoder(r.Body).Decode(&gotCreate)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(CreateResponse{ID: "new-id"})
		case r.Method == http.MethodPatch:
			gotPatchPath = r.URL.EscapedPath()
			_ = json.NewDecoder(r.Body).Decode(&gotPatch)
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodDelete:
			gotDelete = r.URL.Path
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/api/metadata":
			gotMetaURL = r.URL.Query().Get("url")
			_ = json.NewEncoder(w).Encode(MetadataResponse{Title: "  Page  "})
		case r.URL.Path == "/healthz":
			_ = json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	items, err := c.List(ctx, 500)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(items) != 1 || items[0].ID != "a" {
		t.Fatalf("List items = %#v, want 1 item id=a", items)
	}
	if gotLimit != "100" {
		t.Fatalf("limit = %q, want capped 100", gotLimit)
	}

	id, err := c.Create(ctx, bookmark.Draft{URL: "https://x.com", Title: "X", Tags: []string{"go"}, ClientID: "c1"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if id != "new-id" || gotCreate.URL != "https://x.com" || gotCreate.Title != "X" || gotCreate.ClientID != "c1" {
		t.Fatalf("Create = %q with body %#v", id, gotCreate)
	}

	title := "Renamed"
	if err := c.Update(ctx, "id/with space", bookmark.Patch{Title: &title}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if gotPatchPath != "/api/bookmarks/id%2Fwith%20space" {
		t.Fatalf("patch path = %q, want escaped id", gotPatchPath)
	}
	if gotPatch["title"] != "Renamed" {
		t.Fatalf("patch body = %#v, want title only", gotPatch)
	}
	if _, ok := gotPatch["url"]; ok {
		t.Fatalf("patch body should omit unset url: %#v", gotPatch)
	}

	if err := c.Delete(ctx, "abc"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if gotDelete != "/api/bookmarks/abc" {
		t.Fatalf("delete path = %q", gotDelete)
	}

	got, err := c.Extract(ctx, "https://example.com/?q=1")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if got != "Page" || gotMetaURL != "https://example.com/?q=1" {
		t.Fatalf("Extract = %q (url %q), want trimmed title", got, gotMetaURL)
	}

	if err := c.Health(ctx); err != nil {
		t.Fatalf("Health returned error: %v", err)
	}

	if !strings.HasPrefix(gotUserAgent, "volumes/") {
		t.Fatalf("User-Agent = %q, want volumes/*", gotUserAgent)
	}
}

func TestClient_RequiresItemID(t *testing.T) {
	c, err := NewClient("127.0.0.1:1")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if err := c.Update(context.Background(), " ", bookmark.Patch{}); err == nil {
		t.Fatalf("Update returned nil error, want error")
	}
	if err := c.Delete(context.Background(), ""); err == nil {
		t.Fatalf("Delete returned nil error, want error")
	}
}

func TestClient_HTTPErrorAndDecodeError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/bookmarks":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte("{not-json"))
		case r.Method == http.MethodPost:
			http.Error(w, "nope", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	_, err = c.List(context.Background(), 0)
	if err == nil || !strings.Contains(err.Error(), "decode response") {
		t.Fatalf("List error = %v, want decode response error", err)
	}

	_, err = c.Create(context.Background(), bookmark.Draft{URL: "https://x.com"})
	if err == nil || !strings.Contains(err.Error(), "returned status 500") {
		t.Fatalf("Create error = %v, want status 500 error", err)
	}

	err = c.Delete(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete error = %v, want ErrNotFound", err)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusNotFound {
		t.Fatalf("Delete error = %#v, want *StatusError 404", err)
	}
}

func TestClient_RefreshNeverBlocks(t *testing.T) {
	c, err := NewClient("")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	for i := 0; i < 5; i++ {
		c.Refresh()
	}
	if len(c.nudge) != 1 {
		t.Fatalf("nudge len = %d, want 1", len(c.nudge))
	}
}
