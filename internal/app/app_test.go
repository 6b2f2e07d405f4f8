package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nocdn/volumes/internal/bookmark"
	"github.com/nocdn/volumes/internal/config"
	"github.com/nocdn/volumes/internal/logger"
	"github.com/nocdn/volumes/internal/prefs"
	"github.com/nocdn/volumes/internal/search"
	"github.com/nocdn/volumes/internal/server"
	"github.com/nocdn/volumes/internal/state"
	"github.com/nocdn/volumes/internal/storage"
)

type stubExtractor struct{ title string }

func (s stubExtractor) Extract(ctx context.Context, rawURL string) (string, error) {
	return s.title, nil
}

// startServer runs the HTTP API over in-memory storage and writes a config
// file pointing the client at it.
func startServer(t *testing.T) Options {
	t.Helper()
	srv := server.New(server.Config{}, storage.NewMemory(), stubExtractor{title: "The Go Blog"}, logger.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	dir := t.TempDir()
	cfg := fmt.Sprintf(`[client]
api_bind = %q
poll_interval = "50ms"
cache_path = %q
log_file = %q
`, ts.URL, filepath.Join(dir, "snapshot.toml"), filepath.Join(dir, "volumes.log"))
	cfgPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return Options{ConfigPath: cfgPath, PrefsPath: filepath.Join(dir, "prefs.toml")}
}

func TestAddThenList(t *testing.T) {
	opts := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	if err := Add(ctx, opts, "go.dev/blog #Go // weekly", &out); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !strings.HasPrefix(out.String(), "added ") || !strings.Contains(out.String(), "https://go.dev/blog") {
		t.Fatalf("Add output = %q", out.String())
	}

	out.Reset()
	if err := List(ctx, opts, ListOptions{Query: "#go"}, &out); err != nil {
		t.Fatalf("List: %v", err)
	}
	want := "The Go Blog\thttps://go.dev/blog\t#go\n"
	if out.String() != want {
		t.Fatalf("List output = %q, want %q", out.String(), want)
	}

	out.Reset()
	if err := List(ctx, opts, ListOptions{Query: "#rust"}, &out); err != nil {
		t.Fatalf("List: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("List(#rust) output = %q, want empty", out.String())
	}
}

func TestAddRejectsNonURL(t *testing.T) {
	err := Add(context.Background(), Options{}, "just some words", &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "not a url") {
		t.Fatalf("Add(words) error = %v, want not a url", err)
	}
}

func TestAwaitCreate(t *testing.T) {
	events := make(chan state.Event, 4)
	events <- state.Event{Kind: state.EventChanged, ClientID: "c1"}
	events <- state.Event{Kind: state.EventCreated, ID: "other", ClientID: "c2"}
	events <- state.Event{Kind: state.EventCreated, ID: "42", ClientID: "c1"}

	id, err := awaitCreate(context.Background(), events, "c1")
	if err != nil || id != "42" {
		t.Fatalf("awaitCreate = %q, %v, want 42, nil", id, err)
	}

	boom := errors.New("boom")
	events <- state.Event{Kind: state.EventCreateFailed, ClientID: "c1", Err: boom}
	if _, err := awaitCreate(context.Background(), events, "c1"); !errors.Is(err, boom) {
		t.Fatalf("awaitCreate error = %v, want boom", err)
	}

	close(events)
	if _, err := awaitCreate(context.Background(), events, "c1"); !errors.Is(err, state.ErrClosed) {
		t.Fatalf("awaitCreate on closed channel = %v, want ErrClosed", err)
	}
}

func TestAwaitCreateHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := awaitCreate(ctx, make(chan state.Event), "c1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("awaitCreate error = %v, want context.Canceled", err)
	}
}

func TestSearchMode(t *testing.T) {
	cfg := config.Default()
	tests := []struct {
		name       string
		configured string
		saved      string
		want       search.Mode
		wantErr    bool
	}{
		{"default", "substring", "", search.ModeSubstring, false},
		{"config", "fuzzy", "", search.ModeFuzzy, false},
		{"prefs win", "substring", "fuzzy", search.ModeFuzzy, false},
		{"bad prefs ignored", "fuzzy", "regex", search.ModeFuzzy, false},
		{"bad config", "regex", "", "", true},
	}
	for _, tt := range tests {
		cfg.Client.SearchMode = tt.configured
		got, err := searchMode(cfg, prefs.Prefs{SearchMode: tt.saved})
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Fatalf("%s: searchMode = %q, %v, want %q (err %v)", tt.name, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestWriteItems(t *testing.T) {
	items := []bookmark.Item{
		{URL: "https://go.dev", Title: "Go", Tags: []string{"go", "docs"}},
		{URL: "https://example.com", Title: "  "},
	}
	var out bytes.Buffer
	if err := writeItems(&out, items); err != nil {
		t.Fatalf("writeItems: %v", err)
	}
	want := "Go\thttps://go.dev\t#go #docs\n" + bookmark.FallbackTitle + "\thttps://example.com\n"
	if out.String() != want {
		t.Fatalf("writeItems = %q, want %q", out.String(), want)
	}
}

func TestFilterItems(t *testing.T) {
	items := []bookmark.Item{
		{ID: "1", URL: "https://go.dev", Title: "Go", Tags: []string{"go"}},
		{ID: "2", URL: "https://rust-lang.org", Title: "Rust", Tags: []string{"rust"}},
	}
	got := filterItems(items, search.New(search.ModeSubstring), "rust")
	if len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("filterItems(rust) = %+v", got)
	}
	if got := filterItems(items, search.New(search.ModeSubstring), ""); len(got) != 2 {
		t.Fatalf("filterItems(empty) returned %d items, want 2", len(got))
	}
}

func TestLogsReadsClientLogFile(t *testing.T) {
	opts := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := List(ctx, opts, ListOptions{}, &bytes.Buffer{}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if err := Add(ctx, opts, "https://go.dev", &bytes.Buffer{}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	var out bytes.Buffer
	if err := Logs(opts, LogsOptions{Lines: 50, Level: "info"}, &out); err != nil {
		t.Fatalf("Logs: %v", err)
	}
	if !strings.Contains(out.String(), "bookmark added") {
		t.Fatalf("Logs output = %q, want the add entry", out.String())
	}
}
