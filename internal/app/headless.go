package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nocdn/volumes/internal/bookmark"
	"github.com/nocdn/volumes/internal/config"
	"github.com/nocdn/volumes/internal/logger"
	"github.com/nocdn/volumes/internal/prefs"
	"github.com/nocdn/volumes/internal/search"
	"github.com/nocdn/volumes/internal/state"
)

// Add saves one bookmark without the TUI. raw is typed the way the input bar
// takes it: a URL, optional #tags and an optional trailing // comment. Add
// waits for the server to acknowledge the creation.
func Add(ctx context.Context, opts Options, raw string, out io.Writer) error {
	sub := bookmark.ParseSubmission(raw)
	if !bookmark.LooksLikeURL(sub.Text) {
		return fmt.Errorf("not a url: %q", strings.TrimSpace(sub.Text))
	}

	c, err := newClient(opts)
	if err != nil {
		return err
	}
	defer c.close()

	session, cleanup, err := c.newSession(search.ModeSubstring)
	if err != nil {
		return fmt.Errorf("init session: %w", err)
	}
	defer cleanup()
	defer func() { _ = session.Close() }()

	if err := session.Start(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	clientID, err := session.Add(sub)
	if err != nil {
		return err
	}
	id, err := awaitCreate(ctx, session.Events(), clientID)
	if err != nil {
		c.log.Warn("add failed", logger.String("client_id", clientID), logger.Error(err))
		return err
	}
	c.log.Info("bookmark added", logger.String("id", id))
	_, err = fmt.Fprintf(out, "added %s %s\n", id, bookmark.NormalizeURL(sub.Text))
	return err
}

// awaitCreate blocks until the creation identified by clientID resolves.
func awaitCreate(ctx context.Context, events <-chan state.Event, clientID string) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return "", state.ErrClosed
			}
			if ev.ClientID != clientID {
				continue
			}
			switch ev.Kind {
			case state.EventCreated:
				return ev.ID, nil
			case state.EventCreateFailed:
				if ev.Err == nil {
					return "", errors.New("create failed")
				}
				return "", fmt.Errorf("create failed: %w", ev.Err)
			}
		}
	}
}

// ListOptions select what List prints.
type ListOptions struct {
	Query string
	JSON  bool
}

// List prints the newest bookmarks matching the query once and returns.
func List(ctx context.Context, opts Options, list ListOptions, out io.Writer) error {
	c, err := newClient(opts)
	if err != nil {
		return err
	}
	defer c.close()

	userPrefs, _ := prefs.Load(opts.PrefsPath)
	mode, err := searchMode(c.cfg, userPrefs)
	if err != nil {
		return err
	}

	items, err := c.remote.List(ctx, bookmark.SnapshotLimit)
	if err != nil {
		return fmt.Errorf("list bookmarks: %w", err)
	}
	matched := filterItems(items, search.New(mode), list.Query)
	if list.JSON {
		return writeJSON(out, matched)
	}
	return writeItems(out, matched)
}

func filterItems(items []bookmark.Item, engine search.Engine, query string) []bookmark.Item {
	q := search.Parse(query)
	matched := make([]bookmark.Item, 0, len(items))
	for _, item := range items {
		if engine.MatchesQuery(item, q) {
			matched = append(matched, item)
		}
	}
	return matched
}

func writeItems(w io.Writer, items []bookmark.Item) error {
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = bookmark.FallbackTitle
		}
		line := title + "\t" + item.URL
		if len(item.Tags) > 0 {
			line += "\t#" + strings.Join(item.Tags, " #")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, items []bookmark.Item) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// LogsOptions select which client log entries Logs prints.
type LogsOptions struct {
	Lines int
	Level string
}

// Logs prints the newest entries of the client log file.
func Logs(opts Options, logs LogsOptions, out io.Writer) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	entries, err := logger.Tail(cfg.Client.LogFile, logs.Lines, logs.Level)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if _, err := fmt.Fprintln(out, entry.String()); err != nil {
			return err
		}
	}
	return nil
}
