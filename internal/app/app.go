package app

import (
	"context"
	"fmt"
	"time"

	"github.com/nocdn/volumes/internal/cache"
	"github.com/nocdn/volumes/internal/config"
	"github.com/nocdn/volumes/internal/logger"
	"github.com/nocdn/volumes/internal/prefs"
	"github.com/nocdn/volumes/internal/remote"
	"github.com/nocdn/volumes/internal/search"
	"github.com/nocdn/volumes/internal/state"
	"github.com/nocdn/volumes/internal/ui"
)

// Options configure the client side of volumes.
type Options struct {
	ConfigPath   string
	PrefsPath    string        // empty uses default ~/.config/volumes/prefs.toml
	PollInterval time.Duration // zero uses client.poll_interval
}

// client bundles what every client command needs: the parsed config, a
// logger writing to the client log file and the HTTP client.
type client struct {
	cfg    config.Config
	log    logger.Logger
	remote *remote.Client
}

func newClient(opts Options) (*client, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Options{Level: cfg.Client.LogLevel, File: cfg.Client.LogFile})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	interval := cfg.Client.PollInterval
	if opts.PollInterval > 0 {
		interval = opts.PollInterval
	}

	rc, err := remote.NewClient(cfg.Client.APIBind, remote.WithPollInterval(interval))
	if err != nil {
		return nil, fmt.Errorf("init api client: %w", err)
	}
	return &client{cfg: cfg, log: log, remote: rc}, nil
}

func (c *client) close() {
	_ = c.log.Sync()
}

// openCache opens the snapshot cache slot. A cache that cannot be opened
// only costs the instant first paint, so the error is logged and ignored.
func (c *client) openCache() cache.Slot {
	backend, err := cache.ParseBackend(c.cfg.Client.CacheBackend)
	if err != nil {
		c.log.Warn("snapshot cache disabled", logger.Error(err))
		return nil
	}
	slot, err := cache.Open(backend, c.cfg.Client.CachePath)
	if err != nil {
		c.log.Warn("snapshot cache disabled",
			logger.String("path", c.cfg.Client.CachePath),
			logger.Error(err))
		return nil
	}
	return slot
}

// newSession builds a Session over the remote client. The returned cleanup
// closes the cache slot and must run after the Session is closed.
func (c *client) newSession(mode search.Mode) (*state.Session, func(), error) {
	slot := c.openCache()
	cleanup := func() {
		if slot != nil {
			if err := slot.Close(); err != nil {
				c.log.Warn("close snapshot cache", logger.Error(err))
			}
		}
	}

	opts := state.Options{
		Service:              c.remote,
		Extractor:            c.remote,
		Logger:               c.log.With(logger.String("component", "session")),
		Search:               search.New(mode),
		ExtractTimeout:       c.cfg.Client.MetadataTimeout,
		RestoreFailedDeletes: c.cfg.Client.RestoreFailedDeletes,
	}
	if slot != nil {
		opts.Cache = slot
	}

	session, err := state.NewSession(opts)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return session, cleanup, nil
}

// searchMode picks the effective search mode: a mode saved from the TUI
// wins over the config file.
func searchMode(cfg config.Config, p prefs.Prefs) (search.Mode, error) {
	if p.SearchMode != "" {
		if mode, err := search.ParseMode(p.SearchMode); err == nil {
			return mode, nil
		}
	}
	mode, err := search.ParseMode(cfg.Client.SearchMode)
	if err != nil {
		return "", fmt.Errorf("client.search_mode: %w", err)
	}
	return mode, nil
}

// Run boots the volumes TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
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

	session, cleanup, err := c.newSession(mode)
	if err != nil {
		return fmt.Errorf("init session: %w", err)
	}
	defer cleanup()
	defer func() { _ = session.Close() }()

	if err := session.Start(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	c.log.Info("volumes started",
		logger.String("api", c.cfg.Client.APIBind),
		logger.String("search_mode", string(mode)))

	return ui.Run(ui.Options{
		Context:   ctx,
		Session:   session,
		PrefsPath: opts.PrefsPath,
		Prefs:     userPrefs,
	})
}
