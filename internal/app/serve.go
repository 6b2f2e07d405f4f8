package app

import (
	"context"
	"fmt"

	"github.com/nocdn/volumes/internal/config"
	"github.com/nocdn/volumes/internal/logger"
	"github.com/nocdn/volumes/internal/mcp"
	"github.com/nocdn/volumes/internal/metadata"
	"github.com/nocdn/volumes/internal/server"
	"github.com/nocdn/volumes/internal/storage"
)

// ServeOptions configure `volumes serve`. Empty fields fall back to the
// [server] section of the config file.
type ServeOptions struct {
	ConfigPath string
	Listen     string
	Storage    string
}

// Serve runs the bookmark HTTP API until ctx is done.
func Serve(ctx context.Context, opts ServeOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	sc := cfg.Server
	if opts.Listen != "" {
		sc.Listen = opts.Listen
	}
	if opts.Storage != "" {
		sc.Storage = opts.Storage
	}

	log, err := logger.New(logger.Options{Level: sc.LogLevel, Pretty: sc.PrettyLog})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	backend, err := storage.ParseBackend(sc.Storage)
	if err != nil {
		return err
	}
	repo, err := storage.Open(ctx, storage.Options{
		Backend:       backend,
		SQLitePath:    sc.SQLitePath,
		RedisAddr:     sc.RedisAddr,
		RedisPassword: sc.RedisPassword,
		RedisDB:       sc.RedisDB,
		Logger:        log.With(logger.String("component", "storage")),
	})
	if err != nil {
		return fmt.Errorf("open %s storage: %w", backend, err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.Warn("close storage", logger.Error(err))
		}
	}()
	log.Info("storage ready", logger.String("backend", string(backend)))

	fetcher := metadata.NewFetcher(metadata.WithTimeout(sc.FetchTimeout))
	srv := server.New(server.Config{
		Listen:         sc.Listen,
		AllowedOrigins: sc.AllowedOrigins,
	}, repo, fetcher, log.With(logger.String("component", "http")))
	return srv.Run(ctx)
}

// ServeMCP exposes the collection of the configured server as MCP tools
// over stdin/stdout. Logs go to the client log file because stdout belongs
// to the protocol.
func ServeMCP(ctx context.Context, opts Options, version string) error {
	c, err := newClient(opts)
	if err != nil {
		return err
	}
	defer c.close()

	s := mcp.NewServer(version, c.remote, c.log.With(logger.String("component", "mcp")))
	c.log.Info("mcp server starting", logger.String("api", c.cfg.Client.APIBind))

	errc := make(chan error, 1)
	go func() { errc <- mcp.ServeStdio(s) }()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return nil
	}
}
