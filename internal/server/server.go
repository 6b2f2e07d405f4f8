// Package server exposes the bookmark collection over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/nocdn/volumes/internal/logger"
	"github.com/nocdn/volumes/internal/storage"
)

const (
	defaultListen   = "127.0.0.1:7490"
	shutdownTimeout = 5 * time.Second
	maxBodyBytes    = 1 << 20
)

// Extractor resolves a page title for the metadata endpoint.
type Extractor interface {
	Extract(ctx context.Context, rawURL string) (string, error)
}

// Config holds the listener and CORS settings.
type Config struct {
	Listen         string
	AllowedOrigins []string
}

// Server wraps the HTTP server and its dependencies.
type Server struct {
	http      *http.Server
	repo      storage.Repository
	extractor Extractor
	log       logger.Logger
	started   time.Time
}

// New builds the HTTP server (router, middlewares, routes).
func New(cfg Config, repo storage.Repository, extractor Extractor, log logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Listen == "" {
		cfg.Listen = defaultListen
	}
	s := &Server{
		repo:      repo,
		extractor: extractor,
		log:       log,
		started:   time.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logRequests(log))
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(corsHandler(cfg.AllowedOrigins))
	}
	s.routes(r)

	s.http = &http.Server{
		Addr:              cfg.Listen,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return s
}

func (s *Server) routes(r chi.Router) {
	r.Get("/healthz", s.handleHealthz)
	r.Route("/api", func(r chi.Router) {
		r.Get("/metadata", s.handleMetadata)
		r.Route("/bookmarks", func(r chi.Router) {
			r.Get("/", s.handleList)
			r.Post("/", s.handleCreate)
			r.Patch("/{id}", s.handleUpdate)
			r.Delete("/{id}", s.handleDelete)
		})
	})
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.http.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("http server listening", logger.String("addr", ln.Addr().String()))
		err := s.http.Serve(ln)
		// http.ErrServerClosed is expected on graceful shutdown.
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		s.log.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
