// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/zettel/internal/api"
	"github.com/starford/zettel/internal/apperr"
	"github.com/starford/zettel/internal/index"
	"github.com/starford/zettel/internal/mcpserver"
	"github.com/starford/zettel/internal/noteservice"
	"github.com/starford/zettel/internal/sse"
	"github.com/starford/zettel/internal/storage"
)

// NewLogger builds the process logger: JSON for long-running servers, text
// for one-shot commands.
func NewLogger(w io.Writer, level slog.Level, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// App holds the opened wiki, store and services shared by every command.
type App struct {
	cfg    *Config
	logger *slog.Logger
	db     *index.DB
	ix     *index.Indexer
	svc    *noteservice.Service
	root   string
	fresh  bool
}

// Open opens the wiki and the store described by cfg. The store file and
// its schema are created when missing.
func Open(cfg *Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is required", apperr.ErrConfiguration)
	}
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.NewFS(cfg.Wiki.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: wiki: %w", apperr.ErrConfiguration, err)
	}

	gen, err := cfg.Identity.Generator()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrConfiguration, err)
	}

	_, statErr := os.Stat(cfg.SQLite.Path)
	fresh := errors.Is(statErr, os.ErrNotExist)
	if dir := filepath.Dir(cfg.SQLite.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrStore, err)
	}

	ix := index.NewIndexer(db, store, gen, cfg.Index.Workers, logger)
	return &App{
		cfg:    cfg,
		logger: logger,
		db:     db,
		ix:     ix,
		svc:    noteservice.NewService(ix),
		root:   store.Root(),
		fresh:  fresh,
	}, nil
}

// Close releases the store.
func (a *App) Close() error { return a.db.Close() }

// Service returns the command-layer facade.
func (a *App) Service() *noteservice.Service { return a.svc }

// Root returns the absolute wiki root.
func (a *App) Root() string { return a.root }

// Fresh reports whether the store file was created by Open.
func (a *App) Fresh() bool { return a.fresh }

// Bound applies the configured store timeout to a one-shot command.
func (a *App) Bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.SQLite.Timeout > 0 {
		return context.WithTimeout(ctx, a.cfg.SQLite.Timeout)
	}
	return context.WithCancel(ctx)
}

// Create initializes the store and, when it did not exist before, indexes
// the whole wiki. indexed is false when the store was already present.
func (a *App) Create(ctx context.Context) (rep index.Report, indexed bool, err error) {
	if !a.fresh {
		a.logger.Info("store already initialized", slog.String("sqlite_path", a.cfg.SQLite.Path))
		return index.Report{}, false, nil
	}
	ctx, cancel := a.Bound(ctx)
	defer cancel()
	rep, err = a.svc.IndexAll(ctx)
	return rep, true, err
}

// Watch runs the change watcher until ctx is cancelled or a signal arrives.
func (a *App) Watch(ctx context.Context, cb index.EventCallback) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.svc.Watch(ctx, a.cfg.Watch.Options(), cb)
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("%w: config is required", apperr.ErrConfiguration)
	}
	return app, nil
}

// Run starts the HTTP query API and the change watcher with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = NewLogger(os.Stdout, cfg.App.LogLevel, true)
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("wiki_path", cfg.Wiki.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	a, err := Open(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	// Initial full sync; the watcher only sees changes from here on.
	if _, err := a.svc.IndexAll(ctx); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := api.NewRouter(a.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := a.svc.Count(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.svc.Watch(gCtx, cfg.Watch.Options(), broker.PublishIndexEvent)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio. Logs go to stderr since stdout
// carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger
	if logger == nil {
		logger = NewLogger(os.Stderr, app.config.App.LogLevel, false)
	}

	a, err := Open(app.config, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.svc.IndexAll(ctx); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(a.svc, app.version).ServeStdio()
}
