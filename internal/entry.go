// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/halvard/ordna/internal/api"
	"github.com/halvard/ordna/internal/classify"
	"github.com/halvard/ordna/internal/fileservice"
	"github.com/halvard/ordna/internal/jdindex"
	"github.com/halvard/ordna/internal/mcpserver"
	"github.com/halvard/ordna/internal/organizer"
	"github.com/halvard/ordna/internal/sse"
	"github.com/halvard/ordna/internal/store"
	"github.com/halvard/ordna/internal/watch"
)

// components is everything the serve and MCP modes share.
type components struct {
	db     *store.DB
	jd     *jdindex.DB
	exec   *organizer.Executor
	svc    *fileservice.Service
	engine *classify.Engine
	logger *slog.Logger
}

func (c *components) close() {
	_ = c.jd.Close()
	_ = c.db.Close()
}

func buildComponents(cfg *Config, logger *slog.Logger) (*components, error) {
	if err := os.MkdirAll(cfg.Library.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create library dir: %w", err)
	}

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	// The index shares the database file; WAL arbitrates the connections.
	jd, err := jdindex.Open(cfg.SQLite.Path)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init index: %w", err)
	}

	engine := classify.New(logger, nil)
	exec := organizer.New(cfg.Library.Path, jd, db, db, logger)
	exec.DefaultConflictPolicy = organizer.ConflictPolicy(cfg.Organize.ConflictPolicy)
	exec.DefaultMoveTimeout = cfg.Organize.MoveTimeout()
	svc := fileservice.NewService(db, jd, engine, exec, logger)

	if err := svc.RefreshFallback(); err != nil {
		logger.Warn("fallback refresh failed", slog.String("error", err.Error()))
	}

	return &components{
		db:     db,
		jd:     jd,
		exec:   exec,
		svc:    svc,
		engine: engine,
		logger: logger,
	}, nil
}

// Run starts the HTTP server, the SSE broker, and the watched-folder
// loops, and blocks until shutdown.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("library_path", cfg.Library.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := buildComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer c.close()

	// SSE broker; the executor and watcher feed it.
	broker := sse.NewBroker(2 * time.Second)
	c.exec.Notify = broker.PublishOrganized
	c.exec.UndoNotify = broker.PublishUndone

	manager := watch.NewManager(c.db, c.engine, c.exec, logger,
		cfg.Watch.PollInterval(), cfg.Watch.Workers)
	manager.Notify = broker.PublishActivity

	// Build API router.
	apiRouter := api.NewRouter(c.svc, c.db, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
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
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start watched-folder loops.
	g.Go(func() error {
		return manager.Run(gCtx)
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

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
		broker.Close()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the MCP server on stdin/stdout. Logs go to stderr so
// they never corrupt the protocol stream.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	c, err := buildComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer c.close()

	srv := mcpserver.New(c.svc, c.db)
	logger.Info("MCP server starting on stdio")
	return srv.ServeStdio()
}
