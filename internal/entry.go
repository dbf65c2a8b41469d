// Package internal wires the application together: content store, search
// index, renderer, HTTP server, file watcher, and graceful shutdown.
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

	"golang.org/x/sync/errgroup"

	"github.com/justmytwospence/blog/internal/content"
	"github.com/justmytwospence/blog/internal/index"
	"github.com/justmytwospence/blog/internal/mcpserver"
	"github.com/justmytwospence/blog/internal/postservice"
	"github.com/justmytwospence/blog/internal/site"
	"github.com/justmytwospence/blog/internal/sse"
)

// Run starts the blog server and blocks until ctx is cancelled or a
// termination signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{config: NewDefaultConfig()}
	for _, opt := range opts {
		opt(app)
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.Content.Path, 0o755); err != nil {
		return fmt.Errorf("create content dir: %w", err)
	}

	store, err := content.NewStore(cfg.Content.Path)
	if err != nil {
		return fmt.Errorf("init content store: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer db.Close()

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial index sync failed", "error", err)
	}

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc := postservice.NewService(store, db, logger)
	handler, err := site.NewHandler(svc, site.Info{
		Title:       cfg.Site.Title,
		Author:      cfg.Site.Author,
		Description: cfg.Site.Description,
		BaseURL:     cfg.Site.BaseURL,
	}, logger)
	if err != nil {
		return fmt.Errorf("init site handler: %w", err)
	}
	router := site.NewRouter(handler, broker)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return index.Watch(ctx, db, store, cfg.Content.Path, logger, func(kind, path string) {
			broker.PublishPostEvent(kind, content.SlugFor(path))
		})
	})

	g.Go(func() error {
		logger.Info("http server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig.String())
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// RunSync performs a one-shot index sync and exits. Useful for warming the
// index before deploys or after bulk content edits.
func RunSync(ctx context.Context, opts ...Option) error {
	app := &application{config: NewDefaultConfig()}
	for _, opt := range opts {
		opt(app)
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	store, err := content.NewStore(cfg.Content.Path)
	if err != nil {
		return fmt.Errorf("init content store: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer db.Close()

	return index.Sync(db, store, logger)
}

// RunMCP starts the MCP server on stdio. Logs go to stderr so stdout stays
// reserved for the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{config: NewDefaultConfig()}
	for _, opt := range opts {
		opt(app)
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	store, err := content.NewStore(cfg.Content.Path)
	if err != nil {
		return fmt.Errorf("init content store: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer db.Close()

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("index sync failed", "error", err)
	}

	return mcpserver.New(store, db).ServeStdio()
}
