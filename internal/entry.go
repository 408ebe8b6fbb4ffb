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

	"github.com/starford/now/internal/api"
	"github.com/starford/now/internal/index"
	"github.com/starford/now/internal/mcpserver"
	"github.com/starford/now/internal/sse"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := NewLogger(cfg, app.logOutput)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Bool("context_edges", cfg.Graph.ContextEdges),
		slog.Bool("enrich", cfg.Enrich.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker; doubles as the workspace's change publisher.
	broker := sse.NewBroker(cfg.Events.RebuildThrottle)
	defer broker.Close()

	ws, err := OpenWorkspace(ctx, cfg, logger, broker)
	if err != nil {
		return err
	}
	defer ws.Close()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(api.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	api.Health(r, ws.Service)
	r.Mount("/api", api.NewRouter(ws.Service, broker))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Vault.Watch {
		g.Go(func() error {
			if err := index.Watch(gCtx, ws.Root, logger, ws.Service); err != nil {
				// The server keeps running; external edits are picked up on restart.
				logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

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
		// Close the broker first so open event streams end and Shutdown
		// does not wait on them.
		broker.Close()
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

// RunMCP serves the MCP protocol on stdin/stdout until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	if app.logOutput == nil {
		app.logOutput = os.Stderr
	}
	logger := NewLogger(cfg, app.logOutput)
	slog.SetDefault(logger)

	ws, err := OpenWorkspace(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if cfg.Vault.Watch {
		go func() {
			if err := index.Watch(watchCtx, ws.Root, logger, ws.Service); err != nil {
				logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	logger.Info("Starting MCP server on stdio", slog.String("vault_path", cfg.Vault.Path))
	return mcpserver.New(ws.Service, app.version).ServeStdio()
}
