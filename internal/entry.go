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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/starford/planner/internal/api"
	"github.com/starford/planner/internal/apperr"
	"github.com/starford/planner/internal/changes"
	"github.com/starford/planner/internal/planstore"
	"github.com/starford/planner/internal/prefs"
	"github.com/starford/planner/internal/sse"
	"github.com/starford/planner/internal/web"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.newLogger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("storage_path", cfg.Storage.Path),
		slog.Int64("quota_bytes", cfg.Storage.QuotaBytes),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker and change tracking.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()
	tracker := changes.NewTracker()

	be, store, themes, err := app.openPlanner(logger,
		planstore.WithChangeHook(tracker.Hook(broker.PublishPlanEvent)))
	if err != nil {
		return err
	}
	defer be.Close()

	plans, err := store.Plans(ctx)
	if err != nil {
		logger.Warn("initial plan read failed", slog.String("error", err.Error()))
	}
	tracker.Prime(plans)

	publishTheme := func(t prefs.Theme) {
		broker.Publish(sse.Event{Type: sse.EventThemeUpdated, Data: map[string]string{"theme": string(t)}})
	}

	// Build API and web routers.
	apiHandler := api.NewHandler(store, themes,
		api.WithLocale(app.locale()),
		api.WithRecentLimit(cfg.Planner.RecentLimit),
		api.WithClock(app.now),
		api.WithThemeListener(publishTheme))
	apiRouter := api.NewRouter(apiHandler, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	webServer, err := web.New(store, themes,
		web.WithLocale(app.locale()),
		web.WithRecentLimit(cfg.Planner.RecentLimit),
		web.WithClock(app.now),
		web.WithCacheVersion(cfg.Assets.CacheVersion),
		web.WithThemeListener(publishTheme),
		web.WithLogger(logger),
		web.WithAuth(cfg.Auth.AuthEnabled(), cfg.Auth.Token))
	if err != nil {
		return fmt.Errorf("init web: %w", err)
	}

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
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// Malformed plan data is recoverable; an unreadable provider is not.
		if _, err := store.Plans(req.Context()); err != nil && !apperr.IsReadFailure(err) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Mount API routes under /api and pages at the root.
	r.Mount("/api", apiRouter)
	r.Mount("/", webServer.Routes())

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(ctx)

	// Announce edits made to the plans file by other processes.
	if be.fs != nil {
		g.Go(func() error {
			err := changes.Watch(gCtx, store, be.fs.Root(), planstore.PlansKey, tracker, logger, broker.PublishPlanEvent)
			if err != nil {
				logger.Error("watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

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
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Close SSE streams first so Shutdown does not wait on them.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		stop()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
