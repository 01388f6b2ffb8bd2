// Package app provides the main application struct for centralized dependency management
// and lifecycle control of the studio server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"adaptstudio/config"
	"adaptstudio/internal/core"
	"adaptstudio/internal/httpclient"
	"adaptstudio/internal/observability"
	"adaptstudio/internal/preview"
	"adaptstudio/internal/providers"
	"adaptstudio/internal/server"
	"adaptstudio/internal/studio"
	"adaptstudio/internal/ui"
)

// App represents the main application with all its dependencies.
type App struct {
	config    *config.Config
	generator core.ImageGenerator
	previews  *preview.Store
	sessions  *studio.Sessions
	server    *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// Config holds the configuration options for creating an App.
type Config struct {
	// AppConfig holds the loaded application configuration produced by config.Load.
	AppConfig *config.LoadResult

	// Generator replaces the generator selected by AppConfig. Optional.
	Generator core.ImageGenerator
}

// New creates a new App with all dependencies initialized.
// The caller must call Shutdown to release resources.
func New(cfg Config) (*App, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("app config is required")
	}
	if cfg.AppConfig.Config == nil {
		return nil, fmt.Errorf("app config contains nil Config")
	}
	appCfg := cfg.AppConfig.Config

	var (
		registry    *prometheus.Registry
		uploads     studio.UploadObserver
		sessionsObs studio.SessionObserver
		generations providers.GenerationObserver
	)
	if appCfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m := observability.NewMetrics(registry)
		uploads, sessionsObs, generations = m, m, m
	}

	generator := cfg.Generator
	if generator == nil {
		clientCfg := httpclient.FromAppConfig(appCfg.HTTP)
		g, err := providers.Create(appCfg.Generator, httpclient.NewHTTPClient(&clientCfg))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize generator: %w", err)
		}
		generator = g
	}
	generator = providers.Instrument(generator, generations)

	page, err := ui.New(appCfg.Generator.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ui: %w", err)
	}

	previews := preview.NewStore(preview.DefaultPathPrefix)
	ttl := time.Duration(appCfg.Session.TTL) * time.Second
	sessions := studio.NewSessions(ttl, func() *studio.Studio {
		return studio.New(studio.Options{
			Generator: generator,
			Previews:  previews,
			Uploads:   uploads,
		})
	}, sessionsObs)

	serverCfg := &server.Config{
		MetricsEnabled:    appCfg.Metrics.Enabled,
		MetricsEndpoint:   appCfg.Metrics.Endpoint,
		BodySizeLimit:     appCfg.Server.BodySizeLimit,
		GenerateRateLimit: appCfg.Server.GenerateRateLimit,
	}
	if registry != nil {
		serverCfg.MetricsGatherer = registry
	}

	app := &App{
		config:    appCfg,
		generator: generator,
		previews:  previews,
		sessions:  sessions,
		server:    server.New(sessions, previews, page, serverCfg),
	}
	app.logStartupInfo(cfg.AppConfig.Path)
	return app, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.server
}

// Start starts the HTTP server on the given address.
// This is a blocking call that returns when the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}
	slog.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server, then closes every session so progress tickers stop
// and previews are released. Safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Info("shutting down application...")

	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}
	if a.sessions != nil {
		a.sessions.Close()
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	slog.Info("application shutdown complete", "previews_left", a.previews.Len())
	return nil
}

// logStartupInfo logs the application configuration on startup.
func (a *App) logStartupInfo(configPath string) {
	cfg := a.config

	if configPath != "" {
		slog.Info("config file loaded", "path", configPath)
	}
	slog.Info("generator configured",
		"type", cfg.Generator.Type,
		"name", a.generator.Name(),
		"model", cfg.Generator.Model,
	)
	if cfg.Generator.Type == "gemini" && cfg.Generator.APIKey == "" {
		slog.Warn("GEMINI_API_KEY not set - generation will fail until it is configured")
	}

	if cfg.Metrics.Enabled {
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		slog.Info("prometheus metrics disabled")
	}
	slog.Info("sessions configured", "ttl_seconds", cfg.Session.TTL)
}
