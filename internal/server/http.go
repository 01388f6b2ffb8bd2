// Package server provides the HTTP surface of the studio: the embedded UI, the JSON
// API driving it and the operational endpoints.
package server

import (
	"context"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"adaptstudio/config"
	"adaptstudio/internal/preview"
	"adaptstudio/internal/studio"
	"adaptstudio/internal/ui"
)

// uploadRoute is the multipart upload endpoint of a slot.
const uploadRoute = "/api/slots/:role"

// Server wraps the Echo server
type Server struct {
	echo    *echo.Echo
	handler *Handler
}

// Config holds server configuration options
type Config struct {
	MetricsEnabled  bool   // Whether to expose Prometheus metrics endpoint
	MetricsEndpoint string // HTTP path for metrics endpoint (default: /metrics)
	// MetricsGatherer backs the metrics endpoint; nil uses the default registry.
	MetricsGatherer prometheus.Gatherer
	BodySizeLimit   int64 // Max request body size in bytes (default: 12MB)
	// GenerateRateLimit is the sustained generate calls per second per session; 0 disables.
	GenerateRateLimit float64
}

// New creates a new HTTP server
func New(sessions *studio.Sessions, previews *preview.Store, page *ui.Handler, cfg *Config) *Server {
	if cfg == nil {
		cfg = &Config{}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware stack (order matters)
	e.Use(RequestIDMiddleware())
	e.Use(RequestLogger())
	e.Use(middleware.Recover())

	bodySizeLimit := config.DefaultBodySizeLimit
	if cfg.BodySizeLimit > 0 {
		bodySizeLimit = cfg.BodySizeLimit
	}
	e.Use(middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
		Limit: strconv.FormatInt(bodySizeLimit, 10),
		// uploads enforce the limit in the handler so the slot can show the error
		Skipper: func(c echo.Context) bool {
			return c.Request().Method == http.MethodPost && c.Path() == uploadRoute
		},
	}))

	handler := NewHandler(previews, bodySizeLimit)

	// Public routes
	e.GET("/health", handler.Health)
	if cfg.MetricsEnabled {
		metricsPath := "/metrics"
		if cfg.MetricsEndpoint != "" {
			// Normalize path to prevent traversal attacks
			metricsPath = path.Clean(cfg.MetricsEndpoint)
		}
		metricsHandler := promhttp.Handler()
		if cfg.MetricsGatherer != nil {
			metricsHandler = promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{})
		}
		e.GET(metricsPath, echo.WrapHandler(metricsHandler))
	}
	// previews are visible only to the session whose slot holds them
	e.GET(preview.DefaultPathPrefix+":id", handler.Preview, SessionMiddleware(sessions))
	if page != nil {
		e.GET(ui.StaticPrefix+"*", page.Static)
		e.GET("/", page.Index, SessionMiddleware(sessions))
	}

	// API routes
	api := e.Group("/api", SessionMiddleware(sessions))
	api.GET("/studio", handler.Studio)
	api.POST(strings.TrimPrefix(uploadRoute, "/api"), handler.Upload)
	api.DELETE("/slots/:role", handler.ClearSlot)
	api.POST("/slots/:role/drag", handler.Drag)
	api.PUT("/prompt", handler.SetPrompt)
	api.POST("/generate", handler.Generate, GenerateRateLimiter(cfg.GenerateRateLimit))
	api.GET("/result/download", handler.Download)
	api.GET("/result/view", handler.View)

	return &Server{
		echo:    e,
		handler: handler,
	}
}

// Start starts the HTTP server on the given address
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements the http.Handler interface, allowing Server to be used with httptest
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
