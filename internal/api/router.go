// Package api provides the HTTP query surface for the Windvane history
// service.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/windvane/windvane/internal/api/handler"
	"github.com/windvane/windvane/internal/api/middleware"
	"github.com/windvane/windvane/internal/history"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version        string
	BuildTime      string
	Logger         zerolog.Logger
	Metrics        *middleware.Metrics
	HistoryService *history.Service

	// Registry serves GET /metrics when set.
	Registry *prometheus.Registry
}

// NewRouter creates a new chi router with all query routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime)
	weatherHandler := handler.NewWeatherHandler(cfg.HistoryService)

	dataRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
		})

		// Data endpoints polled by the rendering layer.
		r.Group(func(r chi.Router) {
			r.Use(dataRateLimit)
			r.Get("/cities", weatherHandler.ListCities)
			r.Get("/latest", weatherHandler.ListLatest)
			r.Get("/latest/{cityId}", weatherHandler.GetLatest)
			r.Get("/history/{cityId}", weatherHandler.GetHistory)
		})
	})

	if cfg.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	return r
}
