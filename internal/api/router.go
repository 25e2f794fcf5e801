// Package api provides the HTTP API for the KMA weather service.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/kmaweather/kmaweather/internal/api/handler"
	"github.com/kmaweather/kmaweather/internal/api/middleware"
	"github.com/kmaweather/kmaweather/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RequireTLS  bool

	WeatherService handler.WeatherService
	Registry       *resilience.Registry
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "kmaweather-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry)
	weatherHandler := handler.NewWeatherHandler(cfg.WeatherService)

	// Every call below reaches the KMA API hub.
	upstreamRateLimit := middleware.RateLimitByIP(middleware.UpstreamRateLimit)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.With(upstreamRateLimit).Get("/weather", weatherHandler.GetWeather)

		r.Route("/stations", func(r chi.Router) {
			r.Use(upstreamRateLimit)
			r.Get("/", weatherHandler.ListStations)
			r.Get("/resolve", weatherHandler.ResolveStation)
		})
	})

	return r
}
