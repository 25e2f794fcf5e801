// Package app wires the KMA client, resilience clients and weather service
// from process configuration. Both binaries build on it.
package app

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/kmaweather/kmaweather/internal/config"
	"github.com/kmaweather/kmaweather/internal/kma"
	"github.com/kmaweather/kmaweather/internal/provider/resilience"
	"github.com/kmaweather/kmaweather/internal/telemetry"
	"github.com/kmaweather/kmaweather/internal/weather"
)

// Client names used for circuit breakers, spans and the status endpoint.
const (
	StationClientName     = "kma-stations"
	ObservationClientName = "kma-observations"
)

// App holds the wired components.
type App struct {
	Registry *resilience.Registry
	Client   *kma.Client
	Service  *weather.Service
}

// New builds the weather service from cfg. metrics may be nil.
func New(cfg config.Config, logger zerolog.Logger, metrics *telemetry.ProviderMetrics) *App {
	registry := resilience.NewRegistry()
	stationClient := newResilientClient(StationClientName, cfg.StationTimeout, registry)
	observationClient := newResilientClient(ObservationClientName, cfg.ObservationTimeout, registry)

	if cfg.APIKey == "" {
		logger.Warn().Msg("KMA_API_KEY is not set; upstream requests will be rejected")
	}

	client := kma.NewClient(kma.ClientConfig{
		APIKey:            cfg.APIKey,
		StationURL:        cfg.StationURL,
		ObservationURL:    cfg.ObservationURL,
		StationClient:     stationClient,
		ObservationClient: observationClient,
		Metrics:           metrics,
		Logger:            logger.With().Str("component", "kma").Logger(),
	})

	service := weather.NewService(weather.ServiceConfig{
		Directory:    client,
		Observations: client,
		Logger:       logger.With().Str("component", "weather").Logger(),
	})

	return &App{
		Registry: registry,
		Client:   client,
		Service:  service,
	}
}

// newResilientClient builds a single-attempt client whose breaker only
// counts, so a failing upstream never short-circuits later requests.
func newResilientClient(name string, timeout time.Duration, registry *resilience.Registry) *resilience.Client {
	cfg := resilience.DefaultClientConfig(name)
	cfg.Timeout = timeout
	cfg.Registry = registry
	return resilience.NewClient(cfg)
}
