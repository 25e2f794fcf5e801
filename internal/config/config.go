// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Defaults.
const (
	DefaultPort               = "8080"
	DefaultEnvironment        = "development"
	DefaultLogLevel           = "info"
	DefaultOTLPEndpoint       = "localhost:4317"
	DefaultStationTimeout     = 10 * time.Second
	DefaultObservationTimeout = 20 * time.Second
)

// Config holds configuration shared by the binaries.
type Config struct {
	// APIKey is the KMA API hub auth key. It may be empty; requests will
	// then fail upstream.
	APIKey string

	// StationURL overrides the station directory endpoint.
	StationURL string

	// ObservationURL overrides the observation endpoint.
	ObservationURL string

	StationTimeout     time.Duration
	ObservationTimeout time.Duration

	Port        string
	Environment string
	LogLevel    zerolog.Level

	OTelEnabled  bool
	OTLPEndpoint string

	// RequireTLS rejects proxied plain-HTTP requests on the HTTP API.
	RequireTLS bool
}

// Load reads an optional .env file from the working directory and then
// builds a Config from the environment. Variables already set in the
// environment take precedence over the file. A missing .env is fine; an
// unreadable or malformed one is returned as an error alongside the
// environment-only Config.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return FromEnv(), fmt.Errorf("loading .env: %w", err)
	}
	return FromEnv(), nil
}

// FromEnv creates a Config from environment variables.
func FromEnv() Config {
	return Config{
		APIKey:             os.Getenv("KMA_API_KEY"),
		StationURL:         os.Getenv("KMA_STATION_URL"),
		ObservationURL:     os.Getenv("KMA_OBSERVATION_URL"),
		StationTimeout:     getDurationOrDefault("KMA_STATION_TIMEOUT", DefaultStationTimeout),
		ObservationTimeout: getDurationOrDefault("KMA_OBSERVATION_TIMEOUT", DefaultObservationTimeout),
		Port:               getEnvOrDefault("APP_PORT", DefaultPort),
		Environment:        getEnvOrDefault("APP_ENV", DefaultEnvironment),
		LogLevel:           getLevelOrDefault("LOG_LEVEL", zerolog.InfoLevel),
		OTelEnabled:        getBoolOrDefault("OTEL_ENABLED", false),
		OTLPEndpoint:       getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", DefaultOTLPEndpoint),
		RequireTLS:         getBoolOrDefault("REQUIRE_TLS", false),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return b
}

func getLevelOrDefault(key string, defaultValue zerolog.Level) zerolog.Level {
	level, err := zerolog.ParseLevel(os.Getenv(key))
	if err != nil || level == zerolog.NoLevel {
		return defaultValue
	}
	return level
}
