// Package main runs the weather tool as an MCP server over stdio.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/kmaweather/kmaweather/internal/app"
	"github.com/kmaweather/kmaweather/internal/config"
	"github.com/kmaweather/kmaweather/internal/mcpserver"
	"github.com/kmaweather/kmaweather/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "kmaweather-mcp"

	cfg, cfgErr := config.Load()

	// stdout carries the protocol, so logs go to stderr.
	log := zerolog.New(os.Stderr).
		Level(cfg.LogLevel).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	if cfgErr != nil {
		log.Fatal().Err(cfgErr).Msg("failed to load configuration")
	}

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting KMA weather MCP server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		BuildTime:      BuildTime,
		Environment:    cfg.Environment,
		Surface:        telemetry.SurfaceMCP,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	weatherApp := app.New(cfg, log, tp.Metrics)

	server := mcpserver.New(mcpserver.Config{
		Service: weatherApp.Service,
		Version: Version,
		Logger:  log.With().Str("component", "mcp").Logger(),
	})

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("mcp server stopped with error")
		return
	}

	log.Info().Msg("mcp server stopped")
}
