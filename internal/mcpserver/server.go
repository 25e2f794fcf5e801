// Package mcpserver exposes the weather lookup as a Model Context Protocol tool.
package mcpserver

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/kmaweather/kmaweather/internal/weather"
)

const (
	// ServerName is the MCP implementation name.
	ServerName = "weather"

	// ToolName is the name of the weather tool.
	ToolName = "weather"

	toolDescription = "Get the latest minute-level observations from the nearest " +
		"Korea Meteorological Administration surface station. " +
		"location is a Korean station name such as 서울, an English station name, " +
		"or \"lat,lon\" decimal coordinates."
)

// WeatherService looks up observations for a location.
type WeatherService interface {
	Weather(ctx context.Context, location string) weather.Result
}

// Config holds configuration for the MCP server.
type Config struct {
	Service WeatherService
	Version string
	Logger  zerolog.Logger
}

// WeatherInput is the tool input.
type WeatherInput struct {
	Location string `json:"location" jsonschema:"station name in Korean or English, or lat,lon coordinates"`
}

// New creates an MCP server with the weather tool registered.
func New(cfg Config) *mcp.Server {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: version,
	}, nil)

	h := &handler{service: cfg.Service, logger: cfg.Logger}
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolName,
		Description: toolDescription,
	}, h.weather)

	return server
}

type handler struct {
	service WeatherService
	logger  zerolog.Logger
}

// weather handles a tool call. Failures are reported as error results with
// a {"error": message} body, never as protocol errors.
func (h *handler) weather(ctx context.Context, _ *mcp.CallToolRequest, input WeatherInput) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	result := h.service.Weather(ctx, input.Location)

	// MarshalJSON directly: json.Marshal would compact the upstream payload.
	body, err := result.MarshalJSON()
	if err != nil {
		h.logger.Error().Err(err).Str("location", input.Location).Msg("failed to encode tool result")
		result = weather.Result{Error: weather.MsgInternal}
		body, _ = result.MarshalJSON()
	}

	level := zerolog.InfoLevel
	if result.IsError() {
		level = zerolog.WarnLevel
	}
	event := h.logger.WithLevel(level)
	if result.IsError() {
		event.Str("error", result.Error)
	}
	event.
		Str("tool", ToolName).
		Str("location", input.Location).
		Dur("duration", time.Since(start)).
		Msg("tool call completed")

	return &mcp.CallToolResult{
		IsError: result.IsError(),
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(body)},
		},
	}, nil, nil
}
