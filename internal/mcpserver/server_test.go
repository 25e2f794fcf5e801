package mcpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmaweather/kmaweather/internal/mcpserver"
	"github.com/kmaweather/kmaweather/internal/weather"
)

type stubService struct {
	results map[string]weather.Result
}

func (s *stubService) Weather(_ context.Context, location string) weather.Result {
	if r, ok := s.results[location]; ok {
		return r
	}
	return weather.Result{Error: "no station code found for '" + location + "'"}
}

func connect(t *testing.T, svc mcpserver.WeatherService) *mcp.ClientSession {
	t.Helper()
	return connectWithLogger(t, svc, zerolog.New(io.Discard))
}

func connectWithLogger(t *testing.T, svc mcpserver.WeatherService, logger zerolog.Logger) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	server := mcpserver.New(mcpserver.Config{
		Service: svc,
		Version: "test",
		Logger:  logger,
	})

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	return session
}

func callWeather(t *testing.T, session *mcp.ClientSession, location string) (*mcp.CallToolResult, string) {
	t.Helper()
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      mcpserver.ToolName,
		Arguments: map[string]any{"location": location},
	})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)

	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return res, text.Text
}

func TestServer_ListTools(t *testing.T) {
	session := connect(t, &stubService{})

	tools, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, tools.Tools, 1)

	tool := tools.Tools[0]
	assert.Equal(t, "weather", tool.Name)
	assert.NotEmpty(t, tool.Description)

	schema, err := json.Marshal(tool.InputSchema)
	require.NoError(t, err)
	assert.Contains(t, string(schema), `"location"`)
}

func TestServer_WeatherSuccess(t *testing.T) {
	session := connect(t, &stubService{results: map[string]weather.Result{
		"서울": {Payload: json.RawMessage(`{"temp": 21.4}`)},
	}})

	res, text := callWeather(t, session, "서울")

	assert.False(t, res.IsError)
	assert.Equal(t, `{"temp": 21.4}`, text, "payload is passed through byte for byte")
}

func TestServer_WeatherErrors(t *testing.T) {
	session := connect(t, &stubService{results: map[string]weather.Result{
		"서울": {Error: weather.MsgDirectoryFailed},
		"부산": {Error: weather.MsgObservationFailed},
	}})

	tests := []struct {
		location string
		want     string
	}{
		{location: "서울", want: `{"error": "failed to load station codes"}`},
		{location: "부산", want: `{"error": "Failed to fetch weather data"}`},
		{location: "Atlantis", want: `{"error": "no station code found for 'Atlantis'"}`},
	}

	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			res, text := callWeather(t, session, tt.location)
			assert.True(t, res.IsError)
			assert.JSONEq(t, tt.want, text)
		})
	}
}

func TestServer_LogsOneEventPerCall(t *testing.T) {
	var buf bytes.Buffer
	session := connectWithLogger(t, &stubService{results: map[string]weather.Result{
		"서울": {Payload: json.RawMessage(`{"temp": 21.4}`)},
	}}, zerolog.New(&buf))

	callWeather(t, session, "서울")
	callWeather(t, session, "Atlantis")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var ok, failed map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &ok))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &failed))

	assert.Equal(t, "info", ok["level"])
	assert.NotContains(t, ok, "error")
	assert.Equal(t, "서울", ok["location"])

	assert.Equal(t, "warn", failed["level"])
	assert.Equal(t, "no station code found for 'Atlantis'", failed["error"])
	assert.Equal(t, "tool call completed", failed["message"])
}
