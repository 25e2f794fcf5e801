// Package kma is the client for the Korea Meteorological Administration API hub:
// the surface station directory and minute-level AWS observations.
package kma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kmaweather/kmaweather/internal/provider/resilience"
	"github.com/kmaweather/kmaweather/internal/station"
	"github.com/kmaweather/kmaweather/internal/telemetry"
	"github.com/kmaweather/kmaweather/internal/weather"
)

const (
	// ProviderName identifies this provider in logs and metrics.
	ProviderName = "kma"

	// DefaultStationURL is the station information endpoint.
	DefaultStationURL = "https://apihub.kma.go.kr/api/typ01/url/stn_inf.php"

	// DefaultObservationURL is the AWS minute observation endpoint.
	DefaultObservationURL = "https://apihub.kma.go.kr/api/typ01/cgi-bin/url/nph-aws2_min"

	// DefaultStationTimeout bounds the station directory request.
	DefaultStationTimeout = 10 * time.Second

	// DefaultObservationTimeout bounds the observation request.
	DefaultObservationTimeout = 20 * time.Second

	// StationCategory selects surface (SFC) stations.
	StationCategory = "SFC"

	// DefaultMaxResponseBytes caps either upstream body. The directory is
	// well under 100 KiB.
	DefaultMaxResponseBytes = 8 << 20

	// maxErrorBody is how much of a failed observation body is kept.
	maxErrorBody = 512

	tracerName = "github.com/kmaweather/kmaweather/internal/kma"
)

// ErrResponseTooLarge is returned when an upstream body exceeds the size cap.
var ErrResponseTooLarge = errors.New("response body too large")

// ClientConfig holds configuration for the KMA client.
type ClientConfig struct {
	// APIKey is the API hub auth key. It is sent as-is; an empty or
	// invalid key surfaces as an upstream failure.
	APIKey string

	// StationURL is the station directory endpoint (optional).
	StationURL string

	// ObservationURL is the observation endpoint (optional).
	ObservationURL string

	// StationClient is used for the directory request (optional).
	// If nil, a single-attempt client with DefaultStationTimeout is used.
	StationClient *resilience.Client

	// ObservationClient is used for the observation request (optional).
	// If nil, a single-attempt client with DefaultObservationTimeout is used.
	ObservationClient *resilience.Client

	// MaxResponseBytes caps each upstream body (optional).
	// Default: DefaultMaxResponseBytes
	MaxResponseBytes int64

	// Metrics records request durations (optional).
	Metrics *telemetry.ProviderMetrics

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client talks to the KMA API hub.
type Client struct {
	apiKey            string
	stationURL        string
	observationURL    string
	stationClient     *resilience.Client
	observationClient *resilience.Client
	maxResponseBytes  int64
	metrics           *telemetry.ProviderMetrics
	logger            zerolog.Logger
	tracer            trace.Tracer
}

// NewClient creates a new KMA client.
func NewClient(cfg ClientConfig) *Client {
	stationURL := cfg.StationURL
	if stationURL == "" {
		stationURL = DefaultStationURL
	}

	observationURL := cfg.ObservationURL
	if observationURL == "" {
		observationURL = DefaultObservationURL
	}

	stationClient := cfg.StationClient
	if stationClient == nil {
		stationCfg := resilience.DefaultClientConfig("kma-stations")
		stationCfg.Timeout = DefaultStationTimeout
		stationClient = resilience.NewClient(stationCfg)
	}

	observationClient := cfg.ObservationClient
	if observationClient == nil {
		observationCfg := resilience.DefaultClientConfig("kma-observations")
		observationCfg.Timeout = DefaultObservationTimeout
		observationClient = resilience.NewClient(observationCfg)
	}

	maxResponseBytes := cfg.MaxResponseBytes
	if maxResponseBytes <= 0 {
		maxResponseBytes = DefaultMaxResponseBytes
	}

	return &Client{
		apiKey:            cfg.APIKey,
		stationURL:        stationURL,
		observationURL:    observationURL,
		stationClient:     stationClient,
		observationClient: observationClient,
		maxResponseBytes:  maxResponseBytes,
		metrics:           cfg.Metrics,
		logger:            cfg.Logger,
		tracer:            otel.Tracer(tracerName),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// LoadDirectory fetches and parses the surface station directory.
// It returns a *station.FetchError when the request fails and a
// *station.ParseError when the body cannot be decoded or parsed.
func (c *Client) LoadDirectory(ctx context.Context) (dir *station.Directory, err error) {
	ctx, span := c.tracer.Start(ctx, "kma.LoadDirectory")
	start := time.Now()
	defer func() {
		c.metrics.RecordRequest(ctx, ProviderName, "load_directory", time.Since(start), err)
		endSpan(span, err)
	}()

	c.logger.Info().Msg("loading station directory")

	params := url.Values{}
	params.Set("inf", StationCategory)
	params.Set("authKey", c.apiKey)

	body, status, err := c.get(ctx, c.stationClient, c.stationURL, params)
	if err != nil {
		return nil, &station.FetchError{Err: err}
	}
	if status < 200 || status > 299 {
		return nil, &station.FetchError{StatusCode: status}
	}

	text, err := DecodeEUCKR(body)
	if err != nil {
		return nil, &station.ParseError{Reason: "decoding body", Err: err}
	}

	c.logger.Info().Int("bytes", len(body)).Msg("parsing station directory")

	result, err := station.ParseDirectory(bytes.NewReader(text))
	if err != nil {
		return nil, err
	}

	for _, skipped := range result.Skipped {
		c.logger.Warn().
			Int("line", skipped.Line).
			Str("reason", skipped.Reason).
			Msg("skipping malformed station row")
	}
	if !result.Terminated {
		c.logger.Warn().Msg("station directory end marker not found")
	}

	dir = station.NewDirectory(result.Records)
	c.metrics.RecordDirectory(ctx, dir.Len(), len(result.Skipped))
	span.SetAttributes(
		attribute.Int("kma.stations", dir.Len()),
		attribute.Int("kma.rows_skipped", len(result.Skipped)),
	)

	c.logger.Debug().
		Int("stations", dir.Len()).
		Int("rows", len(result.Records)).
		Int("skipped", len(result.Skipped)).
		Msg("station directory loaded")

	return dir, nil
}

// GetObservation fetches minute-level observations for a station and returns
// the JSON body unmodified.
func (c *Client) GetObservation(ctx context.Context, stationID int) (payload json.RawMessage, err error) {
	ctx, span := c.tracer.Start(ctx, "kma.GetObservation",
		trace.WithAttributes(attribute.Int("kma.station_id", stationID)))
	start := time.Now()
	defer func() {
		c.metrics.RecordRequest(ctx, ProviderName, "get_observation", time.Since(start), err)
		endSpan(span, err)
	}()

	params := url.Values{}
	params.Set("type", "json")
	params.Set("stn", strconv.Itoa(stationID))
	params.Set("authkey", c.apiKey)

	body, status, err := c.get(ctx, c.observationClient, c.observationURL, params)
	if err != nil {
		return nil, &weather.ObservationFetchError{StationID: stationID, Err: err}
	}
	if status != http.StatusOK {
		return nil, &weather.ObservationFetchError{
			StationID:  stationID,
			StatusCode: status,
			Body:       truncate(body, maxErrorBody),
		}
	}

	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		return nil, &weather.ObservationFetchError{
			StationID: stationID,
			Body:      truncate(body, maxErrorBody),
			Err:       errors.New("decoding response: invalid JSON"),
		}
	}

	return json.RawMessage(body), nil
}

// get issues a GET request and returns the body and status code.
func (c *Client) get(ctx context.Context, client *resilience.Client, endpoint string, params url.Values) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}
	if int64(len(body)) > c.maxResponseBytes {
		return nil, resp.StatusCode, fmt.Errorf("reading response: %w (limit %d bytes)", ErrResponseTooLarge, c.maxResponseBytes)
	}

	return body, resp.StatusCode, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
