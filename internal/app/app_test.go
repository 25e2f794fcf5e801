package app_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"

	"github.com/kmaweather/kmaweather/internal/app"
	"github.com/kmaweather/kmaweather/internal/config"
	"github.com/kmaweather/kmaweather/internal/weather"
)

const directory = "#START7777\n" +
	" 108 126.96580  37.57142 ASOS  85.67  86.71  1.80 10.00  1.00 11 서울 Seoul 11B10101 1114000000 한강\n" +
	"#7777END\n"

func TestNew_WiresUpstreamClients(t *testing.T) {
	body, err := korean.EUCKR.NewEncoder().Bytes([]byte(directory))
	require.NoError(t, err)

	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/stn_inf.php":
			gotKey = r.URL.Query().Get("authKey")
			_, _ = w.Write(body)
		case "/nph-aws2_min":
			_, _ = w.Write([]byte(`{"stn":108}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	cfg := config.Config{
		APIKey:             "secret",
		StationURL:         server.URL + "/stn_inf.php",
		ObservationURL:     server.URL + "/nph-aws2_min",
		StationTimeout:     time.Second,
		ObservationTimeout: time.Second,
	}

	a := app.New(cfg, zerolog.New(io.Discard), nil)

	result := a.Service.Weather(context.Background(), "서울")
	assert.False(t, result.IsError())
	assert.JSONEq(t, `{"stn":108}`, string(result.Payload))
	assert.Equal(t, "secret", gotKey)

	health := a.Registry.GetAllHealth()
	require.Len(t, health, 2)
}

func TestNew_FailingUpstreamIsCalledEveryTime(t *testing.T) {
	var directoryHits, observationHits atomic.Int32
	body, err := korean.EUCKR.NewEncoder().Bytes([]byte(directory))
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/stn_inf.php":
			directoryHits.Add(1)
			_, _ = w.Write(body)
		case "/nph-aws2_min":
			observationHits.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer server.Close()

	a := app.New(config.Config{
		StationURL:         server.URL + "/stn_inf.php",
		ObservationURL:     server.URL + "/nph-aws2_min",
		StationTimeout:     time.Second,
		ObservationTimeout: time.Second,
	}, zerolog.New(io.Discard), nil)

	const calls = 8
	for i := 0; i < calls; i++ {
		result := a.Service.Weather(context.Background(), "서울")
		assert.Equal(t, weather.MsgObservationFailed, result.Error, "call %d", i)
	}

	assert.Equal(t, int32(calls), directoryHits.Load())
	assert.Equal(t, int32(calls), observationHits.Load())

	health := a.Registry.GetHealth(app.ObservationClientName)
	require.NotNil(t, health)
	assert.True(t, health.IsUnhealthy(), "failures still show on the status endpoint")
}
