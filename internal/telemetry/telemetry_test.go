package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kmaweather/kmaweather/internal/telemetry"
)

// restoreGlobals undoes the global providers Init installs.
func restoreGlobals(t *testing.T) {
	t.Helper()
	tp, mp, prop := otel.GetTracerProvider(), otel.GetMeterProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
		otel.SetTextMapPropagator(prop)
	})
}

func attrValue(res *resource.Resource, key attribute.Key) (string, bool) {
	v, ok := res.Set().Value(key)
	return v.AsString(), ok
}

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "kmaweather-mcp",
		Surface:     telemetry.SurfaceMCP,
		Enabled:     false,
	})
	require.NoError(t, err)

	assert.Nil(t, provider.TracerProvider)
	assert.Nil(t, provider.MeterProvider)
	require.NotNil(t, provider.Metrics, "metrics are usable with telemetry off")

	assert.NotPanics(t, func() {
		provider.Metrics.RecordRequest(ctx, "kma", "load_directory", time.Second, nil)
	})

	surface, ok := attrValue(provider.Resource, telemetry.AttrSurface)
	require.True(t, ok)
	assert.Equal(t, "mcp", surface)

	assert.NoError(t, provider.Shutdown(ctx))
}

func TestInit_EnabledExportsKMAMetricsAndSpans(t *testing.T) {
	restoreGlobals(t)
	ctx := context.Background()

	reader := sdkmetric.NewManualReader()
	spans := tracetest.NewInMemoryExporter()

	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "kmaweather-api",
		ServiceVersion: "1.4.0",
		BuildTime:      "2026-10-01T00:00:00Z",
		Environment:    "test",
		Surface:        telemetry.SurfaceHTTP,
		Enabled:        true,
		SpanExporter:   spans,
		MetricReader:   reader,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	provider.Metrics.RecordRequest(ctx, "kma", "get_observation", 250*time.Millisecond, nil)
	provider.Metrics.RecordDirectory(ctx, 96, 3)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	buildTime, ok := attrValue(rm.Resource, telemetry.AttrBuildTime)
	require.True(t, ok)
	assert.Equal(t, "2026-10-01T00:00:00Z", buildTime)

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["provider.request.total"])
	assert.True(t, names["provider.request.duration"])
	assert.True(t, names["station_directory.entries"])
	assert.True(t, names["station_directory.rows_skipped"])

	// Init installs the providers globally, so package tracers pick them up.
	_, span := otel.Tracer("kma-test").Start(ctx, "kma.LoadDirectory")
	span.End()
	require.NoError(t, provider.TracerProvider.ForceFlush(ctx))

	exported := spans.GetSpans()
	require.Len(t, exported, 1)
	assert.Equal(t, "kma.LoadDirectory", exported[0].Name)
	surface, ok := attrValue(exported[0].Resource, telemetry.AttrSurface)
	require.True(t, ok)
	assert.Equal(t, "http", surface)

	assert.ElementsMatch(t, []string{"traceparent", "tracestate", "baggage"},
		otel.GetTextMapPropagator().Fields())
}

func TestResource_OmitsEmptyValues(t *testing.T) {
	res := telemetry.Resource(telemetry.Config{ServiceName: "kmaweather-api"})

	_, ok := attrValue(res, telemetry.AttrBuildTime)
	assert.False(t, ok)
	_, ok = attrValue(res, telemetry.AttrSurface)
	assert.False(t, ok)

	upstream, ok := attrValue(res, telemetry.AttrUpstream)
	require.True(t, ok)
	assert.Equal(t, "apihub.kma.go.kr", upstream)
}

func TestProvider_Shutdown_NilProviders(t *testing.T) {
	provider := &telemetry.Provider{}
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestProviderMetrics_NilReceiver(t *testing.T) {
	var metrics *telemetry.ProviderMetrics

	assert.NotPanics(t, func() {
		metrics.RecordRequest(context.Background(), "kma", "load_directory", time.Second, nil)
		metrics.RecordDirectory(context.Background(), 1, 0)
	})
}

func TestProviderMetrics_CanceledContextStillRecords(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	metrics, err := telemetry.NewProviderMetrics(mp)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	metrics.RecordRequest(ctx, "kma", "load_directory", time.Second, assert.AnError)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.NotEmpty(t, rm.ScopeMetrics)

	var total int64
	for _, m := range rm.ScopeMetrics[0].Metrics {
		if sum, ok := m.Data.(metricdata.Sum[int64]); ok && m.Name == "provider.request.total" {
			for _, dp := range sum.DataPoints {
				total += dp.Value
				errAttr, _ := dp.Attributes.Value("error")
				assert.True(t, errAttr.AsBool())
			}
		}
	}
	assert.Equal(t, int64(1), total)
}
