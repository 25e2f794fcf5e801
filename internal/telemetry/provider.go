package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/kmaweather/kmaweather/internal/telemetry"

// ProviderMetrics holds metrics for upstream provider calls.
type ProviderMetrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
	stationsLoaded  metric.Int64Histogram
	rowsSkipped     metric.Int64Counter
}

// NewProviderMetrics creates the KMA call instruments on mp.
func NewProviderMetrics(mp metric.MeterProvider) (*ProviderMetrics, error) {
	meter := mp.Meter(meterName)

	requestDuration, err := meter.Float64Histogram(
		"provider.request.duration",
		metric.WithDescription("Duration of provider requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"provider.request.total",
		metric.WithDescription("Total number of provider requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	stationsLoaded, err := meter.Int64Histogram(
		"station_directory.entries",
		metric.WithDescription("Number of distinct station names per directory load"),
		metric.WithUnit("{station}"),
	)
	if err != nil {
		return nil, err
	}

	rowsSkipped, err := meter.Int64Counter(
		"station_directory.rows_skipped",
		metric.WithDescription("Directory rows skipped for having too few columns"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, err
	}

	return &ProviderMetrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		stationsLoaded:  stationsLoaded,
		rowsSkipped:     rowsSkipped,
	}, nil
}

// RecordRequest records a provider request. A nil receiver is a no-op.
func (m *ProviderMetrics) RecordRequest(ctx context.Context, provider, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
		attribute.Bool("error", err != nil),
	}

	// metrics outlive request cancellation
	ctx = context.WithoutCancel(ctx)
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDirectory records the outcome of a directory parse. A nil receiver is a no-op.
func (m *ProviderMetrics) RecordDirectory(ctx context.Context, entries, skipped int) {
	if m == nil {
		return
	}

	ctx = context.WithoutCancel(ctx)
	m.stationsLoaded.Record(ctx, int64(entries))
	if skipped > 0 {
		m.rowsSkipped.Add(ctx, int64(skipped))
	}
}
