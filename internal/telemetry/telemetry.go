// Package telemetry sets up OpenTelemetry for the KMA weather binaries and
// owns the instruments recorded around upstream KMA calls.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Surfaces a process can serve the weather lookup on.
const (
	SurfaceHTTP = "http"
	SurfaceMCP  = "mcp"
)

// Resource attribute keys beyond the semantic conventions.
const (
	AttrBuildTime = attribute.Key("kmaweather.build_time")
	AttrSurface   = attribute.Key("kmaweather.surface")
	AttrUpstream  = attribute.Key("kmaweather.upstream")
)

const upstreamName = "apihub.kma.go.kr"

// metricInterval is how often metrics are pushed to the collector.
const metricInterval = 15 * time.Second

// Config holds configuration for telemetry setup.
type Config struct {
	ServiceName    string
	ServiceVersion string
	BuildTime      string
	Environment    string

	// Surface is SurfaceHTTP or SurfaceMCP.
	Surface string

	// OTLPEndpoint is a host:port gRPC collector address.
	OTLPEndpoint string

	// Enabled switches from the global no-op providers to exporting ones.
	Enabled bool

	// SpanExporter and MetricReader replace the OTLP exporters when set.
	SpanExporter sdktrace.SpanExporter
	MetricReader sdkmetric.Reader
}

// Provider holds the initialized telemetry providers and the KMA call metrics
// recorded against them.
type Provider struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Resource       *resource.Resource

	// Metrics is always non-nil. With telemetry disabled it records to the
	// global no-op meter.
	Metrics *ProviderMetrics
}

// Shutdown flushes and stops both providers. Every provider is shut down
// even when an earlier one fails.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down tracer provider: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Init sets up tracing, metrics and propagation for one binary and builds
// the KMA provider metrics. The returned Provider must be shut down on exit.
func Init(ctx context.Context, cfg Config) (*Provider, error) {
	res := Resource(cfg)

	if !cfg.Enabled {
		metrics, err := NewProviderMetrics(otel.GetMeterProvider())
		if err != nil {
			return nil, fmt.Errorf("creating provider metrics: %w", err)
		}
		return &Provider{Resource: res, Metrics: metrics}, nil
	}

	spanExporter := cfg.SpanExporter
	if spanExporter == nil {
		exporter, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("creating trace exporter: %w", err)
		}
		spanExporter = exporter
	}

	reader := cfg.MetricReader
	if reader == nil {
		exporter, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			_ = spanExporter.Shutdown(ctx) //nolint:errcheck // best effort cleanup
			return nil, fmt.Errorf("creating metric exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(metricInterval))
	}

	p := &Provider{
		TracerProvider: sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(spanExporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
		),
		MeterProvider: sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(reader),
			sdkmetric.WithResource(res),
		),
		Resource: res,
	}

	metrics, err := NewProviderMetrics(p.MeterProvider)
	if err != nil {
		_ = p.Shutdown(ctx) //nolint:errcheck // best effort cleanup
		return nil, fmt.Errorf("creating provider metrics: %w", err)
	}
	p.Metrics = metrics

	otel.SetTracerProvider(p.TracerProvider)
	otel.SetMeterProvider(p.MeterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return p, nil
}

// Resource describes the process: service identity, build, the surface it
// serves and the upstream it depends on. Empty values are left out.
func Resource(cfg Config) *resource.Resource {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		AttrUpstream.String(upstreamName),
	}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}
	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(cfg.Environment))
	}
	if cfg.BuildTime != "" {
		attrs = append(attrs, AttrBuildTime.String(cfg.BuildTime))
	}
	if cfg.Surface != "" {
		attrs = append(attrs, AttrSurface.String(cfg.Surface))
	}
	return resource.NewWithAttributes(semconv.SchemaURL, attrs...)
}
