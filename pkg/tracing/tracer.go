package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const defaultServiceName = "klunkaz"

// Config configures request tracing.
type Config struct {
	// Enabled controls whether tracing is active.
	// When false, a no-op tracer is returned.
	Enabled bool

	// Exporter selects the export backend: "none", "stdout" or "otlp".
	Exporter string

	// OTLPEndpoint is the collector address for the "otlp" exporter.
	OTLPEndpoint string

	// SampleRate is the fraction of new traces to sample.
	SampleRate float64

	ServiceName string
}

func DefaultConfig() Config {
	return Config{
		Enabled:      false,
		Exporter:     "stdout",
		OTLPEndpoint: "localhost:4317",
		SampleRate:   1.0,
		ServiceName:  defaultServiceName,
	}
}

// Provider wraps the tracer provider so callers get a usable tracer whether
// tracing is on or off.
type Provider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	enabled  bool
}

// NewProvider builds the provider described by cfg. Extra options are
// appended after the configured ones.
func NewProvider(cfg Config, opts ...sdktrace.TracerProviderOption) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{tracer: noop.NewTracerProvider().Tracer("noop")}, nil
	}

	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.Exporter {
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout exporter: %w", err)
		}
	case "otlp":
		endpoint := cfg.OTLPEndpoint
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		exporter, err = otlptracegrpc.New(
			context.Background(),
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("create otlp exporter: %w", err)
		}
	case "none", "":
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", cfg.Exporter)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}
	// NewSchemaless avoids schema URL conflicts with resource.Default()
	res := resource.NewSchemaless(attribute.String("service.name", serviceName))

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}

	all := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRate))),
	}
	if exporter != nil {
		all = append(all, sdktrace.WithBatcher(exporter))
	}
	all = append(all, opts...)

	provider := sdktrace.NewTracerProvider(all...)
	otel.SetTracerProvider(provider)

	return &Provider{
		provider: provider,
		tracer:   provider.Tracer(serviceName),
		enabled:  true,
	}, nil
}

func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

func (p *Provider) Enabled() bool {
	return p.enabled
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.provider != nil {
		return p.provider.Shutdown(ctx)
	}
	return nil
}
