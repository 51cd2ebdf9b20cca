package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Provider owns the configured OpenTelemetry providers and the Prometheus
// registry backing the /metrics endpoint. A disabled provider is fully
// functional: all recording methods become no-ops.
type Provider struct {
	config   Config
	registry *prometheus.Registry
	metrics  *Metrics

	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
}

// NewProvider wires metrics and tracing according to the config. Metrics are
// always exported through the Prometheus registry; tracing is optional.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	p := &Provider{
		config:   cfg,
		registry: prometheus.NewRegistry(),
	}
	if !cfg.Enabled {
		return p, nil
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	exporter, err := otelprom.New(otelprom.WithRegisterer(p.registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(p.meterProvider)

	meter := p.meterProvider.Meter(cfg.ServiceName)
	p.metrics, err = NewMetrics(meter, true)
	if err != nil {
		return nil, err
	}

	if err := p.setupTracing(ctx, res); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Provider) setupTracing(ctx context.Context, res *resource.Resource) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch p.config.TracingExporter {
	case "", "none":
		return nil
	case "otlp":
		opts := []otlptracehttp.Option{}
		if p.config.OTLPEndpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpointURL(p.config.OTLPEndpoint))
		}
		if p.config.OTLPInsecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return fmt.Errorf("unknown tracing exporter %q", p.config.TracingExporter)
	}
	if err != nil {
		return fmt.Errorf("failed to create %s trace exporter: %w", p.config.TracingExporter, err)
	}

	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(p.config.TraceSamplingRate))),
	)
	otel.SetTracerProvider(p.tracerProvider)
	return nil
}

// Metrics returns the metric recorder, nil-safe to use when disabled.
func (p *Provider) Metrics() *Metrics {
	if p == nil {
		return nil
	}
	return p.metrics
}

// Enabled reports whether instrumentation was switched on.
func (p *Provider) Enabled() bool {
	return p != nil && p.config.Enabled
}

// MetricsPath returns the HTTP path the metrics handler should be mounted on.
func (p *Provider) MetricsPath() string {
	if p == nil || p.config.PrometheusEndpoint == "" {
		return "/metrics"
	}
	return p.config.PrometheusEndpoint
}

// Handler returns the Prometheus scrape handler.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the configured providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.tracerProvider != nil {
		errs = append(errs, p.tracerProvider.Shutdown(ctx))
	}
	if p.meterProvider != nil {
		errs = append(errs, p.meterProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
