package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	attrTool        = "tool"
	attrInstitution = "institution"
	attrStatus      = "status"
	attrErrorKind   = "error_kind"
)

// Status values for metric labels.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// Tool invocation metrics
	toolCallsTotal   metric.Int64Counter
	toolCallDuration metric.Float64Histogram
	toolErrorsTotal  metric.Int64Counter

	// Client bundle cache metrics
	bundleCacheHits      metric.Int64Counter
	bundleCacheMisses    metric.Int64Counter
	bundleCacheEvictions metric.Int64Counter
	bundleCacheSize      metric.Int64Gauge

	// detailedLabels controls whether the institution label is included in
	// tool metrics. Safe for typical deployments with tens of institutions;
	// disable if the tenant set grows unbounded.
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether per-institution labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.toolCallsTotal, err = meter.Int64Counter(
		"tool_calls_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool_calls_total counter: %w", err)
	}

	m.toolCallDuration, err = meter.Float64Histogram(
		"tool_call_duration_seconds",
		metric.WithDescription("MCP tool invocation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool_call_duration_seconds histogram: %w", err)
	}

	m.toolErrorsTotal, err = meter.Int64Counter(
		"tool_errors_total",
		metric.WithDescription("Total number of failed MCP tool invocations by error kind"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool_errors_total counter: %w", err)
	}

	m.bundleCacheHits, err = meter.Int64Counter(
		"bundle_cache_hits_total",
		metric.WithDescription("Total number of client bundle cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bundle_cache_hits_total counter: %w", err)
	}

	m.bundleCacheMisses, err = meter.Int64Counter(
		"bundle_cache_misses_total",
		metric.WithDescription("Total number of client bundle cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bundle_cache_misses_total counter: %w", err)
	}

	m.bundleCacheEvictions, err = meter.Int64Counter(
		"bundle_cache_evictions_total",
		metric.WithDescription("Total number of client bundle invalidations"),
		metric.WithUnit("{eviction}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bundle_cache_evictions_total counter: %w", err)
	}

	m.bundleCacheSize, err = meter.Int64Gauge(
		"bundle_cache_size",
		metric.WithDescription("Current number of cached client bundles"),
		metric.WithUnit("{bundle}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bundle_cache_size gauge: %w", err)
	}

	return m, nil
}

// RecordToolCall records one tool invocation with its status and duration.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, institution, status string, duration time.Duration) {
	if m == nil || m.toolCallsTotal == nil || m.toolCallDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, tool),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && institution != "" {
		attrs = append(attrs, attribute.String(attrInstitution, institution))
	}

	m.toolCallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolCallDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordToolError records a failed tool invocation with its error kind.
func (m *Metrics) RecordToolError(ctx context.Context, tool, errorKind string) {
	if m == nil || m.toolErrorsTotal == nil {
		return // Instrumentation not initialized
	}

	m.toolErrorsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrTool, tool),
		attribute.String(attrErrorKind, errorKind),
	))
}

// CacheRecorder adapts Metrics to the bundle registry's metrics interface.
// The zero value is safe and records nothing.
type CacheRecorder struct {
	metrics *Metrics
}

// NewCacheRecorder returns a recorder feeding the bundle cache metrics.
func NewCacheRecorder(m *Metrics) *CacheRecorder {
	return &CacheRecorder{metrics: m}
}

func (r *CacheRecorder) RecordHit(institution string) {
	if r == nil || r.metrics == nil || r.metrics.bundleCacheHits == nil {
		return
	}
	r.metrics.bundleCacheHits.Add(context.Background(), 1, r.institutionAttr(institution))
}

func (r *CacheRecorder) RecordMiss(institution string) {
	if r == nil || r.metrics == nil || r.metrics.bundleCacheMisses == nil {
		return
	}
	r.metrics.bundleCacheMisses.Add(context.Background(), 1, r.institutionAttr(institution))
}

func (r *CacheRecorder) RecordEviction(institution string) {
	if r == nil || r.metrics == nil || r.metrics.bundleCacheEvictions == nil {
		return
	}
	r.metrics.bundleCacheEvictions.Add(context.Background(), 1, r.institutionAttr(institution))
}

func (r *CacheRecorder) SetSize(size int) {
	if r == nil || r.metrics == nil || r.metrics.bundleCacheSize == nil {
		return
	}
	r.metrics.bundleCacheSize.Record(context.Background(), int64(size))
}

func (r *CacheRecorder) institutionAttr(institution string) metric.AddOption {
	if r.metrics.detailedLabels && institution != "" {
		return metric.WithAttributes(attribute.String(attrInstitution, institution))
	}
	return metric.WithAttributes()
}
