package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectedNames(t *testing.T, reader *sdkmetric.ManualReader) []string {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var names []string
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			names = append(names, m.Name)
		}
	}
	return names
}

func TestNewMetricsInitializesAllInstruments(t *testing.T) {
	provider := sdkmetric.NewMeterProvider()
	m, err := NewMetrics(provider.Meter("test"), false)
	require.NoError(t, err)
	assert.NotNil(t, m.toolCallsTotal)
	assert.NotNil(t, m.toolCallDuration)
	assert.NotNil(t, m.bundleCacheSize)
}

func TestRecordToolCall(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(provider.Meter("test"), true)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordToolCall(ctx, "get_users", "sandbox", StatusSuccess, 120*time.Millisecond)
	m.RecordToolError(ctx, "get_users", "aws_api_error")

	names := collectedNames(t, reader)
	assert.Contains(t, names, "tool_calls_total")
	assert.Contains(t, names, "tool_call_duration_seconds")
	assert.Contains(t, names, "tool_errors_total")
}

func TestCacheRecorder(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(provider.Meter("test"), false)
	require.NoError(t, err)

	r := NewCacheRecorder(m)
	r.RecordMiss("sandbox")
	r.RecordHit("sandbox")
	r.RecordEviction("sandbox")
	r.SetSize(1)

	names := collectedNames(t, reader)
	assert.Contains(t, names, "bundle_cache_hits_total")
	assert.Contains(t, names, "bundle_cache_misses_total")
	assert.Contains(t, names, "bundle_cache_evictions_total")
	assert.Contains(t, names, "bundle_cache_size")
}

func TestNilSafety(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordToolCall(context.Background(), "health_check", "", StatusError, time.Second)
		m.RecordToolError(context.Background(), "health_check", "internal_error")
	})

	var r *CacheRecorder
	assert.NotPanics(t, func() {
		r.RecordHit("x")
		r.RecordMiss("x")
		r.RecordEviction("x")
		r.SetSize(0)
	})
}
