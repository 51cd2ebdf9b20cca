package instrumentation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "mcp-aws-orgs", cfg.ServiceName)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "none", cfg.TracingExporter)
	assert.Equal(t, "/metrics", cfg.PrometheusEndpoint)
	assert.InDelta(t, 0.1, cfg.TraceSamplingRate, 1e-9)
}

func TestDefaultConfigFromEnv(t *testing.T) {
	t.Setenv("INSTRUMENTATION_ENABLED", "true")
	t.Setenv("OTEL_SERVICE_NAME", "broker-test")
	t.Setenv("TRACING_EXPORTER", "stdout")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.5")

	cfg := DefaultConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "broker-test", cfg.ServiceName)
	assert.Equal(t, "stdout", cfg.TracingExporter)
	assert.InDelta(t, 0.5, cfg.TraceSamplingRate, 1e-9)
}

func TestDisabledProviderIsInert(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.Nil(t, p.Metrics())
	assert.NoError(t, p.Shutdown(context.Background()))

	// The scrape handler still answers, just with an empty registry.
	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEnabledProviderExportsMetrics(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.ServiceVersion = "test"

	p, err := NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	require.NotNil(t, p.Metrics())
	p.Metrics().RecordToolCall(context.Background(), "health_check", "", StatusSuccess, 0)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tool_calls_total")
}

func TestUnknownTracingExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.TracingExporter = "jaeger"

	_, err := NewProvider(context.Background(), cfg)
	assert.Error(t, err)
}
