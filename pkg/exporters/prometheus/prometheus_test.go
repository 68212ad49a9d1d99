package prometheus

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brokle-ai/otelmetric/pkg/attribute"
	"github.com/brokle-ai/otelmetric/pkg/metric"
)

func TestCollector_BridgesCounterAndHistogram(t *testing.T) {
	reader := metric.NewManualReader()
	provider, err := metric.NewMeterProvider(metric.WithReader(reader))
	require.NoError(t, err)
	meter := provider.Meter("bridge.test")

	ctr, err := meter.Int64Counter("http.requests", metric.WithDescription("served requests"))
	require.NoError(t, err)
	ctr.Add(context.Background(), 3, attribute.String("method", "GET"))

	hist, err := meter.Float64Histogram("latency.seconds")
	require.NoError(t, err)
	hist.Record(context.Background(), 0.25)

	registry := prometheus.NewRegistry()
	require.NoError(t, registry.Register(New(reader)))

	expected := `
# HELP http_requests served requests
# TYPE http_requests counter
http_requests{method="GET"} 3
`
	assert.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "http_requests"))

	families, err := registry.Gather()
	require.NoError(t, err)
	var sawHistogram bool
	for _, f := range families {
		if f.GetName() == "latency_seconds" {
			sawHistogram = true
			require.Len(t, f.GetMetric(), 1)
			assert.Equal(t, uint64(1), f.GetMetric()[0].GetHistogram().GetSampleCount())
		}
	}
	assert.True(t, sawHistogram)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "http_requests_total", sanitize("http.requests.total"))
	assert.Equal(t, "latency_ms", sanitize("latency-ms"))
	assert.Equal(t, "ok_name:colon", sanitize("ok_name:colon"))
}
