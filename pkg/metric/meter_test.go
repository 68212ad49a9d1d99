package metric

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brokle-ai/otelmetric/internal/clock"
	"github.com/brokle-ai/otelmetric/pkg/attribute"
	"github.com/brokle-ai/otelmetric/pkg/metric/metricdata"
	"github.com/brokle-ai/otelmetric/pkg/resource"
)

func testProvider(t *testing.T, opts ...Option) (*MeterProvider, *ManualReader, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock(time.Unix(1000, 0))
	reader := NewManualReader()
	p, err := NewMeterProvider(append([]Option{
		WithReader(reader),
		WithClock(mock),
		WithResource(resource.New(attribute.String("service.name", "test"))),
	}, opts...)...)
	require.NoError(t, err)
	return p, reader, mock
}

func findMetric(t *testing.T, rm metricdata.ResourceMetrics, name string) metricdata.Metrics {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m
			}
		}
	}
	t.Fatalf("metric %q not found", name)
	return metricdata.Metrics{}
}

func TestMeter_CounterEndToEnd(t *testing.T) {
	p, reader, mock := testProvider(t)
	meter := p.Meter("svc.requests", WithInstrumentationVersion("1.2.3"))

	ctr, err := meter.Int64Counter("requests", WithUnit("{request}"), WithDescription("served requests"))
	require.NoError(t, err)

	ctr.Add(context.Background(), 5, attribute.String("code", "200"))
	ctr.Add(context.Background(), 2, attribute.String("code", "500"))
	mock.Advance(time.Second)

	rm, err := reader.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, rm.ScopeMetrics, 1)
	assert.Equal(t, "svc.requests", rm.ScopeMetrics[0].Scope.Name)
	assert.Equal(t, "1.2.3", rm.ScopeMetrics[0].Scope.Version)

	m := findMetric(t, rm, "requests")
	assert.Equal(t, "{request}", m.Unit)
	sd, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.True(t, sd.IsMonotonic)
	assert.Equal(t, metricdata.CumulativeTemporality, sd.Temporality)
	require.Len(t, sd.DataPoints, 2)
}

func TestMeter_DeduplicatesIdenticalInstruments(t *testing.T) {
	p, _, _ := testProvider(t)
	meter := p.Meter("dedup")

	a, err := meter.Int64Counter("hits")
	require.NoError(t, err)
	b, err := meter.Int64Counter("hits")
	require.NoError(t, err)

	assert.Same(t, a.inst.e, b.inst.e)
	assert.Equal(t, 1, meter.instrumentCount())
}

func TestMeter_ConflictingRegistrationWarnsFirstWins(t *testing.T) {
	p, reader, mock := testProvider(t)
	meter := p.Meter("conflict")

	ctr, err := meter.Int64Counter("latency")
	require.NoError(t, err)
	// Same name, different kind and unit: first registration wins.
	hist, err := meter.Int64Histogram("latency", WithUnit("ms"))
	require.NoError(t, err)
	assert.Same(t, ctr.inst.e, hist.inst.e)

	ctr.Add(context.Background(), 1)
	hist.Record(context.Background(), 2)
	mock.Advance(time.Second)

	rm, err := reader.Collect(context.Background())
	require.NoError(t, err)
	m := findMetric(t, rm, "latency")
	sd, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "stream keeps the first registration's aggregation")
	require.Len(t, sd.DataPoints, 1)
	assert.Equal(t, int64(3), sd.DataPoints[0].Value)
}

// Scenario: staleness reclamation and re-creation with a fresh start time.
func TestMeter_StalenessReclamation(t *testing.T) {
	p, reader, mock := testProvider(t)
	meter := p.Meter("staleness")

	ctr, err := meter.Int64Counter("churn")
	require.NoError(t, err)
	ctr.Add(context.Background(), 3)
	mock.Advance(time.Second)

	rm, err := reader.Collect(context.Background())
	require.NoError(t, err)
	first := findMetric(t, rm, "churn").Data.(metricdata.Sum[int64])
	firstStart := first.DataPoints[0].StartTime

	ctr.Release()
	assert.Equal(t, 0, meter.instrumentCount(), "zero references reclaim the entry")
	ctr.Release() // second release of one handle is inert

	mock.Advance(time.Minute)
	again, err := meter.Int64Counter("churn")
	require.NoError(t, err)
	assert.Equal(t, 1, meter.instrumentCount())

	again.Add(context.Background(), 1)
	mock.Advance(time.Second)
	rm, err = reader.Collect(context.Background())
	require.NoError(t, err)
	second := findMetric(t, rm, "churn").Data.(metricdata.Sum[int64])
	assert.True(t, second.DataPoints[0].StartTime.After(firstStart),
		"recreated stream starts fresh")
	assert.Equal(t, int64(1), second.DataPoints[0].Value,
		"no state survives reclamation")
}

func TestMeter_DedupHandlesShareStaleness(t *testing.T) {
	p, _, _ := testProvider(t)
	meter := p.Meter("refs")

	a, err := meter.Int64Counter("shared")
	require.NoError(t, err)
	b, err := meter.Int64Counter("shared")
	require.NoError(t, err)

	a.Release()
	assert.Equal(t, 1, meter.instrumentCount(), "second handle keeps the entry alive")
	b.Release()
	assert.Equal(t, 0, meter.instrumentCount())
}

func TestMeter_ViewRenameAndFilter(t *testing.T) {
	p, reader, mock := testProvider(t, WithView(View{
		InstrumentName: "http.*",
		Name:           "http.requests.total",
		AttributeKeys:  []string{"method"},
	}))
	meter := p.Meter("views")

	ctr, err := meter.Int64Counter("http.requests")
	require.NoError(t, err)
	ctr.Add(context.Background(), 1,
		attribute.String("method", "GET"), attribute.String("url", "/secret"))
	ctr.Add(context.Background(), 1,
		attribute.String("method", "GET"), attribute.String("url", "/other"))
	mock.Advance(time.Second)

	rm, err := reader.Collect(context.Background())
	require.NoError(t, err)
	m := findMetric(t, rm, "http.requests.total")
	sd := m.Data.(metricdata.Sum[int64])
	require.Len(t, sd.DataPoints, 1, "filtered attributes collapse into one series")
	assert.Equal(t, int64(2), sd.DataPoints[0].Value)
	_, hasURL := sd.DataPoints[0].Attributes.Value("url")
	assert.False(t, hasURL)
}

func TestMeter_ViewDrop(t *testing.T) {
	p, reader, mock := testProvider(t, WithView(View{
		InstrumentName: "noisy",
		Aggregation:    AggregationDrop{},
	}))
	meter := p.Meter("drop")

	ctr, err := meter.Int64Counter("noisy")
	require.NoError(t, err)
	ctr.Add(context.Background(), 100)
	mock.Advance(time.Second)

	rm, err := reader.Collect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rm.ScopeMetrics)
}

func TestNewMeterProvider_InvalidViewFails(t *testing.T) {
	_, err := NewMeterProvider(WithView(View{}))
	assert.Error(t, err)

	_, err = NewMeterProvider(WithView(View{
		InstrumentName: "x",
		Aggregation:    AggregationExplicitBucketHistogram{Boundaries: []float64{10, 5}},
	}))
	assert.Error(t, err)
}

func TestMeter_ObservableCounter(t *testing.T) {
	p, reader, mock := testProvider(t)
	meter := p.Meter("async")

	total := int64(50)
	obs, err := meter.Int64ObservableCounter("bytes.read",
		WithInt64Callback(func(_ context.Context, o Int64Observer) error {
			o.Observe(total, attribute.String("disk", "sda"))
			return nil
		}))
	require.NoError(t, err)
	defer obs.Release()

	mock.Advance(time.Second)
	rm, err := reader.Collect(context.Background())
	require.NoError(t, err)
	sd := findMetric(t, rm, "bytes.read").Data.(metricdata.Sum[int64])
	require.Len(t, sd.DataPoints, 1)
	assert.Equal(t, int64(50), sd.DataPoints[0].Value)

	total = 80
	mock.Advance(time.Second)
	rm, err = reader.Collect(context.Background())
	require.NoError(t, err)
	sd = findMetric(t, rm, "bytes.read").Data.(metricdata.Sum[int64])
	assert.Equal(t, int64(80), sd.DataPoints[0].Value,
		"cumulative reader reconstructs the observed total")
}

func TestMeter_NegativeIncrementDropped(t *testing.T) {
	p, reader, mock := testProvider(t)
	meter := p.Meter("monotonic")

	ctr, err := meter.Int64Counter("events")
	require.NoError(t, err)
	ctr.Add(context.Background(), 5)
	ctr.Add(context.Background(), -3)
	mock.Advance(time.Second)

	rm, err := reader.Collect(context.Background())
	require.NoError(t, err)
	sd := findMetric(t, rm, "events").Data.(metricdata.Sum[int64])
	assert.Equal(t, int64(5), sd.DataPoints[0].Value)
}

func TestMeter_DeltaTemporalityReader(t *testing.T) {
	mock := clock.NewMock(time.Unix(1000, 0))
	delta := NewManualReader(WithTemporality(metricdata.DeltaTemporality))
	cumulative := NewManualReader()
	p, err := NewMeterProvider(WithReader(delta), WithReader(cumulative), WithClock(mock))
	require.NoError(t, err)
	meter := p.Meter("cadence")

	ctr, err := meter.Int64Counter("ops")
	require.NoError(t, err)

	ctr.Add(context.Background(), 5)
	mock.Advance(time.Second)
	rm, err := delta.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), findMetric(t, rm, "ops").Data.(metricdata.Sum[int64]).DataPoints[0].Value)

	ctr.Add(context.Background(), 3)
	mock.Advance(time.Second)
	rm, err = cumulative.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(8), findMetric(t, rm, "ops").Data.(metricdata.Sum[int64]).DataPoints[0].Value)

	mock.Advance(time.Second)
	rm, err = delta.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), findMetric(t, rm, "ops").Data.(metricdata.Sum[int64]).DataPoints[0].Value)
}

func TestProvider_Shutdown(t *testing.T) {
	p, reader, _ := testProvider(t)
	meter := p.Meter("shutdown")
	_, err := meter.Int64Counter("pre")
	require.NoError(t, err)

	require.NoError(t, p.Shutdown(context.Background()))

	_, err = reader.Collect(context.Background())
	assert.Error(t, err)

	_, err = meter.Int64Counter("post")
	assert.Error(t, err)

	assert.Error(t, p.Shutdown(context.Background()))
}
