package metric

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brokle-ai/otelmetric/pkg/metric/metricdata"
)

type captureExporter struct {
	mu       sync.Mutex
	batches  []metricdata.ResourceMetrics
	shutdown bool
}

func (e *captureExporter) Export(_ context.Context, rm *metricdata.ResourceMetrics) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.batches = append(e.batches, *rm)
	return nil
}

func (e *captureExporter) ForceFlush(context.Context) error { return nil }

func (e *captureExporter) Shutdown(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shutdown = true
	return nil
}

func (e *captureExporter) batchCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.batches)
}

func TestPeriodicReader_TickerExports(t *testing.T) {
	exp := &captureExporter{}
	reader := NewPeriodicReader(exp, WithInterval(20*time.Millisecond), WithTimeout(time.Second))
	p, err := NewMeterProvider(WithReader(reader))
	require.NoError(t, err)

	ctr, err := p.Meter("periodic").Int64Counter("ticks")
	require.NoError(t, err)
	ctr.Add(context.Background(), 1)

	assert.Eventually(t, func() bool { return exp.batchCount() > 0 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, p.Shutdown(context.Background()))
	assert.True(t, exp.shutdown)
}

func TestPeriodicReader_ForceFlush(t *testing.T) {
	exp := &captureExporter{}
	reader := NewPeriodicReader(exp, WithInterval(time.Hour))
	p, err := NewMeterProvider(WithReader(reader))
	require.NoError(t, err)

	ctr, err := p.Meter("flush").Int64Counter("events")
	require.NoError(t, err)
	ctr.Add(context.Background(), 7)

	require.NoError(t, p.ForceFlush(context.Background()))
	require.Equal(t, 1, exp.batchCount())
	sd := exp.batches[0].ScopeMetrics[0].Metrics[0].Data.(metricdata.Sum[int64])
	assert.Equal(t, int64(7), sd.DataPoints[0].Value)

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPeriodicReader_ShutdownIsTerminal(t *testing.T) {
	exp := &captureExporter{}
	reader := NewPeriodicReader(exp, WithInterval(time.Hour))
	_, err := NewMeterProvider(WithReader(reader))
	require.NoError(t, err)

	require.NoError(t, reader.Shutdown(context.Background()))
	assert.Error(t, reader.ForceFlush(context.Background()))
	_, err = reader.Collect(context.Background())
	assert.Error(t, err)
}
