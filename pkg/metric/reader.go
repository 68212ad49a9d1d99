package metric

import (
	"context"
	"sync"
	"time"

	"github.com/brokle-ai/otelmetric/internal/stream"
	"github.com/brokle-ai/otelmetric/pkg/metric/metricdata"
	"github.com/brokle-ai/otelmetric/pkg/sdkerrors"
)

// Reader pulls aggregated data from the streams of the provider it is
// registered with.
type Reader interface {
	// Collect advances every bound stream and returns the batch at the
	// reader's temporality.
	Collect(ctx context.Context) (metricdata.ResourceMetrics, error)
	// Shutdown detaches the reader. Subsequent operations fail with
	// ErrReaderShutdown.
	Shutdown(ctx context.Context) error

	register(p *MeterProvider)
	bind(b streamBinding)
	unbind(s stream.Stream)
	temporality() metricdata.Temporality
}

// streamBinding ties one stream's reader id to its emission metadata.
type streamBinding struct {
	s           stream.Stream
	id          int
	scopeKey    string
	scope       metricdata.Scope
	name        string
	description string
	unit        string
}

// readerCore is the stream registry shared by the reader implementations.
type readerCore struct {
	mu       sync.Mutex
	temp     metricdata.Temporality
	provider *MeterProvider
	bindings []streamBinding
	shutdown bool
}

func (c *readerCore) register(p *MeterProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.provider = p
}

func (c *readerCore) bind(b streamBinding) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shutdown {
		return
	}
	c.bindings = append(c.bindings, b)
}

func (c *readerCore) unbind(s stream.Stream) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.bindings[:0]
	for _, b := range c.bindings {
		if b.s == s {
			b.s.Unregister(b.id)
			continue
		}
		kept = append(kept, b)
	}
	c.bindings = kept
}

func (c *readerCore) temporality() metricdata.Temporality { return c.temp }

// collect pulls every bound stream at the given time and assembles the batch
// grouped by instrumentation scope.
func (c *readerCore) collect(ctx context.Context, at time.Time) (metricdata.ResourceMetrics, error) {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return metricdata.ResourceMetrics{}, sdkerrors.ErrReaderShutdown
	}
	p := c.provider
	bindings := make([]streamBinding, len(c.bindings))
	copy(bindings, c.bindings)
	c.mu.Unlock()

	rm := metricdata.ResourceMetrics{}
	if p != nil {
		rm.ResourceAttributes = p.res.Attributes()
		rm.SchemaURL = p.res.SchemaURL()
	}

	idx := make(map[string]int)
	for _, b := range bindings {
		data, ok := b.s.Collect(ctx, b.id, at)
		if !ok {
			continue
		}
		i, seen := idx[b.scopeKey]
		if !seen {
			i = len(rm.ScopeMetrics)
			idx[b.scopeKey] = i
			rm.ScopeMetrics = append(rm.ScopeMetrics, metricdata.ScopeMetrics{Scope: b.scope})
		}
		rm.ScopeMetrics[i].Metrics = append(rm.ScopeMetrics[i].Metrics, metricdata.Metrics{
			Name:        b.name,
			Description: b.description,
			Unit:        b.unit,
			Data:        data,
		})
	}
	return rm, nil
}

func (c *readerCore) markShutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shutdown {
		return sdkerrors.ErrReaderShutdown
	}
	c.shutdown = true
	for _, b := range c.bindings {
		b.s.Unregister(b.id)
	}
	c.bindings = nil
	return nil
}

func (c *readerCore) now() time.Time {
	c.mu.Lock()
	p := c.provider
	c.mu.Unlock()
	if p == nil {
		return time.Now()
	}
	return p.clock.Now()
}

// ReaderOption configures a reader.
type ReaderOption func(*readerCore)

// WithTemporality selects the temporal view the reader demands from its
// streams. The default is cumulative.
func WithTemporality(t metricdata.Temporality) ReaderOption {
	return func(c *readerCore) { c.temp = t }
}

// ManualReader collects only on explicit call.
type ManualReader struct {
	readerCore
}

// NewManualReader creates a pull-on-demand reader.
func NewManualReader(opts ...ReaderOption) *ManualReader {
	r := &ManualReader{readerCore: readerCore{temp: metricdata.CumulativeTemporality}}
	for _, opt := range opts {
		opt(&r.readerCore)
	}
	return r
}

// Collect advances all bound streams to now and returns the batch.
func (r *ManualReader) Collect(ctx context.Context) (metricdata.ResourceMetrics, error) {
	return r.collect(ctx, r.now())
}

// Shutdown drains the reader's stream registrations.
func (r *ManualReader) Shutdown(context.Context) error {
	return r.markShutdown()
}
