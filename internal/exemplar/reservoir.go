// Package exemplar implements bounded uniform sampling of raw measurements.
package exemplar

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/brokle-ai/otelmetric/pkg/attribute"
	"github.com/brokle-ai/otelmetric/pkg/metric/metricdata"
)

// Reservoir keeps a uniform random sample, without replacement, of the
// measurements offered within one collection window (algorithm R).
type Reservoir[N int64 | float64] struct {
	mu      sync.Mutex
	store   []metricdata.Exemplar[N]
	seen    int
	rng     *rand.Rand
	maxSize int
}

// New creates a reservoir holding at most maxSize exemplars. A non-positive
// size yields a drop-everything reservoir.
func New[N int64 | float64](maxSize int) *Reservoir[N] {
	return &Reservoir[N]{
		maxSize: maxSize,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// Offer considers one measurement for sampling. Trace linkage is taken from
// ctx when a valid span context is present; a nil ctx means no linkage.
func (r *Reservoir[N]) Offer(ctx context.Context, t time.Time, value N, dropped []attribute.KeyValue) {
	if r == nil || r.maxSize <= 0 {
		return
	}
	ex := metricdata.Exemplar[N]{
		FilteredAttributes: dropped,
		Time:               t,
		Value:              value,
	}
	if ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			tid := sc.TraceID()
			sid := sc.SpanID()
			ex.TraceID = tid[:]
			ex.SpanID = sid[:]
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen++
	if len(r.store) < r.maxSize {
		r.store = append(r.store, ex)
		return
	}
	if j := r.rng.IntN(r.seen); j < r.maxSize {
		r.store[j] = ex
	}
}

// Collect drains the sample and resets the window.
func (r *Reservoir[N]) Collect() []metricdata.Exemplar[N] {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.store
	r.store = nil
	r.seen = 0
	return out
}
