package stream

import (
	"context"
	"sync"
	"time"

	"github.com/brokle-ai/otelmetric/internal/aggregate"
	"github.com/brokle-ai/otelmetric/pkg/attribute"
	"github.com/brokle-ai/otelmetric/pkg/logging"
	"github.com/brokle-ai/otelmetric/pkg/metric/metricdata"
)

// Observer receives the measurements yielded by one callback invocation.
type Observer[N aggregate.Number] interface {
	Observe(value N, attrs attribute.Set)
}

// Callback yields the current values of an observable instrument.
type Callback[N aggregate.Number] func(ctx context.Context, o Observer[N]) error

// AsyncConfig configures an asynchronous stream.
type AsyncConfig[N aggregate.Number] struct {
	Aggregation aggregate.Aggregation[N]
	// SumSemantics marks observable counters: observed values are running
	// totals and the stream diffs successive observations into deltas.
	// Otherwise last-value semantics apply.
	SumSemantics bool
	Monotonic    bool
	Start        time.Time
	// AttributeFilter applies view attribute rules; nil keeps everything.
	AttributeFilter func(attribute.Set) (attribute.Set, []attribute.KeyValue)
	MaxReaders      int
	Diag            string
}

// Async is the asynchronous metric stream. The aggregator is replaced by an
// observer: on collect, registered callbacks yield (attributes, value) pairs
// that become the current-collection summary directly.
type Async[N aggregate.Number] struct {
	mu sync.Mutex
	readerSet
	agg       aggregate.Aggregation[N]
	callbacks []Callback[N]
	prev      *aggregate.Metric[N]
	deltas    deltaStorage[N]
	ts        time.Time
	start     time.Time
	sum       bool
	monotonic bool
	filter    func(attribute.Set) (attribute.Set, []attribute.KeyValue)
	diag      string
}

// NewAsync creates an asynchronous stream.
func NewAsync[N aggregate.Number](cfg AsyncConfig[N]) *Async[N] {
	return &Async[N]{
		readerSet: readerSet{
			maxReaders: cfg.MaxReaders,
			diag:       cfg.Diag,
		},
		agg:       cfg.Aggregation,
		deltas:    newDeltaStorage(cfg.Aggregation),
		ts:        cfg.Start,
		start:     cfg.Start,
		sum:       cfg.SumSemantics,
		monotonic: cfg.Monotonic,
		filter:    cfg.AttributeFilter,
		diag:      cfg.Diag,
	}
}

// AddCallback registers a callback run on every advancing collection.
func (s *Async[N]) AddCallback(cb Callback[N]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, cb)
}

// Register attaches a reader. The registered callbacks are baselined first
// under the pre-registration mask, so totals accumulated before the reader
// existed are orphaned (zero-mask) or delivered to the readers that were
// present, never to the newcomer.
func (s *Async[N]) Register(temporality metricdata.Temporality) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.callbacks) > 0 {
		curr := s.observe(context.Background(), s.ts)
		s.deltas.add(s.diff(curr), s.readers.clone())
		s.prev = curr
	}
	return s.readerSet.register(temporality)
}

// Unregister drains and detaches a reader.
func (s *Async[N]) Unregister(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.registered(id) {
		return
	}
	s.deltas.removeReader(id)
	s.readerSet.unregister(id)
}

// observation collects one callback round into a metric.
type observation[N aggregate.Number] struct {
	agg    aggregate.Aggregation[N]
	filter func(attribute.Set) (attribute.Set, []attribute.KeyValue)
	metric *aggregate.Metric[N]
	at     time.Time
}

// Observe records one yielded pair. A second observation of the same
// attribute set within one round overwrites the first.
func (o *observation[N]) Observe(value N, attrs attribute.Set) {
	if o.filter != nil {
		attrs, _ = o.filter(attrs)
	}
	s := o.agg.NewSummary(o.at)
	o.agg.Update(s, value, o.at)
	o.metric.Points[attrs.Distinct()] = &aggregate.Point[N]{Attributes: attrs, Summary: s}
}

// Collect runs the callbacks (when at is non-zero), converts the observation
// into a delta against the previous round, and serves reader id from the
// ledger like the synchronous stream.
func (s *Async[N]) Collect(ctx context.Context, id int, at time.Time) (metricdata.Aggregation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.registered(id) {
		return nil, false
	}
	if !at.IsZero() {
		curr := s.observe(ctx, at)
		s.deltas.add(s.diff(curr), s.readers.clone())
		s.prev = curr
		s.ts = at
	}

	temporality := s.temporality(id)
	m := s.deltas.collect(id, temporality == metricdata.CumulativeTemporality)
	if m.Empty() {
		return nil, false
	}
	start := m.Start
	if start.IsZero() {
		start = s.start
	}
	return s.agg.ToData(m, start, s.ts, temporality, s.monotonic), true
}

// observe runs one callback round into a metric covering [stream ts, at].
func (s *Async[N]) observe(ctx context.Context, at time.Time) *aggregate.Metric[N] {
	curr := aggregate.NewMetric[N](s.ts, at)
	o := &observation[N]{agg: s.agg, filter: s.filter, metric: curr, at: at}
	for _, cb := range s.callbacks {
		if err := cb(ctx, o); err != nil {
			logging.WarnOnce("stream.callback:"+s.diag,
				"observable callback failed", "stream", s.diag, "error", err.Error())
		}
	}
	return curr
}

// diff converts one observation round into the ledger delta. Sum-semantic
// streams subtract the previous round; last-value streams pass the round
// through.
func (s *Async[N]) diff(curr *aggregate.Metric[N]) *aggregate.Metric[N] {
	if !s.sum {
		return curr.Clone()
	}
	d := aggregate.NewMetric[N](curr.Start, curr.Time)
	for k, p := range curr.Points {
		var prev aggregate.Summary[N]
		if s.prev != nil {
			if pp, ok := s.prev.Points[k]; ok {
				prev = pp.Summary
			}
		}
		d.Points[k] = &aggregate.Point[N]{
			Attributes: p.Attributes,
			Summary:    s.agg.Diff(prev, p.Summary),
		}
	}
	return d
}

// deltaLen reports the ledger length. Intended for tests.
func (s *Async[N]) deltaLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deltas.len()
}
