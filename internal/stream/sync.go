package stream

import (
	"context"
	"sync"
	"time"

	"github.com/brokle-ai/otelmetric/internal/aggregate"
	"github.com/brokle-ai/otelmetric/internal/exemplar"
	"github.com/brokle-ai/otelmetric/pkg/attribute"
	"github.com/brokle-ai/otelmetric/pkg/metric/metricdata"
)

// SyncConfig configures a synchronous stream.
type SyncConfig[N aggregate.Number] struct {
	// Aggregation folds and merges measurements.
	Aggregation aggregate.Aggregation[N]
	// Monotonic marks counter semantics for exported sums.
	Monotonic bool
	// Start is the stream birth time, the start timestamp of cumulative data.
	Start time.Time
	// AttributeFilter applies view attribute rules; nil keeps everything.
	AttributeFilter func(attribute.Set) (attribute.Set, []attribute.KeyValue)
	// NewReservoir creates per-point exemplar reservoirs; nil disables
	// sampling.
	NewReservoir func() *exemplar.Reservoir[N]
	// MaxReaders caps the reader mask width; zero widens transparently.
	MaxReaders int
	// Diag names the stream in self-diagnostics.
	Diag string
}

// Sync is the synchronous metric stream: a state machine over the live
// aggregator, the delta ledger, the stream timestamp and the reader masks.
// Record runs lock-free with respect to the stream mutex; all reader-side
// operations on one stream are mutually exclusive.
type Sync[N aggregate.Number] struct {
	accum *aggregate.Aggregator[N]

	mu      sync.Mutex
	readerSet
	agg       aggregate.Aggregation[N]
	deltas    deltaStorage[N]
	ts        time.Time
	start     time.Time
	monotonic bool
}

// NewSync creates a synchronous stream.
func NewSync[N aggregate.Number](cfg SyncConfig[N]) *Sync[N] {
	return &Sync[N]{
		accum: aggregate.NewAggregator(cfg.Aggregation, cfg.Start, cfg.AttributeFilter, cfg.NewReservoir),
		readerSet: readerSet{
			maxReaders: cfg.MaxReaders,
			diag:       cfg.Diag,
		},
		agg:       cfg.Aggregation,
		deltas:    newDeltaStorage(cfg.Aggregation),
		ts:        cfg.Start,
		start:     cfg.Start,
		monotonic: cfg.Monotonic,
	}
}

// Record folds one measurement into the live aggregator. Safe under parallel
// producers; never blocks on reader-side work.
func (s *Sync[N]) Record(ctx context.Context, value N, attrs attribute.Set, t time.Time) {
	s.accum.Record(ctx, value, attrs, t)
}

// Register attaches a reader. Deltas from collections before registration are
// never delivered to it: pending accumulation is flushed under the
// pre-registration mask first, so with no prior readers it is orphaned
// (zero-mask) rather than attributed to the newcomer.
func (s *Sync[N]) Register(temporality metricdata.Temporality) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m := s.accum.Collect(s.ts); !m.Empty() {
		s.deltas.add(m, s.readers.clone())
	}
	return s.readerSet.register(temporality)
}

// Unregister drains the reader's outstanding deltas (discarded) and frees its
// id. Already-cleared ids are a no-op.
func (s *Sync[N]) Unregister(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.registered(id) {
		return
	}
	s.deltas.removeReader(id)
	s.readerSet.unregister(id)
}

// Collect advances the stream to at (snapshotting the live aggregator into
// the delta ledger), then returns reader id's view at its temporality. A zero
// at replays without advancing.
func (s *Sync[N]) Collect(_ context.Context, id int, at time.Time) (metricdata.Aggregation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.registered(id) {
		return nil, false
	}
	if !at.IsZero() {
		m := s.accum.Collect(at)
		s.deltas.add(m, s.readers.clone())
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

// deltaLen reports the ledger length. Intended for tests.
func (s *Sync[N]) deltaLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deltas.len()
}
