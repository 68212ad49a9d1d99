// Package stream implements the multi-reader metric stream state machine:
// live aggregation, the delta ledger, and per-reader temporality
// reconciliation.
package stream

import (
	"context"
	"time"

	"github.com/brokle-ai/otelmetric/pkg/logging"
	"github.com/brokle-ai/otelmetric/pkg/metric/metricdata"
)

// Stream is the reader-facing surface shared by synchronous and asynchronous
// streams.
type Stream interface {
	// Register attaches a reader at the given temporality and returns its
	// reader id.
	Register(temporality metricdata.Temporality) int
	// Unregister drains and detaches a reader. Unknown ids are a no-op.
	Unregister(id int)
	// Collect advances the stream to at and returns reader id's view. A zero
	// at replays without advancing. ok is false when there is nothing to
	// report.
	Collect(ctx context.Context, id int, at time.Time) (data metricdata.Aggregation, ok bool)
}

// readerSet tracks registered readers and their temporality choice.
// maxReaders zero means the mask widens transparently past 64 readers;
// otherwise registration beyond the capacity hands out a sink id.
type readerSet struct {
	readers    bitset
	cumulative bitset
	maxReaders int
	diag       string
}

// register finds the lowest free reader id. When a fixed-width mask is full
// it emits a capacity warning and returns the sink id (== capacity), whose
// collections stay empty.
func (r *readerSet) register(temporality metricdata.Temporality) int {
	id := r.readers.lowestClear()
	if r.maxReaders > 0 && id >= r.maxReaders {
		logging.WarnOnce("stream.capacity:"+r.diag,
			"reader capacity exceeded without big-integer mask support, returning no-op sink",
			"stream", r.diag, "capacity", r.maxReaders)
		return r.maxReaders
	}
	r.readers.set(id)
	if temporality == metricdata.CumulativeTemporality {
		r.cumulative.set(id)
	}
	return id
}

func (r *readerSet) registered(id int) bool {
	return r.readers.test(id)
}

func (r *readerSet) unregister(id int) {
	r.readers.clear(id)
	r.cumulative.clear(id)
}

func (r *readerSet) temporality(id int) metricdata.Temporality {
	if r.cumulative.test(id) {
		return metricdata.CumulativeTemporality
	}
	return metricdata.DeltaTemporality
}
