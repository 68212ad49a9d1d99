package stream

import (
	"github.com/brokle-ai/otelmetric/internal/aggregate"
)

// deltaNode is one collection's worth of uncollected deltas. Bit i of readers
// is set while reader i has not yet consumed the node; the node is unlinked
// the moment its mask drops to zero.
type deltaNode[N aggregate.Number] struct {
	metric  *aggregate.Metric[N]
	readers bitset
	next    *deltaNode[N]
}

// deltaStorage buffers collected deltas so N readers with differing cadences
// each observe every delta exactly once, while cumulative readers accumulate
// running sums.
type deltaStorage[N aggregate.Number] struct {
	agg        aggregate.Aggregation[N]
	head, tail *deltaNode[N]
	cumulative map[int]*aggregate.Metric[N]
}

func newDeltaStorage[N aggregate.Number](agg aggregate.Aggregation[N]) deltaStorage[N] {
	return deltaStorage[N]{agg: agg, cumulative: make(map[int]*aggregate.Metric[N])}
}

// add appends a node for the given registered readers. Empty metrics and
// empty reader sets leave no trace.
func (d *deltaStorage[N]) add(m *aggregate.Metric[N], readers bitset) {
	if m.Empty() || readers.empty() {
		return
	}
	n := &deltaNode[N]{metric: m, readers: readers}
	if d.tail == nil {
		d.head, d.tail = n, n
		return
	}
	d.tail.next = n
	d.tail = n
}

// collect merges all nodes pending for reader id, oldest first, clearing the
// reader's bit as each is consumed. Cumulative readers additionally fold the
// merged delta into their running sum and receive a clone of it. Returns nil
// when there is nothing to report.
func (d *deltaStorage[N]) collect(id int, cumulative bool) *aggregate.Metric[N] {
	var merged *aggregate.Metric[N]
	var prev *deltaNode[N]
	for n := d.head; n != nil; n = n.next {
		if !n.readers.test(id) {
			prev = n
			continue
		}
		n.readers.clear(id)
		owned := n.readers.empty()
		if owned {
			d.unlink(prev, n)
		} else {
			prev = n
		}

		if merged == nil {
			if owned {
				merged = n.metric
			} else {
				merged = n.metric.Clone()
			}
			continue
		}
		aggregate.Merge(d.agg, merged, n.metric)
	}

	if !cumulative {
		return merged
	}
	acc, ok := d.cumulative[id]
	if !ok {
		if merged == nil {
			return nil
		}
		acc = aggregate.NewMetric[N](merged.Start, merged.Time)
		d.cumulative[id] = acc
	}
	if merged != nil {
		aggregate.Merge(d.agg, acc, merged)
	}
	return acc.Clone()
}

// removeReader drains reader id without delivering, used on unregister.
func (d *deltaStorage[N]) removeReader(id int) {
	var prev *deltaNode[N]
	for n := d.head; n != nil; n = n.next {
		if n.readers.test(id) {
			n.readers.clear(id)
			if n.readers.empty() {
				d.unlink(prev, n)
				continue
			}
		}
		prev = n
	}
	delete(d.cumulative, id)
}

func (d *deltaStorage[N]) unlink(prev, n *deltaNode[N]) {
	if prev == nil {
		d.head = n.next
	} else {
		prev.next = n.next
	}
	if d.tail == n {
		d.tail = prev
	}
}

// len reports the number of buffered nodes. Intended for tests and the
// bounded-memory invariant.
func (d *deltaStorage[N]) len() int {
	c := 0
	for n := d.head; n != nil; n = n.next {
		c++
	}
	return c
}
