// Package aggregate folds measurements into per-attribute summaries and
// defines the merge algebra the delta ledger relies on.
package aggregate

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/brokle-ai/otelmetric/internal/exemplar"
	"github.com/brokle-ai/otelmetric/pkg/attribute"
	"github.com/brokle-ai/otelmetric/pkg/metric/metricdata"
)

// Number is the measurement value domain.
type Number interface {
	int64 | float64
}

// Summary is the accumulated state of one attribute set under one
// aggregation. Concrete types are private to this package.
type Summary[N Number] interface {
	clone() Summary[N]
}

// Aggregation defines how measurements fold, how collected summaries merge
// across collections, and how merged state converts to exported data.
type Aggregation[N Number] interface {
	// NewSummary returns a zero summary for a point first seen at t.
	NewSummary(t time.Time) Summary[N]
	// Update folds one measurement into s.
	Update(s Summary[N], value N, t time.Time)
	// Merge folds from into into. from is from a later collection than into.
	Merge(into, from Summary[N])
	// Diff returns the change from prev to curr, for observers that report
	// running totals. A nil prev means curr stands alone.
	Diff(prev, curr Summary[N]) Summary[N]
	// ToData converts a merged metric into its exported shape.
	ToData(m *Metric[N], start, end time.Time, temporality metricdata.Temporality, monotonic bool) metricdata.Aggregation
}

// Point pairs an attribute set with its summary and sampled exemplars.
type Point[N Number] struct {
	Attributes attribute.Set
	Summary    Summary[N]
	Exemplars  []metricdata.Exemplar[N]
}

// Metric is the result of one or more merged collections: summaries
// partitioned by attribute set over the window [Start, Time].
type Metric[N Number] struct {
	Start  time.Time
	Time   time.Time
	Points map[attribute.Distinct]*Point[N]
}

// NewMetric returns an empty metric covering [start, end].
func NewMetric[N Number](start, end time.Time) *Metric[N] {
	return &Metric[N]{Start: start, Time: end, Points: make(map[attribute.Distinct]*Point[N])}
}

// Empty reports whether the metric carries no points.
func (m *Metric[N]) Empty() bool { return m == nil || len(m.Points) == 0 }

// Clone deep-copies the metric so cumulative snapshots stay isolated from
// later merges.
func (m *Metric[N]) Clone() *Metric[N] {
	out := NewMetric[N](m.Start, m.Time)
	for k, p := range m.Points {
		out.Points[k] = &Point[N]{
			Attributes: p.Attributes,
			Summary:    p.Summary.clone(),
			Exemplars:  append([]metricdata.Exemplar[N](nil), p.Exemplars...),
		}
	}
	return out
}

// sortedPoints returns the points in canonical attribute order for
// deterministic emission.
func (m *Metric[N]) sortedPoints() []*Point[N] {
	pts := make([]*Point[N], 0, len(m.Points))
	for _, p := range m.Points {
		pts = append(pts, p)
	}
	sort.Slice(pts, func(i, j int) bool {
		return pts[i].Attributes.Distinct().String() < pts[j].Attributes.Distinct().String()
	})
	return pts
}

// Merge folds from into into under agg's algebra. from must come from a
// collection at or after into's; on equal-timestamp conflicts from wins.
func Merge[N Number](agg Aggregation[N], into, from *Metric[N]) {
	for k, p := range from.Points {
		dst, ok := into.Points[k]
		if !ok {
			into.Points[k] = &Point[N]{
				Attributes: p.Attributes,
				Summary:    p.Summary.clone(),
				Exemplars:  append([]metricdata.Exemplar[N](nil), p.Exemplars...),
			}
			continue
		}
		agg.Merge(dst.Summary, p.Summary)
		if len(p.Exemplars) > 0 {
			dst.Exemplars = p.Exemplars
		}
	}
	if from.Time.After(into.Time) {
		into.Time = from.Time
	}
	if into.Start.IsZero() || (!from.Start.IsZero() && from.Start.Before(into.Start)) {
		into.Start = from.Start
	}
}

// Aggregator is the live accumulation half of a synchronous stream: many
// producers record, one collector swaps the window.
type Aggregator[N Number] struct {
	mu           sync.Mutex
	agg          Aggregation[N]
	filter       func(attribute.Set) (attribute.Set, []attribute.KeyValue)
	newReservoir func() *exemplar.Reservoir[N]
	points       map[attribute.Distinct]*accumPoint[N]
	start        time.Time
}

type accumPoint[N Number] struct {
	attrs     attribute.Set
	summary   Summary[N]
	reservoir *exemplar.Reservoir[N]
}

// NewAggregator creates an aggregator whose first window opens at start.
// filter applies view attribute rules and may be nil; newReservoir may be nil
// to disable exemplar sampling.
func NewAggregator[N Number](
	agg Aggregation[N],
	start time.Time,
	filter func(attribute.Set) (attribute.Set, []attribute.KeyValue),
	newReservoir func() *exemplar.Reservoir[N],
) *Aggregator[N] {
	return &Aggregator[N]{
		agg:          agg,
		filter:       filter,
		newReservoir: newReservoir,
		points:       make(map[attribute.Distinct]*accumPoint[N]),
		start:        start,
	}
}

// Record folds one measurement. It never fails; invalid attributes were
// already dropped during set construction.
func (a *Aggregator[N]) Record(ctx context.Context, value N, attrs attribute.Set, t time.Time) {
	var dropped []attribute.KeyValue
	if a.filter != nil {
		attrs, dropped = a.filter(attrs)
	}

	a.mu.Lock()
	p, ok := a.points[attrs.Distinct()]
	if !ok {
		p = &accumPoint[N]{attrs: attrs, summary: a.agg.NewSummary(t)}
		if a.newReservoir != nil {
			p.reservoir = a.newReservoir()
		}
		a.points[attrs.Distinct()] = p
	}
	a.agg.Update(p.summary, value, t)
	res := p.reservoir
	a.mu.Unlock()

	// Reservoir has its own lock; keep the offer outside the map lock.
	res.Offer(ctx, t, value, dropped)
}

// Collect atomically swaps the working window and returns it as a metric
// covering [previous collect, t].
func (a *Aggregator[N]) Collect(t time.Time) *Metric[N] {
	a.mu.Lock()
	pts := a.points
	a.points = make(map[attribute.Distinct]*accumPoint[N])
	start := a.start
	a.start = t
	a.mu.Unlock()

	m := NewMetric[N](start, t)
	for k, p := range pts {
		m.Points[k] = &Point[N]{
			Attributes: p.attrs,
			Summary:    p.summary,
			Exemplars:  p.reservoir.Collect(),
		}
	}
	return m
}
