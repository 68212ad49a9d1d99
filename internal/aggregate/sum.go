package aggregate

import (
	"time"

	"github.com/brokle-ai/otelmetric/pkg/metric/metricdata"
)

type sumSummary[N Number] struct {
	value N
}

func (s *sumSummary[N]) clone() Summary[N] {
	cp := *s
	return &cp
}

// Sum aggregates measurements as their arithmetic sum.
type Sum[N Number] struct{}

// NewSum returns the sum aggregation.
func NewSum[N Number]() Sum[N] { return Sum[N]{} }

func (Sum[N]) NewSummary(time.Time) Summary[N] { return &sumSummary[N]{} }

func (Sum[N]) Update(s Summary[N], value N, _ time.Time) {
	s.(*sumSummary[N]).value += value
}

func (Sum[N]) Merge(into, from Summary[N]) {
	into.(*sumSummary[N]).value += from.(*sumSummary[N]).value
}

func (Sum[N]) Diff(prev, curr Summary[N]) Summary[N] {
	d := &sumSummary[N]{value: curr.(*sumSummary[N]).value}
	if prev != nil {
		d.value -= prev.(*sumSummary[N]).value
	}
	return d
}

func (Sum[N]) ToData(m *Metric[N], start, end time.Time, temporality metricdata.Temporality, monotonic bool) metricdata.Aggregation {
	pts := m.sortedPoints()
	out := metricdata.Sum[N]{
		Temporality: temporality,
		IsMonotonic: monotonic,
		DataPoints:  make([]metricdata.DataPoint[N], 0, len(pts)),
	}
	for _, p := range pts {
		out.DataPoints = append(out.DataPoints, metricdata.DataPoint[N]{
			Attributes: p.Attributes,
			StartTime:  start,
			Time:       end,
			Value:      p.Summary.(*sumSummary[N]).value,
			Exemplars:  p.Exemplars,
		})
	}
	return out
}
