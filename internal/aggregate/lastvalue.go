package aggregate

import (
	"time"

	"github.com/brokle-ai/otelmetric/pkg/metric/metricdata"
)

type lastValueSummary[N Number] struct {
	value N
	ts    time.Time
}

func (s *lastValueSummary[N]) clone() Summary[N] {
	cp := *s
	return &cp
}

// LastValue keeps the most recent measurement per attribute set.
type LastValue[N Number] struct{}

// NewLastValue returns the last-value aggregation.
func NewLastValue[N Number]() LastValue[N] { return LastValue[N]{} }

func (LastValue[N]) NewSummary(t time.Time) Summary[N] {
	return &lastValueSummary[N]{ts: t}
}

func (LastValue[N]) Update(s Summary[N], value N, t time.Time) {
	lv := s.(*lastValueSummary[N])
	if t.Before(lv.ts) {
		return
	}
	lv.value = value
	lv.ts = t
}

// Merge keeps the most recent timestamp; on a tie the newer collection (from)
// wins.
func (LastValue[N]) Merge(into, from Summary[N]) {
	dst, src := into.(*lastValueSummary[N]), from.(*lastValueSummary[N])
	if src.ts.Before(dst.ts) {
		return
	}
	*dst = *src
}

func (LastValue[N]) Diff(_, curr Summary[N]) Summary[N] {
	return curr.clone()
}

func (LastValue[N]) ToData(m *Metric[N], start, end time.Time, _ metricdata.Temporality, _ bool) metricdata.Aggregation {
	pts := m.sortedPoints()
	out := metricdata.Gauge[N]{
		DataPoints: make([]metricdata.DataPoint[N], 0, len(pts)),
	}
	for _, p := range pts {
		lv := p.Summary.(*lastValueSummary[N])
		out.DataPoints = append(out.DataPoints, metricdata.DataPoint[N]{
			Attributes: p.Attributes,
			StartTime:  start,
			Time:       end,
			Value:      lv.value,
			Exemplars:  p.Exemplars,
		})
	}
	return out
}
