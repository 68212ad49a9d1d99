package aggregate

import (
	"sort"
	"time"

	"github.com/brokle-ai/otelmetric/pkg/metric/metricdata"
)

type histogramSummary[N Number] struct {
	counts []uint64
	count  uint64
	sum    N
	min    N
	max    N
}

func (s *histogramSummary[N]) clone() Summary[N] {
	cp := *s
	cp.counts = append([]uint64(nil), s.counts...)
	return &cp
}

// ExplicitBucketHistogram aggregates measurements into a fixed-boundary
// bucket distribution with count, sum, min and max.
type ExplicitBucketHistogram[N Number] struct {
	bounds []float64
}

// NewExplicitBucketHistogram returns a histogram aggregation over the given
// sorted upper bounds. Bucket i counts values <= bounds[i]; the final bucket
// counts the overflow.
func NewExplicitBucketHistogram[N Number](bounds []float64) ExplicitBucketHistogram[N] {
	return ExplicitBucketHistogram[N]{bounds: append([]float64(nil), bounds...)}
}

// Bounds returns the configured bucket upper bounds.
func (h ExplicitBucketHistogram[N]) Bounds() []float64 { return h.bounds }

func (h ExplicitBucketHistogram[N]) NewSummary(time.Time) Summary[N] {
	return &histogramSummary[N]{counts: make([]uint64, len(h.bounds)+1)}
}

func (h ExplicitBucketHistogram[N]) Update(s Summary[N], value N, _ time.Time) {
	hs := s.(*histogramSummary[N])
	idx := sort.SearchFloat64s(h.bounds, float64(value))
	hs.counts[idx]++
	hs.sum += value
	if hs.count == 0 || value < hs.min {
		hs.min = value
	}
	if hs.count == 0 || value > hs.max {
		hs.max = value
	}
	hs.count++
}

// Merge adds counts, sum and count element-wise; min/max take the tighter
// extremum. A side with no observations yields the other unchanged.
func (h ExplicitBucketHistogram[N]) Merge(into, from Summary[N]) {
	dst, src := into.(*histogramSummary[N]), from.(*histogramSummary[N])
	if src.count == 0 {
		return
	}
	if dst.count == 0 {
		*dst = *src.clone().(*histogramSummary[N])
		return
	}
	for i := range dst.counts {
		dst.counts[i] += src.counts[i]
	}
	dst.count += src.count
	dst.sum += src.sum
	if src.min < dst.min {
		dst.min = src.min
	}
	if src.max > dst.max {
		dst.max = src.max
	}
}

// Diff does not difference histograms: it returns a copy of curr. It is only
// reached when a view assigns this aggregation to an observable counter or
// observable up-down counter.
func (ExplicitBucketHistogram[N]) Diff(_, curr Summary[N]) Summary[N] {
	return curr.clone()
}

func (h ExplicitBucketHistogram[N]) ToData(m *Metric[N], start, end time.Time, temporality metricdata.Temporality, _ bool) metricdata.Aggregation {
	pts := m.sortedPoints()
	out := metricdata.Histogram[N]{
		Temporality: temporality,
		DataPoints:  make([]metricdata.HistogramDataPoint[N], 0, len(pts)),
	}
	for _, p := range pts {
		hs := p.Summary.(*histogramSummary[N])
		dp := metricdata.HistogramDataPoint[N]{
			Attributes:   p.Attributes,
			StartTime:    start,
			Time:         end,
			Count:        hs.count,
			Bounds:       h.bounds,
			BucketCounts: append([]uint64(nil), hs.counts...),
			Sum:          hs.sum,
			Exemplars:    p.Exemplars,
		}
		if hs.count > 0 {
			dp.Min = metricdata.NewExtrema(hs.min)
			dp.Max = metricdata.NewExtrema(hs.max)
		}
		out.DataPoints = append(out.DataPoints, dp)
	}
	return out
}
