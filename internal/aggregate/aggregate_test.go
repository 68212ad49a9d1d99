package aggregate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brokle-ai/otelmetric/pkg/attribute"
	"github.com/brokle-ai/otelmetric/pkg/metric/metricdata"
)

var (
	t0 = time.Unix(100, 0)
	t1 = time.Unix(200, 0)
	t2 = time.Unix(300, 0)
)

func sumValue[N Number](t *testing.T, m *Metric[N], attrs attribute.Set) N {
	t.Helper()
	p, ok := m.Points[attrs.Distinct()]
	require.True(t, ok)
	return p.Summary.(*sumSummary[N]).value
}

func TestAggregator_SumFoldsByAttributes(t *testing.T) {
	agg := NewAggregator[int64](NewSum[int64](), t0, nil, nil)
	hot := attribute.NewSet(attribute.String("path", "/hot"))
	cold := attribute.NewSet(attribute.String("path", "/cold"))

	agg.Record(context.Background(), 5, hot, t0)
	agg.Record(context.Background(), 3, hot, t0)
	agg.Record(context.Background(), 7, cold, t0)

	m := agg.Collect(t1)
	assert.Equal(t, t0, m.Start)
	assert.Equal(t, t1, m.Time)
	assert.Equal(t, int64(8), sumValue(t, m, hot))
	assert.Equal(t, int64(7), sumValue(t, m, cold))

	// The swap opens a fresh window starting at the collect time.
	m2 := agg.Collect(t2)
	assert.True(t, m2.Empty())
	assert.Equal(t, t1, m2.Start)
}

func TestAggregator_ParallelRecord(t *testing.T) {
	agg := NewAggregator[int64](NewSum[int64](), t0, nil, nil)
	attrs := attribute.NewSet(attribute.String("w", "x"))

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				agg.Record(context.Background(), 1, attrs, t0)
			}
		}()
	}
	wg.Wait()

	m := agg.Collect(t1)
	assert.Equal(t, int64(8000), sumValue(t, m, attrs))
}

func TestLastValue_LatestWins(t *testing.T) {
	lv := NewLastValue[float64]()
	s := lv.NewSummary(t0)
	lv.Update(s, 1.0, t0)
	lv.Update(s, 2.0, t1)
	lv.Update(s, 99.0, t0) // stale timestamp ignored
	assert.Equal(t, 2.0, s.(*lastValueSummary[float64]).value)

	// Merge tie: the newer collection wins.
	newer := lv.NewSummary(t1)
	lv.Update(newer, 5.0, t1)
	lv.Merge(s, newer)
	assert.Equal(t, 5.0, s.(*lastValueSummary[float64]).value)
}

func TestHistogram_BucketInvariants(t *testing.T) {
	h := NewExplicitBucketHistogram[float64]([]float64{10, 100})
	s := h.NewSummary(t0)
	for _, v := range []float64{5, 50, 10, 100, 101} {
		h.Update(s, v, t0)
	}
	hs := s.(*histogramSummary[float64])

	// Bucket i counts values <= bounds[i].
	assert.Equal(t, []uint64{2, 2, 1}, hs.counts)
	var total uint64
	for _, c := range hs.counts {
		total += c
	}
	assert.Equal(t, hs.count, total)
	assert.Equal(t, 5.0, hs.min)
	assert.Equal(t, 101.0, hs.max)
	assert.LessOrEqual(t, hs.min, hs.sum/float64(hs.count))
	assert.GreaterOrEqual(t, hs.max, hs.sum/float64(hs.count))
}

func TestHistogram_MergeEmptySideSurvives(t *testing.T) {
	h := NewExplicitBucketHistogram[int64]([]float64{10})
	full := h.NewSummary(t0)
	h.Update(full, 5, t0)
	empty := h.NewSummary(t0)

	h.Merge(full, empty)
	assert.Equal(t, uint64(1), full.(*histogramSummary[int64]).count)

	h.Merge(empty, full)
	got := empty.(*histogramSummary[int64])
	assert.Equal(t, uint64(1), got.count)
	assert.Equal(t, int64(5), got.min)
}

func TestHistogram_MergeElementWise(t *testing.T) {
	h := NewExplicitBucketHistogram[float64]([]float64{10, 100})
	a := h.NewSummary(t0)
	h.Update(a, 5, t0)
	h.Update(a, 50, t0)
	b := h.NewSummary(t1)
	h.Update(b, 200, t1)

	h.Merge(a, b)
	got := a.(*histogramSummary[float64])
	assert.Equal(t, []uint64{1, 1, 1}, got.counts)
	assert.Equal(t, uint64(3), got.count)
	assert.Equal(t, 5.0, got.min)
	assert.Equal(t, 200.0, got.max)
}

func TestSum_Diff(t *testing.T) {
	sum := NewSum[int64]()
	prev := sum.NewSummary(t0)
	sum.Update(prev, 10, t0)
	curr := sum.NewSummary(t1)
	sum.Update(curr, 14, t1)

	d := sum.Diff(prev, curr)
	assert.Equal(t, int64(4), d.(*sumSummary[int64]).value)

	first := sum.Diff(nil, curr)
	assert.Equal(t, int64(14), first.(*sumSummary[int64]).value)
}

func TestMerge_MetricLevel(t *testing.T) {
	sum := NewSum[int64]()
	attrs := attribute.NewSet(attribute.String("k", "v"))
	other := attribute.NewSet(attribute.String("k", "w"))

	m1 := NewMetric[int64](t0, t1)
	s1 := sum.NewSummary(t0)
	sum.Update(s1, 5, t0)
	m1.Points[attrs.Distinct()] = &Point[int64]{Attributes: attrs, Summary: s1}

	m2 := NewMetric[int64](t1, t2)
	s2 := sum.NewSummary(t1)
	sum.Update(s2, 3, t1)
	m2.Points[attrs.Distinct()] = &Point[int64]{Attributes: attrs, Summary: s2}
	s3 := sum.NewSummary(t1)
	sum.Update(s3, 9, t1)
	m2.Points[other.Distinct()] = &Point[int64]{Attributes: other, Summary: s3}

	Merge[int64](sum, m1, m2)
	assert.Equal(t, int64(8), sumValue(t, m1, attrs))
	assert.Equal(t, int64(9), sumValue(t, m1, other))
	assert.Equal(t, t0, m1.Start)
	assert.Equal(t, t2, m1.Time)

	// The source metric is untouched.
	assert.Equal(t, int64(3), sumValue(t, m2, attrs))
}

func TestToData_Sum(t *testing.T) {
	sum := NewSum[int64]()
	attrs := attribute.NewSet(attribute.String("k", "v"))
	m := NewMetric[int64](t0, t1)
	s := sum.NewSummary(t0)
	sum.Update(s, 42, t0)
	m.Points[attrs.Distinct()] = &Point[int64]{Attributes: attrs, Summary: s}

	data := sum.ToData(m, t0, t1, metricdata.DeltaTemporality, true)
	sd, ok := data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sd.DataPoints, 1)
	assert.Equal(t, int64(42), sd.DataPoints[0].Value)
	assert.Equal(t, metricdata.DeltaTemporality, sd.Temporality)
	assert.True(t, sd.IsMonotonic)
	assert.Equal(t, t0, sd.DataPoints[0].StartTime)
	assert.Equal(t, t1, sd.DataPoints[0].Time)
}
