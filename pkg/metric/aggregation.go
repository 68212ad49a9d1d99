package metric

import (
	"github.com/brokle-ai/otelmetric/internal/aggregate"
	"github.com/brokle-ai/otelmetric/pkg/sdkerrors"
)

// Aggregation selects the summary algorithm of a stream.
type Aggregation interface {
	privateAggregation()
	validate() error
}

// AggregationDefault selects the default aggregation for the instrument kind.
type AggregationDefault struct{}

func (AggregationDefault) privateAggregation() {}
func (AggregationDefault) validate() error     { return nil }

// AggregationSum folds measurements into an arithmetic sum.
type AggregationSum struct{}

func (AggregationSum) privateAggregation() {}
func (AggregationSum) validate() error     { return nil }

// AggregationLastValue keeps the most recent measurement.
type AggregationLastValue struct{}

func (AggregationLastValue) privateAggregation() {}
func (AggregationLastValue) validate() error     { return nil }

// AggregationExplicitBucketHistogram folds measurements into fixed buckets.
type AggregationExplicitBucketHistogram struct {
	// Boundaries are the bucket upper bounds, strictly ascending. Nil selects
	// DefaultHistogramBoundaries.
	Boundaries []float64
}

func (AggregationExplicitBucketHistogram) privateAggregation() {}

func (a AggregationExplicitBucketHistogram) validate() error {
	for i := 1; i < len(a.Boundaries); i++ {
		if a.Boundaries[i] <= a.Boundaries[i-1] {
			return sdkerrors.Newf(sdkerrors.CodeViewInvalid,
				"histogram boundaries must be strictly ascending, got %v", a.Boundaries)
		}
	}
	return nil
}

// AggregationDrop discards all measurements of the stream.
type AggregationDrop struct{}

func (AggregationDrop) privateAggregation() {}
func (AggregationDrop) validate() error     { return nil }

// DefaultHistogramBoundaries are the bucket bounds used when a histogram
// stream does not configure its own.
var DefaultHistogramBoundaries = []float64{0, 5, 10, 25, 50, 75, 100, 250, 500, 750, 1000, 2500, 5000, 7500, 10000}

// defaultAggregation maps an instrument kind to its default aggregation.
func defaultAggregation(kind InstrumentKind) Aggregation {
	switch kind {
	case KindHistogram:
		return AggregationExplicitBucketHistogram{Boundaries: DefaultHistogramBoundaries}
	case KindGauge, KindObservableGauge:
		return AggregationLastValue{}
	default:
		return AggregationSum{}
	}
}

// buildAggregation materializes the configured aggregation for one number
// kind. ok is false for drop streams.
func buildAggregation[N aggregate.Number](a Aggregation, kind InstrumentKind) (agg aggregate.Aggregation[N], ok bool) {
	switch v := a.(type) {
	case nil, AggregationDefault:
		return buildAggregation[N](defaultAggregation(kind), kind)
	case AggregationSum:
		return aggregate.NewSum[N](), true
	case AggregationLastValue:
		return aggregate.NewLastValue[N](), true
	case AggregationExplicitBucketHistogram:
		bounds := v.Boundaries
		if bounds == nil {
			bounds = DefaultHistogramBoundaries
		}
		return aggregate.NewExplicitBucketHistogram[N](bounds), true
	case AggregationDrop:
		return nil, false
	default:
		return buildAggregation[N](defaultAggregation(kind), kind)
	}
}
