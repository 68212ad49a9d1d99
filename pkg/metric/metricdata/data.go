// Package metricdata is the exported data model produced by metric readers.
//
// The shapes mirror the OTLP metrics protocol: a resource owns scopes, a
// scope owns metrics, and each metric carries one aggregation of data points
// partitioned by attribute set.
package metricdata

import (
	"time"

	"github.com/brokle-ai/otelmetric/pkg/attribute"
)

// Temporality is the aggregation time window semantic of produced data.
type Temporality int

const (
	// CumulativeTemporality reports running totals since the stream start.
	CumulativeTemporality Temporality = iota + 1
	// DeltaTemporality reports change since the reader's previous collection.
	DeltaTemporality
)

func (t Temporality) String() string {
	switch t {
	case CumulativeTemporality:
		return "Cumulative"
	case DeltaTemporality:
		return "Delta"
	default:
		return "unknown"
	}
}

// Scope identifies an instrumentation library.
type Scope struct {
	Name       string
	Version    string
	SchemaURL  string
	Attributes attribute.Set
}

// ResourceMetrics is a full collection result: all scopes of one resource.
type ResourceMetrics struct {
	ResourceAttributes attribute.Set
	SchemaURL          string
	ScopeMetrics       []ScopeMetrics
}

// ScopeMetrics groups the metrics of one instrumentation scope.
type ScopeMetrics struct {
	Scope   Scope
	Metrics []Metrics
}

// Metrics is one named metric stream's collected data.
type Metrics struct {
	Name        string
	Description string
	Unit        string
	Data        Aggregation
}

// Aggregation is the union of collected data shapes.
type Aggregation interface {
	privateAggregation()
}

// Gauge reports the last observed value per attribute set.
type Gauge[N int64 | float64] struct {
	DataPoints []DataPoint[N]
}

func (Gauge[N]) privateAggregation() {}

// Sum reports arithmetic sums per attribute set.
type Sum[N int64 | float64] struct {
	DataPoints  []DataPoint[N]
	Temporality Temporality
	IsMonotonic bool
}

func (Sum[N]) privateAggregation() {}

// Histogram reports bucketed value distributions per attribute set.
type Histogram[N int64 | float64] struct {
	DataPoints  []HistogramDataPoint[N]
	Temporality Temporality
}

func (Histogram[N]) privateAggregation() {}

// DataPoint is a single number datum.
type DataPoint[N int64 | float64] struct {
	Attributes attribute.Set
	StartTime  time.Time
	Time       time.Time
	Value      N
	Exemplars  []Exemplar[N]
}

// HistogramDataPoint is a single distribution datum. BucketCounts has
// len(Bounds)+1 entries; Count equals the sum of BucketCounts.
type HistogramDataPoint[N int64 | float64] struct {
	Attributes   attribute.Set
	StartTime    time.Time
	Time         time.Time
	Count        uint64
	Bounds       []float64
	BucketCounts []uint64
	Min          Extrema[N]
	Max          Extrema[N]
	Sum          N
	Exemplars    []Exemplar[N]
}

// Extrema is an optional recorded minimum or maximum.
type Extrema[N int64 | float64] struct {
	value N
	valid bool
}

// NewExtrema returns a defined Extrema.
func NewExtrema[N int64 | float64](v N) Extrema[N] {
	return Extrema[N]{value: v, valid: true}
}

// Value returns the extrema and whether one was recorded.
func (e Extrema[N]) Value() (N, bool) { return e.value, e.valid }

// Exemplar is a retained raw measurement providing provenance for a point.
type Exemplar[N int64 | float64] struct {
	FilteredAttributes []attribute.KeyValue
	Time               time.Time
	Value              N
	SpanID             []byte
	TraceID            []byte
}
