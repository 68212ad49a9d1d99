// Package otlptransform maps the SDK data model onto the OTLP protobuf
// types.
package otlptransform

import (
	"time"

	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	metricspb "go.opentelemetry.io/proto/otlp/metrics/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"

	"github.com/brokle-ai/otelmetric/pkg/attribute"
	"github.com/brokle-ai/otelmetric/pkg/metric/metricdata"
)

// ResourceMetrics converts one collection batch to its wire shape.
func ResourceMetrics(rm *metricdata.ResourceMetrics) *metricspb.ResourceMetrics {
	out := &metricspb.ResourceMetrics{
		Resource: &resourcepb.Resource{
			Attributes: Attributes(rm.ResourceAttributes),
		},
		SchemaUrl: rm.SchemaURL,
	}
	for _, sm := range rm.ScopeMetrics {
		out.ScopeMetrics = append(out.ScopeMetrics, scopeMetrics(sm))
	}
	return out
}

func scopeMetrics(sm metricdata.ScopeMetrics) *metricspb.ScopeMetrics {
	out := &metricspb.ScopeMetrics{
		Scope: &commonpb.InstrumentationScope{
			Name:       sm.Scope.Name,
			Version:    sm.Scope.Version,
			Attributes: Attributes(sm.Scope.Attributes),
		},
		SchemaUrl: sm.Scope.SchemaURL,
	}
	for _, m := range sm.Metrics {
		out.Metrics = append(out.Metrics, metric(m))
	}
	return out
}

func metric(m metricdata.Metrics) *metricspb.Metric {
	out := &metricspb.Metric{
		Name:        m.Name,
		Description: m.Description,
		Unit:        m.Unit,
	}
	switch data := m.Data.(type) {
	case metricdata.Gauge[int64]:
		out.Data = &metricspb.Metric_Gauge{Gauge: &metricspb.Gauge{
			DataPoints: numberDataPoints(data.DataPoints),
		}}
	case metricdata.Gauge[float64]:
		out.Data = &metricspb.Metric_Gauge{Gauge: &metricspb.Gauge{
			DataPoints: numberDataPoints(data.DataPoints),
		}}
	case metricdata.Sum[int64]:
		out.Data = &metricspb.Metric_Sum{Sum: &metricspb.Sum{
			AggregationTemporality: temporality(data.Temporality),
			IsMonotonic:            data.IsMonotonic,
			DataPoints:             numberDataPoints(data.DataPoints),
		}}
	case metricdata.Sum[float64]:
		out.Data = &metricspb.Metric_Sum{Sum: &metricspb.Sum{
			AggregationTemporality: temporality(data.Temporality),
			IsMonotonic:            data.IsMonotonic,
			DataPoints:             numberDataPoints(data.DataPoints),
		}}
	case metricdata.Histogram[int64]:
		out.Data = &metricspb.Metric_Histogram{Histogram: &metricspb.Histogram{
			AggregationTemporality: temporality(data.Temporality),
			DataPoints:             histogramDataPoints(data.DataPoints),
		}}
	case metricdata.Histogram[float64]:
		out.Data = &metricspb.Metric_Histogram{Histogram: &metricspb.Histogram{
			AggregationTemporality: temporality(data.Temporality),
			DataPoints:             histogramDataPoints(data.DataPoints),
		}}
	}
	return out
}

func temporality(t metricdata.Temporality) metricspb.AggregationTemporality {
	switch t {
	case metricdata.DeltaTemporality:
		return metricspb.AggregationTemporality_AGGREGATION_TEMPORALITY_DELTA
	case metricdata.CumulativeTemporality:
		return metricspb.AggregationTemporality_AGGREGATION_TEMPORALITY_CUMULATIVE
	default:
		return metricspb.AggregationTemporality_AGGREGATION_TEMPORALITY_UNSPECIFIED
	}
}

func numberDataPoints[N int64 | float64](dps []metricdata.DataPoint[N]) []*metricspb.NumberDataPoint {
	out := make([]*metricspb.NumberDataPoint, 0, len(dps))
	for _, dp := range dps {
		p := &metricspb.NumberDataPoint{
			Attributes:        Attributes(dp.Attributes),
			StartTimeUnixNano: timestamp(dp.StartTime),
			TimeUnixNano:      timestamp(dp.Time),
			Exemplars:         exemplars(dp.Exemplars),
		}
		setNumberValue(p, dp.Value)
		out = append(out, p)
	}
	return out
}

func setNumberValue[N int64 | float64](p *metricspb.NumberDataPoint, v N) {
	switch n := any(v).(type) {
	case int64:
		p.Value = &metricspb.NumberDataPoint_AsInt{AsInt: n}
	case float64:
		p.Value = &metricspb.NumberDataPoint_AsDouble{AsDouble: n}
	}
}

func histogramDataPoints[N int64 | float64](dps []metricdata.HistogramDataPoint[N]) []*metricspb.HistogramDataPoint {
	out := make([]*metricspb.HistogramDataPoint, 0, len(dps))
	for _, dp := range dps {
		sum := float64(dp.Sum)
		p := &metricspb.HistogramDataPoint{
			Attributes:        Attributes(dp.Attributes),
			StartTimeUnixNano: timestamp(dp.StartTime),
			TimeUnixNano:      timestamp(dp.Time),
			Count:             dp.Count,
			Sum:               &sum,
			ExplicitBounds:    dp.Bounds,
			BucketCounts:      dp.BucketCounts,
			Exemplars:         exemplars(dp.Exemplars),
		}
		if v, ok := dp.Min.Value(); ok {
			mn := float64(v)
			p.Min = &mn
		}
		if v, ok := dp.Max.Value(); ok {
			mx := float64(v)
			p.Max = &mx
		}
		out = append(out, p)
	}
	return out
}

func exemplars[N int64 | float64](exs []metricdata.Exemplar[N]) []*metricspb.Exemplar {
	out := make([]*metricspb.Exemplar, 0, len(exs))
	for _, ex := range exs {
		p := &metricspb.Exemplar{
			FilteredAttributes: keyValues(ex.FilteredAttributes),
			TimeUnixNano:       timestamp(ex.Time),
			TraceId:            ex.TraceID,
			SpanId:             ex.SpanID,
		}
		switch n := any(ex.Value).(type) {
		case int64:
			p.Value = &metricspb.Exemplar_AsInt{AsInt: n}
		case float64:
			p.Value = &metricspb.Exemplar_AsDouble{AsDouble: n}
		}
		out = append(out, p)
	}
	return out
}

// Attributes converts an attribute set to OTLP key-values.
func Attributes(s attribute.Set) []*commonpb.KeyValue {
	return keyValues(s.ToSlice())
}

func keyValues(kvs []attribute.KeyValue) []*commonpb.KeyValue {
	if len(kvs) == 0 {
		return nil
	}
	out := make([]*commonpb.KeyValue, 0, len(kvs))
	for _, kv := range kvs {
		out = append(out, &commonpb.KeyValue{Key: kv.Key, Value: anyValue(kv.Value)})
	}
	return out
}

func anyValue(v attribute.Value) *commonpb.AnyValue {
	switch v.Type() {
	case attribute.BOOL:
		return &commonpb.AnyValue{Value: &commonpb.AnyValue_BoolValue{BoolValue: v.AsBool()}}
	case attribute.INT64:
		return &commonpb.AnyValue{Value: &commonpb.AnyValue_IntValue{IntValue: v.AsInt64()}}
	case attribute.FLOAT64:
		return &commonpb.AnyValue{Value: &commonpb.AnyValue_DoubleValue{DoubleValue: v.AsFloat64()}}
	case attribute.STRING:
		return &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: v.AsString()}}
	case attribute.LIST:
		elems := v.AsList()
		arr := &commonpb.ArrayValue{Values: make([]*commonpb.AnyValue, 0, len(elems))}
		for _, e := range elems {
			arr.Values = append(arr.Values, anyValue(e))
		}
		return &commonpb.AnyValue{Value: &commonpb.AnyValue_ArrayValue{ArrayValue: arr}}
	default:
		return &commonpb.AnyValue{}
	}
}

func timestamp(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	return uint64(t.UnixNano())
}
