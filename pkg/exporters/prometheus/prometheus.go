// Package prometheus bridges a metric reader into a Prometheus collector so
// cumulative metric state can be scraped.
package prometheus

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/brokle-ai/otelmetric/pkg/attribute"
	"github.com/brokle-ai/otelmetric/pkg/logging"
	"github.com/brokle-ai/otelmetric/pkg/metric/metricdata"
)

// Reader is the collection surface the bridge pulls from. Register the same
// reader with the MeterProvider producing the data; it should use cumulative
// temporality, which is the reader default.
type Reader interface {
	Collect(ctx context.Context) (metricdata.ResourceMetrics, error)
}

// Collector adapts a Reader to the prometheus.Collector interface. Metrics
// are emitted as unchecked const metrics on every scrape.
type Collector struct {
	reader Reader
}

// New creates the bridge collector.
func New(reader Reader) *Collector {
	return &Collector{reader: reader}
}

// Describe sends no descriptors, making this an unchecked collector; the
// metric set changes as instruments come and go.
func (c *Collector) Describe(chan<- *prometheus.Desc) {}

// Collect pulls the reader and converts the batch to Prometheus samples.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	rm, err := c.reader.Collect(context.Background())
	if err != nil {
		logging.Default().Error("prometheus bridge collection failed", "error", err.Error())
		return
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			emit(ch, m)
		}
	}
}

func emit(ch chan<- prometheus.Metric, m metricdata.Metrics) {
	name := sanitize(m.Name)
	switch data := m.Data.(type) {
	case metricdata.Sum[int64]:
		emitNumbers(ch, name, m.Description, data.DataPoints, sumValueType(data.IsMonotonic))
	case metricdata.Sum[float64]:
		emitNumbers(ch, name, m.Description, data.DataPoints, sumValueType(data.IsMonotonic))
	case metricdata.Gauge[int64]:
		emitNumbers(ch, name, m.Description, data.DataPoints, prometheus.GaugeValue)
	case metricdata.Gauge[float64]:
		emitNumbers(ch, name, m.Description, data.DataPoints, prometheus.GaugeValue)
	case metricdata.Histogram[int64]:
		emitHistograms(ch, name, m.Description, data.DataPoints)
	case metricdata.Histogram[float64]:
		emitHistograms(ch, name, m.Description, data.DataPoints)
	}
}

func sumValueType(monotonic bool) prometheus.ValueType {
	if monotonic {
		return prometheus.CounterValue
	}
	return prometheus.GaugeValue
}

func emitNumbers[N int64 | float64](ch chan<- prometheus.Metric, name, help string, dps []metricdata.DataPoint[N], vt prometheus.ValueType) {
	for _, dp := range dps {
		keys, values := labels(dp.Attributes)
		desc := prometheus.NewDesc(name, help, keys, nil)
		metric, err := prometheus.NewConstMetric(desc, vt, float64(dp.Value), values...)
		if err != nil {
			logging.WarnOnce("prometheus.metric:"+name,
				"dropping invalid bridged metric", "name", name, "error", err.Error())
			continue
		}
		ch <- metric
	}
}

func emitHistograms[N int64 | float64](ch chan<- prometheus.Metric, name, help string, dps []metricdata.HistogramDataPoint[N]) {
	for _, dp := range dps {
		keys, values := labels(dp.Attributes)
		desc := prometheus.NewDesc(name, help, keys, nil)

		buckets := make(map[float64]uint64, len(dp.Bounds))
		var cumulative uint64
		for i, bound := range dp.Bounds {
			cumulative += dp.BucketCounts[i]
			buckets[bound] = cumulative
		}
		metric, err := prometheus.NewConstHistogram(desc, dp.Count, float64(dp.Sum), buckets, values...)
		if err != nil {
			logging.WarnOnce("prometheus.histogram:"+name,
				"dropping invalid bridged histogram", "name", name, "error", err.Error())
			continue
		}
		ch <- metric
	}
}

func labels(attrs attribute.Set) (keys, values []string) {
	for _, kv := range attrs.ToSlice() {
		keys = append(keys, sanitize(kv.Key))
		values = append(values, kv.Value.Emit())
	}
	return keys, values
}

// sanitize rewrites a metric or label name into the Prometheus charset.
func sanitize(name string) string {
	out := []rune(name)
	for i, r := range out {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == ':':
		case r >= '0' && r <= '9' && i > 0:
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
