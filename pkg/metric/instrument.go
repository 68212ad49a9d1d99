package metric

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/brokle-ai/otelmetric/internal/aggregate"
	"github.com/brokle-ai/otelmetric/internal/stream"
	"github.com/brokle-ai/otelmetric/pkg/attribute"
	"github.com/brokle-ai/otelmetric/pkg/logging"
)

// InstrumentKind is the closed set of instrument types.
type InstrumentKind int

const (
	KindCounter InstrumentKind = iota + 1
	KindUpDownCounter
	KindHistogram
	KindGauge
	KindObservableCounter
	KindObservableUpDownCounter
	KindObservableGauge
)

func (k InstrumentKind) String() string {
	switch k {
	case KindCounter:
		return "Counter"
	case KindUpDownCounter:
		return "UpDownCounter"
	case KindHistogram:
		return "Histogram"
	case KindGauge:
		return "Gauge"
	case KindObservableCounter:
		return "ObservableCounter"
	case KindObservableUpDownCounter:
		return "ObservableUpDownCounter"
	case KindObservableGauge:
		return "ObservableGauge"
	default:
		return "unknown"
	}
}

// Monotonic reports whether the kind only accepts non-negative increments.
func (k InstrumentKind) Monotonic() bool {
	return k == KindCounter || k == KindObservableCounter
}

// Observable reports whether the kind measures through callbacks.
func (k InstrumentKind) Observable() bool {
	switch k {
	case KindObservableCounter, KindObservableUpDownCounter, KindObservableGauge:
		return true
	}
	return false
}

// instrumentID is the deduplication identity: the full descriptor tuple plus
// the number kind.
type instrumentID struct {
	kind        InstrumentKind
	name        string
	unit        string
	description string
	number      string
}

func numberName[N aggregate.Number]() string {
	var zero N
	if _, ok := any(zero).(int64); ok {
		return "int64"
	}
	return "float64"
}

// Int64Observer records int64 observations inside a callback.
type Int64Observer interface {
	Observe(value int64, attrs ...attribute.KeyValue)
}

// Float64Observer records float64 observations inside a callback.
type Float64Observer interface {
	Observe(value float64, attrs ...attribute.KeyValue)
}

// Int64Callback yields the current values of an int64 observable instrument.
type Int64Callback func(ctx context.Context, o Int64Observer) error

// Float64Callback yields the current values of a float64 observable
// instrument.
type Float64Callback func(ctx context.Context, o Float64Observer) error

type instrumentConfig struct {
	unit        string
	description string
	int64CBs    []Int64Callback
	float64CBs  []Float64Callback
}

// InstrumentOption configures instrument creation.
type InstrumentOption func(*instrumentConfig)

// WithUnit sets the instrument unit.
func WithUnit(unit string) InstrumentOption {
	return func(c *instrumentConfig) { c.unit = unit }
}

// WithDescription sets the instrument description.
func WithDescription(description string) InstrumentOption {
	return func(c *instrumentConfig) { c.description = description }
}

// WithInt64Callback registers a callback on an int64 observable instrument.
func WithInt64Callback(cb Int64Callback) InstrumentOption {
	return func(c *instrumentConfig) { c.int64CBs = append(c.int64CBs, cb) }
}

// WithFloat64Callback registers a callback on a float64 observable
// instrument.
func WithFloat64Callback(cb Float64Callback) InstrumentOption {
	return func(c *instrumentConfig) { c.float64CBs = append(c.float64CBs, cb) }
}

// entry is the shared state behind every handle of one deduplicated
// instrument.
type entry[N aggregate.Number] struct {
	id        instrumentID
	meter     *Meter
	handler   stalenessHandler
	monotonic bool
	syncs     []*stream.Sync[N]
	streams   []stream.Stream
}

type stalenessHandler interface {
	Acquire()
	Release()
	OnStale(func())
}

// inst is a thin per-creation handle over an entry. Each handle holds one
// staleness reference, released at most once.
type inst[N aggregate.Number] struct {
	e        *entry[N]
	released atomic.Bool
}

func (i *inst[N]) measure(ctx context.Context, value N, kvs []attribute.KeyValue) {
	if i == nil || i.e == nil {
		return
	}
	if i.released.Load() {
		logging.WarnOnce("instrument.released:"+i.e.id.name,
			"measurement on released instrument dropped", "name", i.e.id.name)
		return
	}
	if i.e.monotonic && value < 0 {
		logging.WarnOnce("instrument.negative:"+i.e.id.name,
			"negative increment on monotonic instrument dropped", "name", i.e.id.name)
		return
	}
	set := attribute.NewSet(kvs...)
	t := i.e.meter.provider.clock.Now()
	for _, s := range i.e.syncs {
		s.Record(ctx, value, set, t)
	}
}

// Release drops this handle's reference. When the last handle of an
// instrument releases, the instrument is reclaimed from its meter and its
// streams are unregistered from every reader; deltas that a reader has not
// yet collected are discarded, not held back.
func (i *inst[N]) Release() {
	if i == nil || i.e == nil {
		return
	}
	if i.released.CompareAndSwap(false, true) {
		i.e.handler.Release()
	}
}

// Int64Counter is a monotonic additive instrument.
type Int64Counter struct{ inst *inst[int64] }

// Add records an increment. Negative values are dropped with a one-time
// warning.
func (c Int64Counter) Add(ctx context.Context, incr int64, attrs ...attribute.KeyValue) {
	c.inst.measure(ctx, incr, attrs)
}

func (c Int64Counter) Release() { c.inst.Release() }

// Float64Counter is a monotonic additive instrument.
type Float64Counter struct{ inst *inst[float64] }

func (c Float64Counter) Add(ctx context.Context, incr float64, attrs ...attribute.KeyValue) {
	c.inst.measure(ctx, incr, attrs)
}

func (c Float64Counter) Release() { c.inst.Release() }

// Int64UpDownCounter is a bidirectional additive instrument.
type Int64UpDownCounter struct{ inst *inst[int64] }

func (c Int64UpDownCounter) Add(ctx context.Context, incr int64, attrs ...attribute.KeyValue) {
	c.inst.measure(ctx, incr, attrs)
}

func (c Int64UpDownCounter) Release() { c.inst.Release() }

// Float64UpDownCounter is a bidirectional additive instrument.
type Float64UpDownCounter struct{ inst *inst[float64] }

func (c Float64UpDownCounter) Add(ctx context.Context, incr float64, attrs ...attribute.KeyValue) {
	c.inst.measure(ctx, incr, attrs)
}

func (c Float64UpDownCounter) Release() { c.inst.Release() }

// Int64Histogram records a distribution of values.
type Int64Histogram struct{ inst *inst[int64] }

func (h Int64Histogram) Record(ctx context.Context, value int64, attrs ...attribute.KeyValue) {
	h.inst.measure(ctx, value, attrs)
}

func (h Int64Histogram) Release() { h.inst.Release() }

// Float64Histogram records a distribution of values.
type Float64Histogram struct{ inst *inst[float64] }

func (h Float64Histogram) Record(ctx context.Context, value float64, attrs ...attribute.KeyValue) {
	h.inst.measure(ctx, value, attrs)
}

func (h Float64Histogram) Release() { h.inst.Release() }

// Int64Gauge records the latest value.
type Int64Gauge struct{ inst *inst[int64] }

func (g Int64Gauge) Record(ctx context.Context, value int64, attrs ...attribute.KeyValue) {
	g.inst.measure(ctx, value, attrs)
}

func (g Int64Gauge) Release() { g.inst.Release() }

// Float64Gauge records the latest value.
type Float64Gauge struct{ inst *inst[float64] }

func (g Float64Gauge) Record(ctx context.Context, value float64, attrs ...attribute.KeyValue) {
	g.inst.measure(ctx, value, attrs)
}

func (g Float64Gauge) Release() { g.inst.Release() }

// Int64Observable is the handle of an int64 callback-driven instrument.
type Int64Observable struct{ inst *inst[int64] }

func (o Int64Observable) Release() { o.inst.Release() }

// Float64Observable is the handle of a float64 callback-driven instrument.
type Float64Observable struct{ inst *inst[float64] }

func (o Float64Observable) Release() { o.inst.Release() }

// observer adapts the public variadic observer surface onto a stream
// observer.
type observer[N aggregate.Number] struct {
	o stream.Observer[N]
}

func (o observer[N]) Observe(value N, kvs ...attribute.KeyValue) {
	o.o.Observe(value, attribute.NewSet(kvs...))
}

func foldName(name string) string { return strings.ToLower(name) }
