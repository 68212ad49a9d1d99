package metric

import (
	"context"
	"sync"

	"github.com/brokle-ai/otelmetric/internal/aggregate"
	"github.com/brokle-ai/otelmetric/internal/exemplar"
	"github.com/brokle-ai/otelmetric/internal/staleness"
	"github.com/brokle-ai/otelmetric/internal/stream"
	"github.com/brokle-ai/otelmetric/pkg/logging"
	"github.com/brokle-ai/otelmetric/pkg/metric/metricdata"
)

// Meter creates instruments scoped to one instrumentation library.
// Instruments are deduplicated by their full descriptor; conflicting
// re-registrations of a name warn and return the first registration.
type Meter struct {
	provider *MeterProvider
	scope    metricdata.Scope
	scopeKey string

	mu          sync.Mutex
	instruments map[instrumentID]any
	byName      map[string]instrumentID
}

// Scope returns the meter's instrumentation scope.
func (m *Meter) Scope() metricdata.Scope { return m.scope }

// Int64Counter creates or returns the monotonic int64 counter with this
// descriptor.
func (m *Meter) Int64Counter(name string, opts ...InstrumentOption) (Int64Counter, error) {
	e, err := lookupOrCreate[int64](m, KindCounter, name, newInstrumentConfig(opts))
	return Int64Counter{inst: newHandle(e)}, err
}

// Float64Counter creates or returns the monotonic float64 counter with this
// descriptor.
func (m *Meter) Float64Counter(name string, opts ...InstrumentOption) (Float64Counter, error) {
	e, err := lookupOrCreate[float64](m, KindCounter, name, newInstrumentConfig(opts))
	return Float64Counter{inst: newHandle(e)}, err
}

// Int64UpDownCounter creates or returns a bidirectional int64 counter.
func (m *Meter) Int64UpDownCounter(name string, opts ...InstrumentOption) (Int64UpDownCounter, error) {
	e, err := lookupOrCreate[int64](m, KindUpDownCounter, name, newInstrumentConfig(opts))
	return Int64UpDownCounter{inst: newHandle(e)}, err
}

// Float64UpDownCounter creates or returns a bidirectional float64 counter.
func (m *Meter) Float64UpDownCounter(name string, opts ...InstrumentOption) (Float64UpDownCounter, error) {
	e, err := lookupOrCreate[float64](m, KindUpDownCounter, name, newInstrumentConfig(opts))
	return Float64UpDownCounter{inst: newHandle(e)}, err
}

// Int64Histogram creates or returns an int64 distribution instrument.
func (m *Meter) Int64Histogram(name string, opts ...InstrumentOption) (Int64Histogram, error) {
	e, err := lookupOrCreate[int64](m, KindHistogram, name, newInstrumentConfig(opts))
	return Int64Histogram{inst: newHandle(e)}, err
}

// Float64Histogram creates or returns a float64 distribution instrument.
func (m *Meter) Float64Histogram(name string, opts ...InstrumentOption) (Float64Histogram, error) {
	e, err := lookupOrCreate[float64](m, KindHistogram, name, newInstrumentConfig(opts))
	return Float64Histogram{inst: newHandle(e)}, err
}

// Int64Gauge creates or returns an int64 last-value instrument.
func (m *Meter) Int64Gauge(name string, opts ...InstrumentOption) (Int64Gauge, error) {
	e, err := lookupOrCreate[int64](m, KindGauge, name, newInstrumentConfig(opts))
	return Int64Gauge{inst: newHandle(e)}, err
}

// Float64Gauge creates or returns a float64 last-value instrument.
func (m *Meter) Float64Gauge(name string, opts ...InstrumentOption) (Float64Gauge, error) {
	e, err := lookupOrCreate[float64](m, KindGauge, name, newInstrumentConfig(opts))
	return Float64Gauge{inst: newHandle(e)}, err
}

// Int64ObservableCounter creates an int64 counter observed through callbacks
// reporting running totals.
func (m *Meter) Int64ObservableCounter(name string, opts ...InstrumentOption) (Int64Observable, error) {
	e, err := lookupOrCreate[int64](m, KindObservableCounter, name, newInstrumentConfig(opts))
	return Int64Observable{inst: newHandle(e)}, err
}

// Float64ObservableCounter creates a float64 counter observed through
// callbacks reporting running totals.
func (m *Meter) Float64ObservableCounter(name string, opts ...InstrumentOption) (Float64Observable, error) {
	e, err := lookupOrCreate[float64](m, KindObservableCounter, name, newInstrumentConfig(opts))
	return Float64Observable{inst: newHandle(e)}, err
}

// Int64ObservableUpDownCounter creates an int64 up-down counter observed
// through callbacks.
func (m *Meter) Int64ObservableUpDownCounter(name string, opts ...InstrumentOption) (Int64Observable, error) {
	e, err := lookupOrCreate[int64](m, KindObservableUpDownCounter, name, newInstrumentConfig(opts))
	return Int64Observable{inst: newHandle(e)}, err
}

// Float64ObservableUpDownCounter creates a float64 up-down counter observed
// through callbacks.
func (m *Meter) Float64ObservableUpDownCounter(name string, opts ...InstrumentOption) (Float64Observable, error) {
	e, err := lookupOrCreate[float64](m, KindObservableUpDownCounter, name, newInstrumentConfig(opts))
	return Float64Observable{inst: newHandle(e)}, err
}

// Int64ObservableGauge creates an int64 gauge observed through callbacks.
func (m *Meter) Int64ObservableGauge(name string, opts ...InstrumentOption) (Int64Observable, error) {
	e, err := lookupOrCreate[int64](m, KindObservableGauge, name, newInstrumentConfig(opts))
	return Int64Observable{inst: newHandle(e)}, err
}

// Float64ObservableGauge creates a float64 gauge observed through callbacks.
func (m *Meter) Float64ObservableGauge(name string, opts ...InstrumentOption) (Float64Observable, error) {
	e, err := lookupOrCreate[float64](m, KindObservableGauge, name, newInstrumentConfig(opts))
	return Float64Observable{inst: newHandle(e)}, err
}

func newInstrumentConfig(opts []InstrumentOption) instrumentConfig {
	var cfg instrumentConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func newHandle[N aggregate.Number](e *entry[N]) *inst[N] {
	return &inst[N]{e: e}
}

// lookupOrCreate deduplicates by the full instrument identity, warns on
// conflicting re-registration of a name, and builds the streams for new
// instruments.
func lookupOrCreate[N aggregate.Number](m *Meter, kind InstrumentKind, name string, cfg instrumentConfig) (*entry[N], error) {
	id := instrumentID{
		kind:        kind,
		name:        name,
		unit:        cfg.unit,
		description: cfg.description,
		number:      numberName[N](),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.instruments[id]; ok {
		e := existing.(*entry[N])
		e.handler.Acquire()
		return e, nil
	}

	fold := foldName(name)
	if firstID, ok := m.byName[fold]; ok && firstID != id {
		logging.WarnOnce("instrument.conflict:"+m.scopeKey+"/"+fold,
			"duplicate instrument registration with conflicting identity, first registration wins",
			"scope", m.scope.Name, "name", name,
			"registered", firstID.kind.String(), "requested", kind.String())
		if e, sameNumber := m.instruments[firstID].(*entry[N]); sameNumber {
			e.handler.Acquire()
			return e, nil
		}
		// Conflicting number kinds cannot share a typed handle; the new
		// registration proceeds independently after the warning.
	}

	e, err := newEntry[N](m, id, cfg)
	if err != nil {
		return nil, err
	}
	m.instruments[id] = e
	if _, taken := m.byName[fold]; !taken {
		m.byName[fold] = id
	}
	return e, nil
}

func newEntry[N aggregate.Number](m *Meter, id instrumentID, cfg instrumentConfig) (*entry[N], error) {
	p := m.provider
	if p.isShutdown() {
		return nil, sdkShutdownErr
	}

	e := &entry[N]{
		id:        id,
		meter:     m,
		monotonic: id.kind.Monotonic(),
	}
	if p.stalenessDelay > 0 {
		e.handler = staleness.NewDelayed(p.stalenessDelay)
	} else {
		e.handler = staleness.NewImmediate()
	}

	start := p.clock.Now()
	for _, r := range resolveViews(p.views, id.kind, id.name, id.description, id.unit, m.scope.Name) {
		agg, ok := buildAggregation[N](r.aggregation, id.kind)
		if !ok {
			continue
		}
		diag := m.scope.Name + "/" + r.name

		var st stream.Stream
		var as *stream.Async[N]
		if id.kind.Observable() {
			as = stream.NewAsync(stream.AsyncConfig[N]{
				Aggregation:     agg,
				SumSemantics:    id.kind != KindObservableGauge,
				Monotonic:       e.monotonic,
				Start:           start,
				AttributeFilter: attributeFilter(r.attributeKeys),
				MaxReaders:      p.maxReaders,
				Diag:            diag,
			})
			st = as
		} else {
			var newRes func() *exemplar.Reservoir[N]
			if size := p.reservoirSize; size > 0 {
				newRes = func() *exemplar.Reservoir[N] { return exemplar.New[N](size) }
			}
			ss := stream.NewSync(stream.SyncConfig[N]{
				Aggregation:     agg,
				Monotonic:       e.monotonic,
				Start:           start,
				AttributeFilter: attributeFilter(r.attributeKeys),
				NewReservoir:    newRes,
				MaxReaders:      p.maxReaders,
				Diag:            diag,
			})
			e.syncs = append(e.syncs, ss)
			st = ss
		}
		e.streams = append(e.streams, st)

		for _, reader := range p.readers {
			rid := st.Register(reader.temporality())
			reader.bind(streamBinding{
				s:           st,
				id:          rid,
				scopeKey:    m.scopeKey,
				scope:       m.scope,
				name:        r.name,
				description: r.description,
				unit:        r.unit,
			})
		}
		// Callbacks attach after the creation-time readers register so their
		// first observation is delivered to them rather than baselined away.
		if as != nil {
			addCallbacks(as, cfg)
		}
	}

	streams := e.streams
	e.handler.OnStale(func() { m.reclaim(id, e, streams) })
	e.handler.Acquire()
	return e, nil
}

// addCallbacks wires the matching number-kind callbacks onto an async stream.
func addCallbacks[N aggregate.Number](as *stream.Async[N], cfg instrumentConfig) {
	switch s := any(as).(type) {
	case *stream.Async[int64]:
		for _, cb := range cfg.int64CBs {
			cb := cb
			s.AddCallback(func(ctx context.Context, o stream.Observer[int64]) error {
				return cb(ctx, observer[int64]{o: o})
			})
		}
	case *stream.Async[float64]:
		for _, cb := range cfg.float64CBs {
			cb := cb
			s.AddCallback(func(ctx context.Context, o stream.Observer[float64]) error {
				return cb(ctx, observer[float64]{o: o})
			})
		}
	}
}

// reclaim removes a stale instrument from the meter and detaches its streams
// from every reader.
func (m *Meter) reclaim(id instrumentID, e any, streams []stream.Stream) {
	m.mu.Lock()
	if current, ok := m.instruments[id]; !ok || current != e {
		m.mu.Unlock()
		return
	}
	delete(m.instruments, id)
	fold := foldName(id.name)
	if m.byName[fold] == id {
		delete(m.byName, fold)
	}
	readers := m.provider.readers
	m.mu.Unlock()

	for _, st := range streams {
		for _, r := range readers {
			r.unbind(st)
		}
	}
}

// instrumentCount reports the live instrument entries. Intended for tests.
func (m *Meter) instrumentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.instruments)
}
