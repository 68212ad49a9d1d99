// Package metric implements the user-facing half of the metrics pipeline:
// meter and instrument lifecycle, view resolution, and the readers that pull
// aggregated data out of the stream subsystem.
package metric

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brokle-ai/otelmetric/internal/clock"
	"github.com/brokle-ai/otelmetric/pkg/attribute"
	"github.com/brokle-ai/otelmetric/pkg/metric/metricdata"
	"github.com/brokle-ai/otelmetric/pkg/resource"
	"github.com/brokle-ai/otelmetric/pkg/sdkerrors"
)

var sdkShutdownErr = sdkerrors.New(sdkerrors.CodeReaderShutdown, "meter provider is shut down")

// Clock supplies collection timestamps. The default is the monotonic wall
// clock; tests may substitute a manual clock.
type Clock interface {
	Now() time.Time
}

const defaultReservoirSize = 4

// MeterProvider owns the meters, views and readers of one SDK instance.
type MeterProvider struct {
	clock          Clock
	res            *resource.Resource
	readers        []Reader
	views          []View
	maxReaders     int
	reservoirSize  int
	stalenessDelay time.Duration

	mu       sync.Mutex
	meters   map[string]*Meter
	shutdown atomic.Bool
}

// Option configures a MeterProvider.
type Option func(*MeterProvider)

// WithResource sets the resource attached to all produced batches.
func WithResource(res *resource.Resource) Option {
	return func(p *MeterProvider) { p.res = res }
}

// WithReader attaches a reader. Streams created afterwards register with it;
// the reader never observes deltas from collections preceding a stream's
// registration.
func WithReader(r Reader) Option {
	return func(p *MeterProvider) { p.readers = append(p.readers, r) }
}

// WithView adds view rules, evaluated in order at instrument creation.
func WithView(views ...View) Option {
	return func(p *MeterProvider) { p.views = append(p.views, views...) }
}

// WithClock overrides the timestamp source.
func WithClock(c Clock) Option {
	return func(p *MeterProvider) { p.clock = c }
}

// WithFixedReaderCapacity caps every stream's reader mask at the native word
// size instead of widening. Registration beyond 64 readers warns and returns
// a no-op sink.
func WithFixedReaderCapacity() Option {
	return func(p *MeterProvider) { p.maxReaders = 64 }
}

// WithExemplarReservoirSize sets the per-point exemplar sample size. Zero
// disables exemplar collection.
func WithExemplarReservoirSize(n int) Option {
	return func(p *MeterProvider) { p.reservoirSize = n }
}

// WithStalenessDelay defers instrument reclamation after the last handle
// releases, letting transient churn avoid teardown.
func WithStalenessDelay(d time.Duration) Option {
	return func(p *MeterProvider) { p.stalenessDelay = d }
}

// NewMeterProvider validates the configuration and assembles a provider.
func NewMeterProvider(opts ...Option) (*MeterProvider, error) {
	p := &MeterProvider{
		clock:         clock.Real(),
		res:           resource.Default(),
		reservoirSize: defaultReservoirSize,
		meters:        make(map[string]*Meter),
	}
	for _, opt := range opts {
		opt(p)
	}
	for _, v := range p.views {
		if err := v.validate(); err != nil {
			return nil, err
		}
	}
	for _, r := range p.readers {
		r.register(p)
	}
	return p, nil
}

// MeterOption configures the instrumentation scope of a meter.
type MeterOption func(*metricdata.Scope)

// WithInstrumentationVersion sets the scope version.
func WithInstrumentationVersion(version string) MeterOption {
	return func(s *metricdata.Scope) { s.Version = version }
}

// WithSchemaURL sets the scope schema URL.
func WithSchemaURL(url string) MeterOption {
	return func(s *metricdata.Scope) { s.SchemaURL = url }
}

// WithScopeAttributes sets the scope attributes.
func WithScopeAttributes(kvs ...attribute.KeyValue) MeterOption {
	return func(s *metricdata.Scope) { s.Attributes = attribute.NewSet(kvs...) }
}

// Meter returns the meter for an instrumentation scope, creating it on first
// use. Identical scopes share one meter.
func (p *MeterProvider) Meter(name string, opts ...MeterOption) *Meter {
	scope := metricdata.Scope{Name: name, Attributes: attribute.EmptySet()}
	for _, opt := range opts {
		opt(&scope)
	}
	key := scopeKey(scope)

	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.meters[key]; ok {
		return m
	}
	m := &Meter{
		provider:    p,
		scope:       scope,
		scopeKey:    key,
		instruments: make(map[instrumentID]any),
		byName:      make(map[string]instrumentID),
	}
	p.meters[key] = m
	return m
}

func scopeKey(s metricdata.Scope) string {
	var b strings.Builder
	for _, part := range []string{s.Name, s.Version, s.SchemaURL, s.Attributes.Distinct().String()} {
		b.WriteString(strconv.Itoa(len(part)))
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

// ForceFlush flushes every attached reader that exports.
func (p *MeterProvider) ForceFlush(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range p.readers {
		if f, ok := r.(interface{ ForceFlush(context.Context) error }); ok {
			g.Go(func() error { return f.ForceFlush(ctx) })
		}
	}
	return g.Wait()
}

// Shutdown stops all readers. Instrument creation afterwards fails;
// measurement on existing handles becomes a no-op once handles release.
func (p *MeterProvider) Shutdown(ctx context.Context) error {
	if p.shutdown.Swap(true) {
		return sdkShutdownErr
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range p.readers {
		g.Go(func() error { return r.Shutdown(ctx) })
	}
	return g.Wait()
}

func (p *MeterProvider) isShutdown() bool { return p.shutdown.Load() }
