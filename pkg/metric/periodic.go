package metric

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/brokle-ai/otelmetric/pkg/logging"
	"github.com/brokle-ai/otelmetric/pkg/metric/metricdata"
	"github.com/brokle-ai/otelmetric/pkg/sdkerrors"
)

const (
	defaultExportInterval = time.Minute
	defaultExportTimeout  = 30 * time.Second
)

// PeriodicOption configures a PeriodicReader.
type PeriodicOption func(*PeriodicReader)

// WithInterval sets the collection cadence.
func WithInterval(d time.Duration) PeriodicOption {
	return func(r *PeriodicReader) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithTimeout bounds each collect-and-export cycle.
func WithTimeout(d time.Duration) PeriodicOption {
	return func(r *PeriodicReader) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithReaderOptions applies common reader options to the periodic reader.
func WithReaderOptions(opts ...ReaderOption) PeriodicOption {
	return func(r *PeriodicReader) {
		for _, opt := range opts {
			opt(&r.readerCore)
		}
	}
}

// PeriodicReader collects on a fixed interval and hands each batch to its
// exporter. Transport I/O happens after the streams are released; no stream
// lock is held across an export.
type PeriodicReader struct {
	readerCore
	exporter Exporter
	interval time.Duration
	timeout  time.Duration

	flushCh chan chan error
	done    chan struct{}
	wg      sync.WaitGroup
	stopped sync.Once
}

// NewPeriodicReader starts a reader exporting every interval.
func NewPeriodicReader(exporter Exporter, opts ...PeriodicOption) *PeriodicReader {
	r := &PeriodicReader{
		readerCore: readerCore{temp: metricdata.CumulativeTemporality},
		exporter:   exporter,
		interval:   defaultExportInterval,
		timeout:    defaultExportTimeout,
		flushCh:    make(chan chan error),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.wg.Add(1)
	go r.run()
	return r
}

func (r *PeriodicReader) run() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := r.collectAndExport(context.Background()); err != nil {
				logging.Default().Error("periodic export failed", "error", err.Error())
			}
		case errCh := <-r.flushCh:
			errCh <- r.collectAndExport(context.Background())
			ticker.Reset(r.interval)
		case <-r.done:
			return
		}
	}
}

func (r *PeriodicReader) collectAndExport(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	rm, err := r.collect(ctx, r.now())
	if err != nil {
		return err
	}
	if len(rm.ScopeMetrics) == 0 {
		return nil
	}
	return r.exporter.Export(ctx, &rm)
}

// Collect performs an out-of-cycle collection without exporting.
func (r *PeriodicReader) Collect(ctx context.Context) (metricdata.ResourceMetrics, error) {
	return r.collect(ctx, r.now())
}

// ForceFlush runs one collect-and-export cycle immediately.
func (r *PeriodicReader) ForceFlush(ctx context.Context) error {
	errCh := make(chan error, 1)
	select {
	case r.flushCh <- errCh:
		select {
		case err := <-errCh:
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	case <-r.done:
		return sdkerrors.ErrReaderShutdown
	case <-ctx.Done():
		return ctx.Err()
	}
	return r.exporter.ForceFlush(ctx)
}

// Shutdown stops the loop, performs a final collect-and-export, and shuts the
// exporter down.
func (r *PeriodicReader) Shutdown(ctx context.Context) error {
	var err error = sdkerrors.ErrReaderShutdown
	r.stopped.Do(func() {
		close(r.done)
		r.wg.Wait()

		err = r.collectAndExport(ctx)
		if markErr := r.markShutdown(); markErr != nil && !errors.Is(markErr, sdkerrors.ErrReaderShutdown) {
			err = errors.Join(err, markErr)
		}
		err = errors.Join(err, r.exporter.Shutdown(ctx))
	})
	return err
}
