package otlp

import (
	"context"
	"sync/atomic"

	collectormetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	metricspb "go.opentelemetry.io/proto/otlp/metrics/v1"

	"github.com/brokle-ai/otelmetric/internal/otlptransform"
	"github.com/brokle-ai/otelmetric/pkg/metric/metricdata"
	"github.com/brokle-ai/otelmetric/pkg/sdkerrors"
)

// Exporter encodes collection batches with the transport's content type and
// hands them to the transport. A failed export is returned to the reader and
// never retried here.
type Exporter struct {
	serializer *Serializer
	transport  Transport
	stopped    atomic.Bool
}

// NewExporter builds an exporter over the given transport. Fails when the
// transport advertises an unsupported content type.
func NewExporter(t Transport) (*Exporter, error) {
	ser, err := ForTransport(t)
	if err != nil {
		return nil, err
	}
	return &Exporter{serializer: ser, transport: t}, nil
}

// Export serializes one batch into an ExportMetricsServiceRequest and sends
// it.
func (e *Exporter) Export(ctx context.Context, rm *metricdata.ResourceMetrics) error {
	if e.stopped.Load() {
		return sdkerrors.ErrExporterShutdown
	}
	req := &collectormetricspb.ExportMetricsServiceRequest{
		ResourceMetrics: []*metricspb.ResourceMetrics{otlptransform.ResourceMetrics(rm)},
	}
	payload, err := e.serializer.Serialize(req)
	if err != nil {
		return err
	}
	return e.transport.Send(ctx, payload)
}

// ForceFlush is a no-op; the exporter holds no buffer.
func (e *Exporter) ForceFlush(context.Context) error {
	if e.stopped.Load() {
		return sdkerrors.ErrExporterShutdown
	}
	return nil
}

// Shutdown stops the exporter and releases the transport when it supports
// shutdown.
func (e *Exporter) Shutdown(ctx context.Context) error {
	if e.stopped.Swap(true) {
		return sdkerrors.ErrExporterShutdown
	}
	if closer, ok := e.transport.(interface{ Shutdown(context.Context) error }); ok {
		return closer.Shutdown(ctx)
	}
	return nil
}
