package metric

import (
	"context"

	"github.com/brokle-ai/otelmetric/pkg/metric/metricdata"
)

// Exporter ships collected batches over a transport. Implementations own
// their retry policy; the core never retries a failed export.
type Exporter interface {
	// Export serializes and sends one collection result.
	Export(ctx context.Context, rm *metricdata.ResourceMetrics) error
	// ForceFlush pushes any buffered exports through the transport.
	ForceFlush(ctx context.Context) error
	// Shutdown releases the transport. Subsequent exports fail.
	Shutdown(ctx context.Context) error
}
