package exemplar

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestReservoir_BoundedSize(t *testing.T) {
	r := New[int64](4)
	now := time.Now()
	for i := int64(0); i < 100; i++ {
		r.Offer(context.Background(), now, i, nil)
	}
	got := r.Collect()
	assert.Len(t, got, 4)
	for _, ex := range got {
		assert.GreaterOrEqual(t, ex.Value, int64(0))
		assert.Less(t, ex.Value, int64(100))
	}
}

func TestReservoir_CollectResetsWindow(t *testing.T) {
	r := New[float64](2)
	now := time.Now()
	r.Offer(context.Background(), now, 1.5, nil)
	require.Len(t, r.Collect(), 1)
	assert.Empty(t, r.Collect())

	r.Offer(context.Background(), now, 2.5, nil)
	got := r.Collect()
	require.Len(t, got, 1)
	assert.Equal(t, 2.5, got[0].Value)
}

func TestReservoir_TraceLinkage(t *testing.T) {
	r := New[int64](1)
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10},
		SpanID:  trace.SpanID{0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	r.Offer(ctx, time.Now(), 42, nil)
	got := r.Collect()
	require.Len(t, got, 1)
	assert.Len(t, got[0].TraceID, 16)
	assert.Len(t, got[0].SpanID, 8)
}

func TestReservoir_NilContextAndDisabled(t *testing.T) {
	r := New[int64](1)
	r.Offer(nil, time.Now(), 7, nil) //nolint:staticcheck // nil context means no linkage
	got := r.Collect()
	require.Len(t, got, 1)
	assert.Nil(t, got[0].TraceID)

	off := New[int64](0)
	off.Offer(context.Background(), time.Now(), 7, nil)
	assert.Empty(t, off.Collect())
}
