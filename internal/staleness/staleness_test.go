package staleness

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImmediate_FiresOnceAtZero(t *testing.T) {
	h := NewImmediate()
	var fired atomic.Int32
	h.OnStale(func() { fired.Add(1) })

	h.Acquire()
	h.Acquire()
	h.Release()
	assert.Equal(t, int32(0), fired.Load())
	h.Release()
	assert.Equal(t, int32(1), fired.Load())
}

func TestImmediate_ReacquireRearms(t *testing.T) {
	h := NewImmediate()
	var fired atomic.Int32
	h.OnStale(func() { fired.Add(1) })

	h.Acquire()
	h.Release()
	require.Equal(t, int32(1), fired.Load())

	h.Acquire()
	h.Release()
	assert.Equal(t, int32(2), fired.Load())
}

func TestImmediate_FiresInsideZeroingRelease(t *testing.T) {
	h := NewImmediate()
	done := make(chan struct{}, 1)
	h.OnStale(func() { done <- struct{}{} })

	h.Acquire()
	h.Release()
	select {
	case <-done:
	default:
		t.Fatal("callback did not fire synchronously")
	}
}

func TestDelayed_TransientChurnAvoidsReclamation(t *testing.T) {
	h := NewDelayed(50 * time.Millisecond)
	var fired atomic.Int32
	h.OnStale(func() { fired.Add(1) })

	h.Acquire()
	h.Release()
	// Re-acquire before the delay expires.
	h.Acquire()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())

	h.Release()
	assert.Eventually(t, func() bool { return fired.Load() == 1 },
		time.Second, 10*time.Millisecond)
}
