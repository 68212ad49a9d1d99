// Package staleness implements reference-counted reclamation of unused
// instruments.
package staleness

import (
	"sync"
	"time"
)

// Handler is a reference-counted notifier. When the count transitions from
// positive to zero the registered callbacks fire exactly once; a subsequent
// Acquire re-arms the handler.
type Handler struct {
	mu      sync.Mutex
	count   int
	onStale []func()
	delay   time.Duration
	timer   *time.Timer
}

// NewImmediate returns a handler that fires callbacks synchronously inside
// the Release call that zeroed the count.
func NewImmediate() *Handler {
	return &Handler{}
}

// NewDelayed returns a handler that defers firing by d after the count hits
// zero, letting transient churn avoid reclamation.
func NewDelayed(d time.Duration) *Handler {
	return &Handler{delay: d}
}

// OnStale registers a callback invoked when the handler goes stale.
func (h *Handler) OnStale(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onStale = append(h.onStale, fn)
}

// Acquire increments the reference count and cancels any pending delayed
// reclamation.
func (h *Handler) Acquire() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}

// Release decrements the reference count. The transition to zero triggers the
// stale callbacks, immediately or after the configured delay.
func (h *Handler) Release() {
	h.mu.Lock()
	h.count--
	if h.count > 0 {
		h.mu.Unlock()
		return
	}
	if h.delay <= 0 {
		cbs := append([]func(){}, h.onStale...)
		h.mu.Unlock()
		for _, fn := range cbs {
			fn()
		}
		return
	}
	if h.timer != nil {
		h.timer.Stop()
	}
	h.timer = time.AfterFunc(h.delay, h.fireIfStale)
	h.mu.Unlock()
}

func (h *Handler) fireIfStale() {
	h.mu.Lock()
	if h.count > 0 {
		h.mu.Unlock()
		return
	}
	h.timer = nil
	cbs := append([]func(){}, h.onStale...)
	h.mu.Unlock()
	for _, fn := range cbs {
		fn()
	}
}

// Count returns the current reference count. Intended for tests.
func (h *Handler) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}
