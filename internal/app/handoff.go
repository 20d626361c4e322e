package app

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/bft-labs/tpmsrelay/internal/bitframe"
	"github.com/bft-labs/tpmsrelay/internal/ports"
)

// DefaultHandoffSize is the number of captured frames buffered between the
// capture goroutine and the scheduling loop.
const DefaultHandoffSize = 64

// Handoff is the bounded channel between a capture source and the
// scheduling loop. Offer never blocks: when the buffer is full the frame
// is dropped and counted. Put applies backpressure instead.
type Handoff struct {
	ch        chan *bitframe.Frame
	dropped   atomic.Uint64
	metrics   ports.Metrics
	closeOnce sync.Once
}

// NewHandoff creates a hand-off buffer holding up to size frames.
func NewHandoff(size int, metrics ports.Metrics) *Handoff {
	if size <= 0 {
		size = DefaultHandoffSize
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Handoff{
		ch:      make(chan *bitframe.Frame, size),
		metrics: metrics,
	}
}

// Offer implements ports.FrameSink.
func (h *Handoff) Offer(f *bitframe.Frame) bool {
	select {
	case h.ch <- f:
		return true
	default:
		h.dropped.Add(1)
		h.metrics.CaptureDropped()
		return false
	}
}

// Put implements ports.FrameSink.
func (h *Handoff) Put(ctx context.Context, f *bitframe.Frame) error {
	select {
	case h.ch <- f:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Frames is the receive side, read only by the scheduling loop.
func (h *Handoff) Frames() <-chan *bitframe.Frame {
	return h.ch
}

// Close marks the end of capture. Only the producer may call it, and it
// must not Offer or Put afterwards.
func (h *Handoff) Close() {
	h.closeOnce.Do(func() { close(h.ch) })
}

// Dropped returns the number of frames discarded because the buffer was full.
func (h *Handoff) Dropped() uint64 {
	return h.dropped.Load()
}

var _ ports.FrameSink = (*Handoff)(nil)
