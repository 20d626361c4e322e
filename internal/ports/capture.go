package ports

import (
	"context"

	"github.com/bft-labs/tpmsrelay/internal/bitframe"
)

// FrameSink accepts captured frames.
type FrameSink interface {
	// Offer never blocks. It returns false if the frame was dropped. Live
	// receivers use it so a slow consumer cannot stall demodulation.
	Offer(f *bitframe.Frame) bool

	// Put waits for room and returns ctx.Err() on cancellation. Finite
	// sources such as a replayed capture use it so no frame is lost.
	Put(ctx context.Context, f *bitframe.Frame) error
}

// CaptureSource produces bit frames from a receiver.
type CaptureSource interface {
	// Run delivers frames to sink until ctx is canceled or the source is
	// exhausted. It returns nil when a finite source has delivered every
	// frame, and ctx.Err() on cancellation.
	Run(ctx context.Context, sink FrameSink) error
}
