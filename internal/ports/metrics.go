package ports

import "github.com/bft-labs/tpmsrelay/internal/domain"

// Metrics records relay activity.
type Metrics interface {
	FrameDecoded(v domain.Variant)
	DecodeFailed(v domain.Variant, kind string)
	FrameUnmatched()
	CaptureDropped()
	QueueUpserted()
	QueueFull()
	QueueSize(n int)
	Transmitted(ok bool)
	Evicted()
}
