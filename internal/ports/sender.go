package ports

import (
	"context"

	"github.com/bft-labs/tpmsrelay/internal/domain"
)

// Sender transmits a wire frame over the air. A failed send is logged by
// the caller and never retried.
type Sender interface {
	Send(ctx context.Context, frame domain.WireFrame) error
}
