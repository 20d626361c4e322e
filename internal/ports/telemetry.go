package ports

import (
	"context"

	"github.com/bft-labs/tpmsrelay/internal/domain"
)

// TelemetrySink receives human-readable status as the relay runs.
// Implementations must not block the scheduling loop for long.
type TelemetrySink interface {
	// Reading is called once per successfully decoded frame.
	Reading(ctx context.Context, r domain.Reading)

	// Line is called once per transmitted entry with its telemetry line.
	Line(ctx context.Context, line string)
}
