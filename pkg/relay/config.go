package relay

import (
	"fmt"
	"strings"
	"time"

	"github.com/bft-labs/tpmsrelay/internal/domain"
	"github.com/bft-labs/tpmsrelay/internal/queue"
)

// Config holds the settings of an embedded relay.
type Config struct {
	// CaptureDir is the spool directory the default capture source reads
	// demodulated rows from. Required unless WithCaptureSource is used.
	CaptureDir string

	// HandoffSize bounds the number of captured frames waiting for decode.
	// Default: 64
	HandoffSize int

	// Capacity is the number of sensors the retransmission queue holds.
	// Default: 12
	Capacity int

	// MaxRetransmissions is the number of repeats after a reading's first
	// send before the entry is retired. Zero sends each reading once.
	// Negative selects the default: 5
	MaxRetransmissions int

	// Interval is the spacing between retransmissions of one entry.
	// Default: 30s
	Interval time.Duration

	// TickInterval is how often the queue is polled for due entries.
	// Default: 1s
	TickInterval time.Duration

	// Variants lists the enabled decoders by name. Empty enables all.
	Variants []string

	// Once drains the capture directory and the queue, then stops.
	Once bool
}

// SetDefaults fills zero fields with their default values. For
// MaxRetransmissions zero is meaningful, so only a negative value is
// replaced.
func (c *Config) SetDefaults() {
	if c.HandoffSize <= 0 {
		c.HandoffSize = 64
	}
	if c.Capacity <= 0 {
		c.Capacity = queue.DefaultCapacity
	}
	if c.MaxRetransmissions < 0 {
		c.MaxRetransmissions = queue.DefaultMaxRetransmissions
	}
	if c.Interval <= 0 {
		c.Interval = queue.DefaultInterval
	}
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive", domain.ErrInvalidConfig)
	}
	if c.MaxRetransmissions < 0 {
		return fmt.Errorf("%w: max retransmissions must not be negative", domain.ErrInvalidConfig)
	}
	if c.Interval <= 0 || c.TickInterval <= 0 {
		return fmt.Errorf("%w: intervals must be positive", domain.ErrInvalidConfig)
	}
	if _, err := c.variants(); err != nil {
		return err
	}
	return nil
}

func (c Config) variants() ([]domain.Variant, error) {
	out := make([]domain.Variant, 0, len(c.Variants))
	for _, name := range c.Variants {
		v, err := domain.ParseVariant(strings.ToLower(strings.TrimSpace(name)))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
		}
		out = append(out, v)
	}
	return out, nil
}
