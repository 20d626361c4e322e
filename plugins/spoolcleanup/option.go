package spoolcleanup

import "github.com/bft-labs/tpmsrelay/pkg/relay"

// WithSpoolCleanup returns a relay Option that enables spool cleanup.
//
// Usage:
//
//	r, err := relay.New(cfg,
//	    spoolcleanup.WithSpoolCleanup(spoolcleanup.Config{
//	        CheckInterval: 10 * time.Minute,
//	        HighWatermark: 64 << 20,
//	    }),
//	)
func WithSpoolCleanup(cfg Config) relay.Option {
	return relay.WithPlugin(New(cfg))
}

// WithDefaultSpoolCleanup enables spool cleanup with default settings.
func WithDefaultSpoolCleanup() relay.Option {
	return WithSpoolCleanup(DefaultConfig())
}
