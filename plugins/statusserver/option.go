package statusserver

import "github.com/bft-labs/tpmsrelay/pkg/relay"

// WithStatusServer returns a relay Option that serves relay status over
// HTTP.
//
// Usage:
//
//	r, err := relay.New(cfg,
//	    statusserver.WithStatusServer(statusserver.Config{
//	        Addr:    "127.0.0.1:9464",
//	        Metrics: recorder.Handler(),
//	    }),
//	)
func WithStatusServer(cfg Config) relay.Option {
	return relay.WithPlugin(New(cfg))
}
