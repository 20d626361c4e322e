// Package statusserver exposes a running relay over HTTP: liveness, the
// retransmission queue and, when a metrics handler is supplied, the
// Prometheus scrape endpoint.
package statusserver

import (
	"context"
	"io"
	"net/http"
	"sync"

	httpAdapter "github.com/bft-labs/tpmsrelay/internal/adapters/http"
	"github.com/bft-labs/tpmsrelay/pkg/relay"
)

// Plugin runs the status HTTP server for the lifetime of the relay.
type Plugin struct {
	mu sync.Mutex

	addr      string
	metrics   http.Handler
	accessLog io.Writer

	server *httpAdapter.Server
}

// Config holds configuration options for the status server plugin.
type Config struct {
	// Addr is the listen address. Default: ":9464"
	Addr string

	// Metrics is served at /metrics when set.
	Metrics http.Handler

	// AccessLog receives one line per request when set.
	AccessLog io.Writer
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{Addr: ":9464"}
}

// New creates a status server plugin.
func New(cfg Config) *Plugin {
	if cfg.Addr == "" {
		cfg.Addr = ":9464"
	}
	return &Plugin{
		addr:      cfg.Addr,
		metrics:   cfg.Metrics,
		accessLog: cfg.AccessLog,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "statusserver"
}

// Initialize starts listening. It fails if the address cannot be bound.
func (p *Plugin) Initialize(ctx context.Context, cfg relay.PluginConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	router := httpAdapter.NewRouter(cfg.Status, p.metrics)
	srv := httpAdapter.NewServer(p.addr, httpAdapter.Wrap(router, p.accessLog), cfg.Logger)
	if err := srv.Start(); err != nil {
		return err
	}
	p.server = srv
	return nil
}

// Shutdown stops the server, waiting for in-flight requests.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.server == nil {
		return nil
	}
	err := p.server.Shutdown(ctx)
	p.server = nil
	return err
}

// Addr returns the bound listen address, or "" when not running.
func (p *Plugin) Addr() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.server == nil {
		return ""
	}
	return p.server.Addr()
}

// Ensure Plugin implements relay.Plugin.
var _ relay.Plugin = (*Plugin)(nil)
