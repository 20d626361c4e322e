package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bft-labs/tpmsrelay/internal/adapters/fs"
	logAdapter "github.com/bft-labs/tpmsrelay/internal/adapters/log"
	"github.com/bft-labs/tpmsrelay/internal/adapters/serial"
	"github.com/bft-labs/tpmsrelay/internal/app"
	"github.com/bft-labs/tpmsrelay/internal/decoder"
	"github.com/bft-labs/tpmsrelay/internal/domain"
	"github.com/bft-labs/tpmsrelay/internal/ports"
	"github.com/bft-labs/tpmsrelay/internal/queue"
	"github.com/bft-labs/tpmsrelay/pkg/log"
)

// Errors returned by the public API.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
)

// Relay decodes captured TPMS frames and retransmits each sensor's latest
// reading on a fixed schedule. Use New to create one, then Start.
type Relay struct {
	config    Config
	lifecycle *app.Lifecycle
	agent     *app.Agent
	logger    Logger
	plugins   []Plugin

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	// active holds the plugins initialized by the last Start and not yet
	// shut down.
	active []Plugin
}

// New creates a relay in StateStopped.
func New(cfg Config, opts ...Option) (*Relay, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.source == nil && cfg.CaptureDir == "" {
		return nil, fmt.Errorf("%w: capture dir is required", ErrInvalidConfig)
	}

	logger := o.logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	emitter := &eventEmitterWrapper{handler: o.eventHandler}

	source := o.source
	if source == nil {
		source = fs.NewSpoolSource(cfg.CaptureDir, !cfg.Once, logAdapter.Component(logger, "spool"))
	}
	sender := o.sender
	if sender == nil {
		sender = serial.NewLogSender(logAdapter.Component(logger, "sender"))
	}

	variants, _ := cfg.variants()
	agent := app.NewAgent(app.AgentConfig{
		TickInterval: cfg.TickInterval,
		Once:         cfg.Once,
	}, app.AgentDeps{
		Source:     source,
		Handoff:    app.NewHandoff(cfg.HandoffSize, o.metrics),
		Dispatcher: decoder.NewDispatcher(variants...),
		Queue:      queue.New(cfg.Capacity, cfg.MaxRetransmissions, cfg.Interval),
		Sender:     sender,
		Telemetry:  o.telemetry,
		Metrics:    o.metrics,
		Logger:     logAdapter.Component(logger, "agent"),
		Emitter:    emitter,
	})

	return &Relay{
		config:    cfg,
		lifecycle: app.NewLifecycle(logger, emitter),
		agent:     agent,
		logger:    logger,
		plugins:   o.plugins,
	}, nil
}

// Start runs the relay in the background until ctx is canceled or Stop
// is called.
func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.lifecycle.CanStart() {
		return ErrAlreadyRunning
	}
	if err := r.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.lifecycle.SetCancel(cancel)

	pluginCfg := PluginConfig{
		CaptureDir: r.config.CaptureDir,
		Logger:     r.logger,
		Status:     statusReader{r},
	}
	for i, p := range r.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			r.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			cancel()
			r.shutdownPlugins(r.plugins[:i])
			_ = r.lifecycle.TransitionTo(app.StateCrashed, "plugin init failed: "+p.Name())
			return err
		}
		r.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}
	r.active = r.plugins

	done := make(chan struct{})
	r.done = done
	r.lifecycle.Go(func() {
		defer close(done)

		if err := r.lifecycle.TransitionTo(app.StateRunning, "agent starting"); err != nil {
			r.logger.Error("failed to transition to running", ports.Err(err))
			return
		}

		err := r.agent.Run(runCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("agent error", ports.Err(err))
			_ = r.lifecycle.TransitionTo(app.StateCrashed, err.Error())
		}
	})

	return nil
}

// Done returns a channel closed when the scheduling loop exits. In once
// mode this happens after the spool and the queue are drained. It returns
// nil before the first Start.
func (r *Relay) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Stop cancels the relay and waits for it to exit. It returns
// ErrShutdownTimeout if the scheduling loop does not finish in time.
//
// Stop on a crashed relay releases its plugins and leaves the state at
// StateCrashed. It returns ErrNotRunning only when nothing was started.
func (r *Relay) Stop() error {
	r.mu.Lock()
	if r.lifecycle.State() == app.StateCrashed {
		if r.cancel != nil {
			r.cancel()
		}
		r.mu.Unlock()
		err := r.lifecycle.WaitWithTimeout(app.ShutdownTimeout)
		r.shutdownPlugins(r.takeActive())
		return err
	}
	if !r.lifecycle.CanStop() {
		r.mu.Unlock()
		return ErrNotRunning
	}
	if err := r.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		r.mu.Unlock()
		return err
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()

	err := r.lifecycle.WaitWithTimeout(app.ShutdownTimeout)

	r.shutdownPlugins(r.takeActive())

	if err != nil {
		_ = r.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = r.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}
	return err
}

// takeActive hands the running plugins to the caller, at most once per Start.
func (r *Relay) takeActive() []Plugin {
	r.mu.Lock()
	defer r.mu.Unlock()
	active := r.active
	r.active = nil
	return active
}

// shutdownPlugins shuts plugins down in reverse order.
func (r *Relay) shutdownPlugins(plugins []Plugin) {
	ctx := context.Background()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			r.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			continue
		}
		r.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
	}
}

// Status returns the current lifecycle state. Safe for concurrent use.
func (r *Relay) Status() State {
	return convertState(r.lifecycle.State())
}

// Entries returns a snapshot of the retransmission queue in storage order.
func (r *Relay) Entries() []Entry {
	return r.agent.Queue().Entries()
}

// StatusReader returns the relay's read-only status view.
func (r *Relay) StatusReader() StatusReader {
	return statusReader{r}
}

type statusReader struct {
	r *Relay
}

func (s statusReader) State() string    { return s.r.Status().String() }
func (s statusReader) Entries() []Entry { return s.r.Entries() }
