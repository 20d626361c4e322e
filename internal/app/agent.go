package app

import (
	"context"
	"errors"
	"time"

	"github.com/bft-labs/tpmsrelay/internal/bitframe"
	"github.com/bft-labs/tpmsrelay/internal/decoder"
	"github.com/bft-labs/tpmsrelay/internal/domain"
	"github.com/bft-labs/tpmsrelay/internal/ports"
	"github.com/bft-labs/tpmsrelay/internal/queue"
)

// DefaultTickInterval is how often the scheduling loop polls the queue.
const DefaultTickInterval = time.Second

// AgentConfig contains configuration for the scheduling loop.
type AgentConfig struct {
	// TickInterval is the period between NextDue polls. Each tick services
	// at most one entry.
	TickInterval time.Duration

	// Once stops the loop after the capture source is exhausted and the
	// queue has drained.
	Once bool

	BackoffInitial time.Duration
	BackoffMax     time.Duration

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// RelayEventEmitter is called from the scheduling goroutine as readings
// are decoded and entries transmitted.
type RelayEventEmitter interface {
	OnReadingDecoded(r domain.Reading, queued bool)
	OnTransmitted(e domain.Entry, final bool, err error)
}

// Agent is the single goroutine that decodes captured frames, owns the
// retransmission queue and drives the sender.
type Agent struct {
	config     AgentConfig
	source     ports.CaptureSource
	handoff    *Handoff
	dispatcher *decoder.Dispatcher
	queue      *queue.Queue
	sender     ports.Sender
	telemetry  ports.TelemetrySink
	metrics    ports.Metrics
	logger     ports.Logger
	emitter    RelayEventEmitter
	now        func() time.Time
}

// AgentDeps bundles the collaborators of an Agent. Telemetry, Metrics and
// Emitter are optional.
type AgentDeps struct {
	Source     ports.CaptureSource
	Handoff    *Handoff
	Dispatcher *decoder.Dispatcher
	Queue      *queue.Queue
	Sender     ports.Sender
	Telemetry  ports.TelemetrySink
	Metrics    ports.Metrics
	Logger     ports.Logger
	Emitter    RelayEventEmitter
}

// NewAgent creates an agent. The hand-off buffer must not be shared with
// another agent.
func NewAgent(config AgentConfig, deps AgentDeps) *Agent {
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	now := config.Clock
	if now == nil {
		now = time.Now
	}
	a := &Agent{
		config:     config,
		source:     deps.Source,
		handoff:    deps.Handoff,
		dispatcher: deps.Dispatcher,
		queue:      deps.Queue,
		sender:     deps.Sender,
		telemetry:  deps.Telemetry,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		emitter:    deps.Emitter,
		now:        now,
	}
	if a.telemetry == nil {
		a.telemetry = noopTelemetry{}
	}
	if a.metrics == nil {
		a.metrics = noopMetrics{}
	}
	if a.handoff == nil {
		a.handoff = NewHandoff(DefaultHandoffSize, a.metrics)
	}
	if a.dispatcher == nil {
		a.dispatcher = decoder.NewDispatcher()
	}
	if a.queue == nil {
		a.queue = queue.New(queue.DefaultCapacity, queue.DefaultMaxRetransmissions, queue.DefaultInterval)
	}
	return a
}

// Queue returns the queue owned by the agent.
func (a *Agent) Queue() *queue.Queue {
	return a.queue
}

// Run executes the scheduling loop until ctx is canceled, or in once mode
// until capture is exhausted and the queue is empty.
func (a *Agent) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	captureDone := make(chan struct{})
	go func() {
		defer close(captureDone)
		a.capture(ctx)
	}()
	defer func() {
		cancel()
		<-captureDone
	}()

	ticker := time.NewTicker(a.config.TickInterval)
	defer ticker.Stop()

	frames := a.handoff.Frames()
	exhausted := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case f, ok := <-frames:
			if !ok {
				frames = nil
				exhausted = true
				a.logger.Info("capture source exhausted", ports.Int("queued", a.queue.Size()))
				if a.config.Once && a.queue.Size() == 0 {
					return nil
				}
				continue
			}
			a.HandleFrame(ctx, f)

		case <-ticker.C:
			a.Tick(ctx)
			if a.config.Once && exhausted && a.queue.Size() == 0 {
				return nil
			}
		}
	}
}

// capture runs the source, restarting it with backoff on error. A source
// that returns nil is finished and closes the hand-off.
func (a *Agent) capture(ctx context.Context) {
	bo := newBackoff(a.config.BackoffInitial, a.config.BackoffMax)
	for {
		err := a.source.Run(ctx, a.handoff)
		if err == nil {
			a.handoff.Close()
			return
		}
		if ctx.Err() != nil {
			return
		}
		a.logger.Error("capture failed",
			ports.Err(err),
			ports.Duration("retry_in", bo.Current()),
		)
		if bo.Wait(ctx) != nil {
			return
		}
	}
}

// HandleFrame decodes one frame and queues the reading on a match.
func (a *Agent) HandleFrame(ctx context.Context, f *bitframe.Frame) {
	out := a.dispatcher.Dispatch(f)
	for _, failure := range out.Failures {
		a.metrics.DecodeFailed(failure.Variant, failure.Kind.String())
	}

	if !out.Matched {
		a.metrics.FrameUnmatched()
		if len(out.Failures) > 0 {
			a.logger.Debug("no decoder matched",
				ports.Int("bits", f.Len()),
				ports.Err(errors.Join(failureErrs(out.Failures)...)),
			)
		}
		return
	}

	r := out.Reading
	a.metrics.FrameDecoded(r.Variant)
	a.logger.Info("reading decoded",
		ports.String("model", r.Variant.Model()),
		ports.String("id", r.IDString()),
		ports.Float64("pressure_kpa", r.PressureKPa()),
		ports.Int("flags", int(r.Flags)),
		ports.String("integrity", r.Integrity.String()),
	)
	if r.Variant == domain.VariantManchester && r.Parity != r.MIC {
		a.logger.Debug("manchester check mismatch",
			ports.Int("check", int(r.MIC)),
			ports.Int("parity", int(r.Parity)),
		)
	}
	a.telemetry.Reading(ctx, r)

	queued := a.queue.AddOrUpdate(r, a.now())
	if queued {
		a.metrics.QueueUpserted()
	} else {
		a.metrics.QueueFull()
		a.logger.Warn("retransmission queue full, reading dropped",
			ports.Hex32("sensor_id", r.SensorID),
			ports.Int("capacity", a.queue.Capacity()),
		)
	}
	a.metrics.QueueSize(a.queue.Size())

	if a.emitter != nil {
		a.emitter.OnReadingDecoded(r, queued)
	}
}

// Tick services at most one due entry.
func (a *Agent) Tick(ctx context.Context) {
	now := a.now()
	e, ok := a.queue.NextDue(now)
	if !ok {
		return
	}
	final := a.queue.Exhausted(e)

	wire := e.WireFrame()
	err := a.sender.Send(ctx, wire)
	a.metrics.Transmitted(err == nil)
	if err != nil {
		a.logger.Error("transmit failed",
			ports.Err(err),
			ports.Hex32("sensor_id", e.SensorID),
		)
	} else {
		a.logger.Debug("transmitted",
			ports.Hex32("sensor_id", e.SensorID),
			ports.Int("count", e.RetransmitCount),
			ports.Hex("frame", wire[:]),
		)
	}

	if final {
		a.metrics.Evicted()
		a.logger.Debug("entry retired", ports.Hex32("sensor_id", e.SensorID))
	}
	a.metrics.QueueSize(a.queue.Size())

	a.telemetry.Line(ctx, e.TelemetryLine(now))

	if a.emitter != nil {
		a.emitter.OnTransmitted(e, final, err)
	}
}

func failureErrs(fs []*decoder.Failure) []error {
	errs := make([]error, len(fs))
	for i, f := range fs {
		errs[i] = f
	}
	return errs
}
