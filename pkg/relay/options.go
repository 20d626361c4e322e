package relay

import (
	"github.com/bft-labs/tpmsrelay/internal/bitframe"
	"github.com/bft-labs/tpmsrelay/internal/domain"
	"github.com/bft-labs/tpmsrelay/internal/ports"
	"github.com/bft-labs/tpmsrelay/pkg/log"
)

// Re-exported types so embedders can implement the relay's collaborators.
type (
	Logger   = log.Logger
	LogField = log.Field

	Frame     = bitframe.Frame
	Reading   = domain.Reading
	Entry     = domain.Entry
	Variant   = domain.Variant
	WireFrame = domain.WireFrame

	// Sender transmits one wire frame.
	Sender = ports.Sender

	// TelemetrySink receives decoded readings and per-send status lines.
	TelemetrySink = ports.TelemetrySink

	// CaptureSource produces bit frames.
	CaptureSource = ports.CaptureSource

	// FrameSink is the hand-off a CaptureSource delivers to: Offer for live
	// capture, Put for finite replays.
	FrameSink = ports.FrameSink

	// Metrics records relay activity.
	Metrics = ports.Metrics
)

// Option configures optional behavior of a Relay.
type Option func(*options)

type options struct {
	logger       Logger
	sender       Sender
	telemetry    TelemetrySink
	source       CaptureSource
	metrics      Metrics
	eventHandler EventHandler
	plugins      []Plugin
}

// WithLogger sets the structured logger. The default discards output.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSender sets the transmitter. The default logs each frame instead
// of sending it.
func WithSender(sender Sender) Option {
	return func(o *options) {
		o.sender = sender
	}
}

// WithTelemetry sets where decoded readings and status lines are published.
func WithTelemetry(sink TelemetrySink) Option {
	return func(o *options) {
		o.telemetry = sink
	}
}

// WithCaptureSource replaces the spool directory reader.
func WithCaptureSource(source CaptureSource) Option {
	return func(o *options) {
		o.source = source
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithEventHandler sets a handler for relay events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when the relay starts.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}
