package relay

import (
	"github.com/bft-labs/tpmsrelay/internal/app"
	"github.com/bft-labs/tpmsrelay/internal/domain"
)

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// ReadingDecodedEvent is emitted for every frame a decoder accepted.
// Queued is false when the queue was full and the reading was dropped.
type ReadingDecodedEvent struct {
	Reading Reading
	Queued  bool
}

// TransmittedEvent is emitted after each send attempt. Final is true when
// the entry has used its last retransmission and has been retired.
type TransmittedEvent struct {
	Entry Entry
	Final bool
	Error error
}

// EventHandler receives relay notifications. Methods are called
// synchronously from the scheduling goroutine and must return quickly.
type EventHandler interface {
	OnStateChange(StateChangeEvent)
	OnReadingDecoded(ReadingDecodedEvent)
	OnTransmitted(TransmittedEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to
// override only the events of interest.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)       {}
func (BaseEventHandler) OnReadingDecoded(ReadingDecodedEvent) {}
func (BaseEventHandler) OnTransmitted(TransmittedEvent)       {}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnReadingDecoded(r domain.Reading, queued bool) {
	if e.handler == nil {
		return
	}
	e.handler.OnReadingDecoded(ReadingDecodedEvent{Reading: r, Queued: queued})
}

func (e *eventEmitterWrapper) OnTransmitted(entry domain.Entry, final bool, err error) {
	if e.handler == nil {
		return
	}
	e.handler.OnTransmitted(TransmittedEvent{Entry: entry, Final: final, Error: err})
}
