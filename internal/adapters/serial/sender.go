// Package serial transmits wire frames through a serial-attached OOK
// transmitter bridge.
package serial

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"

	"github.com/bft-labs/tpmsrelay/internal/domain"
	"github.com/bft-labs/tpmsrelay/internal/ports"
)

// DefaultBaudRate matches the transmitter bridge firmware.
const DefaultBaudRate = 115200

// port is the subset of serial.Port the sender uses.
type port interface {
	io.WriteCloser
	Drain() error
}

type openFunc func(name string, mode *serial.Mode) (port, error)

func openSerial(name string, mode *serial.Mode) (port, error) {
	return serial.Open(name, mode)
}

// Sender writes each wire frame to the bridge as one 15-byte write. The
// port is opened lazily and reopened after a write error.
type Sender struct {
	mu     sync.Mutex
	name   string
	mode   *serial.Mode
	open   openFunc
	port   port
	logger ports.Logger
}

// NewSender creates a sender for the named port, e.g. /dev/ttyUSB0.
func NewSender(name string, baud int, logger ports.Logger) *Sender {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	return &Sender{
		name: name,
		mode: &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
		open:   openSerial,
		logger: logger,
	}
}

// Send implements ports.Sender.
func (s *Sender) Send(ctx context.Context, frame domain.WireFrame) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		p, err := s.open(s.name, s.mode)
		if err != nil {
			return fmt.Errorf("open serial %s: %w", s.name, err)
		}
		s.port = p
		s.logger.Info("transmitter port opened",
			ports.String("port", s.name),
			ports.Int("baud", s.mode.BaudRate),
		)
	}

	n, err := s.port.Write(frame[:])
	if err == nil && n != len(frame) {
		err = io.ErrShortWrite
	}
	if err == nil {
		err = s.port.Drain()
	}
	if err != nil {
		_ = s.port.Close()
		s.port = nil
		return fmt.Errorf("write serial %s: %w", s.name, err)
	}
	return nil
}

// Close releases the port.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

// ListPorts returns the serial ports present on the system.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}

// LogSender is a dry-run sender that logs each frame instead of sending it.
type LogSender struct {
	logger ports.Logger
}

// NewLogSender creates a dry-run sender.
func NewLogSender(logger ports.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send implements ports.Sender.
func (l *LogSender) Send(ctx context.Context, frame domain.WireFrame) error {
	l.logger.Info("dry-run transmit", ports.Hex("frame", frame[:]))
	return nil
}

var (
	_ ports.Sender = (*Sender)(nil)
	_ ports.Sender = (*LogSender)(nil)
)
