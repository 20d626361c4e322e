package domain

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

const (
	// SyncWordSize is the number of zero bytes leading every outbound frame.
	SyncWordSize = 5

	// WireFrameSize is the total outbound frame length:
	// sync(5) flags(4) id(3) pressure(1) temperature(1) mic(1).
	WireFrameSize = 15
)

// WireFrame is the fixed-size buffer handed to the transport sender.
type WireFrame [WireFrameSize]byte

// Entry is a reading held by the retransmission queue.
type Entry struct {
	SensorID       uint32
	Flags          [4]byte
	PressureRaw    byte
	TemperatureRaw byte
	MIC            byte

	NextSend        time.Time
	RetransmitCount int
}

// NewEntry copies the payload fields of r into an unscheduled entry.
func NewEntry(r Reading) Entry {
	e := Entry{SensorID: r.SensorID}
	e.SetPayload(r)
	return e
}

// SetPayload overwrites the payload fields from r, leaving the schedule alone.
func (e *Entry) SetPayload(r Reading) {
	binary.BigEndian.PutUint32(e.Flags[:], r.Flags)
	e.PressureRaw = r.PressureRaw
	e.TemperatureRaw = r.TemperatureRaw
	e.MIC = r.MIC
}

// WireFrame encodes the entry for transmission. Only the low 24 bits of
// the sensor ID fit the frame.
func (e Entry) WireFrame() WireFrame {
	var w WireFrame
	copy(w[SyncWordSize:], e.Flags[:])
	w[9] = byte(e.SensorID >> 16)
	w[10] = byte(e.SensorID >> 8)
	w[11] = byte(e.SensorID)
	w[12] = e.PressureRaw
	w[13] = e.TemperatureRaw
	w[14] = e.MIC
	return w
}

// TelemetryLine renders "<hex id> | <seconds until next send> | <count>".
func (e Entry) TelemetryLine(now time.Time) string {
	secs := int64(math.Ceil(e.NextSend.Sub(now).Seconds()))
	return fmt.Sprintf("%06X | %d | %d", e.SensorID, secs, e.RetransmitCount)
}
