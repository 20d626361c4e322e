package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/tpmsrelay/internal/bitframe"
	"github.com/bft-labs/tpmsrelay/internal/domain"
	"github.com/bft-labs/tpmsrelay/internal/ports"
	"github.com/bft-labs/tpmsrelay/internal/queue"
)

const (
	classicRow      = "{68}7f6703a38b20049490"
	manchesterRow   = "{110}f5555555e559695a95595a99a658"
	classicSensorID = 0x3a38b2
)

func mustRow(t *testing.T, row string) *bitframe.Frame {
	t.Helper()
	f, err := bitframe.ParseRow(row)
	if err != nil {
		t.Fatalf("ParseRow(%q) error = %v", row, err)
	}
	return f
}

// recordingSender records every wire frame and can be told to fail.
type recordingSender struct {
	mu     sync.Mutex
	frames []domain.WireFrame
	err    error
}

func (s *recordingSender) Send(ctx context.Context, f domain.WireFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
	return s.err
}

func (s *recordingSender) Frames() []domain.WireFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.WireFrame{}, s.frames...)
}

type recordingTelemetry struct {
	mu       sync.Mutex
	readings []domain.Reading
	lines    []string
}

func (r *recordingTelemetry) Reading(ctx context.Context, rd domain.Reading) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readings = append(r.readings, rd)
}

func (r *recordingTelemetry) Line(ctx context.Context, line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
}

// countingMetrics counts calls by name.
type countingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (m *countingMetrics) inc(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.counts[name]++
}

func (m *countingMetrics) get(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[name]
}

func (m *countingMetrics) FrameDecoded(v domain.Variant)            { m.inc("decoded:" + v.String()) }
func (m *countingMetrics) DecodeFailed(v domain.Variant, k string) { m.inc("failed:" + k) }
func (m *countingMetrics) FrameUnmatched()                         { m.inc("unmatched") }
func (m *countingMetrics) CaptureDropped()                         { m.inc("dropped") }
func (m *countingMetrics) QueueUpserted()                          { m.inc("upserted") }
func (m *countingMetrics) QueueFull()                              { m.inc("full") }
func (m *countingMetrics) QueueSize(int)                           {}
func (m *countingMetrics) Evicted()                                { m.inc("evicted") }
func (m *countingMetrics) Transmitted(ok bool) {
	if ok {
		m.inc("sent")
	} else {
		m.inc("send_failed")
	}
}

type recordingEmitter struct {
	mu          sync.Mutex
	decoded     []bool
	transmitted []domain.Entry
	finals      int
}

func (e *recordingEmitter) OnReadingDecoded(r domain.Reading, queued bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.decoded = append(e.decoded, queued)
}

func (e *recordingEmitter) OnTransmitted(en domain.Entry, final bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.transmitted = append(e.transmitted, en)
	if final {
		e.finals++
	}
}

// sliceSource puts its frames once and then reports exhaustion. The
// first failures calls return errBoom.
type sliceSource struct {
	mu       sync.Mutex
	frames   []*bitframe.Frame
	failures int
	calls    int
}

var errBoom = errors.New("receiver unplugged")

func (s *sliceSource) Run(ctx context.Context, sink ports.FrameSink) error {
	s.mu.Lock()
	s.calls++
	fail := s.calls <= s.failures
	s.mu.Unlock()
	if fail {
		return errBoom
	}
	for _, f := range s.frames {
		if err := sink.Put(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// blockingSource delivers nothing until canceled.
type blockingSource struct{}

func (blockingSource) Run(ctx context.Context, sink ports.FrameSink) error {
	<-ctx.Done()
	return ctx.Err()
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestAgent_DecodeQueueTransmit(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	sender := &recordingSender{}
	telemetry := &recordingTelemetry{}
	metrics := &countingMetrics{}

	a := NewAgent(AgentConfig{Clock: clock.Now}, AgentDeps{
		Queue:     queue.New(12, 2, 30*time.Second),
		Sender:    sender,
		Telemetry: telemetry,
		Metrics:   metrics,
		Logger:    &mockLogger{},
	})
	ctx := context.Background()

	a.HandleFrame(ctx, mustRow(t, classicRow))
	if a.Queue().Size() != 1 {
		t.Fatalf("queue size = %d, want 1", a.Queue().Size())
	}
	if len(telemetry.readings) != 1 || telemetry.readings[0].SensorID != classicSensorID {
		t.Fatalf("telemetry readings = %+v", telemetry.readings)
	}

	a.Tick(ctx)
	if len(sender.Frames()) != 0 {
		t.Fatal("sent before the retransmission interval elapsed")
	}

	clock.Advance(30 * time.Second)
	a.Tick(ctx)

	frames := sender.Frames()
	if len(frames) != 1 {
		t.Fatalf("sent %d frames, want 1", len(frames))
	}
	want := domain.WireFrame{0, 0, 0, 0, 0, 0, 0, 0, 0x67, 0x3a, 0x38, 0xb2, 0x00, 0x49, 0x49}
	if frames[0] != want {
		t.Errorf("wire frame = % x, want % x", frames[0], want)
	}
	if len(telemetry.lines) != 1 || telemetry.lines[0] != "3A38B2 | 30 | 1" {
		t.Errorf("telemetry lines = %q, want [\"3A38B2 | 30 | 1\"]", telemetry.lines)
	}
	if metrics.get("decoded:classic") != 1 || metrics.get("sent") != 1 {
		t.Errorf("metrics = %v", metrics.counts)
	}
}

func TestAgent_RetiresAfterMaxRetransmissions(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	sender := &recordingSender{}
	metrics := &countingMetrics{}
	emitter := &recordingEmitter{}

	a := NewAgent(AgentConfig{Clock: clock.Now}, AgentDeps{
		Queue:   queue.New(12, 2, 30*time.Second),
		Sender:  sender,
		Metrics: metrics,
		Logger:  &mockLogger{},
		Emitter: emitter,
	})
	ctx := context.Background()

	a.HandleFrame(ctx, mustRow(t, classicRow))
	for i := 0; i < 4; i++ {
		clock.Advance(30 * time.Second)
		a.Tick(ctx)
	}

	if got := len(sender.Frames()); got != 3 {
		t.Errorf("sent %d frames, want 3", got)
	}
	if a.Queue().Size() != 0 {
		t.Errorf("queue size = %d, want 0", a.Queue().Size())
	}
	if metrics.get("evicted") != 1 || emitter.finals != 1 {
		t.Errorf("evicted = %d, finals = %d, want 1, 1", metrics.get("evicted"), emitter.finals)
	}
	for i, e := range emitter.transmitted {
		if e.RetransmitCount != i+1 {
			t.Errorf("transmission %d count = %d, want %d", i, e.RetransmitCount, i+1)
		}
	}
}

func TestAgent_QueueFull(t *testing.T) {
	metrics := &countingMetrics{}
	emitter := &recordingEmitter{}

	a := NewAgent(AgentConfig{}, AgentDeps{
		Queue:   queue.New(1, 2, 30*time.Second),
		Sender:  &recordingSender{},
		Metrics: metrics,
		Logger:  &mockLogger{},
		Emitter: emitter,
	})
	ctx := context.Background()

	a.HandleFrame(ctx, mustRow(t, classicRow))
	a.HandleFrame(ctx, mustRow(t, manchesterRow))

	if len(emitter.decoded) != 2 || !emitter.decoded[0] || emitter.decoded[1] {
		t.Errorf("queued flags = %v, want [true false]", emitter.decoded)
	}
	if metrics.get("full") != 1 {
		t.Errorf("full = %d, want 1", metrics.get("full"))
	}
}

func TestAgent_UnmatchedFrame(t *testing.T) {
	metrics := &countingMetrics{}
	a := NewAgent(AgentConfig{}, AgentDeps{
		Sender:  &recordingSender{},
		Metrics: metrics,
		Logger:  &mockLogger{},
	})

	a.HandleFrame(context.Background(), bitframe.MustNew([]byte{0xde, 0xad}, 16))

	if a.Queue().Size() != 0 {
		t.Errorf("queue size = %d, want 0", a.Queue().Size())
	}
	if metrics.get("unmatched") != 1 || metrics.get("failed:ABORT_LENGTH") != 3 {
		t.Errorf("metrics = %v", metrics.counts)
	}
}

func TestAgent_SendFailureNotRetried(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	sender := &recordingSender{err: errors.New("tx busy")}
	metrics := &countingMetrics{}

	a := NewAgent(AgentConfig{Clock: clock.Now}, AgentDeps{
		Queue:   queue.New(12, 5, 30*time.Second),
		Sender:  sender,
		Metrics: metrics,
		Logger:  &mockLogger{},
	})
	ctx := context.Background()

	a.HandleFrame(ctx, mustRow(t, classicRow))
	clock.Advance(30 * time.Second)
	a.Tick(ctx)
	a.Tick(ctx)

	if got := len(sender.Frames()); got != 1 {
		t.Errorf("send attempts = %d, want 1", got)
	}
	if metrics.get("send_failed") != 1 {
		t.Errorf("send_failed = %d, want 1", metrics.get("send_failed"))
	}
	if e := a.Queue().Entries()[0]; e.RetransmitCount != 1 {
		t.Errorf("RetransmitCount = %d, want 1", e.RetransmitCount)
	}
}

func TestAgent_RunOnce(t *testing.T) {
	source := &sliceSource{
		frames:   []*bitframe.Frame{mustRow(t, classicRow), bitframe.MustNew([]byte{0xff}, 8)},
		failures: 1,
	}
	sender := &recordingSender{}

	a := NewAgent(AgentConfig{
		TickInterval:   time.Millisecond,
		Once:           true,
		BackoffInitial: time.Millisecond,
		BackoffMax:     time.Millisecond,
	}, AgentDeps{
		Source: source,
		Queue:  queue.New(12, 1, 5*time.Millisecond),
		Sender: sender,
		Logger: &mockLogger{},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if source.calls != 2 {
		t.Errorf("source calls = %d, want 2", source.calls)
	}
	if got := len(sender.Frames()); got != 2 {
		t.Errorf("sent %d frames, want 2", got)
	}
	if a.Queue().Size() != 0 {
		t.Errorf("queue size = %d, want 0", a.Queue().Size())
	}
}

func TestAgent_RunOnceDeliversPastHandoffSize(t *testing.T) {
	const n = 100
	frames := make([]*bitframe.Frame, n)
	for i := range frames {
		frames[i] = mustRow(t, classicRow)
	}
	metrics := &countingMetrics{}
	emitter := &recordingEmitter{}

	a := NewAgent(AgentConfig{
		TickInterval: time.Millisecond,
		Once:         true,
	}, AgentDeps{
		Source:  &sliceSource{frames: frames},
		Handoff: NewHandoff(2, metrics),
		Queue:   queue.New(12, 0, time.Millisecond),
		Sender:  &recordingSender{},
		Metrics: metrics,
		Logger:  &mockLogger{},
		Emitter: emitter,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if got := metrics.get("decoded:classic"); got != n {
		t.Errorf("decoded = %d, want %d", got, n)
	}
	if got := metrics.get("dropped"); got != 0 {
		t.Errorf("dropped = %d, want 0", got)
	}
	if len(emitter.decoded) != n {
		t.Errorf("decoded events = %d, want %d", len(emitter.decoded), n)
	}
}

func TestAgent_RunCanceled(t *testing.T) {
	a := NewAgent(AgentConfig{TickInterval: time.Millisecond}, AgentDeps{
		Source: blockingSource{},
		Sender: &recordingSender{},
		Logger: &mockLogger{},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestHandoff_DropsWhenFull(t *testing.T) {
	metrics := &countingMetrics{}
	h := NewHandoff(1, metrics)
	f := bitframe.MustNew([]byte{0xff}, 8)

	if !h.Offer(f) {
		t.Fatal("first Offer() = false")
	}
	if h.Offer(f) {
		t.Error("Offer() on a full hand-off = true")
	}
	if h.Dropped() != 1 || metrics.get("dropped") != 1 {
		t.Errorf("dropped = %d (metric %d), want 1", h.Dropped(), metrics.get("dropped"))
	}

	h.Close()
	h.Close()
	if got, ok := <-h.Frames(); !ok || got != f {
		t.Error("buffered frame lost on Close")
	}
	if _, ok := <-h.Frames(); ok {
		t.Error("Frames() still open after Close")
	}
}

func TestHandoff_PutWaitsForRoom(t *testing.T) {
	metrics := &countingMetrics{}
	h := NewHandoff(1, metrics)
	f := bitframe.MustNew([]byte{0xff}, 8)

	if err := h.Put(context.Background(), f); err != nil {
		t.Fatalf("first Put() = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := h.Put(ctx, f); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Put() on a full hand-off = %v, want DeadlineExceeded", err)
	}
	if h.Dropped() != 0 || metrics.get("dropped") != 0 {
		t.Errorf("dropped = %d (metric %d), want 0", h.Dropped(), metrics.get("dropped"))
	}

	done := make(chan error, 1)
	go func() { done <- h.Put(context.Background(), f) }()
	<-h.Frames()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Put() after a receive = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Put() still blocked after the buffer drained")
	}
}

func TestBackoff_WaitDoublesAndCaps(t *testing.T) {
	b := newBackoff(time.Millisecond, 3*time.Millisecond)

	for _, want := range []time.Duration{2, 3, 3} {
		if err := b.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() = %v", err)
		}
		if b.Current() != want*time.Millisecond {
			t.Errorf("Current() = %v, want %v", b.Current(), want*time.Millisecond)
		}
	}

	b.Reset()
	if b.Current() != time.Millisecond {
		t.Errorf("Current() after Reset = %v, want 1ms", b.Current())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b = newBackoff(time.Hour, time.Hour)
	if err := b.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() on canceled ctx = %v, want context.Canceled", err)
	}
}
