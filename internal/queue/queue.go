// Package queue holds the most recent reading of each nearby sensor and
// schedules its retransmission.
package queue

import (
	"sync"
	"time"

	"github.com/bft-labs/tpmsrelay/internal/domain"
)

// Defaults for a queue sized to one vehicle plus neighbours.
const (
	DefaultCapacity           = 12
	DefaultMaxRetransmissions = 5
	DefaultInterval           = 30 * time.Second
)

// Queue is a fixed-capacity retransmission schedule keyed by sensor ID.
//
// Entries live in a contiguous arena in insertion order. NextDue scans that
// order and services the first due entry, so successive calls rotate
// through entries whose deadlines have passed. An entry serviced more than
// MaxRetransmissions times is removed after its final transmission.
//
// Queue is safe for concurrent use, though a single scheduling goroutine is
// expected to be the only mutator.
type Queue struct {
	mu       sync.Mutex
	slots    []domain.Entry
	size     int
	maxSends int
	interval time.Duration
}

// New creates an empty queue. Non-positive capacity and interval select the
// defaults, as does a negative maxRetransmissions. Zero retransmissions
// sends each reading once.
func New(capacity, maxRetransmissions int, interval time.Duration) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if maxRetransmissions < 0 {
		maxRetransmissions = DefaultMaxRetransmissions
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Queue{
		slots:    make([]domain.Entry, capacity),
		maxSends: maxRetransmissions,
		interval: interval,
	}
}

// AddOrUpdate schedules r for retransmission at now plus the interval.
// A reading for a sensor already queued replaces that entry's payload and
// restarts its count. It returns false if the sensor is new and the queue
// is full; the reading is not stored.
func (q *Queue) AddOrUpdate(r domain.Reading, now time.Time) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	e := q.find(r.SensorID)
	if e == nil {
		if q.size == len(q.slots) {
			return false
		}
		q.slots[q.size] = domain.NewEntry(r)
		e = &q.slots[q.size]
		q.size++
	} else {
		e.SetPayload(r)
	}
	e.RetransmitCount = 0
	e.NextSend = now.Add(q.interval)
	return true
}

// NextDue services the first entry, in storage order, whose send time is
// at or before now. The returned copy carries the incremented count and the
// rescheduled send time. It returns false if no entry is due.
func (q *Queue) NextDue(now time.Time) (domain.Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := 0; i < q.size; i++ {
		e := &q.slots[i]
		if e.NextSend.After(now) {
			continue
		}
		e.RetransmitCount++
		e.NextSend = now.Add(q.interval)
		out := *e
		if e.RetransmitCount > q.maxSends {
			q.removeAt(i)
		}
		return out, true
	}
	return domain.Entry{}, false
}

// Exhausted reports whether e, as returned by NextDue, was the entry's
// final transmission.
func (q *Queue) Exhausted(e domain.Entry) bool {
	return e.RetransmitCount > q.maxSends
}

// Size returns the number of queued sensors.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Capacity returns the maximum number of queued sensors.
func (q *Queue) Capacity() int {
	return len(q.slots)
}

// Entries returns a copy of the queued entries in storage order.
func (q *Queue) Entries() []domain.Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.Entry, q.size)
	copy(out, q.slots[:q.size])
	return out
}

func (q *Queue) find(id uint32) *domain.Entry {
	for i := 0; i < q.size; i++ {
		if q.slots[i].SensorID == id {
			return &q.slots[i]
		}
	}
	return nil
}

// removeAt shifts later entries down one slot.
func (q *Queue) removeAt(i int) {
	copy(q.slots[i:q.size], q.slots[i+1:q.size])
	q.size--
	q.slots[q.size] = domain.Entry{}
}
