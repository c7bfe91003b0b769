// Package queue implements the per-device event pipeline: a bounded FIFO
// of pending host events and the runner that pairs them with guest buffers.
package queue

import (
	"sync"

	"github.com/ehrlich-b/go-vinput/internal/uapi"
)

// DefaultCapacity is the pending-event capacity used when none is given.
const DefaultCapacity = 256

// QueueError is a sentinel error for queue conditions.
type QueueError string

func (e QueueError) Error() string {
	return string(e)
}

// ErrFull reports that the pending queue is saturated. The rejected events
// were not recorded; the caller may retry once the guest drains buffers.
const ErrFull QueueError = "event queue full"

// Events is a bounded FIFO of pending host events. Producers are the
// injection API, the consumer is the Runner. All operations take the lock
// only for the enqueue/dequeue itself, never across guest-memory I/O.
type Events struct {
	mu    sync.Mutex
	buf   []uapi.InputEvent
	head  int
	count int
}

// NewEvents returns a queue with the given capacity (DefaultCapacity if
// non-positive).
func NewEvents(capacity int) *Events {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Events{buf: make([]uapi.InputEvent, capacity)}
}

// Cap returns the queue capacity.
func (e *Events) Cap() int {
	return len(e.buf)
}

// Len returns the number of pending events.
func (e *Events) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}

// Push appends one event. On saturation it fails with ErrFull and records
// nothing; saturating a bounded queue is caller-retriable backpressure,
// never a silent drop.
func (e *Events) Push(ev uapi.InputEvent) error {
	return e.PushBatch(ev)
}

// PushBatch appends a logically related group of events atomically: either
// every event fits in push order, or nothing is enqueued and ErrFull is
// returned. This keeps a group's sync terminator from being split from its
// events by saturation.
func (e *Events) PushBatch(evs ...uapi.InputEvent) error {
	if len(evs) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.count+len(evs) > len(e.buf) {
		return ErrFull
	}
	for _, ev := range evs {
		e.buf[(e.head+e.count)%len(e.buf)] = ev
		e.count++
	}
	return nil
}

// Peek returns the oldest pending event without consuming it.
func (e *Events) Peek() (uapi.InputEvent, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.count == 0 {
		return uapi.InputEvent{}, false
	}
	return e.buf[e.head], true
}

// Pop consumes the oldest pending event.
func (e *Events) Pop() (uapi.InputEvent, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.count == 0 {
		return uapi.InputEvent{}, false
	}
	ev := e.buf[e.head]
	e.head = (e.head + 1) % len(e.buf)
	e.count--
	return ev, true
}

// Clear discards all pending events.
func (e *Events) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.head = 0
	e.count = 0
}
