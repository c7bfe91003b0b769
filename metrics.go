package vinput

import (
	"sync/atomic"
	"time"

	"github.com/ehrlich-b/go-vinput/internal/uapi"
)

// Metrics collects device counters using atomics so the injection path and
// the drainer goroutine never contend on a lock.
type Metrics struct {
	// Ingestion side, by event class
	keysPushed  atomic.Uint64
	relsPushed  atomic.Uint64
	synsPushed  atomic.Uint64
	otherPushed atomic.Uint64

	queueFullRejections atomic.Uint64

	// Delivery side
	delivered  atomic.Uint64
	badBuffers atomic.Uint64
	interrupts atomic.Uint64

	resets atomic.Uint64

	startTime atomic.Int64 // unix nanos
}

// NewMetrics creates a metrics instance with the clock started.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.startTime.Store(time.Now().UnixNano())
	return m
}

func (m *Metrics) recordPush(evType uint16) {
	switch evType {
	case uapi.EvKey:
		m.keysPushed.Add(1)
	case uapi.EvRel:
		m.relsPushed.Add(1)
	case uapi.EvSyn:
		m.synsPushed.Add(1)
	default:
		m.otherPushed.Add(1)
	}
}

// Snapshot is a point-in-time copy of all counters plus derived rates.
type Snapshot struct {
	KeysPushed  uint64
	RelsPushed  uint64
	SynsPushed  uint64
	OtherPushed uint64
	TotalPushed uint64

	QueueFullRejections uint64

	Delivered  uint64
	BadBuffers uint64
	Interrupts uint64
	Resets     uint64

	// EventsPerInterrupt measures delivery coalescing (0 if no interrupt
	// has fired yet)
	EventsPerInterrupt float64

	Uptime time.Duration
}

// Snapshot returns the current counter values. Counters are read
// individually, so a snapshot taken mid-delivery may be internally skewed
// by a few events; it is meant for reporting, not accounting.
func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		KeysPushed:          m.keysPushed.Load(),
		RelsPushed:          m.relsPushed.Load(),
		SynsPushed:          m.synsPushed.Load(),
		OtherPushed:         m.otherPushed.Load(),
		QueueFullRejections: m.queueFullRejections.Load(),
		Delivered:           m.delivered.Load(),
		BadBuffers:          m.badBuffers.Load(),
		Interrupts:          m.interrupts.Load(),
		Resets:              m.resets.Load(),
		Uptime:              time.Duration(time.Now().UnixNano() - m.startTime.Load()),
	}
	s.TotalPushed = s.KeysPushed + s.RelsPushed + s.SynsPushed + s.OtherPushed
	if s.Interrupts > 0 {
		s.EventsPerInterrupt = float64(s.Delivered) / float64(s.Interrupts)
	}
	return s
}

// Observer receives notifications for device events. Implementations must
// be safe for concurrent use; callbacks fire on both the injection path and
// the drainer goroutine.
type Observer interface {
	// ObservePush fires for each event accepted into the ingestion queue.
	ObservePush(evType uint16)

	// ObserveQueueFull fires when an injection is rejected for backpressure.
	ObserveQueueFull()

	// ObserveDelivered fires for each event written into a guest buffer.
	ObserveDelivered(evType uint16)

	// ObserveBadBuffer fires when a defective guest buffer is consumed
	// with an error completion.
	ObserveBadBuffer()

	// ObserveInterrupt fires once per drain pass that completed buffers.
	ObserveInterrupt()

	// ObserveReset fires when the device is reset.
	ObserveReset()
}

// NoOpObserver discards all notifications.
type NoOpObserver struct{}

func (NoOpObserver) ObservePush(uint16)      {}
func (NoOpObserver) ObserveQueueFull()       {}
func (NoOpObserver) ObserveDelivered(uint16) {}
func (NoOpObserver) ObserveBadBuffer()       {}
func (NoOpObserver) ObserveInterrupt()       {}
func (NoOpObserver) ObserveReset()           {}

// MetricsObserver feeds notifications into a Metrics instance.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver wraps a Metrics instance as an Observer.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObservePush(evType uint16) {
	o.metrics.recordPush(evType)
}

func (o *MetricsObserver) ObserveQueueFull() {
	o.metrics.queueFullRejections.Add(1)
}

func (o *MetricsObserver) ObserveDelivered(uint16) {
	o.metrics.delivered.Add(1)
}

func (o *MetricsObserver) ObserveBadBuffer() {
	o.metrics.badBuffers.Add(1)
}

func (o *MetricsObserver) ObserveInterrupt() {
	o.metrics.interrupts.Add(1)
}

func (o *MetricsObserver) ObserveReset() {
	o.metrics.resets.Add(1)
}
