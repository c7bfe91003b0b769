package vinput

import (
	"context"
	"sync"

	"github.com/ehrlich-b/go-vinput/internal/descriptor"
	"github.com/ehrlich-b/go-vinput/internal/logging"
	"github.com/ehrlich-b/go-vinput/internal/queue"
	"github.com/ehrlich-b/go-vinput/internal/uapi"
	"github.com/ehrlich-b/go-vinput/internal/vring"
)

// DeviceState tracks where a device is in its negotiation lifecycle.
type DeviceState int

const (
	// StateUninitialized is the post-construction and post-reset state.
	StateUninitialized DeviceState = iota
	// StateFeaturesNegotiated means the feature bits have been agreed.
	StateFeaturesNegotiated
	// StateQueueBound means the event queue rings have been bound.
	StateQueueBound
	// StateRunning means the drainer is live and events flow to the guest.
	StateRunning
	// StateStopped is the terminal state after Close.
	StateStopped
)

func (s DeviceState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateFeaturesNegotiated:
		return "features-negotiated"
	case StateQueueBound:
		return "queue-bound"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// EventQueueIndex is the only legal queue index for BindQueue.
const EventQueueIndex = uapi.EventQueueIndex

// DefaultPendingCapacity is the default size of the ingestion queue.
const DefaultPendingCapacity = queue.DefaultCapacity

// Options contains optional knobs for device construction.
type Options struct {
	// Logger for debug/info messages (if nil, the package default is used)
	Logger Logger

	// Observer for metrics collection (if nil, the device's own Metrics
	// instance collects via a MetricsObserver)
	Observer Observer

	// PendingCapacity bounds the ingestion queue (DefaultPendingCapacity
	// if non-positive)
	PendingCapacity int
}

// Device is one paravirtualized input device instance. The keyboard and
// mouse variants are structurally identical and differ only in their
// capability tables; two instances share no state and no locks.
type Device struct {
	name  string
	table *descriptor.Table

	mem      GuestMemory
	irq      InterruptLine
	logger   Logger
	observer Observer
	metrics  *Metrics

	mu         sync.Mutex
	state      DeviceState
	negotiated bool
	bound      bool
	acked      uint64
	cfg        uapi.ConfigSpace
	events     *queue.Events
	ring       *vring.Ring
	runner     *queue.Runner
}

// availFeatures is the feature set every input device offers: the baseline
// virtio 1.0 protocol-version bit.
const availFeatures = uint64(1) << uapi.VirtioFVersion1

// New constructs a device by variant name ("keyboard" or "mouse"); this is
// the entry point the integration layer uses.
func New(name string, mem GuestMemory, irq InterruptLine, options *Options) (*Device, error) {
	switch name {
	case "keyboard":
		return NewKeyboard(mem, irq, options)
	case "mouse":
		return NewMouse(mem, irq, options)
	default:
		return nil, NewError("NEW_DEVICE", ErrCodeInvalidArgument, "unknown device variant: "+name)
	}
}

// NewKeyboard constructs the keyboard variant.
func NewKeyboard(mem GuestMemory, irq InterruptLine, options *Options) (*Device, error) {
	return newDevice(descriptor.Keyboard(), mem, irq, options)
}

// NewMouse constructs the mouse variant.
func NewMouse(mem GuestMemory, irq InterruptLine, options *Options) (*Device, error) {
	return newDevice(descriptor.Mouse(), mem, irq, options)
}

func newDevice(table *descriptor.Table, mem GuestMemory, irq InterruptLine, options *Options) (*Device, error) {
	if mem == nil || irq == nil {
		return nil, NewError("NEW_DEVICE", ErrCodeInvalidArgument, "guest memory and interrupt line are required")
	}

	if options == nil {
		options = &Options{}
	}

	metrics := NewMetrics()
	observer := options.Observer
	if observer == nil {
		observer = NewMetricsObserver(metrics)
	}

	logger := options.Logger
	if logger == nil {
		logger = logging.Default().WithDevice(table.Name)
	}

	return &Device{
		name:     table.Name,
		table:    table,
		mem:      mem,
		irq:      irq,
		logger:   logger,
		observer: observer,
		metrics:  metrics,
		state:    StateUninitialized,
		events:   queue.NewEvents(options.PendingCapacity),
	}, nil
}

// Name returns the device name ("virtio-keyboard" or "virtio-mouse").
func (d *Device) Name() string {
	return d.name
}

// State returns the current lifecycle state.
func (d *Device) State() DeviceState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// AckedFeatures returns the feature bits accepted during negotiation.
func (d *Device) AckedFeatures() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acked
}

// Pending returns the number of events waiting for guest buffers.
func (d *Device) Pending() int {
	return d.events.Len()
}

// Metrics returns the device's metrics instance.
func (d *Device) Metrics() *Metrics {
	return d.metrics
}

// Supports reports whether this device may emit the given event code.
func (d *Device) Supports(evType, code uint16) bool {
	return d.table.Supports(evType, code)
}

// NegotiateFeatures intersects the guest-offered feature bits with the
// device's supported set and records the result. The return value never
// contains a bit the guest did not offer; the protocol-version bit is kept
// whenever offered.
func (d *Device) NegotiateFeatures(offered uint64) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	accepted := offered & availFeatures
	d.acked = accepted
	d.negotiated = true
	if d.state == StateUninitialized {
		d.state = StateFeaturesNegotiated
	}

	d.logger.Debugf("%s: negotiated features offered=%#x accepted=%#x", d.name, offered, accepted)
	return accepted
}

// BindQueue binds the event queue rings. Only EventQueueIndex is legal;
// any other index fails without mutating state. Size is the queue size the
// transport negotiated with the guest.
func (d *Device) BindQueue(index int, size uint16, descAddr, availAddr, usedAddr uint64) error {
	if index != EventQueueIndex {
		return NewQueueError("BIND_QUEUE", d.name, index, ErrCodeInvalidQueue, "only the event queue (index 0) exists")
	}

	ring, err := vring.New(d.mem, size, descAddr, availAddr, usedAddr)
	if err != nil {
		return &Error{
			Op:     "BIND_QUEUE",
			Device: d.name,
			Queue:  index,
			Code:   ErrCodeInvalidArgument,
			Errno:  codeToErrno(ErrCodeInvalidArgument),
			Msg:    err.Error(),
			Inner:  err,
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.ring = ring
	d.bound = true
	if d.negotiated && d.state == StateFeaturesNegotiated {
		d.state = StateQueueBound
	}

	d.logger.Debugf("%s: bound eventq size=%d desc=%#x avail=%#x used=%#x",
		d.name, size, descAddr, availAddr, usedAddr)
	return nil
}

// ReadConfig resolves one configuration field addressed by (select,
// subselect). Unknown selectors yield the defined empty response, never an
// error; the only failure is asking an uninitialized or stopped device.
func (d *Device) ReadConfig(sel, subsel uint8) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateUninitialized || d.state == StateStopped {
		return nil, NewDeviceError("READ_CONFIG", d.name, ErrCodeNotReady, "device has not negotiated features")
	}

	cfg := d.table.Resolve(sel, subsel)
	out := make([]byte, cfg.Size)
	copy(out, cfg.Payload[:cfg.Size])
	return out, nil
}

// WriteConfigSelect is the offset-0 config-space write path: the guest
// stores (select, subselect) and the device latches the resolved response
// for subsequent ReadConfigAt calls.
func (d *Device) WriteConfigSelect(sel, subsel uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateUninitialized || d.state == StateStopped {
		return NewDeviceError("WRITE_CONFIG", d.name, ErrCodeNotReady, "device has not negotiated features")
	}

	d.cfg = d.table.Resolve(sel, subsel)
	return nil
}

// ReadConfigAt copies from the latched config window at the given offset,
// clamping short reads at the end of the window the way the transport
// expects. It returns the number of bytes copied.
func (d *Device) ReadConfigAt(offset uint64, p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateUninitialized || d.state == StateStopped {
		return 0, NewDeviceError("READ_CONFIG", d.name, ErrCodeNotReady, "device has not negotiated features")
	}

	window := uapi.MarshalConfig(&d.cfg)
	if offset >= uint64(len(window)) {
		return 0, NewDeviceError("READ_CONFIG", d.name, ErrCodeInvalidArgument, "offset beyond config space")
	}
	return copy(p, window[offset:]), nil
}

// Activate starts the drainer. It succeeds only once features have been
// negotiated and the event queue is bound.
func (d *Device) Activate() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateStopped {
		return NewDeviceError("ACTIVATE", d.name, ErrCodeStopped, "device is stopped")
	}
	if d.state == StateRunning {
		return nil
	}
	if !d.negotiated || !d.bound {
		return NewDeviceError("ACTIVATE", d.name, ErrCodeNotReady, "features not negotiated or queue not bound")
	}

	d.runner = queue.NewRunner(context.Background(), queue.Config{
		Device:    d.name,
		Events:    d.events,
		Ring:      d.ring,
		Memory:    d.mem,
		Interrupt: d.irq,
		Logger:    d.logger,
		Observer:  d.observer,
	})
	d.runner.Start()
	d.state = StateRunning

	d.logger.Printf("%s: activated", d.name)
	return nil
}

// Reset unconditionally returns the device to Uninitialized: the drainer
// is stopped and drained of authority over guest memory before any state
// is torn down, pending events are discarded, the ring binding and acked
// features are cleared. Reset is idempotent.
func (d *Device) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.teardownLocked()
	d.state = StateUninitialized

	if d.observer != nil {
		d.observer.ObserveReset()
	}
	d.logger.Printf("%s: reset", d.name)
	return nil
}

// Close stops the device permanently. Further operations fail; a stopped
// device cannot be reactivated.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.teardownLocked()
	d.state = StateStopped

	d.logger.Printf("%s: closed", d.name)
	return nil
}

// teardownLocked stops the runner (waiting until it can no longer touch
// guest memory) and clears all negotiated state. Caller holds d.mu.
func (d *Device) teardownLocked() {
	if d.runner != nil {
		d.runner.Close()
		d.runner = nil
	}
	d.events.Clear()
	d.ring = nil
	d.bound = false
	d.negotiated = false
	d.acked = 0
	d.cfg = uapi.ConfigSpace{}
}

// NotifyQueue is the guest-kick entry point: the transport calls it when
// the driver publishes new buffers on the given queue.
func (d *Device) NotifyQueue(index int) error {
	if index != EventQueueIndex {
		return NewQueueError("NOTIFY_QUEUE", d.name, index, ErrCodeInvalidQueue, "only the event queue (index 0) exists")
	}

	d.mu.Lock()
	runner := d.runner
	d.mu.Unlock()

	if runner != nil {
		runner.Kick()
	}
	return nil
}

// push enqueues a logically related group of events atomically and wakes
// the drainer. The state check and the enqueue share one critical section
// so a concurrent Reset cannot clear the queue between them and leave
// stale events behind for the next activation. The guest-memory write
// itself happens on the drainer goroutine, never under a lock.
func (d *Device) push(evs ...uapi.InputEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateRunning {
		return NewDeviceError("PUSH", d.name, ErrCodeNotReady, "device is not running")
	}

	if err := d.events.PushBatch(evs...); err != nil {
		if d.observer != nil {
			d.observer.ObserveQueueFull()
		}
		return NewDeviceError("PUSH", d.name, ErrCodeQueueFull, "ingestion queue saturated")
	}

	if d.observer != nil {
		for _, ev := range evs {
			d.observer.ObservePush(ev.Type)
		}
	}
	d.runner.Kick()
	return nil
}
