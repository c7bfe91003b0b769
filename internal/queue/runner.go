package queue

import (
	"context"

	"github.com/ehrlich-b/go-vinput/internal/interfaces"
	"github.com/ehrlich-b/go-vinput/internal/uapi"
	"github.com/ehrlich-b/go-vinput/internal/vring"
)

// Logger is the minimal logging surface the runner needs.
type Logger interface {
	Printf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// Observer receives delivery-path notifications. The root package's
// metrics observer satisfies this.
type Observer interface {
	ObserveDelivered(evType uint16)
	ObserveBadBuffer()
	ObserveInterrupt()
}

// Config wires a Runner to its device instance.
type Config struct {
	Device    string // device name, for log context
	Events    *Events
	Ring      *vring.Ring
	Memory    interfaces.GuestMemory
	Interrupt interfaces.InterruptLine
	Logger    Logger
	Observer  Observer
}

// Runner drains a device's pending events into guest-supplied buffers.
// One runner goroutine exists per running device instance; it is
// edge-triggered by a merged wake signal and exits on context cancellation.
type Runner struct {
	device    string
	events    *Events
	ring      *vring.Ring
	mem       interfaces.GuestMemory
	interrupt interfaces.InterruptLine
	logger    Logger
	observer  Observer

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner creates a runner. Start must be called to begin draining.
func NewRunner(ctx context.Context, config Config) *Runner {
	ctx, cancel := context.WithCancel(ctx)
	return &Runner{
		device:    config.Device,
		events:    config.Events,
		ring:      config.Ring,
		mem:       config.Memory,
		interrupt: config.Interrupt,
		logger:    config.Logger,
		observer:  config.Observer,
		wake:      make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Start launches the drain loop and performs an initial pass, in case the
// guest posted buffers or the host pushed events before activation
// completed.
func (r *Runner) Start() {
	go r.loop()
	r.Kick()
}

// Kick wakes the drain loop. Both wake sources (a pushed event and a
// guest buffer notification) funnel through this one edge-triggered
// signal; a wake that arrives during a pass is absorbed by the channel's
// single slot and triggers one more pass.
func (r *Runner) Kick() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Stop signals the loop to exit without waiting for it.
func (r *Runner) Stop() {
	r.cancel()
}

// Close stops the loop and waits for it to exit. After Close returns, no
// further guest-memory writes will be performed by this runner.
func (r *Runner) Close() {
	r.cancel()
	<-r.done
}

func (r *Runner) loop() {
	defer close(r.done)

	if r.logger != nil {
		r.logger.Debugf("%s: drain loop started", r.device)
	}

	for {
		select {
		case <-r.ctx.Done():
			if r.logger != nil {
				r.logger.Debugf("%s: drain loop stopping", r.device)
			}
			return
		case <-r.wake:
		}
		r.drain()
	}
}

// drain runs one pass: while events are pending and the guest has buffers
// available, deliver the oldest event into the oldest buffer. Completions
// for the whole pass are signaled with a single interrupt.
func (r *Runner) drain() {
	completions := 0

	for r.events.Len() > 0 {
		// A reset observed mid-pass stops the pass before any further
		// guest-memory access.
		if r.ctx.Err() != nil {
			return
		}

		buf, ok, err := r.ring.Next()
		if err != nil {
			if r.logger != nil {
				r.logger.Printf("%s: ring read failed: %v", r.device, err)
			}
			break
		}
		if !ok {
			// No guest buffers: expected backpressure, events stay queued
			// until the guest posts more.
			break
		}

		if buf.Len < uapi.EventSize || !buf.Writable {
			// Per-buffer defect: fail this buffer and keep the event.
			if r.logger != nil {
				r.logger.Printf("%s: unusable guest buffer head=%d len=%d writable=%t",
					r.device, buf.Head, buf.Len, buf.Writable)
			}
			if r.observer != nil {
				r.observer.ObserveBadBuffer()
			}
			if err := r.ring.Publish(buf.Head, 0); err != nil {
				if r.logger != nil {
					r.logger.Printf("%s: publish failed: %v", r.device, err)
				}
				break
			}
			completions++
			continue
		}

		ev, ok := r.events.Peek()
		if !ok {
			break
		}

		var rec [uapi.EventSize]byte
		uapi.PutEvent(rec[:], ev)
		if err := r.mem.WriteAt(rec[:], buf.Addr); err != nil {
			// The event was not consumed; fail the buffer and move on.
			if r.logger != nil {
				r.logger.Printf("%s: guest write failed head=%d addr=%#x: %v",
					r.device, buf.Head, buf.Addr, err)
			}
			if r.observer != nil {
				r.observer.ObserveBadBuffer()
			}
			if err := r.ring.Publish(buf.Head, 0); err != nil {
				break
			}
			completions++
			continue
		}

		r.events.Pop()
		if err := r.ring.Publish(buf.Head, uapi.EventSize); err != nil {
			if r.logger != nil {
				r.logger.Printf("%s: publish failed: %v", r.device, err)
			}
			break
		}
		completions++

		if r.observer != nil {
			r.observer.ObserveDelivered(ev.Type)
		}
		if r.logger != nil {
			r.logger.Debugf("%s: delivered type=%#x code=%#x value=%d head=%d",
				r.device, ev.Type, ev.Code, ev.Value, buf.Head)
		}
	}

	// One coalesced interrupt per pass, never one per event.
	if completions > 0 && r.ctx.Err() == nil {
		if err := r.interrupt.Signal(); err != nil {
			if r.logger != nil {
				r.logger.Printf("%s: interrupt injection failed: %v", r.device, err)
			}
			return
		}
		if r.observer != nil {
			r.observer.ObserveInterrupt()
		}
	}
}
