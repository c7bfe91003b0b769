// Package vinput provides paravirtualized keyboard and mouse devices for a
// lightweight hypervisor: host-originated input events are delivered to the
// guest driver through a shared, interrupt-notified virtio event queue.
package vinput

// GuestMemory provides bounds-checked copy-in/copy-out access to guest
// memory by address and length. It is supplied by the VMM integration
// layer; the core never retains a reference into guest memory.
type GuestMemory interface {
	// ReadAt copies len(p) bytes from guest memory at addr into p.
	ReadAt(p []byte, addr uint64) error

	// WriteAt copies len(p) bytes from p into guest memory at addr.
	WriteAt(p []byte, addr uint64) error
}

// InterruptLine delivers this device's interrupt to the guest. Whether
// devices share a physical line is the integration layer's policy.
type InterruptLine interface {
	Signal() error
}

// Logger is the minimal logging surface the device core uses on its hot
// paths. *logging.Logger satisfies it.
type Logger interface {
	Printf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}
