// Package interfaces defines the narrow capability surface the device core
// consumes from the VMM integration layer.
package interfaces

// GuestMemory provides bounds-checked copy-in/copy-out access to guest
// memory by address and length. Guest memory is shared with guest
// execution; implementations own the bounds checks and the core never
// retains a reference into it.
type GuestMemory interface {
	// ReadAt copies len(p) bytes from guest memory at addr into p.
	// A range that is not fully inside guest memory is an error.
	ReadAt(p []byte, addr uint64) error

	// WriteAt copies len(p) bytes from p into guest memory at addr.
	// A range that is not fully inside guest memory is an error.
	WriteAt(p []byte, addr uint64) error
}

// InterruptLine delivers a device interrupt to the guest. Whether distinct
// devices share a line is the integration layer's policy; the core only
// requires per-device injection.
type InterruptLine interface {
	Signal() error
}
