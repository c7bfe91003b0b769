package vinput

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ehrlich-b/go-vinput/internal/uapi"
)

// MemoryBuffer is a bounds-checked in-memory GuestMemory used by tests and
// the demo binary in place of a real guest address space.
type MemoryBuffer struct {
	mu        sync.Mutex
	data      []byte
	failStart uint64
	failEnd   uint64
}

// NewMemoryBuffer allocates a zeroed guest memory of the given size.
func NewMemoryBuffer(size int) *MemoryBuffer {
	return &MemoryBuffer{data: make([]byte, size)}
}

// ReadAt copies len(p) bytes starting at addr.
func (m *MemoryBuffer) ReadAt(p []byte, addr uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if addr+uint64(len(p)) > uint64(len(m.data)) {
		return fmt.Errorf("guest read out of bounds: addr=%#x len=%d size=%d", addr, len(p), len(m.data))
	}
	copy(p, m.data[addr:])
	return nil
}

// WriteAt copies p into guest memory at addr.
func (m *MemoryBuffer) WriteAt(p []byte, addr uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if addr+uint64(len(p)) > uint64(len(m.data)) {
		return fmt.Errorf("guest write out of bounds: addr=%#x len=%d size=%d", addr, len(p), len(m.data))
	}
	if m.failEnd > m.failStart && addr >= m.failStart && addr < m.failEnd {
		return fmt.Errorf("guest write fault at %#x", addr)
	}
	copy(m.data[addr:], p)
	return nil
}

// FailWritesIn makes writes targeting [start, end) fail, simulating an
// unmapped or read-only guest region. Reads and writes elsewhere still
// succeed, so ring bookkeeping stays usable.
func (m *MemoryBuffer) FailWritesIn(start, end uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failStart, m.failEnd = start, end
}

// MockInterruptLine counts interrupt signals.
type MockInterruptLine struct {
	mu      sync.Mutex
	count   atomic.Uint64
	failErr error
}

// NewMockInterruptLine creates an interrupt line that always succeeds.
func NewMockInterruptLine() *MockInterruptLine {
	return &MockInterruptLine{}
}

// Signal records one interrupt, or returns the configured failure.
func (l *MockInterruptLine) Signal() error {
	l.mu.Lock()
	err := l.failErr
	l.mu.Unlock()
	if err != nil {
		return err
	}
	l.count.Add(1)
	return nil
}

// Count returns the number of successful signals.
func (l *MockInterruptLine) Count() uint64 {
	return l.count.Load()
}

// FailWith makes subsequent signals return err; nil restores success.
func (l *MockInterruptLine) FailWith(err error) {
	l.mu.Lock()
	l.failErr = err
	l.mu.Unlock()
}

// Guest ring memory layout used by the harness. Each region is aligned
// generously; real guests pack these tighter but the device only ever
// follows the addresses it was given.
const (
	harnessDescBase  = 0x1000
	harnessAvailBase = 0x3000
	harnessUsedBase  = 0x4000
	harnessDataBase  = 0x8000
	harnessMemSize   = 0x20000
)

// UsedElem mirrors one used-ring entry as published by the device.
type UsedElem struct {
	ID  uint32
	Len uint32
}

// GuestRingHarness plays the guest driver's half of the split virtqueue:
// it lays out descriptor, available and used rings in a MemoryBuffer,
// posts writable event buffers, and reads back completions.
type GuestRingHarness struct {
	Mem  *MemoryBuffer
	Size uint16

	DescAddr  uint64
	AvailAddr uint64
	UsedAddr  uint64

	nextDesc uint16
	availIdx uint16
}

// NewGuestRingHarness builds a harness with a ring of the given size
// (which must be a power of two, mirroring the transport contract).
func NewGuestRingHarness(size uint16) *GuestRingHarness {
	return &GuestRingHarness{
		Mem:       NewMemoryBuffer(harnessMemSize),
		Size:      size,
		DescAddr:  harnessDescBase,
		AvailAddr: harnessAvailBase,
		UsedAddr:  harnessUsedBase,
	}
}

// Bind binds the harness's rings to the device's event queue.
func (h *GuestRingHarness) Bind(d *Device) error {
	return d.BindQueue(EventQueueIndex, h.Size, h.DescAddr, h.AvailAddr, h.UsedAddr)
}

// AddBuffer posts one device-writable buffer of the given length and
// returns its guest address. The descriptor index doubles as the head.
func (h *GuestRingHarness) AddBuffer(length uint32) uint64 {
	return h.add(length, true)
}

// AddReadOnlyBuffer posts a buffer without the write flag; the device must
// reject it with a zero-length completion.
func (h *GuestRingHarness) AddReadOnlyBuffer(length uint32) uint64 {
	return h.add(length, false)
}

func (h *GuestRingHarness) add(length uint32, writable bool) uint64 {
	head := h.nextDesc % h.Size
	addr := uint64(harnessDataBase) + uint64(head)*uint64(uapi.EventSize)*2
	h.nextDesc++

	var desc [16]byte
	binary.LittleEndian.PutUint64(desc[0:8], addr)
	binary.LittleEndian.PutUint32(desc[8:12], length)
	if writable {
		binary.LittleEndian.PutUint16(desc[12:14], 2) // VRING_DESC_F_WRITE
	}
	if err := h.Mem.WriteAt(desc[:], h.DescAddr+uint64(head)*16); err != nil {
		panic(err)
	}

	var slot [2]byte
	binary.LittleEndian.PutUint16(slot[:], head)
	if err := h.Mem.WriteAt(slot[:], h.AvailAddr+4+uint64(h.availIdx%h.Size)*2); err != nil {
		panic(err)
	}

	h.availIdx++
	var idx [2]byte
	binary.LittleEndian.PutUint16(idx[:], h.availIdx)
	if err := h.Mem.WriteAt(idx[:], h.AvailAddr+2); err != nil {
		panic(err)
	}
	return addr
}

// UsedCount reads the device-published used index.
func (h *GuestRingHarness) UsedCount() uint16 {
	var idx [2]byte
	if err := h.Mem.ReadAt(idx[:], h.UsedAddr+2); err != nil {
		panic(err)
	}
	return binary.LittleEndian.Uint16(idx[:])
}

// UsedEntries returns the first n used-ring entries in publication order.
func (h *GuestRingHarness) UsedEntries(n int) []UsedElem {
	out := make([]UsedElem, 0, n)
	for i := 0; i < n; i++ {
		var elem [8]byte
		if err := h.Mem.ReadAt(elem[:], h.UsedAddr+4+uint64(uint16(i)%h.Size)*8); err != nil {
			panic(err)
		}
		out = append(out, UsedElem{
			ID:  binary.LittleEndian.Uint32(elem[0:4]),
			Len: binary.LittleEndian.Uint32(elem[4:8]),
		})
	}
	return out
}

// ReadRecord decodes the event record the device wrote at addr.
func (h *GuestRingHarness) ReadRecord(addr uint64) uapi.InputEvent {
	var rec [uapi.EventSize]byte
	if err := h.Mem.ReadAt(rec[:], addr); err != nil {
		panic(err)
	}
	ev, err := uapi.UnmarshalEvent(rec[:])
	if err != nil {
		panic(err)
	}
	return ev
}
