// Package vring implements the device side of a virtio split virtqueue
// over a guest-memory capability. Only the subset an event queue needs is
// implemented: consuming device-writable buffers the driver makes
// available and publishing used entries back.
package vring

import (
	"encoding/binary"
	"fmt"

	"github.com/ehrlich-b/go-vinput/internal/interfaces"
)

// Descriptor flags (virtio 1.2, 2.7.5)
const (
	DescFNext     = 1 // buffer continues in the next descriptor
	DescFWrite    = 2 // buffer is device-writable (otherwise read-only)
	DescFIndirect = 4 // buffer contains a descriptor table
)

// Buffer is a transient, borrowed view of one guest-supplied buffer. It is
// valid for a single delivery and must not be retained.
type Buffer struct {
	Head     uint16 // descriptor index, echoed back in the used entry
	Addr     uint64
	Len      uint32
	Writable bool
}

// Ring is the device-side bookkeeping for one split virtqueue. The guest
// owns the descriptor table and both rings; Ring keeps only the ring
// addresses and the last-seen avail index.
type Ring struct {
	mem  interfaces.GuestMemory
	size uint16

	descAddr  uint64
	availAddr uint64
	usedAddr  uint64

	lastAvail uint16
	usedIdx   uint16
}

// New returns a ring over the given table and ring addresses. Size must be
// a non-zero power of two, per the virtio spec.
func New(mem interfaces.GuestMemory, size uint16, descAddr, availAddr, usedAddr uint64) (*Ring, error) {
	if size == 0 || size&(size-1) != 0 {
		return nil, fmt.Errorf("vring: size %d is not a power of two", size)
	}
	return &Ring{
		mem:       mem,
		size:      size,
		descAddr:  descAddr,
		availAddr: availAddr,
		usedAddr:  usedAddr,
	}, nil
}

// Size returns the ring size in descriptors.
func (r *Ring) Size() uint16 {
	return r.size
}

// Next pops the oldest buffer the driver has made available, or returns
// ok=false when the avail ring is empty. Chained descriptors are resolved
// to their head; the event queue writes single 8-byte records, so only the
// head descriptor of a chain is used for delivery.
func (r *Ring) Next() (Buffer, bool, error) {
	idx, err := r.readUint16(r.availAddr + 2)
	if err != nil {
		return Buffer{}, false, fmt.Errorf("vring: read avail idx: %w", err)
	}
	if r.lastAvail == idx {
		return Buffer{}, false, nil
	}

	slot := r.lastAvail % r.size
	head, err := r.readUint16(r.availAddr + 4 + uint64(slot)*2)
	if err != nil {
		return Buffer{}, false, fmt.Errorf("vring: read avail ring[%d]: %w", slot, err)
	}
	if head >= r.size {
		return Buffer{}, false, fmt.Errorf("vring: avail head %d out of range (size %d)", head, r.size)
	}
	r.lastAvail++

	var desc [16]byte
	if err := r.mem.ReadAt(desc[:], r.descAddr+uint64(head)*16); err != nil {
		return Buffer{}, false, fmt.Errorf("vring: read descriptor %d: %w", head, err)
	}

	return Buffer{
		Head:     head,
		Addr:     binary.LittleEndian.Uint64(desc[0:8]),
		Len:      binary.LittleEndian.Uint32(desc[8:12]),
		Writable: binary.LittleEndian.Uint16(desc[12:14])&DescFWrite != 0,
	}, true, nil
}

// Publish appends a used entry for the given head with the number of bytes
// written and advances the used index. The entry is written before the
// index so the driver never observes an index covering an unwritten entry.
func (r *Ring) Publish(head uint16, length uint32) error {
	slot := r.usedIdx % r.size

	var elem [8]byte
	binary.LittleEndian.PutUint32(elem[0:4], uint32(head))
	binary.LittleEndian.PutUint32(elem[4:8], length)
	if err := r.mem.WriteAt(elem[:], r.usedAddr+4+uint64(slot)*8); err != nil {
		return fmt.Errorf("vring: write used ring[%d]: %w", slot, err)
	}

	r.usedIdx++
	var idx [2]byte
	binary.LittleEndian.PutUint16(idx[:], r.usedIdx)
	if err := r.mem.WriteAt(idx[:], r.usedAddr+2); err != nil {
		return fmt.Errorf("vring: write used idx: %w", err)
	}
	return nil
}

func (r *Ring) readUint16(addr uint64) (uint16, error) {
	var buf [2]byte
	if err := r.mem.ReadAt(buf[:], addr); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}
