package uapi

import "unsafe"

// InputEvent is one record on the event queue. Layout must match the
// guest driver's struct virtio_input_event exactly (8 bytes):
//
//	struct virtio_input_event {
//	  __le16 type;
//	  __le16 code;
//	  __le32 value;
//	};
type InputEvent struct {
	Type  uint16 // event category (EvKey, EvRel, EvSyn, ...)
	Code  uint16 // key code or axis within the category
	Value int32  // press=1/release=0, or signed axis delta
}

// Compile-time size check - must be exactly 8 bytes on the wire
var _ [8]byte = [unsafe.Sizeof(InputEvent{})]byte{}

// SynReport returns the batch terminator event.
func SynReport() InputEvent {
	return InputEvent{Type: EvSyn, Code: SynReportCode, Value: 0}
}

// Key returns a key press or release event.
func Key(code uint16, pressed bool) InputEvent {
	v := int32(0)
	if pressed {
		v = 1
	}
	return InputEvent{Type: EvKey, Code: code, Value: v}
}

// RelMotion returns a relative axis delta event.
func RelMotion(axis uint16, delta int32) InputEvent {
	return InputEvent{Type: EvRel, Code: axis, Value: delta}
}

// DevIDs is the device identity block returned for CfgIDDevIDs (8 bytes).
type DevIDs struct {
	BusType uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

var _ [8]byte = [unsafe.Sizeof(DevIDs{})]byte{}

// AbsInfo describes an absolute axis (20 bytes). Input devices built here
// are relative-only, but the selector is part of the config space and an
// empty response must still be well-formed.
type AbsInfo struct {
	Min  uint32
	Max  uint32
	Fuzz uint32
	Flat uint32
	Res  uint32
}

var _ [20]byte = [unsafe.Sizeof(AbsInfo{})]byte{}

// ConfigSpace is the guest-visible configuration window. The guest writes
// Select/Subsel at offset 0 and reads back Size plus the payload.
type ConfigSpace struct {
	Select   uint8
	Subsel   uint8
	Size     uint8
	Reserved [5]uint8
	Payload  [ConfigPayloadSize]byte
}

var _ [ConfigSize]byte = [unsafe.Sizeof(ConfigSpace{})]byte{}

// Bitmap is a little-endian bit array sized to the config payload.
type Bitmap [ConfigPayloadSize]byte

// Set sets the given bit. Out-of-range bits are ignored, matching the
// tolerance of the config space (a code the payload cannot express is
// simply not advertised).
func (b *Bitmap) Set(bit int) {
	if byteIdx := bit / 8; byteIdx < len(b) {
		b[byteIdx] |= 1 << (bit % 8)
	}
}

// IsSet reports whether the given bit is set.
func (b *Bitmap) IsSet(bit int) bool {
	byteIdx := bit / 8
	return byteIdx < len(b) && b[byteIdx]&(1<<(bit%8)) != 0
}

// Fill sets every bit in the bitmap.
func (b *Bitmap) Fill() {
	for i := range b {
		b[i] = 0xff
	}
}

// Width returns the number of bytes needed to cover the highest set bit,
// which is the Size a config response carrying this bitmap reports.
func (b *Bitmap) Width() uint8 {
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] != 0 {
			return uint8(i + 1)
		}
	}
	return 0
}
