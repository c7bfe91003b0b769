package uapi

import "encoding/binary"

// MarshalEvent encodes an event record into the fixed 8-byte little-endian
// layout the guest driver reads from the event queue. Encoding is total.
func MarshalEvent(ev InputEvent) []byte {
	buf := make([]byte, EventSize)
	PutEvent(buf, ev)
	return buf
}

// PutEvent encodes an event record into buf, which must be at least
// EventSize bytes.
func PutEvent(buf []byte, ev InputEvent) {
	binary.LittleEndian.PutUint16(buf[0:2], ev.Type)
	binary.LittleEndian.PutUint16(buf[2:4], ev.Code)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(ev.Value))
}

// UnmarshalEvent decodes an 8-byte event record.
func UnmarshalEvent(data []byte) (InputEvent, error) {
	if len(data) < EventSize {
		return InputEvent{}, ErrInsufficientData
	}
	return InputEvent{
		Type:  binary.LittleEndian.Uint16(data[0:2]),
		Code:  binary.LittleEndian.Uint16(data[2:4]),
		Value: int32(binary.LittleEndian.Uint32(data[4:8])),
	}, nil
}

// MarshalDevIDs encodes the device identity block (8 bytes).
func MarshalDevIDs(ids DevIDs) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint16(buf[0:2], ids.BusType)
	binary.LittleEndian.PutUint16(buf[2:4], ids.Vendor)
	binary.LittleEndian.PutUint16(buf[4:6], ids.Product)
	binary.LittleEndian.PutUint16(buf[6:8], ids.Version)
	return buf
}

// UnmarshalDevIDs decodes the device identity block.
func UnmarshalDevIDs(data []byte) (DevIDs, error) {
	if len(data) < 8 {
		return DevIDs{}, ErrInsufficientData
	}
	return DevIDs{
		BusType: binary.LittleEndian.Uint16(data[0:2]),
		Vendor:  binary.LittleEndian.Uint16(data[2:4]),
		Product: binary.LittleEndian.Uint16(data[4:6]),
		Version: binary.LittleEndian.Uint16(data[6:8]),
	}, nil
}

// MarshalAbsInfo encodes an absolute axis description (20 bytes).
func MarshalAbsInfo(info AbsInfo) []byte {
	buf := make([]byte, 20)
	binary.LittleEndian.PutUint32(buf[0:4], info.Min)
	binary.LittleEndian.PutUint32(buf[4:8], info.Max)
	binary.LittleEndian.PutUint32(buf[8:12], info.Fuzz)
	binary.LittleEndian.PutUint32(buf[12:16], info.Flat)
	binary.LittleEndian.PutUint32(buf[16:20], info.Res)
	return buf
}

// MarshalConfig encodes the whole config space window (136 bytes). The
// payload beyond Size is transmitted as-is; responses are built with the
// unused tail zeroed.
func MarshalConfig(cfg *ConfigSpace) []byte {
	buf := make([]byte, ConfigSize)
	buf[0] = cfg.Select
	buf[1] = cfg.Subsel
	buf[2] = cfg.Size
	copy(buf[3:8], cfg.Reserved[:])
	copy(buf[8:], cfg.Payload[:])
	return buf
}

// UnmarshalConfig decodes a config space window.
func UnmarshalConfig(data []byte, cfg *ConfigSpace) error {
	if len(data) < ConfigSize {
		return ErrInsufficientData
	}
	cfg.Select = data[0]
	cfg.Subsel = data[1]
	cfg.Size = data[2]
	copy(cfg.Reserved[:], data[3:8])
	copy(cfg.Payload[:], data[8:ConfigSize])
	return nil
}

// MarshalError reports a codec failure.
type MarshalError string

func (e MarshalError) Error() string {
	return string(e)
}

const ErrInsufficientData MarshalError = "insufficient data for unmarshaling"
