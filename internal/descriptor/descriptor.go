// Package descriptor builds the immutable capability table for a device
// variant and resolves configuration-space reads against it.
package descriptor

import "github.com/ehrlich-b/go-vinput/internal/uapi"

// EventBits is a code bitmap advertised for one event type.
type EventBits struct {
	Bits uapi.Bitmap
}

// Table is the static capability table for one device variant. It is
// immutable after construction; the state machine and drainer only read it.
type Table struct {
	Name   string
	Serial string
	IDs    uapi.DevIDs
	Props  uapi.Bitmap
	// Ev maps an event type to the bitmap of supported codes for that type.
	Ev map[uint16]EventBits
}

// Keyboard returns the capability table for the keyboard variant: key
// press/release for the full code range, autorepeat, and sync.
func Keyboard() *Table {
	var keys uapi.Bitmap
	keys.Fill()

	var rep uapi.Bitmap
	rep.Set(uapi.RepDelay)
	rep.Set(uapi.RepPeriod)

	return &Table{
		Name:   "virtio-keyboard",
		Serial: "keyboard-1",
		IDs: uapi.DevIDs{
			BusType: uapi.BusVirtual,
			Vendor:  uapi.VendorVirtio,
			Product: uapi.ProductKeyboard,
			Version: 1,
		},
		Ev: map[uint16]EventBits{
			uapi.EvKey: {Bits: keys},
			uapi.EvRep: {Bits: rep},
		},
	}
}

// Mouse returns the capability table for the mouse variant: the three
// standard buttons, relative X/Y/wheel motion, and sync.
func Mouse() *Table {
	var buttons uapi.Bitmap
	buttons.Set(uapi.BtnLeft)
	buttons.Set(uapi.BtnRight)
	buttons.Set(uapi.BtnMiddle)

	var axes uapi.Bitmap
	axes.Set(uapi.RelX)
	axes.Set(uapi.RelY)
	axes.Set(uapi.RelWheel)

	return &Table{
		Name:   "virtio-mouse",
		Serial: "mouse-1",
		IDs: uapi.DevIDs{
			BusType: uapi.BusVirtual,
			Vendor:  uapi.VendorVirtio,
			Product: uapi.ProductMouse,
			Version: 1,
		},
		Ev: map[uint16]EventBits{
			uapi.EvKey: {Bits: buttons},
			uapi.EvRel: {Bits: axes},
		},
	}
}

// Supports reports whether the table advertises the given code for the
// given event type. Sync events are always supported.
func (t *Table) Supports(evType, code uint16) bool {
	if evType == uapi.EvSyn {
		return true
	}
	eb, ok := t.Ev[evType]
	return ok && eb.Bits.IsSet(int(code))
}

// typeBits returns the bitmap of supported event types (EV_BITS subsel 0).
// EV_SYN is always advertised alongside the table's event types.
func (t *Table) typeBits() uapi.Bitmap {
	var b uapi.Bitmap
	b.Set(uapi.EvSyn)
	for evType := range t.Ev {
		b.Set(int(evType))
	}
	return b
}

// Resolve produces the configuration response for a (select, subselect)
// pair. An unrecognized pair yields the defined empty response (size 0);
// the protocol treats absent fields as optional, not as errors.
func (t *Table) Resolve(sel, subsel uint8) uapi.ConfigSpace {
	cfg := uapi.ConfigSpace{Select: sel, Subsel: subsel}

	switch sel {
	case uapi.CfgIDName:
		cfg.Size = uint8(copy(cfg.Payload[:], t.Name))
	case uapi.CfgIDSerial:
		cfg.Size = uint8(copy(cfg.Payload[:], t.Serial))
	case uapi.CfgIDDevIDs:
		cfg.Size = uint8(copy(cfg.Payload[:], uapi.MarshalDevIDs(t.IDs)))
	case uapi.CfgPropBits:
		cfg.Size = t.Props.Width()
		copy(cfg.Payload[:], t.Props[:])
	case uapi.CfgEvBits:
		var bits uapi.Bitmap
		if subsel == uapi.CfgUnset {
			bits = t.typeBits()
		} else if eb, ok := t.Ev[uint16(subsel)]; ok {
			bits = eb.Bits
		}
		cfg.Size = bits.Width()
		copy(cfg.Payload[:], bits[:])
	}

	return cfg
}
