// Package uapi provides the virtio-input wire protocol definitions: the
// guest-visible configuration space, the 8-byte event record, and the Linux
// input event codes the guest driver understands.
package uapi

// Virtio identity
const (
	VirtioIDInput   = 18 // virtio device type for input devices
	VirtioFVersion1 = 32 // bit number of the VIRTIO_F_VERSION_1 feature
	EventQueueIndex = 0  // the single device-to-driver event queue
	EventQueueSize  = 256
)

// Configuration space selectors (virtio-input spec 5.8.4)
const (
	CfgUnset    = 0x00
	CfgIDName   = 0x01
	CfgIDSerial = 0x02
	CfgIDDevIDs = 0x03
	CfgPropBits = 0x10
	CfgEvBits   = 0x11
	CfgAbsInfo  = 0x12
)

// Input event types (linux/input-event-codes.h)
const (
	EvSyn = 0x00
	EvKey = 0x01
	EvRel = 0x02
	EvAbs = 0x03
	EvRep = 0x14
)

// Relative axes
const (
	RelX     = 0x00
	RelY     = 0x01
	RelWheel = 0x08
)

// Mouse buttons
const (
	BtnLeft   = 0x110
	BtnRight  = 0x111
	BtnMiddle = 0x112
)

// SynReportCode terminates a batch of related events.
const SynReportCode = 0

// Key autorepeat parameters (EV_REP code bitmap)
const (
	RepDelay  = 0x00
	RepPeriod = 0x01
)

// Bus types for the device ID block
const (
	BusPCI     = 0x01
	BusVirtual = 0x06
)

// VendorVirtio is the Red Hat vendor ID used by virtio devices.
const VendorVirtio = 0x1af4

// Products reported in the device ID block.
const (
	ProductKeyboard = 1
	ProductMouse    = 2
)

// Wire sizes
const (
	// EventSize is the size of one event record in the event queue.
	EventSize = 8

	// ConfigPayloadSize is the size of the config space payload union.
	ConfigPayloadSize = 128

	// ConfigSize is the size of the whole config space window:
	// select, subsel, size, reserved[5], payload.
	ConfigSize = 8 + ConfigPayloadSize
)
