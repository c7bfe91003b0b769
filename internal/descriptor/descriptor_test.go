package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/go-vinput/internal/uapi"
)

func TestKeyboardIdentity(t *testing.T) {
	kbd := Keyboard()

	cfg := kbd.Resolve(uapi.CfgIDName, 0)
	assert.Equal(t, "virtio-keyboard", string(cfg.Payload[:cfg.Size]))

	cfg = kbd.Resolve(uapi.CfgIDSerial, 0)
	assert.Equal(t, "keyboard-1", string(cfg.Payload[:cfg.Size]))

	cfg = kbd.Resolve(uapi.CfgIDDevIDs, 0)
	require.EqualValues(t, 8, cfg.Size)
	ids, err := uapi.UnmarshalDevIDs(cfg.Payload[:8])
	require.NoError(t, err)
	assert.Equal(t, uint16(uapi.BusVirtual), ids.BusType)
	assert.Equal(t, uint16(uapi.VendorVirtio), ids.Vendor)
	assert.Equal(t, uint16(uapi.ProductKeyboard), ids.Product)
}

func TestMouseIdentity(t *testing.T) {
	mouse := Mouse()

	cfg := mouse.Resolve(uapi.CfgIDName, 0)
	assert.Equal(t, "virtio-mouse", string(cfg.Payload[:cfg.Size]))

	cfg = mouse.Resolve(uapi.CfgIDDevIDs, 0)
	ids, err := uapi.UnmarshalDevIDs(cfg.Payload[:8])
	require.NoError(t, err)
	assert.Equal(t, uint16(uapi.ProductMouse), ids.Product)
}

func TestKeyboardEventBits(t *testing.T) {
	kbd := Keyboard()

	// subsel 0 reports the supported event types; EV_REP is bit 20 so the
	// bitmap must span 3 bytes
	cfg := kbd.Resolve(uapi.CfgEvBits, uapi.CfgUnset)
	require.EqualValues(t, 3, cfg.Size)
	assert.NotZero(t, cfg.Payload[0]&(1<<uapi.EvSyn))
	assert.NotZero(t, cfg.Payload[0]&(1<<uapi.EvKey))
	assert.NotZero(t, cfg.Payload[2]&(1<<(uapi.EvRep-16)))

	// full key bitmap
	cfg = kbd.Resolve(uapi.CfgEvBits, uapi.EvKey)
	assert.EqualValues(t, uapi.ConfigPayloadSize, cfg.Size)

	// autorepeat: delay and period
	cfg = kbd.Resolve(uapi.CfgEvBits, uapi.EvRep)
	require.EqualValues(t, 1, cfg.Size)
	assert.Equal(t, byte(0x03), cfg.Payload[0])
}

func TestMouseEventBits(t *testing.T) {
	mouse := Mouse()

	cfg := mouse.Resolve(uapi.CfgEvBits, uapi.CfgUnset)
	require.EqualValues(t, 1, cfg.Size)
	assert.NotZero(t, cfg.Payload[0]&(1<<uapi.EvSyn))
	assert.NotZero(t, cfg.Payload[0]&(1<<uapi.EvKey))
	assert.NotZero(t, cfg.Payload[0]&(1<<uapi.EvRel))

	// buttons live in the EV_KEY bitmap starting at bit 0x110
	cfg = mouse.Resolve(uapi.CfgEvBits, uapi.EvKey)
	require.EqualValues(t, 35, cfg.Size)
	var buttons uapi.Bitmap
	copy(buttons[:], cfg.Payload[:])
	assert.True(t, buttons.IsSet(uapi.BtnLeft))
	assert.True(t, buttons.IsSet(uapi.BtnRight))
	assert.True(t, buttons.IsSet(uapi.BtnMiddle))
	assert.False(t, buttons.IsSet(30)) // plain keys are not buttons

	cfg = mouse.Resolve(uapi.CfgEvBits, uapi.EvRel)
	require.EqualValues(t, 2, cfg.Size)
	var axes uapi.Bitmap
	copy(axes[:], cfg.Payload[:])
	assert.True(t, axes.IsSet(uapi.RelX))
	assert.True(t, axes.IsSet(uapi.RelY))
	assert.True(t, axes.IsSet(uapi.RelWheel))
}

func TestUnknownSelectorEmptyResponse(t *testing.T) {
	tables := map[string]*Table{"keyboard": Keyboard(), "mouse": Mouse()}

	for name, tbl := range tables {
		t.Run(name, func(t *testing.T) {
			for _, pair := range [][2]uint8{
				{uapi.CfgUnset, 0},
				{uapi.CfgAbsInfo, uapi.RelX}, // relative-only devices have no abs axes
				{0x42, 0x07},
				{uapi.CfgEvBits, uapi.EvAbs},
			} {
				cfg := tbl.Resolve(pair[0], pair[1])
				assert.Equal(t, pair[0], cfg.Select)
				assert.Equal(t, pair[1], cfg.Subsel)
				assert.Zero(t, cfg.Size, "selector (%#x, %#x)", pair[0], pair[1])
			}
		})
	}
}

func TestSupports(t *testing.T) {
	kbd := Keyboard()
	mouse := Mouse()

	assert.True(t, kbd.Supports(uapi.EvKey, 30))
	assert.True(t, kbd.Supports(uapi.EvSyn, uapi.SynReportCode))
	assert.False(t, kbd.Supports(uapi.EvRel, uapi.RelX))

	assert.True(t, mouse.Supports(uapi.EvKey, uapi.BtnLeft))
	assert.True(t, mouse.Supports(uapi.EvRel, uapi.RelWheel))
	assert.False(t, mouse.Supports(uapi.EvKey, 30))
	assert.False(t, mouse.Supports(uapi.EvRep, uapi.RepDelay))
}
