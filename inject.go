package vinput

import (
	"sync/atomic"

	"github.com/ehrlich-b/go-vinput/internal/uapi"
)

// InjectContext is the host-side injection surface over a keyboard/mouse
// pair. Its methods return 0 on success or a negated errno, so callers
// embedding this in a VMM control plane can pass results straight through
// without translating Go errors at the boundary.
type InjectContext struct {
	keyboard *Device
	mouse    *Device
	enabled  atomic.Bool
}

// NewInjectContext wraps a device pair. Either device may be nil when the
// VMM exposes only one of the two.
func NewInjectContext(keyboard, mouse *Device) *InjectContext {
	return &InjectContext{keyboard: keyboard, mouse: mouse}
}

// Enable arms the injection surface. Before Enable, every injection fails
// with -EINVAL; a context with no devices at all cannot be enabled.
func (c *InjectContext) Enable() int32 {
	if c.keyboard == nil && c.mouse == nil {
		return ErrnoCode(NewError("INJECT_ENABLE", ErrCodeInvalidArgument, "no devices attached"))
	}
	c.enabled.Store(true)
	return 0
}

// Disable disarms the surface; subsequent injections fail with -EINVAL.
func (c *InjectContext) Disable() {
	c.enabled.Store(false)
}

// Enabled reports whether injection is armed.
func (c *InjectContext) Enabled() bool {
	return c.enabled.Load()
}

// InjectKeyboard injects one key transition followed by its sync
// terminator, atomically: the pair is admitted together or rejected
// together with -ENOBUFS.
func (c *InjectContext) InjectKeyboard(code uint16, pressed bool) int32 {
	dev, rc := c.device(c.keyboard)
	if rc != 0 {
		return rc
	}
	if !dev.Supports(uapi.EvKey, code) {
		return ErrnoCode(NewDeviceError("INJECT_KEYBOARD", dev.name, ErrCodeInvalidArgument, "unsupported key code"))
	}
	return c.result(dev.push(uapi.Key(code, pressed), uapi.SynReport()))
}

// InjectMouseButton injects one button transition plus sync. Only codes the
// mouse declares in its capability table (left, right, middle) are legal.
func (c *InjectContext) InjectMouseButton(button uint16, pressed bool) int32 {
	dev, rc := c.device(c.mouse)
	if rc != 0 {
		return rc
	}
	if !dev.Supports(uapi.EvKey, button) {
		return ErrnoCode(NewDeviceError("INJECT_MOUSE", dev.name, ErrCodeInvalidArgument, "unsupported button code"))
	}
	return c.result(dev.push(uapi.Key(button, pressed), uapi.SynReport()))
}

// InjectMouseMotion injects a relative movement: an X event if dx is
// nonzero, a Y event if dy is nonzero, then sync. A (0, 0) motion is a
// successful no-op with no events emitted.
func (c *InjectContext) InjectMouseMotion(dx, dy int32) int32 {
	dev, rc := c.device(c.mouse)
	if rc != 0 {
		return rc
	}
	if dx == 0 && dy == 0 {
		return 0
	}

	evs := make([]uapi.InputEvent, 0, 3)
	if dx != 0 {
		evs = append(evs, uapi.RelMotion(uapi.RelX, dx))
	}
	if dy != 0 {
		evs = append(evs, uapi.RelMotion(uapi.RelY, dy))
	}
	evs = append(evs, uapi.SynReport())
	return c.result(dev.push(evs...))
}

// InjectMouseWheel injects a wheel step plus sync. A zero delta is a
// successful no-op.
func (c *InjectContext) InjectMouseWheel(delta int32) int32 {
	dev, rc := c.device(c.mouse)
	if rc != 0 {
		return rc
	}
	if delta == 0 {
		return 0
	}
	return c.result(dev.push(uapi.RelMotion(uapi.RelWheel, delta), uapi.SynReport()))
}

// device gates an injection on the enable latch and device presence.
func (c *InjectContext) device(dev *Device) (*Device, int32) {
	if !c.enabled.Load() {
		return nil, ErrnoCode(NewError("INJECT", ErrCodeNotEnabled, "injection surface not enabled"))
	}
	if dev == nil {
		return nil, ErrnoCode(NewError("INJECT", ErrCodeInvalidArgument, "device not attached"))
	}
	return dev, 0
}

// result maps a push failure onto the surface's return-code contract: a
// device that is not running counts as not enabled here, so the caller
// sees the same invalid-argument code for every disabled path.
func (c *InjectContext) result(err error) int32 {
	if IsCode(err, ErrCodeNotReady) {
		return ErrnoCode(NewError("INJECT", ErrCodeNotEnabled, "device is not running"))
	}
	return ErrnoCode(err)
}
