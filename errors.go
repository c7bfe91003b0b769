package vinput

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/go-vinput/internal/queue"
)

// Error is a structured device error with context and errno mapping. The
// injection surface reports failures as negative errno values derived from
// the Code; everything else in the module works with normal Go errors.
type Error struct {
	Op     string     // Operation that failed (e.g., "ACTIVATE", "BIND_QUEUE")
	Device string     // Device name ("" if not applicable)
	Queue  int        // Queue index (-1 if not applicable)
	Code   ErrorCode  // High-level error category
	Errno  unix.Errno // Mapped errno (0 if not applicable)
	Msg    string     // Human-readable message
	Inner  error      // Wrapped error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	switch {
	case e.Op != "" && e.Device != "":
		return fmt.Sprintf("vinput: %s (op=%s device=%s)", msg, e.Op, e.Device)
	case e.Op != "":
		return fmt.Sprintf("vinput: %s (op=%s)", msg, e.Op)
	default:
		return fmt.Sprintf("vinput: %s", msg)
	}
}

// Unwrap returns the wrapped error for errors.Is/As support
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is provides errors.Is support for code-level comparison
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	if de, ok := target.(DeviceError); ok {
		return e.Code == ErrorCode(de)
	}

	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}

	return false
}

// ErrorCode represents high-level error categories
type ErrorCode string

const (
	ErrCodeNotReady        ErrorCode = "device not ready"
	ErrCodeInvalidQueue    ErrorCode = "invalid queue index"
	ErrCodeQueueFull       ErrorCode = "event queue full"
	ErrCodeInvalidArgument ErrorCode = "invalid argument"
	ErrCodeNotEnabled      ErrorCode = "device not enabled"
	ErrCodeStopped         ErrorCode = "device stopped"
	ErrCodeGuestMemory     ErrorCode = "guest memory access failed"
)

// DeviceError is a sentinel error comparable with errors.Is against the
// structured *Error type.
type DeviceError string

func (e DeviceError) Error() string {
	return string(e)
}

const (
	ErrNotReady        DeviceError = "device not ready"
	ErrInvalidQueue    DeviceError = "invalid queue index"
	ErrQueueFull       DeviceError = "event queue full"
	ErrInvalidArgument DeviceError = "invalid argument"
	ErrNotEnabled      DeviceError = "device not enabled"
	ErrStopped         DeviceError = "device stopped"
)

// Error constructors

// NewError creates a new structured error
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{
		Op:    op,
		Queue: -1,
		Code:  code,
		Errno: codeToErrno(code),
		Msg:   msg,
	}
}

// NewDeviceError creates a new device-scoped error
func NewDeviceError(op, device string, code ErrorCode, msg string) *Error {
	return &Error{
		Op:     op,
		Device: device,
		Queue:  -1,
		Code:   code,
		Errno:  codeToErrno(code),
		Msg:    msg,
	}
}

// NewQueueError creates a new queue-scoped error
func NewQueueError(op, device string, index int, code ErrorCode, msg string) *Error {
	return &Error{
		Op:     op,
		Device: device,
		Queue:  index,
		Code:   code,
		Errno:  codeToErrno(code),
		Msg:    msg,
	}
}

// WrapError wraps an existing error with device context
func WrapError(op, device string, inner error) *Error {
	if inner == nil {
		return nil
	}

	if de, ok := inner.(*Error); ok {
		return &Error{
			Op:     op,
			Device: device,
			Queue:  de.Queue,
			Code:   de.Code,
			Errno:  de.Errno,
			Msg:    de.Msg,
			Inner:  de.Inner,
		}
	}

	code := ErrCodeGuestMemory
	if errors.Is(inner, queue.ErrFull) {
		code = ErrCodeQueueFull
	}

	return &Error{
		Op:     op,
		Device: device,
		Queue:  -1,
		Code:   code,
		Errno:  codeToErrno(code),
		Msg:    inner.Error(),
		Inner:  inner,
	}
}

// codeToErrno maps error categories to the errno reported on the
// negative-code injection surface.
func codeToErrno(code ErrorCode) unix.Errno {
	switch code {
	case ErrCodeQueueFull:
		return unix.ENOBUFS
	case ErrCodeInvalidQueue, ErrCodeInvalidArgument, ErrCodeNotEnabled:
		return unix.EINVAL
	case ErrCodeNotReady:
		return unix.ENXIO
	case ErrCodeStopped:
		return unix.ENODEV
	case ErrCodeGuestMemory:
		return unix.EFAULT
	default:
		return unix.EIO
	}
}

// ErrnoCode converts an error into the negative return code the host
// injection surface reports: 0 for nil, -errno for structured errors,
// -EIO for anything unrecognized.
func ErrnoCode(err error) int32 {
	if err == nil {
		return 0
	}
	var de *Error
	if errors.As(err, &de) && de.Errno != 0 {
		return -int32(de.Errno)
	}
	if errors.Is(err, queue.ErrFull) {
		return -int32(unix.ENOBUFS)
	}
	return -int32(unix.EIO)
}

// IsCode checks if an error matches a specific error category
func IsCode(err error, code ErrorCode) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
