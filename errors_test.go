package vinput

import (
	"errors"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/go-vinput/internal/queue"
)

func TestStructuredError(t *testing.T) {
	err := NewDeviceError("ACTIVATE", "virtio-keyboard", ErrCodeNotReady, "queue not bound")

	if err.Op != "ACTIVATE" {
		t.Errorf("Expected Op=ACTIVATE, got %s", err.Op)
	}
	if err.Code != ErrCodeNotReady {
		t.Errorf("Expected Code=ErrCodeNotReady, got %s", err.Code)
	}
	if err.Errno != unix.ENXIO {
		t.Errorf("Expected Errno=ENXIO, got %v", err.Errno)
	}

	expected := "vinput: queue not bound (op=ACTIVATE device=virtio-keyboard)"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestSentinelErrors(t *testing.T) {
	structuredErr := NewQueueError("BIND_QUEUE", "virtio-mouse", 3, ErrCodeInvalidQueue, "only the event queue (index 0) exists")

	if !errors.Is(structuredErr, ErrInvalidQueue) {
		t.Error("Structured error should match sentinel via errors.Is")
	}
	if errors.Is(structuredErr, ErrQueueFull) {
		t.Error("Structured error should not match unrelated sentinel")
	}

	var sentinelErr error = ErrNotReady
	if sentinelErr.Error() != "device not ready" {
		t.Errorf("Expected sentinel error message, got %q", sentinelErr.Error())
	}
}

func TestWrapError(t *testing.T) {
	wrapped := WrapError("PUSH", "virtio-keyboard", queue.ErrFull)

	if wrapped.Code != ErrCodeQueueFull {
		t.Errorf("Expected Code=ErrCodeQueueFull, got %s", wrapped.Code)
	}
	if wrapped.Errno != unix.ENOBUFS {
		t.Errorf("Expected Errno=ENOBUFS, got %v", wrapped.Errno)
	}
	if !errors.Is(wrapped, queue.ErrFull) {
		t.Error("Wrapped error should satisfy errors.Is for the inner error")
	}

	if WrapError("PUSH", "virtio-keyboard", nil) != nil {
		t.Error("Wrapping nil should return nil")
	}

	// Double wrapping keeps the original code and errno.
	rewrapped := WrapError("INJECT", "virtio-keyboard", wrapped)
	if rewrapped.Code != ErrCodeQueueFull {
		t.Errorf("Expected rewrapped Code=ErrCodeQueueFull, got %s", rewrapped.Code)
	}
	if rewrapped.Op != "INJECT" {
		t.Errorf("Expected rewrapped Op=INJECT, got %s", rewrapped.Op)
	}
}

func TestErrnoCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int32
	}{
		{"nil", nil, 0},
		{"queue full", NewError("PUSH", ErrCodeQueueFull, ""), -int32(unix.ENOBUFS)},
		{"invalid argument", NewError("INJECT", ErrCodeInvalidArgument, ""), -int32(unix.EINVAL)},
		{"not enabled", NewError("INJECT", ErrCodeNotEnabled, ""), -int32(unix.EINVAL)},
		{"not ready", NewError("PUSH", ErrCodeNotReady, ""), -int32(unix.ENXIO)},
		{"stopped", NewError("ACTIVATE", ErrCodeStopped, ""), -int32(unix.ENODEV)},
		{"guest memory", NewError("DRAIN", ErrCodeGuestMemory, ""), -int32(unix.EFAULT)},
		{"bare queue full", queue.ErrFull, -int32(unix.ENOBUFS)},
		{"unrecognized", errors.New("mystery"), -int32(unix.EIO)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrnoCode(tt.err); got != tt.want {
				t.Errorf("ErrnoCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIsCode(t *testing.T) {
	err := NewError("BIND_QUEUE", ErrCodeInvalidQueue, "bad index")

	if !IsCode(err, ErrCodeInvalidQueue) {
		t.Error("IsCode should return true for matching code")
	}
	if IsCode(err, ErrCodeNotReady) {
		t.Error("IsCode should return false for non-matching code")
	}
	if IsCode(nil, ErrCodeInvalidQueue) {
		t.Error("IsCode should return false for nil error")
	}
	if IsCode(errors.New("plain"), ErrCodeInvalidQueue) {
		t.Error("IsCode should return false for unstructured errors")
	}
}
