package uapi

import (
	"testing"
	"unsafe"
)

// Test structure sizes match the guest driver's expectations
func TestStructSizes(t *testing.T) {
	tests := []struct {
		name     string
		size     uintptr
		expected int
	}{
		{"InputEvent", unsafe.Sizeof(InputEvent{}), 8},
		{"DevIDs", unsafe.Sizeof(DevIDs{}), 8},
		{"AbsInfo", unsafe.Sizeof(AbsInfo{}), 20},
		{"ConfigSpace", unsafe.Sizeof(ConfigSpace{}), 136},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if int(tt.size) != tt.expected {
				t.Errorf("%s size = %d, want %d", tt.name, tt.size, tt.expected)
			}
		})
	}
}

func TestEventRoundTrip(t *testing.T) {
	original := InputEvent{Type: EvRel, Code: RelY, Value: -3}

	data := MarshalEvent(original)
	if len(data) != EventSize {
		t.Fatalf("MarshalEvent length = %d, want %d", len(data), EventSize)
	}

	decoded, err := UnmarshalEvent(data)
	if err != nil {
		t.Fatalf("UnmarshalEvent failed: %v", err)
	}
	if decoded != original {
		t.Errorf("round trip = %+v, want %+v", decoded, original)
	}
}

func TestEventWireLayout(t *testing.T) {
	// A key press for code 30 (KEY_A): type=0x0001, code=0x001e, value=1
	data := MarshalEvent(Key(30, true))

	want := []byte{0x01, 0x00, 0x1e, 0x00, 0x01, 0x00, 0x00, 0x00}
	for i := range want {
		if data[i] != want[i] {
			t.Fatalf("byte %d = %#x, want %#x (record % x)", i, data[i], want[i], data)
		}
	}
}

func TestEventConstructors(t *testing.T) {
	if ev := SynReport(); ev.Type != EvSyn || ev.Code != SynReportCode || ev.Value != 0 {
		t.Errorf("SynReport() = %+v", ev)
	}
	if ev := Key(BtnLeft, false); ev.Type != EvKey || ev.Code != BtnLeft || ev.Value != 0 {
		t.Errorf("Key(release) = %+v", ev)
	}
	if ev := RelMotion(RelWheel, -1); ev.Type != EvRel || ev.Code != RelWheel || ev.Value != -1 {
		t.Errorf("RelMotion = %+v", ev)
	}
}

func TestUnmarshalEventShort(t *testing.T) {
	if _, err := UnmarshalEvent(make([]byte, EventSize-1)); err != ErrInsufficientData {
		t.Errorf("UnmarshalEvent(short) err = %v, want %v", err, ErrInsufficientData)
	}
}

func TestDevIDsRoundTrip(t *testing.T) {
	original := DevIDs{
		BusType: BusVirtual,
		Vendor:  VendorVirtio,
		Product: ProductMouse,
		Version: 1,
	}

	data := MarshalDevIDs(original)
	if len(data) != 8 {
		t.Fatalf("MarshalDevIDs length = %d, want 8", len(data))
	}

	decoded, err := UnmarshalDevIDs(data)
	if err != nil {
		t.Fatalf("UnmarshalDevIDs failed: %v", err)
	}
	if decoded != original {
		t.Errorf("round trip = %+v, want %+v", decoded, original)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	original := &ConfigSpace{
		Select: CfgIDName,
		Subsel: 0,
		Size:   5,
	}
	copy(original.Payload[:], "mouse")

	data := MarshalConfig(original)
	if len(data) != ConfigSize {
		t.Fatalf("MarshalConfig length = %d, want %d", len(data), ConfigSize)
	}

	var decoded ConfigSpace
	if err := UnmarshalConfig(data, &decoded); err != nil {
		t.Fatalf("UnmarshalConfig failed: %v", err)
	}
	if decoded != *original {
		t.Errorf("round trip mismatch: select=%d subsel=%d size=%d", decoded.Select, decoded.Subsel, decoded.Size)
	}
}

func TestBitmap(t *testing.T) {
	var b Bitmap

	if b.Width() != 0 {
		t.Errorf("empty Width() = %d, want 0", b.Width())
	}

	b.Set(RelX)
	b.Set(RelY)
	b.Set(RelWheel)

	if !b.IsSet(RelWheel) || b.IsSet(RelWheel+1) {
		t.Error("bit membership wrong after Set")
	}
	// REL_WHEEL is bit 8, so two bytes are needed
	if b.Width() != 2 {
		t.Errorf("Width() = %d, want 2", b.Width())
	}

	var keys Bitmap
	keys.Set(BtnMiddle) // bit 0x112 -> byte 34
	if keys.Width() != 35 {
		t.Errorf("Width() = %d, want 35", keys.Width())
	}

	// Out-of-range bits are ignored, not a panic
	keys.Set(ConfigPayloadSize*8 + 5)
	if keys.IsSet(ConfigPayloadSize*8 + 5) {
		t.Error("out-of-range bit reported set")
	}
}
