package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/ronsdev/btkeyd/internal/hid/descriptor"
)

// clamp16 restricts v to [lo, hi].
func clamp16(v, lo, hi int16) int16 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp8(v, lo, hi int8) int8 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Keyboard is the shadow state backing the keyboard input report.
type Keyboard struct {
	Modifier byte
	Keys     [6]byte
}

// EncodeKeyboard builds the 9-byte keyboard input report payload:
// [report_id, modifier, reserved=0, k0..k5].
func EncodeKeyboard(k Keyboard) []byte {
	out := make([]byte, 9)
	out[0] = descriptor.ReportIDKeyboard
	out[1] = k.Modifier
	out[2] = 0x00
	copy(out[3:9], k.Keys[:])
	return out
}

// DecodeKeyboard parses a keyboard input report payload. Used only by
// tests asserting the round-trip property; the daemon never receives
// keyboard input reports from a host.
func DecodeKeyboard(payload []byte) (Keyboard, error) {
	if len(payload) != 9 || payload[0] != descriptor.ReportIDKeyboard {
		return Keyboard{}, fmt.Errorf("codec: malformed keyboard report")
	}
	var k Keyboard
	k.Modifier = payload[1]
	copy(k.Keys[:], payload[3:9])
	return k, nil
}

// Mouse is the shadow state for the relative-mouse report.
type Mouse struct {
	Buttons byte // 5 bits used
	X, Y    int16
	WheelY  int8
	WheelX  int8
}

// EncodeMouse builds the 8-byte relative mouse report:
// [report_id, buttons, X_lo, X_hi, Y_lo, Y_hi, wheelY, wheelX].
// X/Y are clamped to [-2047, 2047]; wheels to [-127, 127].
func EncodeMouse(m Mouse) []byte {
	x := clamp16(m.X, -2047, 2047)
	y := clamp16(m.Y, -2047, 2047)
	wy := clamp8(m.WheelY, -127, 127)
	wx := clamp8(m.WheelX, -127, 127)

	out := make([]byte, 8)
	out[0] = descriptor.ReportIDMouse
	out[1] = m.Buttons & 0x1F
	binary.LittleEndian.PutUint16(out[2:4], uint16(x))
	binary.LittleEndian.PutUint16(out[4:6], uint16(y))
	out[6] = byte(wy)
	out[7] = byte(wx)
	return out
}

// DecodeMouse parses a relative mouse report payload.
func DecodeMouse(payload []byte) (Mouse, error) {
	if len(payload) != 8 || payload[0] != descriptor.ReportIDMouse {
		return Mouse{}, fmt.Errorf("codec: malformed mouse report")
	}
	var m Mouse
	m.Buttons = payload[1] & 0x1F
	m.X = int16(binary.LittleEndian.Uint16(payload[2:4]))
	m.Y = int16(binary.LittleEndian.Uint16(payload[4:6]))
	m.WheelY = int8(payload[6])
	m.WheelX = int8(payload[7])
	return m, nil
}

// MouseAbsolute is the shadow state for the absolute-mouse report.
type MouseAbsolute struct {
	Buttons byte
	X, Y    uint16 // logical range 0..2047
}

// EncodeMouseAbsolute builds the 6-byte absolute mouse report:
// [report_id, buttons, X_lo, X_hi, Y_lo, Y_hi]. X/Y clamped to [0, 2047].
func EncodeMouseAbsolute(m MouseAbsolute) []byte {
	x := m.X
	if x > 2047 {
		x = 2047
	}
	y := m.Y
	if y > 2047 {
		y = 2047
	}
	out := make([]byte, 6)
	out[0] = descriptor.ReportIDMouseAbsolute
	out[1] = m.Buttons & 0x1F
	binary.LittleEndian.PutUint16(out[2:4], x)
	binary.LittleEndian.PutUint16(out[4:6], y)
	return out
}

// DecodeMouseAbsolute parses an absolute mouse report payload.
func DecodeMouseAbsolute(payload []byte) (MouseAbsolute, error) {
	if len(payload) != 6 || payload[0] != descriptor.ReportIDMouseAbsolute {
		return MouseAbsolute{}, fmt.Errorf("codec: malformed absolute mouse report")
	}
	var m MouseAbsolute
	m.Buttons = payload[1] & 0x1F
	m.X = binary.LittleEndian.Uint16(payload[2:4])
	m.Y = binary.LittleEndian.Uint16(payload[4:6])
	return m, nil
}

// EncodeBitmapReport builds the generic [id, bitmap] shape shared by the
// system-keys, hardware-keys, media-keys, and app-control reports.
func EncodeBitmapReport(id byte, bitmap byte) []byte {
	return []byte{id, bitmap}
}

// DecodeBitmapReport parses the generic [id, bitmap] shape, verifying the
// declared report ID matches what the caller expects.
func DecodeBitmapReport(payload []byte, wantID byte) (byte, error) {
	if len(payload) != 2 || payload[0] != wantID {
		return 0, fmt.Errorf("codec: malformed report for id 0x%02x", wantID)
	}
	return payload[1], nil
}

// MouseFeature is the decoded smooth-scroll resolution-multiplier state.
type MouseFeature struct {
	SmoothScrollY bool
	SmoothScrollX bool
}

// EncodeMouseFeature builds the single feature-report byte: bits 0-1 =
// vertical multiplier, bit 2 reserved, bits 3-4 = horizontal multiplier,
// bits 5-7 reserved.
func EncodeMouseFeature(f MouseFeature) []byte {
	var b byte
	if f.SmoothScrollY {
		b |= 0x01
	}
	if f.SmoothScrollX {
		b |= 0x08
	}
	return []byte{b}
}

// DecodeMouseFeature parses the feature byte sent by a host via
// SET_REPORT Feature on report ID 0x22.
func DecodeMouseFeature(payload []byte) (MouseFeature, error) {
	if len(payload) != 1 {
		return MouseFeature{}, fmt.Errorf("codec: malformed mouse feature report")
	}
	b := payload[0]
	return MouseFeature{
		SmoothScrollY: b&0x01 != 0,
		SmoothScrollX: b&0x08 != 0,
	}, nil
}
