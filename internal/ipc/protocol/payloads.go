package protocol

import (
	"encoding/binary"
	"fmt"
)

// PayloadLen returns the fixed payload size that follows op's header (0
// for commands that take none), or false if op is not a known command.
func PayloadLen(op Opcode) (int, bool) {
	switch op {
	case OpShutdown, OpDiscoverableOn, OpDiscoverableOff,
		OpResetDeviceClass, OpDeactivateOtherServices, OpReactivateOtherServices,
		OpHIDDisconnect:
		return 0, true
	case OpSetHIDDeviceClass:
		return 0, true
	case OpHIDConnect:
		return AddressTextLen, true
	case OpHIDSendKeys:
		return 7, true // 1 modifier + 6 key codes
	case OpHIDSendMouse:
		return mouseLen, true // 1 buttons, 2 X, 2 Y, 1 wheelY, 1 wheelX
	case OpHIDSendSystemKeys, OpHIDSendHwKeys, OpHIDSendMediaKeys, OpHIDSendACKeys:
		return 1, true
	case OpHIDChangeMouseFeature:
		return 2, true
	case OpHIDSendMouseAbsolute:
		return 5, true
	default:
		return 0, false
	}
}

const mouseLen = 7

// KeysPayload is the decoded HID_SEND_KEYS payload.
type KeysPayload struct {
	Modifier byte
	Keys     [6]byte
}

func DecodeKeysPayload(b []byte) (KeysPayload, error) {
	if len(b) != 7 {
		return KeysPayload{}, fmt.Errorf("protocol: bad HID_SEND_KEYS payload length %d", len(b))
	}
	var p KeysPayload
	p.Modifier = b[0]
	copy(p.Keys[:], b[1:7])
	return p, nil
}

// MousePayload is the decoded HID_SEND_MOUSE payload. Unlike the HID wire
// codec, the local command channel is big-endian throughout — an
// intentional asymmetry this daemon preserves from the upstream protocol.
type MousePayload struct {
	Buttons byte
	X, Y    int16
	WheelY  int8
	WheelX  int8
}

func DecodeMousePayload(b []byte) (MousePayload, error) {
	if len(b) != mouseLen {
		return MousePayload{}, fmt.Errorf("protocol: bad HID_SEND_MOUSE payload length %d", len(b))
	}
	var p MousePayload
	p.Buttons = b[0]
	p.X = int16(binary.BigEndian.Uint16(b[1:3]))
	p.Y = int16(binary.BigEndian.Uint16(b[3:5]))
	p.WheelY = int8(b[5])
	p.WheelX = int8(b[6])
	return p, nil
}

func EncodeMousePayload(p MousePayload) []byte {
	out := make([]byte, mouseLen)
	out[0] = p.Buttons
	binary.BigEndian.PutUint16(out[1:3], uint16(p.X))
	binary.BigEndian.PutUint16(out[3:5], uint16(p.Y))
	out[5] = byte(p.WheelY)
	out[6] = byte(p.WheelX)
	return out
}

// MouseAbsolutePayload is the decoded HID_SEND_MOUSE_ABSOLUTE payload.
type MouseAbsolutePayload struct {
	Buttons byte
	X, Y    uint16
}

func DecodeMouseAbsolutePayload(b []byte) (MouseAbsolutePayload, error) {
	if len(b) != 5 {
		return MouseAbsolutePayload{}, fmt.Errorf("protocol: bad HID_SEND_MOUSE_ABSOLUTE payload length %d", len(b))
	}
	var p MouseAbsolutePayload
	p.Buttons = b[0]
	p.X = binary.BigEndian.Uint16(b[1:3])
	p.Y = binary.BigEndian.Uint16(b[3:5])
	return p, nil
}

// MouseFeaturePayload is the decoded HID_CHANGE_MOUSE_FEATURE payload.
type MouseFeaturePayload struct {
	SmoothScrollY bool
	SmoothScrollX bool
}

func DecodeMouseFeaturePayload(b []byte) (MouseFeaturePayload, error) {
	if len(b) != 2 {
		return MouseFeaturePayload{}, fmt.Errorf("protocol: bad HID_CHANGE_MOUSE_FEATURE payload length %d", len(b))
	}
	return MouseFeaturePayload{SmoothScrollY: b[0] != 0, SmoothScrollX: b[1] != 0}, nil
}

// EncodeConnectedCallback builds the CONNECTED callback payload: the
// 17-ASCII-byte peer address.
func EncodeConnectedCallback(addrText string) []byte {
	return Frame(CbConnected, []byte(addrText))
}

// EncodeDisconnectedCallback builds the DISCONNECTED callback payload: a
// 4-byte big-endian error code (0 = clean).
func EncodeDisconnectedCallback(errCode int32) []byte {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, uint32(errCode))
	return Frame(CbDisconnected, payload)
}

// EncodeMouseFeatureCallback builds the MOUSE_FEATURE callback payload.
func EncodeMouseFeatureCallback(smoothY, smoothX bool) []byte {
	b := func(v bool) byte {
		if v {
			return 1
		}
		return 0
	}
	return Frame(CbMouseFeature, []byte{b(smoothY), b(smoothX)})
}

// EncodeErrorCallback builds an error-callback frame.
func EncodeErrorCallback(op Opcode, code int32) []byte {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, uint32(code))
	return Frame(op, payload)
}
