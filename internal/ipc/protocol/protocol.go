// Package protocol defines the wire format of the Local Command Channel:
// a 4-byte big-endian opcode followed by an opcode-specific payload, one
// command or callback per frame. Opcode values are fixed by the upstream
// host-side client library this daemon stays compatible with.
package protocol

import "encoding/binary"

// Opcode is a command, callback, or error-callback code.
type Opcode uint32

// Commands sent from client to daemon.
const (
	OpShutdown                 Opcode = 10
	OpDiscoverableOn           Opcode = 20
	OpDiscoverableOff          Opcode = 25
	OpSetHIDDeviceClass        Opcode = 30
	OpResetDeviceClass         Opcode = 35
	OpDeactivateOtherServices  Opcode = 40
	OpReactivateOtherServices  Opcode = 45
	OpHIDConnect               Opcode = 90
	OpHIDDisconnect            Opcode = 95
	OpHIDSendKeys              Opcode = 110
	OpHIDSendMouse             Opcode = 120
	OpHIDSendSystemKeys        Opcode = 125
	OpHIDSendHwKeys            Opcode = 130
	OpHIDSendMediaKeys         Opcode = 140
	OpHIDSendACKeys            Opcode = 145
	OpHIDChangeMouseFeature    Opcode = 150
	OpHIDSendMouseAbsolute     Opcode = 160
)

// Callbacks sent from daemon to client.
const (
	CbConnected    Opcode = 1010
	CbDisconnected Opcode = 1020
	CbInfoNoServer Opcode = 1030
	CbMouseFeature Opcode = 1050
)

// Error callbacks. Each corresponds to a command that can fail
// asynchronously; the offset from the command's own opcode is fixed at
// +2000 across this family (e.g. DISCOVERABLE_ON=20 -> 2020).
const (
	ErrCbDiscoverableOn          Opcode = 2020
	ErrCbDiscoverableOff         Opcode = 2025
	ErrCbSetHIDDeviceClass       Opcode = 2030
	ErrCbResetDeviceClass        Opcode = 2035
	ErrCbDeactivateOtherServices Opcode = 2040
	ErrCbReactivateOtherServices Opcode = 2045
	ErrCbHIDConnect              Opcode = 2090
)

// HeaderLen is the fixed size of the opcode header preceding every frame's
// payload.
const HeaderLen = 4

// AddressTextLen is the length of a "XX:XX:XX:XX:XX:XX" Bluetooth address
// as sent over HID_CONNECT and the CONNECTED callback.
const AddressTextLen = 17

// EncodeHeader serializes an opcode as the 4-byte big-endian header this
// protocol always leads with.
func EncodeHeader(op Opcode) []byte {
	b := make([]byte, HeaderLen)
	binary.BigEndian.PutUint32(b, uint32(op))
	return b
}

// DecodeHeader parses the 4-byte opcode header from the front of buf.
func DecodeHeader(buf []byte) (Opcode, error) {
	if len(buf) < HeaderLen {
		return 0, errShortHeader
	}
	return Opcode(binary.BigEndian.Uint32(buf[:HeaderLen])), nil
}

// Frame builds a full command/callback frame: header plus payload.
func Frame(op Opcode, payload []byte) []byte {
	out := make([]byte, 0, HeaderLen+len(payload))
	out = append(out, EncodeHeader(op)...)
	return append(out, payload...)
}

var errShortHeader = shortHeaderError{}

type shortHeaderError struct{}

func (shortHeaderError) Error() string { return "protocol: frame shorter than header" }
