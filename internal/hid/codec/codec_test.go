package codec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ronsdev/btkeyd/internal/hid/codec"
	"github.com/ronsdev/btkeyd/internal/hid/descriptor"
)

func TestTransactionRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
	}{
		{"handshake success", []byte{codec.EncodeHeader(codec.TypeHandshake, codec.HandshakeSuccess)}},
		{"get report input", []byte{codec.EncodeHeader(codec.TypeGetReport, codec.ReportTypeInput), 0x01}},
		{"set report feature", []byte{codec.EncodeHeader(codec.TypeSetReport, codec.ReportTypeFeature), 0x22, 0x09}},
		{"get report buffered", []byte{codec.EncodeHeader(codec.TypeGetReport, codec.ReportTypeInputBuffered), 0x01, 0x40, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := codec.DecodeTransaction(tt.frame)
			require.NoError(t, err)
			got := codec.EncodeTransaction(tx)
			assert.Equal(t, tt.frame, got)
		})
	}
}

func TestDecodeTransactionRejectsEmpty(t *testing.T) {
	_, err := codec.DecodeTransaction(nil)
	assert.Error(t, err)
}

func TestDecodeTransactionRejectsTruncatedBuffered(t *testing.T) {
	_, err := codec.DecodeTransaction([]byte{codec.EncodeHeader(codec.TypeGetReport, codec.ReportTypeInputBuffered), 0x01})
	assert.Error(t, err)
}

func TestKeyboardReportShape(t *testing.T) {
	k := codec.Keyboard{Modifier: 0x02, Keys: [6]byte{0x04}}
	payload := codec.EncodeKeyboard(k)
	require.Len(t, payload, 9)
	assert.Equal(t, byte(descriptor.ReportIDKeyboard), payload[0])
	assert.Equal(t, []byte{0xA1, 0x01, 0x02, 0x00, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00}, codec.DataInput(payload))

	back, err := codec.DecodeKeyboard(payload)
	require.NoError(t, err)
	assert.Equal(t, k, back)
}

func TestEmptyKeyboardReport(t *testing.T) {
	payload := codec.EncodeKeyboard(codec.Keyboard{})
	assert.Equal(t, []byte{0x01, 0x00, 0x00, 0, 0, 0, 0, 0, 0}, payload)
}

func TestMouseClamping(t *testing.T) {
	cases := []struct {
		in       codec.Mouse
		wantX    int16
		wantY    int16
	}{
		{codec.Mouse{X: 5000, Y: -5000}, 2047, -2047},
		{codec.Mouse{X: -5000, Y: 5000}, -2047, 2047},
		{codec.Mouse{X: 100, Y: -100}, 100, -100},
	}
	for _, c := range cases {
		payload := codec.EncodeMouse(c.in)
		got, err := codec.DecodeMouse(payload)
		require.NoError(t, err)
		assert.Equal(t, c.wantX, got.X)
		assert.Equal(t, c.wantY, got.Y)
	}
}

func TestMouseAbsoluteClampingScenario(t *testing.T) {
	// HID_SEND_MOUSE_ABSOLUTE(buttons=0x01, X=0xFFFF, Y=0x0000) must
	// clamp X to 2047 (0x07FF) and observe little-endian on the wire.
	payload := codec.EncodeMouseAbsolute(codec.MouseAbsolute{Buttons: 0x01, X: 0xFFFF, Y: 0x0000})
	assert.Equal(t, []byte{0x23, 0x01, 0xFF, 0x07, 0x00, 0x00}, payload)
	assert.Equal(t, []byte{0xA1, 0x23, 0x01, 0xFF, 0x07, 0x00, 0x00}, codec.DataInput(payload))
}

func TestMouseFeatureSetThenGet(t *testing.T) {
	f := codec.MouseFeature{SmoothScrollY: true, SmoothScrollX: true}
	b := codec.EncodeMouseFeature(f)
	assert.Equal(t, []byte{0x09}, b)
	back, err := codec.DecodeMouseFeature(b)
	require.NoError(t, err)
	assert.Equal(t, f, back)
}

func TestDecodeRejectsWrongReportID(t *testing.T) {
	_, err := codec.DecodeMouse([]byte{0x99, 0, 0, 0, 0, 0, 0, 0})
	assert.Error(t, err)

	_, err = codec.DecodeBitmapReport([]byte{0x10, 0x03}, descriptor.ReportIDSystemKeys)
	assert.NoError(t, err)
	_, err = codec.DecodeBitmapReport([]byte{0x11, 0x03}, descriptor.ReportIDSystemKeys)
	assert.Error(t, err)
}

func TestEncodedLengthsMatchDescriptor(t *testing.T) {
	cases := []struct {
		id      byte
		payload []byte
	}{
		{descriptor.ReportIDKeyboard, codec.EncodeKeyboard(codec.Keyboard{})},
		{descriptor.ReportIDMouse, codec.EncodeMouse(codec.Mouse{})},
		{descriptor.ReportIDMouseAbsolute, codec.EncodeMouseAbsolute(codec.MouseAbsolute{})},
		{descriptor.ReportIDSystemKeys, codec.EncodeBitmapReport(descriptor.ReportIDSystemKeys, 0)},
		{descriptor.ReportIDHwKeys, codec.EncodeBitmapReport(descriptor.ReportIDHwKeys, 0)},
		{descriptor.ReportIDMediaKeys, codec.EncodeBitmapReport(descriptor.ReportIDMediaKeys, 0)},
		{descriptor.ReportIDAppControl, codec.EncodeBitmapReport(descriptor.ReportIDAppControl, 0)},
	}
	for _, c := range cases {
		want, ok := descriptor.ReportLengths[c.id]
		require.Truef(t, ok, "no declared length for report id 0x%02x", c.id)
		assert.Lenf(t, c.payload, want, "report id 0x%02x", c.id)
	}
}

func TestDecodeRejectsImpossibleLength(t *testing.T) {
	_, err := codec.DecodeKeyboard([]byte{0x01, 0x00})
	assert.Error(t, err)
	_, err = codec.DecodeMouseAbsolute([]byte{0x23, 0x00, 0x00})
	assert.Error(t, err)
}
