package sdp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimitiveElementShapes(t *testing.T) {
	assert.Equal(t, []byte{0x08, 0x2a}, u8(0x2a))
	assert.Equal(t, []byte{0x09, 0x01, 0x24}, u16(0x0124))
	assert.Equal(t, []byte{0x0a, 0x00, 0x00, 0x11, 0x24}, u32(0x1124))
	assert.Equal(t, []byte{0x19, 0x11, 0x24}, uuid16(0x1124))
	assert.Equal(t, []byte{0x28, 0x01}, boolean(true))
	assert.Equal(t, []byte{0x28, 0x00}, boolean(false))
}

func TestTextAndSeqVarLen(t *testing.T) {
	got := text("hi")
	assert.Equal(t, []byte{0x25, 0x02, 'h', 'i'}, got)

	s := seq(u8(1), u8(2))
	require.Len(t, s, 2+4)
	assert.Equal(t, byte(0x35), s[0])
	assert.Equal(t, byte(4), s[1])
}

func TestAttrPairing(t *testing.T) {
	a := attr(0x0001, uuid16(0x1124))
	assert.Equal(t, append(u16(0x0001), uuid16(0x1124)...), a)
}

func TestDeElementSizeRoundTrip(t *testing.T) {
	e := seq(u8(1), u16(2))
	size, ok := deElementSize(e)
	require.True(t, ok)
	assert.Equal(t, len(e), size)
}
