package l2cap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ronsdev/btkeyd/internal/l2cap"
)

func TestPSMConstants(t *testing.T) {
	assert.Equal(t, uint16(0x11), uint16(l2cap.PSMControl))
	assert.Equal(t, uint16(0x13), uint16(l2cap.PSMInterrupt))
}

func TestPairWindow(t *testing.T) {
	assert.Equal(t, int64(5e9), l2cap.PairWindow.Nanoseconds())
}
