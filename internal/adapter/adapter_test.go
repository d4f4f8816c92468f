package adapter_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ronsdev/btkeyd/internal/adapter"
)

// fakeAdapter is an in-memory Adapter used to exercise WaitForEmptyServiceClass
// without a real controller.
type fakeAdapter struct {
	classSeq []uint32 // DeviceClass returns these in order, then repeats the last
	errAt    int       // if >=0, DeviceClass errors on this call index
	calls    int
}

func (f *fakeAdapter) DeviceBDAddr(int) ([6]byte, error) { return [6]byte{}, nil }
func (f *fakeAdapter) SetScanMode(bool) error            { return nil }
func (f *fakeAdapter) SetDeviceClass(uint32) error        { return nil }

func (f *fakeAdapter) DeviceClass() (uint32, error) {
	idx := f.calls
	f.calls++
	if f.errAt >= 0 && idx == f.errAt {
		return 0, assert.AnError
	}
	if idx >= len(f.classSeq) {
		idx = len(f.classSeq) - 1
	}
	return f.classSeq[idx], nil
}

func TestWaitForEmptyServiceClassReturnsOnZero(t *testing.T) {
	f := &fakeAdapter{classSeq: []uint32{0x123000, 0x123000, 0x000000}, errAt: -1}
	start := time.Now()
	adapter.WaitForEmptyServiceClass(f, time.Second)
	assert.Less(t, time.Since(start), time.Second)
	assert.GreaterOrEqual(t, f.calls, 3)
}

func TestWaitForEmptyServiceClassReturnsOnError(t *testing.T) {
	f := &fakeAdapter{classSeq: []uint32{0x123000}, errAt: 0}
	start := time.Now()
	adapter.WaitForEmptyServiceClass(f, time.Second)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, 1, f.calls)
}

func TestWaitForEmptyServiceClassTimesOut(t *testing.T) {
	f := &fakeAdapter{classSeq: []uint32{0x123000}, errAt: -1}
	start := time.Now()
	adapter.WaitForEmptyServiceClass(f, 30*time.Millisecond)
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestPeripheralKeyboardClassBits(t *testing.T) {
	assert.Equal(t, uint32(0x000540), uint32(adapter.PeripheralKeyboardClass))
	assert.Equal(t, uint32(0x00FFF000), uint32(adapter.ServiceClassMask))
}
