package core

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ronsdev/btkeyd/internal/adapter"
	"github.com/ronsdev/btkeyd/internal/hid/codec"
	"github.com/ronsdev/btkeyd/internal/hid/descriptor"
	"github.com/ronsdev/btkeyd/internal/hiderr"
	"github.com/ronsdev/btkeyd/internal/ipc/protocol"
	"github.com/ronsdev/btkeyd/internal/l2cap"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAdapter struct {
	class       uint32
	classErr    error
	setClassErr error
	scanErr     error
	scans       []bool
	classWrites []uint32
}

func (a *fakeAdapter) DeviceBDAddr(devID int) ([6]byte, error) { return [6]byte{1, 2, 3, 4, 5, 6}, nil }
func (a *fakeAdapter) SetScanMode(discoverable bool) error {
	a.scans = append(a.scans, discoverable)
	return a.scanErr
}
func (a *fakeAdapter) DeviceClass() (uint32, error) { return a.class, a.classErr }
func (a *fakeAdapter) SetDeviceClass(cls uint32) error {
	a.classWrites = append(a.classWrites, cls)
	return a.setClassErr
}

type fakeSDP struct {
	registered   bool
	unregisterErr error
	setClassErr  error
	resetClassErr error
	deactivateErr error
	reactivateErr error
	closeErr      error
}

func (s *fakeSDP) Register(normallyConnectable bool) error { s.registered = true; return nil }
func (s *fakeSDP) Unregister() error                        { return s.unregisterErr }
func (s *fakeSDP) DeactivateOtherServices() error           { return s.deactivateErr }
func (s *fakeSDP) ReactivateOtherServices() error           { return s.reactivateErr }
func (s *fakeSDP) SetHIDDeviceClass() error                 { return s.setClassErr }
func (s *fakeSDP) ResetDeviceClass() error                  { return s.resetClassErr }
func (s *fakeSDP) Close() error                             { return s.closeErr }

type fakeConn struct {
	writes [][]byte
	closed bool
}

func (c *fakeConn) Read(b []byte) (int, error)  { return 0, fmt.Errorf("fakeConn: no data") }
func (c *fakeConn) Write(b []byte) (int, error) { c.writes = append(c.writes, append([]byte{}, b...)); return len(b), nil }
func (c *fakeConn) Close() error                { c.closed = true; return nil }
func (c *fakeConn) Fd() int                     { return -1 }

func newTestCore(t *testing.T, hw *fakeAdapter, sdp *fakeSDP) *Core {
	t.Helper()
	identity := adapter.Identity{DevID: 0, Addr: [6]byte{9, 8, 7, 6, 5, 4}}
	return New(testLogger(), identity, hw, sdp, nil, nil)
}

func TestShutdownCommandSetsStickyFlag(t *testing.T) {
	c := newTestCore(t, &fakeAdapter{}, &fakeSDP{})
	assert.False(t, c.shuttingDown)
	resp := c.HandleCommand(protocol.OpShutdown, nil)
	assert.Nil(t, resp)
	assert.True(t, c.shuttingDown)
}

func TestDiscoverableOnTracksStateAndReportsErrors(t *testing.T) {
	hw := &fakeAdapter{}
	c := newTestCore(t, hw, &fakeSDP{})

	resp := c.HandleCommand(protocol.OpDiscoverableOn, nil)
	assert.Nil(t, resp)
	assert.True(t, c.discoverableWasSet)
	assert.Equal(t, []bool{true}, hw.scans)

	hw.scanErr = fmt.Errorf("boom")
	resp = c.HandleCommand(protocol.OpDiscoverableOn, nil)
	require.Len(t, resp, 1)
	op, err := protocol.DecodeHeader(resp[0])
	require.NoError(t, err)
	assert.Equal(t, protocol.ErrCbDiscoverableOn, op)
	assert.False(t, c.discoverableWasSet)
}

func TestDiscoverableOffClearsState(t *testing.T) {
	hw := &fakeAdapter{}
	c := newTestCore(t, hw, &fakeSDP{})
	c.discoverableWasSet = true

	resp := c.HandleCommand(protocol.OpDiscoverableOff, nil)
	assert.Nil(t, resp)
	assert.False(t, c.discoverableWasSet)
}

func TestSetAndResetHIDDeviceClassDelegateToPublisher(t *testing.T) {
	sdp := &fakeSDP{}
	c := newTestCore(t, &fakeAdapter{}, sdp)

	assert.Nil(t, c.HandleCommand(protocol.OpSetHIDDeviceClass, nil))

	sdp.resetClassErr = fmt.Errorf("nope")
	resp := c.HandleCommand(protocol.OpResetDeviceClass, nil)
	require.Len(t, resp, 1)
	op, err := protocol.DecodeHeader(resp[0])
	require.NoError(t, err)
	assert.Equal(t, protocol.ErrCbResetDeviceClass, op)
}

func TestDeactivateAndReactivateOtherServicesDelegate(t *testing.T) {
	sdp := &fakeSDP{}
	c := newTestCore(t, &fakeAdapter{}, sdp)

	assert.Nil(t, c.HandleCommand(protocol.OpDeactivateOtherServices, nil))

	sdp.reactivateErr = fmt.Errorf("stuck")
	resp := c.HandleCommand(protocol.OpReactivateOtherServices, nil)
	require.Len(t, resp, 1)
	op, _ := protocol.DecodeHeader(resp[0])
	assert.Equal(t, protocol.ErrCbReactivateOtherServices, op)
}

func TestHIDConnectWithMalformedAddressReturnsErrorCallback(t *testing.T) {
	c := newTestCore(t, &fakeAdapter{}, &fakeSDP{})
	resp := c.HandleCommand(protocol.OpHIDConnect, []byte("not-an-address!!"))
	require.Len(t, resp, 1)
	op, err := protocol.DecodeHeader(resp[0])
	require.NoError(t, err)
	assert.Equal(t, protocol.ErrCbHIDConnect, op)
	assert.Equal(t, int32(hiderr.InvalidBluetoothAddress), int32(decodeErrCode(resp[0])))
}

func decodeErrCode(frame []byte) int32 {
	if len(frame) < protocol.HeaderLen+4 {
		return 0
	}
	b := frame[protocol.HeaderLen:]
	return int32(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
}

func TestSendKeysWhileLinkDownIsANoop(t *testing.T) {
	c := newTestCore(t, &fakeAdapter{}, &fakeSDP{})
	resp := c.HandleCommand(protocol.OpHIDSendKeys, []byte{0x02, 4, 0, 0, 0, 0, 0})
	assert.Nil(t, resp)
	assert.Equal(t, l2cap.Addr{}, c.sess.Peer())
}

func TestSendKeysOnceLinkUpWritesInterruptFrame(t *testing.T) {
	c := newTestCore(t, &fakeAdapter{}, &fakeSDP{})
	ctrl, intr := &fakeConn{}, &fakeConn{}
	require.NoError(t, c.sess.OutboundDialed(l2cap.Addr{1, 2, 3, 4, 5, 6}, ctrl, intr))

	resp := c.HandleCommand(protocol.OpHIDSendKeys, []byte{0x02, 4, 0, 0, 0, 0, 0})
	assert.Nil(t, resp)
	require.Len(t, intr.writes, 1)
}

func TestMouseFeatureCommandUpdatesSession(t *testing.T) {
	c := newTestCore(t, &fakeAdapter{}, &fakeSDP{})
	resp := c.HandleCommand(protocol.OpHIDChangeMouseFeature, []byte{1, 0})
	assert.Nil(t, resp)

	getFeature := []byte{codec.EncodeHeader(codec.TypeGetReport, codec.ReportTypeFeature), descriptor.ReportIDMouseFeature}
	assert.Equal(t, codec.DataFeature([]byte{0x01}), c.sess.HandleCtrlFrame(getFeature))
}

func TestBootSavesInitialDeviceClassAndRegisters(t *testing.T) {
	hw := &fakeAdapter{class: 0x1234}
	sdp := &fakeSDP{}
	c := newTestCore(t, hw, sdp)

	require.NoError(t, c.Boot())
	assert.True(t, sdp.registered)
	assert.Equal(t, uint32(0x1234), c.origDeviceClass)
}

func TestShutdownRunsFullCascadeAndRecordsFirstError(t *testing.T) {
	hw := &fakeAdapter{class: 0xAB}
	sdp := &fakeSDP{unregisterErr: fmt.Errorf("unregister failed"), setClassErr: fmt.Errorf("unused")}
	c := newTestCore(t, hw, sdp)
	require.NoError(t, c.Boot())

	err := c.Shutdown()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unregister failed")
	assert.Contains(t, hw.classWrites, uint32(0xAB))
}

func TestRequestShutdownIsIdempotent(t *testing.T) {
	c := newTestCore(t, &fakeAdapter{}, &fakeSDP{})
	c.RequestShutdown()
	c.RequestShutdown()
	assert.True(t, c.shuttingDown)
}
