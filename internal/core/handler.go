package core

import (
	"github.com/ronsdev/btkeyd/internal/hiderr"
	"github.com/ronsdev/btkeyd/internal/ipc/protocol"
	"github.com/ronsdev/btkeyd/internal/l2cap"
	"github.com/ronsdev/btkeyd/internal/session"
)

// Connected implements session.Notifier.
func (c *Core) Connected(peer l2cap.Addr) {
	if c.ipcSrv != nil {
		c.ipcSrv.Notify(protocol.EncodeConnectedCallback(peer.String()))
	}
}

// Disconnected implements session.Notifier.
func (c *Core) Disconnected(peer l2cap.Addr, errCode int) {
	if c.ipcSrv != nil {
		c.ipcSrv.Notify(protocol.EncodeDisconnectedCallback(int32(errCode)))
	}
}

// MouseFeatureChanged implements session.Notifier.
func (c *Core) MouseFeatureChanged(smoothY, smoothX bool) {
	if c.ipcSrv != nil {
		c.ipcSrv.Notify(protocol.EncodeMouseFeatureCallback(smoothY, smoothX))
	}
}

// SessionUp implements ipc.Handler.
func (c *Core) SessionUp() (string, bool) {
	if c.sess.State() != session.Up {
		return "", false
	}
	return c.sess.Peer().String(), true
}

// HIDServerRunning implements ipc.Handler.
func (c *Core) HIDServerRunning() bool {
	return c.endpoint != nil
}

// errCb builds an error-callback frame out of err for the opcode that
// requested the operation, or nil if the operation succeeded.
func errCb(op protocol.Opcode, err error) [][]byte {
	if err == nil {
		return nil
	}
	code := hiderr.FromErrno("core: "+opName(op), err).Code
	return [][]byte{protocol.EncodeErrorCallback(op, int32(code))}
}

// HandleCommand implements ipc.Handler, dispatching each opcode to the
// matching adapter, SDP, session, or L2CAP operation.
func (c *Core) HandleCommand(op protocol.Opcode, payload []byte) [][]byte {
	switch op {
	case protocol.OpShutdown:
		c.RequestShutdown()
		return nil

	case protocol.OpDiscoverableOn:
		err := c.hw.SetScanMode(true)
		c.discoverableWasSet = err == nil
		return errCb(protocol.ErrCbDiscoverableOn, err)

	case protocol.OpDiscoverableOff:
		err := c.hw.SetScanMode(false)
		if err == nil {
			c.discoverableWasSet = false
		}
		return errCb(protocol.ErrCbDiscoverableOff, err)

	case protocol.OpSetHIDDeviceClass:
		return errCb(protocol.ErrCbSetHIDDeviceClass, c.sdp.SetHIDDeviceClass())

	case protocol.OpResetDeviceClass:
		return errCb(protocol.ErrCbResetDeviceClass, c.sdp.ResetDeviceClass())

	case protocol.OpDeactivateOtherServices:
		return errCb(protocol.ErrCbDeactivateOtherServices, c.sdp.DeactivateOtherServices())

	case protocol.OpReactivateOtherServices:
		return errCb(protocol.ErrCbReactivateOtherServices, c.sdp.ReactivateOtherServices())

	case protocol.OpHIDConnect:
		return c.handleHIDConnect(payload)

	case protocol.OpHIDDisconnect:
		c.sess.Shutdown()
		return nil

	case protocol.OpHIDSendKeys:
		p, err := protocol.DecodeKeysPayload(payload)
		if err != nil {
			return nil
		}
		c.sess.SendKeys(p.Modifier, p.Keys)
		return nil

	case protocol.OpHIDSendMouse:
		p, err := protocol.DecodeMousePayload(payload)
		if err != nil {
			return nil
		}
		c.sess.SendMouse(p.Buttons, p.X, p.Y, p.WheelY, p.WheelX)
		return nil

	case protocol.OpHIDSendMouseAbsolute:
		p, err := protocol.DecodeMouseAbsolutePayload(payload)
		if err != nil {
			return nil
		}
		c.sess.SendMouseAbsolute(p.Buttons, p.X, p.Y)
		return nil

	case protocol.OpHIDSendSystemKeys:
		if len(payload) == 1 {
			c.sess.SendSystemKeys(payload[0])
		}
		return nil

	case protocol.OpHIDSendHwKeys:
		if len(payload) == 1 {
			c.sess.SendHwKeys(payload[0])
		}
		return nil

	case protocol.OpHIDSendMediaKeys:
		if len(payload) == 1 {
			c.sess.SendMediaKeys(payload[0])
		}
		return nil

	case protocol.OpHIDSendACKeys:
		if len(payload) == 1 {
			c.sess.SendACKeys(payload[0])
		}
		return nil

	case protocol.OpHIDChangeMouseFeature:
		p, err := protocol.DecodeMouseFeaturePayload(payload)
		if err != nil {
			return nil
		}
		c.sess.SetMouseFeature(p.SmoothScrollY, p.SmoothScrollX)
		return nil

	default:
		return nil
	}
}

func (c *Core) handleHIDConnect(payload []byte) [][]byte {
	peer, err := l2cap.ParseAddr(string(payload))
	if err != nil {
		return [][]byte{protocol.EncodeErrorCallback(protocol.ErrCbHIDConnect, int32(hiderr.InvalidBluetoothAddress))}
	}
	ctrl, intr, err := l2cap.ConnectHID(l2cap.Addr(c.identity.Addr), peer)
	if err != nil {
		return errCb(protocol.ErrCbHIDConnect, err)
	}
	if err := c.sess.OutboundDialed(peer, ctrl, intr); err != nil {
		ctrl.Close()
		intr.Close()
		return errCb(protocol.ErrCbHIDConnect, err)
	}
	return nil
}

func opName(op protocol.Opcode) string {
	switch op {
	case protocol.ErrCbDiscoverableOn:
		return "discoverable-on"
	case protocol.ErrCbDiscoverableOff:
		return "discoverable-off"
	case protocol.ErrCbSetHIDDeviceClass:
		return "set-hid-device-class"
	case protocol.ErrCbResetDeviceClass:
		return "reset-device-class"
	case protocol.ErrCbDeactivateOtherServices:
		return "deactivate-other-services"
	case protocol.ErrCbReactivateOtherServices:
		return "reactivate-other-services"
	case protocol.ErrCbHIDConnect:
		return "hid-connect"
	default:
		return "command"
	}
}
