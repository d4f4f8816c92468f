// Package session implements the per-connection HID transaction state
// machine: at most one active Bluetooth HID link, its control/interrupt
// channel pair, and the shadow report state sent back to a GET_REPORT.
//
// The package does no I/O scheduling of its own — its Conn values are
// driven by internal/core's single-threaded readiness loop, and time-based
// transitions (the control-only pairing window) are driven by an explicit
// Tick call rather than a timer goroutine, matching the rest of the
// daemon's single-threaded design.
package session

import (
	"fmt"
	"time"

	"github.com/ronsdev/btkeyd/internal/hid/codec"
	"github.com/ronsdev/btkeyd/internal/hid/descriptor"
	"github.com/ronsdev/btkeyd/internal/l2cap"
)

// State is the link's position in the HID connection lifecycle.
type State int

const (
	Idle State = iota
	CtrlOnly
	Up
	Closing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case CtrlOnly:
		return "ctrl-only"
	case Up:
		return "up"
	case Closing:
		return "closing"
	default:
		return "unknown"
	}
}

// Conn is the minimal byte-stream contract a Session needs from an L2CAP
// connection; *l2cap.Conn satisfies it, and tests substitute an in-memory
// fake.
type Conn interface {
	Read([]byte) (int, error)
	Write([]byte) (int, error)
	Close() error
	Fd() int
}

// Notifier receives the events the Local Command Channel forwards to its
// client as callbacks.
type Notifier interface {
	Connected(peer l2cap.Addr)
	Disconnected(peer l2cap.Addr, errCode int)
	MouseFeatureChanged(smoothY, smoothX bool)
}

// Session is the single active (or pending) HID link.
type Session struct {
	state State
	peer  l2cap.Addr

	ctrl Conn
	intr Conn

	pairDeadline time.Time

	shadow   shadow
	notifier Notifier
}

// New creates a Session in Idle, reporting connect/disconnect/feature
// events to notifier.
func New(notifier Notifier) *Session {
	return &Session{notifier: notifier}
}

// State returns the current link state.
func (s *Session) State() State { return s.state }

// Peer returns the address of the currently or most recently connected host.
func (s *Session) Peer() l2cap.Addr { return s.peer }

// CtrlFd and IntrFd expose the live connections' descriptors for the
// readiness loop's poll set; they return -1 when the respective channel
// isn't open.
func (s *Session) CtrlFd() int {
	if s.ctrl == nil {
		return -1
	}
	return s.ctrl.Fd()
}

func (s *Session) IntrFd() int {
	if s.intr == nil {
		return -1
	}
	return s.intr.Fd()
}

// CtrlAccepted handles an inbound accept on the control PSM. Only valid
// from Idle; any other state rejects the accept (the caller should close
// conn).
func (s *Session) CtrlAccepted(peer l2cap.Addr, conn Conn) error {
	if s.state != Idle {
		return fmt.Errorf("session: ctrl accept while %s", s.state)
	}
	s.state = CtrlOnly
	s.peer = peer
	s.ctrl = conn
	s.pairDeadline = time.Now().Add(l2cap.PairWindow)
	return nil
}

// IntrAccepted handles an inbound accept on the interrupt PSM. If it
// doesn't match the pending control peer, both channels are closed and the
// link returns to Idle. On match, the link comes Up.
func (s *Session) IntrAccepted(peer l2cap.Addr, conn Conn) {
	if s.state != CtrlOnly {
		conn.Close()
		return
	}
	if peer != s.peer {
		conn.Close()
		s.closeChannels()
		s.state = Idle
		return
	}
	s.intr = conn
	s.enterUp()
}

// OutboundDialed transitions directly to Up once both outbound sockets are
// connected; the endpoint layer guarantees both are live before calling
// this.
func (s *Session) OutboundDialed(peer l2cap.Addr, ctrl, intr Conn) error {
	if s.state != Idle {
		return fmt.Errorf("session: outbound dial while %s", s.state)
	}
	s.peer = peer
	s.ctrl = ctrl
	s.intr = intr
	s.enterUp()
	return nil
}

func (s *Session) enterUp() {
	s.state = Up
	s.shadow.reset()
	if s.notifier != nil {
		s.notifier.Connected(s.peer)
	}
}

// Tick checks time-based transitions. The core readiness loop calls this
// once per poll iteration.
func (s *Session) Tick(now time.Time) {
	if s.state == CtrlOnly && !s.pairDeadline.IsZero() && now.After(s.pairDeadline) {
		s.closeChannels()
		s.state = Idle
	}
}

// ServiceCtrl reads one frame from the control channel, runs it through
// HandleCtrlFrame, and writes back the response (if any). A read or write
// error tears the link down exactly as CtrlClosed would.
func (s *Session) ServiceCtrl() {
	if s.ctrl == nil {
		return
	}
	buf := make([]byte, 256)
	n, err := s.ctrl.Read(buf)
	if err != nil {
		s.CtrlClosed()
		return
	}
	resp := s.HandleCtrlFrame(buf[:n])
	if resp == nil {
		return
	}
	if _, err := s.ctrl.Write(resp); err != nil {
		s.CtrlClosed()
	}
}

// CtrlClosed handles the control channel dropping while Up or CtrlOnly.
func (s *Session) CtrlClosed() {
	s.teardown(0)
}

// IntrClosed handles the interrupt channel dropping while Up.
func (s *Session) IntrClosed() {
	s.teardown(0)
}

// Shutdown forces the link down regardless of state, used on daemon exit
// or an explicit disconnect request.
func (s *Session) Shutdown() {
	if s.state == Idle {
		return
	}
	s.teardown(0)
}

func (s *Session) teardown(errCode int) {
	if s.state == Idle {
		return
	}
	peer := s.peer
	wasUp := s.state == Up
	s.state = Closing
	s.closeChannels()
	s.state = Idle
	if wasUp && s.notifier != nil {
		s.notifier.Disconnected(peer, errCode)
	}
}

func (s *Session) closeChannels() {
	if s.ctrl != nil {
		s.ctrl.Close()
		s.ctrl = nil
	}
	if s.intr != nil {
		s.intr.Close()
		s.intr = nil
	}
}

// HandleCtrlFrame processes one frame received on the control channel and
// returns the response frame to write back on the same channel, or nil if
// no response is required. A write error by the caller should trigger
// CtrlClosed.
func (s *Session) HandleCtrlFrame(frame []byte) []byte {
	tx, err := codec.DecodeTransaction(frame)
	if err != nil {
		return codec.Handshake(codec.HandshakeErrInvParam)
	}

	switch tx.Type {
	case codec.TypeGetReport:
		return s.handleGetReport(tx)
	case codec.TypeSetReport:
		return s.handleSetReport(tx)
	case codec.TypeGetProtocol:
		return codec.DataOther([]byte{codec.ProtocolReport})
	case codec.TypeSetProtocol:
		if tx.Param == codec.ProtocolReport {
			return codec.Handshake(codec.HandshakeSuccess)
		}
		return codec.Handshake(codec.HandshakeErrUnsupported)
	case codec.TypeGetIdle, codec.TypeSetIdle:
		return codec.Handshake(codec.HandshakeErrUnsupported)
	case codec.TypeHIDControl:
		return s.handleHIDControl(tx)
	default:
		return codec.Handshake(codec.HandshakeErrInvParam)
	}
}

func (s *Session) handleGetReport(tx codec.Transaction) []byte {
	if len(tx.Payload) < 1 {
		return codec.Handshake(codec.HandshakeErrInvParam)
	}
	id := tx.Payload[0]
	switch {
	case tx.Param == codec.ReportTypeInput || tx.Param == codec.ReportTypeInputBuffered:
		switch id {
		case descriptor.ReportIDKeyboard:
			return codec.DataInput(codec.EncodeKeyboard(s.shadow.keyboard))
		case descriptor.ReportIDMouse:
			return codec.DataInput(codec.EncodeMouse(s.shadow.mouse))
		case descriptor.ReportIDMouseAbsolute:
			return codec.DataInput(codec.EncodeMouseAbsolute(s.shadow.absolute))
		case descriptor.ReportIDSystemKeys:
			return codec.DataInput(codec.EncodeBitmapReport(id, s.shadow.system))
		case descriptor.ReportIDHwKeys:
			return codec.DataInput(codec.EncodeBitmapReport(id, s.shadow.hw))
		case descriptor.ReportIDMediaKeys:
			return codec.DataInput(codec.EncodeBitmapReport(id, s.shadow.media))
		case descriptor.ReportIDAppControl:
			return codec.DataInput(codec.EncodeBitmapReport(id, s.shadow.ac))
		default:
			return codec.Handshake(codec.HandshakeErrInvReportID)
		}
	case tx.Param == codec.ReportTypeFeature || tx.Param == codec.ReportTypeFeatureBuffered:
		if id == descriptor.ReportIDMouseFeature {
			return codec.DataFeature(codec.EncodeMouseFeature(s.shadow.feature))
		}
		return codec.Handshake(codec.HandshakeErrInvReportID)
	default:
		return codec.Handshake(codec.HandshakeErrInvReportID)
	}
}

func (s *Session) handleSetReport(tx codec.Transaction) []byte {
	switch tx.Param {
	case codec.ReportTypeOutput:
		if len(tx.Payload) >= 1 && tx.Payload[0] == descriptor.ReportIDKeyboard {
			return codec.Handshake(codec.HandshakeSuccess)
		}
		return codec.Handshake(codec.HandshakeErrUnsupported)
	case codec.ReportTypeFeature:
		if len(tx.Payload) >= 2 && tx.Payload[0] == descriptor.ReportIDMouseFeature {
			f, err := codec.DecodeMouseFeature(tx.Payload[1:])
			if err != nil {
				return codec.Handshake(codec.HandshakeErrInvParam)
			}
			s.shadow.feature = f
			if s.notifier != nil {
				s.notifier.MouseFeatureChanged(f.SmoothScrollY, f.SmoothScrollX)
			}
			return codec.Handshake(codec.HandshakeSuccess)
		}
		return codec.Handshake(codec.HandshakeErrUnsupported)
	default:
		return codec.Handshake(codec.HandshakeErrUnsupported)
	}
}

func (s *Session) handleHIDControl(tx codec.Transaction) []byte {
	switch tx.Param {
	case codec.CtrlHardReset, codec.CtrlVirtualCableUnplug:
		s.teardown(0)
	case codec.CtrlNop, codec.CtrlSoftReset, codec.CtrlSuspend, codec.CtrlExitSuspend:
		// Recorded, no visible state change.
	}
	return nil
}
