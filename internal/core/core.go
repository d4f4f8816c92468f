// Package core wires the adapter, SDP publisher, L2CAP endpoint, HID
// session, and Local Command Channel together and drives them from a
// single-threaded, poll-based readiness loop. It is the only place in the
// daemon that owns mutable cross-component state.
package core

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ronsdev/btkeyd/internal/adapter"
	"github.com/ronsdev/btkeyd/internal/ipc"
	"github.com/ronsdev/btkeyd/internal/l2cap"
	"github.com/ronsdev/btkeyd/internal/session"
)

// PollInterval bounds how long one readiness call may block even with
// nothing pending, so time-driven transitions (the pairing window, the
// IPC idle-shutdown timer) are still serviced promptly.
const PollInterval = 10 * time.Second

// Core owns every long-lived daemon resource.
type Core struct {
	logger *slog.Logger

	identity adapter.Identity
	hw       adapter.Adapter
	sdp      sdpPublisher

	endpoint *l2cap.Endpoint
	sess     *session.Session
	ipcSrv   *ipc.Server

	shuttingDown bool
	firstErr     error

	origDeviceClass    uint32
	discoverableWasSet bool
}

// sdpPublisher is the subset of *sdp.Publisher Core depends on, narrowed
// so tests can substitute a fake.
type sdpPublisher interface {
	Register(normallyConnectable bool) error
	Unregister() error
	DeactivateOtherServices() error
	ReactivateOtherServices() error
	SetHIDDeviceClass() error
	ResetDeviceClass() error
	Close() error
}

// New assembles a Core. The L2CAP endpoint is optional: if it's nil the
// daemon still runs its Local Command Channel and reports
// HIDServerRunning()==false, matching INFO_NO_SERVER semantics.
func New(logger *slog.Logger, identity adapter.Identity, hw adapter.Adapter, pub sdpPublisher, endpoint *l2cap.Endpoint, ipcSrv *ipc.Server) *Core {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Core{
		logger:   logger,
		identity: identity,
		hw:       hw,
		sdp:      pub,
		endpoint: endpoint,
		ipcSrv:   ipcSrv,
	}
	c.sess = session.New(c)
	return c
}

// Boot registers the HID service record and remembers the adapter's
// current Class-of-Device for later restore.
func (c *Core) Boot() error {
	cls, err := c.hw.DeviceClass()
	if err != nil {
		return fmt.Errorf("core: read initial device class: %w", err)
	}
	c.origDeviceClass = cls
	return c.sdp.Register(c.endpoint != nil)
}

// saveErr records err as the first error seen during teardown, without
// overwriting an earlier one.
func (c *Core) saveErr(err error) {
	if err != nil && c.firstErr == nil {
		c.firstErr = err
	}
}

// RequestShutdown sets the sticky shutdown flag the loop checks each
// iteration. Safe to call more than once.
func (c *Core) RequestShutdown() {
	c.shuttingDown = true
}

// Shutdown runs the full teardown cascade unconditionally: session close,
// SDP unregister, peer-service restore, CoD restore, socket close. It
// records the first error encountered and returns it, but always runs
// every step.
func (c *Core) Shutdown() error {
	c.sess.Shutdown()

	c.saveErr(c.sdp.Unregister())
	if c.discoverableWasSet {
		c.saveErr(c.hw.SetScanMode(false))
	}
	c.saveErr(c.sdp.ReactivateOtherServices())
	c.saveErr(c.hw.SetDeviceClass(c.origDeviceClass))
	c.saveErr(c.sdp.Close())

	if c.endpoint != nil {
		c.saveErr(c.endpoint.Close())
	}
	if c.ipcSrv != nil {
		c.saveErr(c.ipcSrv.Close())
	}
	return c.firstErr
}

// Run drives the readiness loop until shutdown is requested, then tears
// down and returns the first error seen anywhere in the run.
func (c *Core) Run() error {
	for !c.shuttingDown {
		if err := c.pollOnce(); err != nil {
			c.logger.Error("poll failed", "err", err)
			c.saveErr(err)
			break
		}
		c.sess.Tick(time.Now())
		c.checkIdleShutdown()
	}
	return c.Shutdown()
}

func (c *Core) checkIdleShutdown() {
	if c.ipcSrv == nil {
		return
	}
	if c.ipcSrv.IdleFor(time.Now()) >= ipc.IdleShutdownTimeout {
		c.logger.Info("no local client for idle timeout, shutting down")
		c.RequestShutdown()
	}
}

const (
	slotIPCServer = iota
	slotIPCClient
	slotCtrlServer
	slotIntrServer
	slotCtrlClient
	slotIntrClient
	numSlots
)

func (c *Core) pollOnce() error {
	var fds [numSlots]unix.PollFd
	for i := range fds {
		fds[i].Fd = -1
	}

	if c.ipcSrv != nil {
		fds[slotIPCServer].Fd = int32(c.ipcSrv.Fd())
		fds[slotIPCServer].Events = unix.POLLIN
		if c.ipcSrv.HasClient() {
			fds[slotIPCClient].Fd = int32(c.ipcSrv.ClientFd())
			fds[slotIPCClient].Events = unix.POLLIN
		}
	}
	if c.endpoint != nil {
		fds[slotCtrlServer].Fd = int32(c.endpoint.Control.Fd())
		fds[slotCtrlServer].Events = unix.POLLIN
		fds[slotIntrServer].Fd = int32(c.endpoint.Interrupt.Fd())
		fds[slotIntrServer].Events = unix.POLLIN
	}
	if cfd := c.sess.CtrlFd(); cfd >= 0 {
		fds[slotCtrlClient].Fd = int32(cfd)
		fds[slotCtrlClient].Events = unix.POLLIN
	}
	if ifd := c.sess.IntrFd(); ifd >= 0 {
		fds[slotIntrClient].Fd = int32(ifd)
		fds[slotIntrClient].Events = unix.POLLIN
	}

	n, err := unix.Poll(fds[:], int(PollInterval/time.Millisecond))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil
		}
		return fmt.Errorf("core: poll: %w", err)
	}
	if n == 0 {
		return nil
	}

	if fds[slotIPCServer].Revents&unix.POLLIN != 0 {
		if err := c.ipcSrv.Accept(c); err != nil {
			c.logger.Warn("ipc accept failed", "err", err)
		}
	}
	if fds[slotIPCClient].Revents&unix.POLLIN != 0 {
		c.ipcSrv.HandleReadable(c)
	}
	if fds[slotCtrlServer].Revents&unix.POLLIN != 0 {
		c.acceptCtrl()
	}
	if fds[slotIntrServer].Revents&unix.POLLIN != 0 {
		c.acceptIntr()
	}
	if fds[slotCtrlClient].Revents&unix.POLLIN != 0 {
		c.sess.ServiceCtrl()
	}
	if fds[slotIntrClient].Revents != 0 && fds[slotIntrClient].Revents&unix.POLLIN == 0 {
		c.sess.IntrClosed()
	}
	return nil
}

func (c *Core) acceptCtrl() {
	conn, err := c.endpoint.Control.Accept()
	if err != nil {
		c.logger.Warn("control accept failed", "err", err)
		return
	}
	if err := c.sess.CtrlAccepted(conn.Peer(), conn); err != nil {
		conn.Close()
	}
}

func (c *Core) acceptIntr() {
	conn, err := c.endpoint.Interrupt.Accept()
	if err != nil {
		c.logger.Warn("interrupt accept failed", "err", err)
		return
	}
	c.sess.IntrAccepted(conn.Peer(), conn)
}
