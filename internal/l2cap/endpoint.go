// Package l2cap owns the two Bluetooth L2CAP server sockets (control and
// interrupt PSM) this daemon listens on, plus outbound dialing to a remote
// host's matching sockets. It performs no HID protocol interpretation —
// that is internal/session's job — it only hands back raw connections and
// readiness descriptors.
package l2cap

import (
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// L2CAP socket option constants from <bluetooth/l2cap.h>, not exposed by
// golang.org/x/sys/unix (it stops at BTPROTO_L2CAP/SOL_L2CAP). l2capOptions
// mirrors struct l2cap_options; only omtu/imtu are set, the rest left zero
// keeps the kernel's defaults.
const (
	l2capOptOptions = 0x01

	// BT_SECURITY is a SOL_BLUETOOTH-level option (<bluetooth/bluetooth.h>),
	// shared across every Bluetooth socket type.
	btSecurity = 0x04
)

type l2capOptions struct {
	Omtu    uint16
	Imtu    uint16
	Flush   uint16
	Mode    uint8
	FCS     uint8
	MaxTx   uint8
	TxWin   uint16
}

// Bluetooth HID Profile PSM numbers.
const (
	PSMControl   = 0x11
	PSMInterrupt = 0x13

	minMTU = 64

	// BluetoothSecurityMedium requires authentication but not encryption
	// beyond what authentication already implies; matches the control/
	// interrupt channel security level the HID profile mandates.
	BluetoothSecurityMedium = 2

	// PairWindow bounds how long a control-PSM accept waits for the
	// matching interrupt-PSM accept from the same peer before the
	// pending half is abandoned. Owned by internal/session, but declared
	// here since it is a property of the paired-accept contract.
	PairWindow = 5 * time.Second
)

// Addr is a 6-byte Bluetooth device address in the same byte order the
// kernel's sockaddr_l2 uses (reversed from the colon-separated text form).
type Addr [6]byte

// String formats addr in the conventional most-significant-octet-first
// colon-separated hex form (e.g. "AA:BB:CC:DD:EE:FF"), the reverse of the
// on-wire byte order the kernel's sockaddr_l2 uses.
func (a Addr) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[5], a[4], a[3], a[2], a[1], a[0])
}

// ParseAddr parses the conventional colon-separated hex form back into
// the kernel's reversed on-wire byte order.
func ParseAddr(s string) (Addr, error) {
	var a Addr
	var b [6]uint8
	n, err := fmt.Sscanf(s, "%02X:%02X:%02X:%02X:%02X:%02X", &b[0], &b[1], &b[2], &b[3], &b[4], &b[5])
	if err != nil || n != 6 {
		return Addr{}, fmt.Errorf("l2cap: invalid address %q", s)
	}
	for i := 0; i < 6; i++ {
		a[5-i] = b[i]
	}
	return a, nil
}

// Conn is an open L2CAP socket, either a server-accepted connection or an
// outbound dial.
type Conn struct {
	fd   int
	peer Addr
}

// Fd returns the raw file descriptor, used by the readiness loop to build
// its poll set.
func (c *Conn) Fd() int { return c.fd }

// Peer returns the remote address this connection is associated with.
func (c *Conn) Peer() Addr { return c.peer }

// Read reads one L2CAP datagram. L2CAP is message-oriented: one Read call
// returns exactly one frame the peer wrote, never a partial or coalesced
// frame, so no reassembly buffering is needed above this layer.
func (c *Conn) Read(buf []byte) (int, error) {
	return unix.Read(c.fd, buf)
}

// Write sends one L2CAP frame.
func (c *Conn) Write(buf []byte) (int, error) {
	return unix.Write(c.fd, buf)
}

// Close closes the underlying socket.
func (c *Conn) Close() error {
	return unix.Close(c.fd)
}

func setsockopt(fd, level, opt int, v unsafe.Pointer, size uintptr) error {
	_, _, errno := unix.Syscall6(unix.SYS_SETSOCKOPT, uintptr(fd), uintptr(level), uintptr(opt),
		uintptr(v), size, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func setL2CAPOptions(fd int) error {
	opts := l2capOptions{Omtu: minMTU, Imtu: minMTU}
	if err := setsockopt(fd, unix.SOL_L2CAP, l2capOptOptions, unsafe.Pointer(&opts), unsafe.Sizeof(opts)); err != nil {
		return fmt.Errorf("l2cap: set L2CAP_OPTIONS: %w", err)
	}
	// struct bt_security { uint8_t level; uint8_t key_size; }
	sec := [2]byte{BluetoothSecurityMedium, 0}
	if err := setsockopt(fd, unix.SOL_BLUETOOTH, btSecurity, unsafe.Pointer(&sec), unsafe.Sizeof(sec)); err != nil {
		return fmt.Errorf("l2cap: set BT_SECURITY: %w", err)
	}
	return nil
}

func sockaddr(addr Addr, psm uint16) *unix.SockaddrL2 {
	return &unix.SockaddrL2{PSM: psm, Addr: addr}
}

// Listener is one bound, listening L2CAP server socket.
type Listener struct {
	fd  int
	psm uint16
}

// Listen binds and listens on psm at the given local adapter address.
func Listen(local Addr, psm uint16) (*Listener, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_SEQPACKET, unix.BTPROTO_L2CAP)
	if err != nil {
		return nil, fmt.Errorf("l2cap: socket: %w", err)
	}
	if err := setL2CAPOptions(fd); err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := unix.Bind(fd, sockaddr(local, psm)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("l2cap: bind psm 0x%02x: %w", psm, err)
	}
	if err := unix.Listen(fd, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("l2cap: listen psm 0x%02x: %w", psm, err)
	}
	return &Listener{fd: fd, psm: psm}, nil
}

// Fd returns the raw listening descriptor for the readiness loop's poll set.
func (l *Listener) Fd() int { return l.fd }

// PSM returns the bound protocol/service multiplexer.
func (l *Listener) PSM() uint16 { return l.psm }

// Accept accepts one pending inbound connection.
func (l *Listener) Accept() (*Conn, error) {
	nfd, sa, err := unix.Accept(l.fd)
	if err != nil {
		return nil, fmt.Errorf("l2cap: accept psm 0x%02x: %w", l.psm, err)
	}
	l2sa, ok := sa.(*unix.SockaddrL2)
	if !ok {
		unix.Close(nfd)
		return nil, fmt.Errorf("l2cap: accept psm 0x%02x: unexpected sockaddr type", l.psm)
	}
	if err := setL2CAPOptions(nfd); err != nil {
		unix.Close(nfd)
		return nil, err
	}
	return &Conn{fd: nfd, peer: Addr(l2sa.Addr)}, nil
}

// Close closes the listening socket.
func (l *Listener) Close() error {
	return unix.Close(l.fd)
}

// Endpoint owns both server sockets this daemon listens on.
type Endpoint struct {
	Control   *Listener
	Interrupt *Listener
}

// NewEndpoint binds both PSMs against local. Both must succeed; either
// failing tears the other down and returns the error, matching
// hidc_start_hid_server's all-or-nothing startup.
func NewEndpoint(local Addr) (*Endpoint, error) {
	ctrl, err := Listen(local, PSMControl)
	if err != nil {
		return nil, err
	}
	intr, err := Listen(local, PSMInterrupt)
	if err != nil {
		ctrl.Close()
		return nil, err
	}
	return &Endpoint{Control: ctrl, Interrupt: intr}, nil
}

// Close tears down both server sockets.
func (e *Endpoint) Close() error {
	err1 := e.Control.Close()
	err2 := e.Interrupt.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Dial opens an outbound connection to peer's psm.
func Dial(local, peer Addr, psm uint16) (*Conn, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_SEQPACKET, unix.BTPROTO_L2CAP)
	if err != nil {
		return nil, fmt.Errorf("l2cap: socket: %w", err)
	}
	if err := setL2CAPOptions(fd); err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := unix.Bind(fd, sockaddr(local, 0)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("l2cap: bind local: %w", err)
	}
	if err := unix.Connect(fd, sockaddr(peer, psm)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("l2cap: connect psm 0x%02x: %w", psm, err)
	}
	return &Conn{fd: fd, peer: peer}, nil
}

// ConnectHID dials both the control and interrupt PSMs of peer, in that
// order. If either fails, both are closed and the error is returned — the
// daemon never leaves a half-open outbound pair.
func ConnectHID(local, peer Addr) (ctrl, intr *Conn, err error) {
	ctrl, err = Dial(local, peer, PSMControl)
	if err != nil {
		return nil, nil, err
	}
	intr, err = Dial(local, peer, PSMInterrupt)
	if err != nil {
		ctrl.Close()
		return nil, nil, err
	}
	return ctrl, intr, nil
}
