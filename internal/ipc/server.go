// Package ipc implements the Local Command Channel: a single-client
// request/response bus over an abstract-namespace Unix socket that carries
// commands from a user-facing process into the daemon core, and
// asynchronous callbacks back.
package ipc

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ronsdev/btkeyd/internal/ipc/protocol"
	"github.com/ronsdev/btkeyd/internal/log"
)

// SocketName is the abstract-namespace address this daemon listens on,
// kept verbatim for wire compatibility with the existing host-side client
// library this daemon is a drop-in replacement for.
const SocketName = "org.ronsdev.bluectrld"

// ReceiveTimeout bounds a single blocking read for a command payload.
const ReceiveTimeout = 5 * time.Second

// IdleShutdownTimeout is how long the server waits with no client attached
// before the core should shut the daemon down.
const IdleShutdownTimeout = 10 * time.Second

// Handler reacts to a fully-decoded command. Implemented by internal/core.
type Handler interface {
	// HandleCommand processes op with the already-read payload and
	// returns the frames (if any) to write back to the client
	// immediately (error callbacks use this path too).
	HandleCommand(op protocol.Opcode, payload []byte) [][]byte

	// SessionUp reports whether a HID link is currently established, so
	// a freshly accepted client gets an immediate CONNECTED callback.
	SessionUp() (peerAddrText string, up bool)

	// HIDServerRunning reports whether the L2CAP listener came up, so a
	// freshly accepted client without it gets INFO_NO_SERVER.
	HIDServerRunning() bool
}

// Server is the Local Command Channel listener plus its single connected
// client, if any.
type Server struct {
	fd  int
	raw log.RawLogger

	clientFd      int
	noClientSince time.Time
}

// Listen binds the abstract-namespace socket.
func Listen(raw log.RawLogger) (*Server, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("ipc: socket: %w", err)
	}
	sa := &unix.SockaddrUnix{Name: "@" + SocketName}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("ipc: bind %s: %w", SocketName, err)
	}
	if err := unix.Listen(fd, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("ipc: listen: %w", err)
	}
	if raw == nil {
		raw = log.NewRaw(nil)
	}
	return &Server{fd: fd, clientFd: -1, raw: raw, noClientSince: time.Now()}, nil
}

// Close closes the listener and any connected client.
func (s *Server) Close() error {
	if s.clientFd >= 0 {
		unix.Close(s.clientFd)
		s.clientFd = -1
	}
	return unix.Close(s.fd)
}

// Fd exposes the listening socket's descriptor for the readiness loop.
func (s *Server) Fd() int { return s.fd }

// ClientFd exposes the connected client's descriptor, or -1 if none.
func (s *Server) ClientFd() int { return s.clientFd }

// HasClient reports whether a client is currently connected.
func (s *Server) HasClient() bool { return s.clientFd >= 0 }

// IdleFor reports how long the server has had no client attached.
func (s *Server) IdleFor(now time.Time) time.Duration {
	if s.clientFd >= 0 {
		return 0
	}
	return now.Sub(s.noClientSince)
}

// Accept accepts a pending client connection, dropping any previous client
// first (at most one client is supported at a time).
func (s *Server) Accept(h Handler) error {
	nfd, _, err := unix.Accept(s.fd)
	if err != nil {
		return fmt.Errorf("ipc: accept: %w", err)
	}
	if s.clientFd >= 0 {
		unix.Close(s.clientFd)
	}
	s.clientFd = nfd
	s.noClientSince = time.Time{}

	if peer, up := h.SessionUp(); up {
		s.writeFrame(protocol.EncodeConnectedCallback(peer))
	}
	if !h.HIDServerRunning() {
		s.writeFrame(protocol.Frame(protocol.CbInfoNoServer, nil))
	}
	return nil
}

func (s *Server) writeFrame(frame []byte) {
	if s.clientFd < 0 {
		return
	}
	s.raw.Log(false, frame)
	if _, err := unix.Write(s.clientFd, frame); err != nil {
		s.dropClient()
	}
}

// Notify pushes an asynchronous callback frame to the connected client, if
// any.
func (s *Server) Notify(frame []byte) {
	s.writeFrame(frame)
}

func (s *Server) dropClient() {
	if s.clientFd >= 0 {
		unix.Close(s.clientFd)
	}
	s.clientFd = -1
	s.noClientSince = time.Now()
}

// HandleReadable services one readable event on the client connection: it
// reads the 4-byte opcode header, then the opcode's fixed-size payload (if
// any), each with reads bounded by SO_RCVTIMEO, dispatches to h, and writes back
// whatever frames h produces. A malformed frame or I/O error drops the
// client, matching "partial reads close the client".
func (s *Server) HandleReadable(h Handler) {
	if s.clientFd < 0 {
		return
	}

	tv := unix.NsecToTimeval(ReceiveTimeout.Nanoseconds())
	unix.SetsockoptTimeval(s.clientFd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)

	hdr := make([]byte, protocol.HeaderLen)
	if _, err := readFull(s.clientFd, hdr); err != nil {
		s.dropClient()
		return
	}
	s.raw.Log(true, hdr)

	op, err := protocol.DecodeHeader(hdr)
	if err != nil {
		s.dropClient()
		return
	}

	n, ok := protocol.PayloadLen(op)
	if !ok {
		s.dropClient()
		return
	}

	var payload []byte
	if n > 0 {
		payload = make([]byte, n)
		if _, err := readFull(s.clientFd, payload); err != nil {
			s.dropClient()
			return
		}
		s.raw.Log(true, payload)
	}

	for _, frame := range h.HandleCommand(op, payload) {
		s.writeFrame(frame)
	}
}

func readFull(fd int, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := unix.Read(fd, buf[total:])
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, fmt.Errorf("ipc: peer closed mid-frame")
		}
		total += n
	}
	return total, nil
}
