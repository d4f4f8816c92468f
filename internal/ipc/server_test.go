package ipc_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/ronsdev/btkeyd/internal/ipc"
	"github.com/ronsdev/btkeyd/internal/ipc/protocol"
	"github.com/ronsdev/btkeyd/internal/log"
)

type fakeHandler struct {
	up       bool
	peer     string
	running  bool
	commands []protocol.Opcode
	payloads [][]byte
	respond  [][]byte
}

func (h *fakeHandler) HandleCommand(op protocol.Opcode, payload []byte) [][]byte {
	h.commands = append(h.commands, op)
	h.payloads = append(h.payloads, payload)
	return h.respond
}
func (h *fakeHandler) SessionUp() (string, bool) { return h.peer, h.up }
func (h *fakeHandler) HIDServerRunning() bool    { return h.running }

// testListen opens a server bound to the real abstract-namespace
// SocketName; each test closes it through the returned cleanup before the
// next test listens again, so tests in this package cannot run in parallel.
func testListen(t *testing.T) (*ipc.Server, func()) {
	t.Helper()
	raw := log.NewRaw(nil)
	s, err := ipc.Listen(raw)
	require.NoError(t, err)
	return s, func() { s.Close() }
}

func dialClient(t *testing.T) int {
	t.Helper()
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	err = unix.Connect(fd, &unix.SockaddrUnix{Name: "@" + ipc.SocketName})
	require.NoError(t, err)
	return fd
}

func TestAcceptSendsConnectedAndNoServerCallbacks(t *testing.T) {
	s, cleanup := testListen(t)
	defer cleanup()

	cfd := dialClient(t)
	defer unix.Close(cfd)

	h := &fakeHandler{up: true, peer: "AA:BB:CC:DD:EE:FF", running: false}
	require.NoError(t, s.Accept(h))
	assert.True(t, s.HasClient())

	// The stream socket may coalesce both frames, so read each one by its
	// exact length.
	wantConnected := protocol.EncodeConnectedCallback("AA:BB:CC:DD:EE:FF")
	buf := make([]byte, len(wantConnected))
	n, err := unix.Read(cfd, buf)
	require.NoError(t, err)
	assert.Equal(t, wantConnected, buf[:n])

	wantNoServer := protocol.Frame(protocol.CbInfoNoServer, nil)
	buf = make([]byte, len(wantNoServer))
	n, err = unix.Read(cfd, buf)
	require.NoError(t, err)
	assert.Equal(t, wantNoServer, buf[:n])
}

func TestHandleReadableDispatchesCommand(t *testing.T) {
	s, cleanup := testListen(t)
	defer cleanup()

	cfd := dialClient(t)
	defer unix.Close(cfd)

	h := &fakeHandler{running: true}
	require.NoError(t, s.Accept(h))

	frame := protocol.Frame(protocol.OpHIDSendSystemKeys, []byte{0x03})
	_, err := unix.Write(cfd, frame)
	require.NoError(t, err)

	s.HandleReadable(h)
	require.Len(t, h.commands, 1)
	assert.Equal(t, protocol.OpHIDSendSystemKeys, h.commands[0])
	assert.Equal(t, []byte{0x03}, h.payloads[0])
}

func TestHandleReadableWritesResponseFrames(t *testing.T) {
	s, cleanup := testListen(t)
	defer cleanup()

	cfd := dialClient(t)
	defer unix.Close(cfd)

	reply := protocol.EncodeErrorCallback(protocol.ErrCbHIDConnect, 5)
	h := &fakeHandler{running: true, respond: [][]byte{reply}}
	require.NoError(t, s.Accept(h))

	frame := protocol.Frame(protocol.OpShutdown, nil)
	_, err := unix.Write(cfd, frame)
	require.NoError(t, err)
	s.HandleReadable(h)

	buf := make([]byte, 64)
	n, err := unix.Read(cfd, buf)
	require.NoError(t, err)
	assert.Equal(t, reply, buf[:n])
}

func TestSecondAcceptDropsFirstClient(t *testing.T) {
	s, cleanup := testListen(t)
	defer cleanup()

	cfd1 := dialClient(t)
	defer unix.Close(cfd1)
	h := &fakeHandler{running: true}
	require.NoError(t, s.Accept(h))
	first := s.ClientFd()

	cfd2 := dialClient(t)
	defer unix.Close(cfd2)
	require.NoError(t, s.Accept(h))
	assert.NotEqual(t, first, s.ClientFd())

	buf := make([]byte, 1)
	n, err := unix.Read(cfd1, buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "first client's socket should observe EOF once dropped")
}

func TestIdleForTracksNoClientDuration(t *testing.T) {
	s, cleanup := testListen(t)
	defer cleanup()

	assert.False(t, s.HasClient())
	elapsed := s.IdleFor(time.Now().Add(time.Second))
	assert.GreaterOrEqual(t, elapsed, 900*time.Millisecond)
}

func TestPeerClosedBeforeHeaderDropsClient(t *testing.T) {
	s, cleanup := testListen(t)
	defer cleanup()

	cfd := dialClient(t)
	h := &fakeHandler{running: true}
	require.NoError(t, s.Accept(h))

	unix.Close(cfd) // peer gone before sending anything
	s.HandleReadable(h)
	assert.False(t, s.HasClient())
}
