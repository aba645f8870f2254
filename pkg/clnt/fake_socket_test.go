package clnt

import (
	"bytes"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marmos91/dittorpc/internal/bufpool"
	"github.com/marmos91/dittorpc/internal/protocol/rpc"
	xdrutil "github.com/marmos91/dittorpc/internal/protocol/xdr"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Fake Socket
// ============================================================================

// fakeSocket is an in-memory Socket. Datagrams sent by clients are recorded
// and passed to onSend, which plays the server; replies are injected with
// deliver and reach clients through the installed upcall.
type fakeSocket struct {
	mu        sync.Mutex
	sent      [][]byte
	sentTo    []net.Addr
	queue     [][]byte
	recvErr   error
	upcall    UpcallFunc
	upcallArg any
	sendErr   error
	peer      net.Addr
	connects  int
	closed    bool

	// onSend runs after each successful send, outside the socket lock.
	onSend func(datagram []byte)

	sends chan []byte
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{sends: make(chan []byte, 1024)}
}

func (s *fakeSocket) SendTo(b []byte, addr net.Addr) error {
	s.mu.Lock()
	if s.sendErr != nil {
		err := s.sendErr
		s.mu.Unlock()
		return err
	}
	datagram := append([]byte(nil), b...)
	s.sent = append(s.sent, datagram)
	s.sentTo = append(s.sentTo, addr)
	onSend := s.onSend
	s.mu.Unlock()

	select {
	case s.sends <- datagram:
	default:
	}
	if onSend != nil {
		onSend(datagram)
	}
	return nil
}

func (s *fakeSocket) Connect(addr net.Addr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peer = addr
	s.connects++
	return nil
}

func (s *fakeSocket) RecvNonBlocking() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) > 0 {
		datagram := s.queue[0]
		s.queue = s.queue[1:]
		return datagram, nil
	}
	if err := s.recvErr; err != nil {
		s.recvErr = nil
		return nil, err
	}
	return nil, ErrWouldBlock
}

func (s *fakeSocket) InstallUpcall(old, arg any, fn UpcallFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.upcallArg != old {
		return false
	}
	s.upcallArg = arg
	s.upcall = fn
	return true
}

func (s *fakeSocket) UpcallArg() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upcallArg
}

func (s *fakeSocket) SendBufferSize() int { return 0 }
func (s *fakeSocket) RecvBufferSize() int { return 0 }

func (s *fakeSocket) LocalAddr() net.Addr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 700}
}

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// deliver queues a datagram and runs the upcall, as a packet arrival would.
func (s *fakeSocket) deliver(datagram []byte) {
	s.mu.Lock()
	s.queue = append(s.queue, bufpool.Clone(datagram))
	fn, arg := s.upcall, s.upcallArg
	s.mu.Unlock()

	if fn != nil {
		fn(arg)
	}
}

// fail reports a hard receive error through the upcall.
func (s *fakeSocket) fail(err error) {
	s.mu.Lock()
	s.recvErr = err
	fn, arg := s.upcall, s.upcallArg
	s.mu.Unlock()

	if fn != nil {
		fn(arg)
	}
}

func (s *fakeSocket) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func (s *fakeSocket) sentDatagrams() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.sent...)
}

func (s *fakeSocket) setOnSend(fn func([]byte)) {
	s.mu.Lock()
	s.onSend = fn
	s.mu.Unlock()
}

// nextSend waits for the next datagram a client sends.
func (s *fakeSocket) nextSend(t *testing.T) []byte {
	t.Helper()
	select {
	case datagram := <-s.sends:
		return datagram
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a send")
		return nil
	}
}

// ============================================================================
// Recording Metrics
// ============================================================================

type recordingMetrics struct {
	calls         atomic.Int64
	transmits     atomic.Int64
	retransmits   atomic.Int64
	replies       atomic.Int64
	shortDropped  atomic.Int64
	unmatched     atomic.Int64
	authRefreshes atomic.Int64
	socketErrors  atomic.Int64
	pending       atomic.Int64
}

func (m *recordingMetrics) RecordCall(uint32, uint32, string, time.Duration) { m.calls.Add(1) }

func (m *recordingMetrics) RecordTransmit(_ int, retransmit bool) {
	m.transmits.Add(1)
	if retransmit {
		m.retransmits.Add(1)
	}
}

func (m *recordingMetrics) RecordReply(int) { m.replies.Add(1) }

func (m *recordingMetrics) RecordDiscarded(reason string) {
	switch reason {
	case "short":
		m.shortDropped.Add(1)
	case "unmatched":
		m.unmatched.Add(1)
	}
}

func (m *recordingMetrics) RecordAuthRefresh()        { m.authRefreshes.Add(1) }
func (m *recordingMetrics) RecordSocketError()        { m.socketErrors.Add(1) }
func (m *recordingMetrics) AddPendingCalls(delta int) { m.pending.Add(int64(delta)) }

// ============================================================================
// Helpers
// ============================================================================

const (
	testProg = 100099
	testVers = 3
)

var testServer = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 2049}

// newTestClient creates a client on sock with short timers.
func newTestClient(t *testing.T, sock Socket, opts Options) *Client {
	t.Helper()

	if opts.RetryTimeout == 0 {
		opts.RetryTimeout = 20 * time.Millisecond
	}
	c, err := New(sock, testServer, testProg, testVers, opts)
	require.NoError(t, err)
	t.Cleanup(c.Destroy)
	return c
}

// parseCall decodes a datagram sent by a client.
func parseCall(t *testing.T, datagram []byte) (*rpc.CallMessage, []byte) {
	t.Helper()
	call, args, err := rpc.ReadCall(datagram)
	require.NoError(t, err)
	return call, args
}

// successReply builds a SUCCESS reply carrying results.
func successReply(t *testing.T, xid uint32, results []byte) []byte {
	t.Helper()
	reply, err := rpc.MakeSuccessReply(xid, results)
	require.NoError(t, err)
	return reply
}

// echoServer answers every call with its own arguments.
func echoServer(sock *fakeSocket) {
	sock.setOnSend(func(datagram []byte) {
		call, args, err := rpc.ReadCall(datagram)
		if err != nil {
			return
		}
		reply, err := rpc.MakeSuccessReply(call.XID, args)
		if err != nil {
			return
		}
		sock.deliver(reply)
	})
}

func encodeUint32(v uint32) []byte {
	var buf bytes.Buffer
	xdrutil.EncodeUint32(&buf, v)
	return buf.Bytes()
}

func pendingCount(c *Client) int {
	c.cs.mu.Lock()
	defer c.cs.mu.Unlock()
	return c.cs.pending.size()
}
