package clnt

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/marmos91/dittorpc/internal/bufpool"
	"github.com/marmos91/dittorpc/internal/logger"
	"github.com/marmos91/dittorpc/internal/protocol/rpc"
	"github.com/marmos91/dittorpc/pkg/metrics"
)

// socketState is shared by every Client on one Socket. It is found through
// the socket's upcall argument, so each socket has its own instance and no
// process-wide table exists.
type socketState struct {
	mu      sync.Mutex
	sock    Socket
	refs    int
	closed  bool
	pending *registry
	metrics metrics.ClientMetrics
}

func newSocketState(sock Socket, m metrics.ClientMetrics) *socketState {
	if m == nil {
		m = metrics.NewNoopClientMetrics()
	}
	return &socketState{
		sock:    sock,
		pending: newRegistry(m.AddPendingCalls),
		metrics: m,
	}
}

// attachSocketState returns the state installed on sock, taking a
// reference, or installs a new one.
//
// Two creators can race to install. The loser's compare-and-swap fails; it
// drops its allocation and retries, which attaches it to the winner's state.
// A state being torn down by its last Destroy is skipped until the socket
// drops it.
func attachSocketState(sock Socket, m metrics.ClientMetrics) (*socketState, error) {
	for {
		switch arg := sock.UpcallArg().(type) {
		case *socketState:
			arg.mu.Lock()
			if !arg.closed {
				arg.refs++
				arg.mu.Unlock()
				return arg, nil
			}
			arg.mu.Unlock()
			runtime.Gosched()

		case nil:
			cs := newSocketState(sock, m)
			cs.refs = 1
			if sock.InstallUpcall(nil, cs, socketUpcall) {
				return cs, nil
			}

		default:
			return nil, &Error{Status: Failed, Err: fmt.Errorf("socket upcall already owned by %T", arg)}
		}
	}
}

// release drops one reference. The last reference uninstalls the upcall.
// closeSocket asks for the socket to be closed as well, which is only legal
// for the last reference: closing a socket other handles still use is a
// programming error and panics.
func (cs *socketState) release(closeSocket bool) {
	cs.mu.Lock()
	if closeSocket && cs.refs > 1 {
		refs := cs.refs
		cs.mu.Unlock()
		panic(fmt.Sprintf("clnt: close on destroy with %d handles sharing the socket", refs))
	}

	cs.refs--
	last := cs.refs == 0
	if last {
		cs.closed = true
	}
	cs.mu.Unlock()

	if !last {
		return
	}

	cs.sock.InstallUpcall(cs, nil, nil)
	logger.Debug("Socket %s released: upcall uninstalled", cs.sock.LocalAddr())

	if closeSocket {
		if err := cs.sock.Close(); err != nil {
			logger.Warn("Failed to close socket %s: %v", cs.sock.LocalAddr(), err)
		}
	}
}

func socketUpcall(arg any) {
	if cs, ok := arg.(*socketState); ok {
		cs.upcall()
	}
}

// upcall drains every datagram queued on the socket and routes each one to
// the call waiting for its transaction id.
//
// A hard receive error cannot be attributed to a single call, so it fails
// every pending call on the socket. Datagrams too short to carry an xid and
// replies nobody waits for are dropped.
func (cs *socketState) upcall() {
	for {
		msg, err := cs.sock.RecvNonBlocking()
		if errors.Is(err, ErrWouldBlock) {
			return
		}

		if err != nil {
			cs.mu.Lock()
			n := cs.pending.failAll(err)
			cs.mu.Unlock()

			cs.metrics.RecordSocketError()
			if n > 0 {
				logger.Error("Receive error on %s failed %d pending calls: %v", cs.sock.LocalAddr(), n, err)
			} else {
				logger.Debug("Receive error on %s with no pending calls: %v", cs.sock.LocalAddr(), err)
			}
			return
		}

		xid, ok := rpc.PeekXID(msg)
		if !ok {
			logger.Debug("Dropping %d byte datagram: too short for a transaction id", len(msg))
			cs.metrics.RecordDiscarded("short")
			bufpool.Put(msg)
			continue
		}

		cs.mu.Lock()
		matched := cs.pending.findAndComplete(xid, msg)
		cs.mu.Unlock()

		if !matched {
			logger.Debug("Dropping reply xid=0x%x: no pending call", xid)
			cs.metrics.RecordDiscarded("unmatched")
			bufpool.Put(msg)
			continue
		}
		cs.metrics.RecordReply(len(msg))
	}
}
