package clnt

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Upcall Demultiplexer
// ============================================================================

func TestUpcall(t *testing.T) {
	newState := func() (*fakeSocket, *socketState, *recordingMetrics) {
		sock := newFakeSocket()
		m := &recordingMetrics{}
		cs, err := attachSocketState(sock, m)
		require.NoError(t, err)
		return sock, cs, m
	}

	register := func(t *testing.T, cs *socketState, xid uint32) *pendingRequest {
		cs.mu.Lock()
		defer cs.mu.Unlock()
		req, err := cs.pending.register(xid)
		require.NoError(t, err)
		return req
	}

	t.Run("RoutesRepliesByXIDInAnyOrder", func(t *testing.T) {
		sock, cs, m := newState()
		x := register(t, cs, 0x100)
		y := register(t, cs, 0x200)

		sock.deliver(successReply(t, 0x200, encodeUint32(2)))
		assert.True(t, isClosed(y.done))
		assert.False(t, isClosed(x.done))

		sock.deliver(successReply(t, 0x100, encodeUint32(1)))
		assert.True(t, isClosed(x.done))

		assert.Equal(t, stateCompleted, x.state)
		assert.Equal(t, stateCompleted, y.state)
		assert.Equal(t, int64(2), m.replies.Load())
		assert.Equal(t, 0, cs.pending.size())
	})

	t.Run("DrainsEveryQueuedDatagram", func(t *testing.T) {
		sock, cs, _ := newState()
		a := register(t, cs, 1)
		b := register(t, cs, 2)

		// Queue both before running the upcall once.
		sock.mu.Lock()
		sock.queue = append(sock.queue, successReply(t, 1, nil), successReply(t, 2, nil))
		sock.mu.Unlock()
		cs.upcall()

		assert.True(t, isClosed(a.done))
		assert.True(t, isClosed(b.done))
	})

	t.Run("DropsShortDatagrams", func(t *testing.T) {
		sock, cs, m := newState()
		req := register(t, cs, 5)

		sock.deliver([]byte{0, 0, 5})
		assert.False(t, isClosed(req.done))
		assert.Equal(t, int64(1), m.shortDropped.Load())
		assert.Equal(t, 1, cs.pending.size())
	})

	t.Run("DiscardsUnmatchedReplies", func(t *testing.T) {
		sock, cs, m := newState()
		req := register(t, cs, 5)

		assert.NotPanics(t, func() {
			sock.deliver(successReply(t, 6, nil))
			sock.deliver(successReply(t, 6, nil))
		})
		assert.False(t, isClosed(req.done))
		assert.Equal(t, int64(2), m.unmatched.Load())
	})

	t.Run("HardErrorFailsAllPending", func(t *testing.T) {
		sock, cs, m := newState()
		x := register(t, cs, 1)
		y := register(t, cs, 2)
		boom := errors.New("connection refused")

		sock.fail(boom)

		for _, req := range []*pendingRequest{x, y} {
			assert.Equal(t, stateFailed, req.state)
			assert.ErrorIs(t, req.err, boom)
		}
		assert.Equal(t, 0, cs.pending.size())
		assert.Equal(t, int64(1), m.socketErrors.Load())
		assert.Equal(t, int64(0), m.pending.Load())
	})
}

// ============================================================================
// Shared Socket State
// ============================================================================

func TestSocketStateLifecycle(t *testing.T) {
	t.Run("HandlesShareOneState", func(t *testing.T) {
		sock := newFakeSocket()

		a, err := New(sock, testServer, testProg, testVers, Options{})
		require.NoError(t, err)
		b, err := New(sock, testServer, testProg+1, 1, Options{})
		require.NoError(t, err)

		assert.Same(t, a.cs, b.cs)
		assert.Equal(t, 2, a.cs.refs)
		assert.Same(t, a.cs, sock.UpcallArg())

		a.Destroy()
		assert.Equal(t, 1, b.cs.refs)
		assert.NotNil(t, sock.UpcallArg(), "upcall stays while a handle remains")

		b.Destroy()
		assert.Nil(t, sock.UpcallArg(), "last handle uninstalls the upcall")
		assert.True(t, b.cs.closed)
		assert.False(t, sock.closed)
	})

	t.Run("DestroyTwiceIsNoop", func(t *testing.T) {
		sock := newFakeSocket()
		a, err := New(sock, testServer, testProg, testVers, Options{})
		require.NoError(t, err)
		b, err := New(sock, testServer, testProg, testVers, Options{})
		require.NoError(t, err)
		defer b.Destroy()

		a.Destroy()
		a.Destroy()
		assert.Equal(t, 1, b.cs.refs)
	})

	t.Run("ConcurrentCreatorsAttachToOneState", func(t *testing.T) {
		sock := newFakeSocket()
		const creators = 32

		clients := make([]*Client, creators)
		var wg sync.WaitGroup
		for i := range clients {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c, err := New(sock, testServer, testProg, testVers, Options{})
				if err == nil {
					clients[i] = c
				}
			}()
		}
		wg.Wait()

		cs := clients[0].cs
		for _, c := range clients {
			require.NotNil(t, c)
			assert.Same(t, cs, c.cs)
		}
		assert.Equal(t, creators, cs.refs)

		for _, c := range clients {
			c.Destroy()
		}
		assert.Nil(t, sock.UpcallArg())
	})

	t.Run("NewStateAfterLastDestroy", func(t *testing.T) {
		sock := newFakeSocket()
		a, err := New(sock, testServer, testProg, testVers, Options{})
		require.NoError(t, err)
		first := a.cs
		a.Destroy()

		b, err := New(sock, testServer, testProg, testVers, Options{})
		require.NoError(t, err)
		defer b.Destroy()

		assert.NotSame(t, first, b.cs)
		assert.Equal(t, 1, b.cs.refs)
	})

	t.Run("ForeignUpcallRejected", func(t *testing.T) {
		sock := newFakeSocket()
		require.True(t, sock.InstallUpcall(nil, "someone else", func(any) {}))

		_, err := New(sock, testServer, testProg, testVers, Options{})
		require.Error(t, err)
		assert.Equal(t, Failed, StatusOf(err))
	})

	t.Run("CloseOnDestroyClosesLastHandle", func(t *testing.T) {
		sock := newFakeSocket()
		c, err := New(sock, testServer, testProg, testVers, Options{})
		require.NoError(t, err)

		c.SetCloseOnDestroy(true)
		c.Destroy()
		assert.True(t, sock.closed)
	})

	t.Run("CloseOnDestroyWhileSharedPanics", func(t *testing.T) {
		sock := newFakeSocket()
		a, err := New(sock, testServer, testProg, testVers, Options{})
		require.NoError(t, err)
		b, err := New(sock, testServer, testProg, testVers, Options{})
		require.NoError(t, err)
		defer b.Destroy()

		a.SetCloseOnDestroy(true)
		assert.Panics(t, a.Destroy)
		assert.False(t, sock.closed)
	})
}
