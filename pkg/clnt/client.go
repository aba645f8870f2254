package clnt

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittorpc/internal/logger"
	"github.com/marmos91/dittorpc/internal/protocol/rpc"
	"github.com/marmos91/dittorpc/internal/ratelimiter"
	"github.com/marmos91/dittorpc/pkg/metrics"
)

const (
	// DefaultRetryTimeout is the first retransmit interval of a new handle.
	DefaultRetryTimeout = 15 * time.Second

	// DefaultWaitChan tags the wait of a call in logs.
	DefaultWaitChan = "rpcrecv"

	// TimeoutUnset is reported by GetTimeout when the handle has no total
	// timeout and each call uses its own.
	TimeoutUnset time.Duration = -1
)

// Options configures a new Client. The zero value is usable.
type Options struct {
	// SendSize and RecvSize bound request and reply datagrams. Zero selects
	// the transport default.
	SendSize int
	RecvSize int

	// RetryTimeout is the first retransmit interval. Zero selects
	// DefaultRetryTimeout.
	RetryTimeout time.Duration

	// Timeout is the handle's total timeout, which overrides the timeout
	// passed to each call. Zero leaves it unset; use SetTimeout to set a
	// zero total timeout.
	Timeout time.Duration

	// Auth authenticates calls. Nil selects AuthNone.
	Auth Auth

	// Metrics observes calls. Nil disables metrics.
	Metrics metrics.ClientMetrics

	// MaxSendRate caps datagrams per second, retransmissions included.
	// Zero disables pacing. SendBurst is the token bucket size.
	MaxSendRate uint
	SendBurst   uint

	// Interruptible lets context cancellation abort a waiting call with
	// Intr. Otherwise cancellation is ignored and the call runs to its own
	// timeout.
	Interruptible bool

	// Connect connects the socket to the server before the first call.
	Connect bool

	// WaitChan tags waits in logs. Empty selects DefaultWaitChan.
	WaitChan string
}

// Client is a handle bound to one program and version on one server.
//
// A Client is safe for concurrent use. Several Clients may share a Socket;
// they then share its pending-call registry.
type Client struct {
	id      uuid.UUID
	sock    Socket
	cs      *socketState
	metrics metrics.ClientMetrics
	calls   sync.WaitGroup

	// Everything below is guarded by cs.mu.
	limiter        *ratelimiter.RateLimiter
	sendBurst      uint
	addr           net.Addr
	header         rpc.CallHeader // header.XID is the last xid used
	auth           Auth
	sendSize       int
	recvSize       int
	retry          time.Duration
	total          time.Duration
	totalSet       bool
	lastErr        Error
	async          bool
	connect        bool
	connected      bool
	waitChan       string
	interruptible  bool
	closeOnDestroy bool
	destroyed      bool
}

// New creates a handle for program prog, version vers on the server at
// addr, sending through sock.
//
// It fails with UnknownAddr for a nil address and UnknownProto when addr is
// not a datagram address.
func New(sock Socket, addr net.Addr, prog, vers uint32, opts Options) (*Client, error) {
	if addr == nil {
		return nil, &Error{Status: UnknownAddr, Err: fmt.Errorf("nil server address")}
	}

	sendSize, err := transportSize(addr.Network(), opts.SendSize)
	if err != nil {
		return nil, err
	}
	recvSize, err := transportSize(addr.Network(), opts.RecvSize)
	if err != nil {
		return nil, err
	}
	if limit := sock.SendBufferSize(); limit > 0 && sendSize > limit {
		sendSize = limit
	}
	if limit := sock.RecvBufferSize(); limit > 0 && recvSize > limit {
		recvSize = limit
	}

	m := opts.Metrics
	if m == nil {
		m = metrics.NewNoopClientMetrics()
	}

	auth := opts.Auth
	if auth == nil {
		auth = AuthNone()
	}

	retry := opts.RetryTimeout
	if retry <= 0 {
		retry = DefaultRetryTimeout
	}

	waitChan := opts.WaitChan
	if waitChan == "" {
		waitChan = DefaultWaitChan
	}

	id := uuid.New()

	c := &Client{
		id:      id,
		sock:    sock,
		metrics: m,
		addr:    addr,
		header: rpc.CallHeader{
			XID:        xidSeed(id),
			MsgType:    rpc.RPCCall,
			RPCVersion: rpc.RPCVersion,
			Program:    prog,
			Version:    vers,
		},
		limiter:       ratelimiter.New(opts.MaxSendRate, opts.SendBurst),
		sendBurst:     opts.SendBurst,
		auth:          auth,
		sendSize:      sendSize,
		recvSize:      recvSize,
		retry:         retry,
		total:         opts.Timeout,
		totalSet:      opts.Timeout > 0,
		connect:       opts.Connect,
		waitChan:      waitChan,
		interruptible: opts.Interruptible,
	}

	cs, err := attachSocketState(sock, m)
	if err != nil {
		return nil, err
	}
	c.cs = cs

	logger.Debug("RPC client %s created: prog=%d vers=%d server=%s sendsz=%d recvsz=%d",
		id, prog, vers, addr, sendSize, recvSize)
	return c, nil
}

// xidSeed derives the first transaction id from the clock, salted with
// the handle id so handles created in the same instant start apart.
func xidSeed(id uuid.UUID) uint32 {
	now := time.Now()
	return uint32(now.Unix()) ^ uint32(now.Nanosecond()) ^ binary.BigEndian.Uint32(id[:4])
}

// ID identifies the handle in logs.
func (c *Client) ID() string {
	return c.id.String()
}

// LastError returns the outcome of the most recent call on this handle.
func (c *Client) LastError() Error {
	c.cs.mu.Lock()
	defer c.cs.mu.Unlock()
	return c.lastErr
}

// SetAuth replaces the handle's authenticator. Nil selects AuthNone.
func (c *Client) SetAuth(auth Auth) {
	if auth == nil {
		auth = AuthNone()
	}

	c.cs.mu.Lock()
	c.auth = auth
	c.cs.mu.Unlock()
}

// MaxSendRate returns the transmit pacing rate in datagrams per second, or
// 0 when sends are not paced.
func (c *Client) MaxSendRate() uint {
	c.cs.mu.Lock()
	defer c.cs.mu.Unlock()
	return c.limiter.Limit()
}

// SetMaxSendRate changes transmit pacing for calls started afterwards. Zero
// stops pacing. Enabling pacing on a handle created without it uses the
// handle's SendBurst.
func (c *Client) SetMaxSendRate(datagramsPerSecond uint) {
	c.cs.mu.Lock()
	defer c.cs.mu.Unlock()

	if c.limiter == nil {
		c.limiter = ratelimiter.New(datagramsPerSecond, c.sendBurst)
		return
	}
	c.limiter.SetLimit(datagramsPerSecond)
}

// Destroy releases the handle. It waits for calls in progress on this
// handle, then drops its reference to the shared socket state; the last
// handle on a socket uninstalls the upcall.
//
// If SetFDClose was requested the socket is closed too. That is only valid
// for the last handle sharing the socket, and Destroy panics otherwise.
// Destroying a handle twice is a no-op.
func (c *Client) Destroy() {
	cs := c.cs

	cs.mu.Lock()
	if c.destroyed {
		cs.mu.Unlock()
		return
	}
	c.destroyed = true
	closeSocket := c.closeOnDestroy
	cs.mu.Unlock()

	c.calls.Wait()
	cs.release(closeSocket)

	logger.Debug("RPC client %s destroyed", c.id)
}
