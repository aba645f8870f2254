package clnt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net"
	"time"

	"github.com/marmos91/dittorpc/internal/bufpool"
	"github.com/marmos91/dittorpc/internal/logger"
	"github.com/marmos91/dittorpc/internal/protocol/rpc"
	"github.com/marmos91/dittorpc/internal/ratelimiter"
	xdr "github.com/rasky/go-xdr/xdr2"
)

// EncodeFunc writes the XDR encoded procedure arguments.
type EncodeFunc func(w io.Writer) error

// DecodeFunc reads the XDR encoded procedure results. The reader is only
// valid for the duration of the call.
type DecodeFunc func(r io.Reader) error

// XDRArgs encodes v with go-xdr.
func XDRArgs(v any) EncodeFunc {
	return func(w io.Writer) error {
		_, err := xdr.Marshal(w, v)
		return err
	}
}

// XDRResult decodes into v, which must be a pointer, with go-xdr.
func XDRResult(v any) DecodeFunc {
	return func(r io.Reader) error {
		_, err := xdr.Unmarshal(r, v)
		return err
	}
}

// FeedbackEvent reports retransmission progress to CallExtra.Feedback.
type FeedbackEvent int

const (
	// FeedbackRexmit1 is reported before the first retransmission.
	FeedbackRexmit1 FeedbackEvent = iota + 1

	// FeedbackRexmit2 is reported before every later retransmission.
	FeedbackRexmit2

	// FeedbackOK is reported when a reply arrives after at least one
	// retransmission.
	FeedbackOK
)

func (e FeedbackEvent) String() string {
	switch e {
	case FeedbackRexmit1:
		return "REXMIT1"
	case FeedbackRexmit2:
		return "REXMIT2"
	case FeedbackOK:
		return "OK"
	default:
		return fmt.Sprintf("FeedbackEvent(%d)", int(e))
	}
}

// CallExtra carries per-call overrides.
type CallExtra struct {
	// Auth replaces the handle's authenticator for this call.
	Auth Auth

	// Feedback is told about retransmissions, e.g. to mark a server as not
	// responding. It runs on the calling goroutine without locks held.
	Feedback func(event FeedbackEvent, proc uint32)
}

// Call invokes procedure proc. args encodes the arguments and res decodes
// the results; either may be nil for void. timeout bounds the whole call
// unless the handle has its own total timeout (SetTimeout).
//
// The result is nil or a *Error, which is also kept as LastError.
func (c *Client) Call(ctx context.Context, proc uint32, args EncodeFunc, res DecodeFunc, timeout time.Duration) error {
	return c.CallWith(ctx, nil, proc, args, res, timeout)
}

// CallWith is Call with per-call overrides. ext may be nil.
func (c *Client) CallWith(ctx context.Context, ext *CallExtra, proc uint32, args EncodeFunc, res DecodeFunc, timeout time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	cs := c.cs

	cs.mu.Lock()
	if c.destroyed {
		cs.mu.Unlock()
		return &Error{Status: Failed, Err: ErrClientDestroyed}
	}
	c.calls.Add(1)
	defer c.calls.Done()

	cl := &call{
		c:             c,
		ctx:           ctx,
		proc:          proc,
		args:          args,
		res:           res,
		auth:          c.auth,
		limiter:       c.limiter,
		timeout:       timeout,
		retry:         c.retry,
		sendSize:      c.sendSize,
		recvSize:      c.recvSize,
		interruptible: c.interruptible,
		waitChan:      c.waitChan,
		refreshesLeft: MaxAuthRefreshes,
	}
	if ext != nil {
		if ext.Auth != nil {
			cl.auth = ext.Auth
		}
		cl.feedback = ext.Feedback
	}
	if c.totalSet {
		cl.timeout = c.total
	}

	rerr := cl.run()
	if cl.request != nil {
		bufpool.Put(cl.request)
		cl.request = nil
	}

	if rerr != nil {
		c.lastErr = *rerr
	} else {
		c.lastErr = Error{Status: Success}
	}
	program := c.header.Program
	cs.mu.Unlock()

	status := Success
	if rerr != nil {
		status = rerr.Status
	}
	c.metrics.RecordCall(program, proc, status.String(), time.Since(start))

	switch {
	case rerr == nil:
		return nil
	case status == TimedOut && cl.timeout == 0:
		logger.Debug("RPC client %s: proc %d sent without waiting (xid=0x%x)", c.id, proc, cl.xid)
	case status == TimedOut || status == CantSend || status == CantRecv:
		logger.Warn("RPC client %s: proc %d xid=0x%x: %v", c.id, proc, cl.xid, rerr)
	default:
		logger.Debug("RPC client %s: proc %d xid=0x%x: %v", c.id, proc, cl.xid, rerr)
	}
	return rerr
}

// call holds the state of one Call while it moves through the state
// machine. Unless noted otherwise its methods run with cs.mu held.
type call struct {
	c             *Client
	ctx           context.Context
	proc          uint32
	args          EncodeFunc
	res           DecodeFunc
	auth          Auth
	feedback      func(FeedbackEvent, uint32)
	limiter       *ratelimiter.RateLimiter
	timeout       time.Duration
	retry         time.Duration
	sendSize      int
	recvSize      int
	interruptible bool
	waitChan      string

	addr          net.Addr // nil once the socket is connected
	xid           uint32
	request       []byte // encoded call, reused verbatim for retransmits
	listen        bool   // async wait for another reply without sending
	retransmits   int
	refreshesLeft int
}

// run drives the call from connect to decoded results.
func (cl *call) run() *Error {
	c, cs := cl.c, cl.c.cs

	if c.connect && !c.connected {
		addr := c.addr
		cs.mu.Unlock()
		err := c.sock.Connect(addr)
		cs.mu.Lock()
		if err != nil {
			return &Error{Status: CantSend, Err: fmt.Errorf("connect %s: %w", addr, err)}
		}
		c.connected = true
	}
	if !c.connected {
		cl.addr = c.addr
	}

	// In async mode a call without arguments sends nothing and waits for
	// a further reply to the previous transaction id.
	cl.listen = c.async && cl.args == nil

	for {
		if cl.request != nil {
			bufpool.Put(cl.request)
			cl.request = nil
		}

		var req *pendingRequest
		if cl.listen {
			cl.xid = c.header.XID

			var err error
			if req, err = cs.pending.register(cl.xid); err != nil {
				return &Error{Status: CantRecv, Err: err}
			}
		} else {
			c.header.XID++
			cl.xid = c.header.XID
			hdr := c.header
			hdr.Procedure = cl.proc

			cs.mu.Unlock()
			request, err := cl.encode(hdr)
			cs.mu.Lock()
			if err != nil {
				return &Error{Status: CantEncodeArgs, Err: err}
			}
			cl.request = request

			if req, err = cs.pending.register(cl.xid); err != nil {
				// Another handle on this socket holds the xid; take the next.
				logger.Debug("RPC client %s: xid 0x%x already pending, skipping", c.id, cl.xid)
				continue
			}
		}

		reply, rerr := cl.exchange(req)
		if rerr != nil {
			return rerr
		}

		cs.mu.Unlock()
		if cl.retransmits > 0 && cl.feedback != nil {
			cl.feedback(FeedbackOK, cl.proc)
		}
		rerr, again := cl.decode(reply)
		cs.mu.Lock()

		if !again {
			return rerr
		}

		cl.refreshesLeft--
		c.metrics.RecordAuthRefresh()
		logger.Debug("RPC client %s: credentials refreshed, resending proc %d", c.id, cl.proc)
	}
}

// encode builds the request datagram in a pooled buffer. It runs without
// cs.mu held.
func (cl *call) encode(hdr rpc.CallHeader) ([]byte, error) {
	buf := bytes.NewBuffer(bufpool.Get(cl.sendSize)[:0])

	if err := rpc.EncodeCallHeader(buf, hdr); err != nil {
		return nil, err
	}
	if err := cl.auth.Marshal(buf, hdr.XID); err != nil {
		return nil, fmt.Errorf("marshal credentials: %w", err)
	}
	if cl.args != nil {
		if err := cl.args(buf); err != nil {
			return nil, fmt.Errorf("encode arguments: %w", err)
		}
	}

	if buf.Len() > cl.sendSize {
		return nil, fmt.Errorf("request is %d bytes, send size is %d", buf.Len(), cl.sendSize)
	}
	return buf.Bytes(), nil
}

// exchange transmits the request and waits for its reply, retransmitting
// on the backoff schedule until the total timeout. req is linked on entry.
// On success the reply datagram is returned and req has left the registry.
// On failure req has been removed.
func (cl *call) exchange(req *pendingRequest) ([]byte, *Error) {
	c, cs := cl.c, cl.c.cs

	start := time.Now()
	cl.retransmits = 0

	// Pacing may not push a send past the deadline. A zero timeout sends
	// once regardless.
	paceCtx := cl.ctx
	if !cl.interruptible {
		paceCtx = context.WithoutCancel(paceCtx)
	}
	if cl.timeout > 0 {
		var cancel context.CancelFunc
		paceCtx, cancel = context.WithDeadline(paceCtx, start.Add(cl.timeout))
		defer cancel()
	}

	// Offsets from start. A listening call never retransmits.
	interval := cl.retry
	nextSend := interval
	if cl.listen {
		nextSend = math.MaxInt64
	}

	for {
		if !cl.listen {
			cs.mu.Unlock()
			rerr := cl.transmit(paceCtx)
			cs.mu.Lock()
			if rerr != nil {
				cs.pending.remove(req)
				return nil, rerr
			}
		}

		// The reply or a socket error may have landed while unlocked.
		switch req.state {
		case stateCompleted:
			return req.reply, nil
		case stateFailed:
			return nil, &Error{Status: CantRecv, Err: req.err}
		}

		// Zero timeout: message passing, nobody waits for the answer.
		if cl.timeout == 0 {
			cs.pending.remove(req)
			return nil, &Error{Status: TimedOut}
		}

		retransmit := false
		for !retransmit {
			wake := min(nextSend, cl.timeout)

			cs.mu.Unlock()
			result := cl.wait(req, start.Add(wake))
			cs.mu.Lock()

			switch req.state {
			case stateCompleted:
				return req.reply, nil
			case stateFailed:
				return nil, &Error{Status: CantRecv, Err: req.err}
			}

			if result == waitInterrupted {
				cs.pending.remove(req)
				return nil, &Error{Status: Intr, Err: cl.ctx.Err()}
			}

			switch {
			case wake >= nextSend && wake <= cl.timeout:
				// Resend the same datagram under the same xid. A late reply
				// to the earlier send still matches it.
				cs.pending.remove(req)

				var err error
				if req, err = cs.pending.register(cl.xid); err != nil {
					return nil, &Error{Status: CantSend, Err: err}
				}

				interval = nextBackoff(interval)
				nextSend += interval
				cl.retransmits++
				retransmit = true

				logger.Debug("RPC client %s [%s]: retransmit %d of xid=0x%x, next in %v",
					c.id, cl.waitChan, cl.retransmits, cl.xid, interval)

			case wake >= cl.timeout:
				cs.pending.remove(req)
				return nil, &Error{Status: TimedOut}
			}
		}
	}
}

// transmit sends the request once, after pacing. A token that would only
// arrive after the call's deadline fails the call with TimedOut. It runs
// without cs.mu held.
func (cl *call) transmit(ctx context.Context) *Error {
	c := cl.c

	if cl.retransmits > 0 && cl.feedback != nil {
		event := FeedbackRexmit2
		if cl.retransmits == 1 {
			event = FeedbackRexmit1
		}
		cl.feedback(event, cl.proc)
	}

	if err := cl.limiter.Wait(ctx); err != nil {
		if cl.interruptible && cl.ctx.Err() != nil {
			return &Error{Status: Intr, Err: err}
		}
		if _, ok := ctx.Deadline(); ok {
			logger.Debug("RPC client %s [%s]: xid=0x%x cannot be paced before the deadline: %v",
				c.id, cl.waitChan, cl.xid, err)
			return &Error{Status: TimedOut, Err: err}
		}
		return &Error{Status: CantSend, Err: fmt.Errorf("pace transmit: %w", err)}
	}

	if err := c.sock.SendTo(cl.request, cl.addr); err != nil {
		return &Error{Status: CantSend, Err: err}
	}
	c.metrics.RecordTransmit(len(cl.request), cl.retransmits > 0)
	return nil
}

type waitResult int

const (
	waitEvent waitResult = iota
	waitTimeout
	waitInterrupted
)

// wait blocks until req is completed or failed, until deadline, or until
// the context is cancelled on an interruptible handle. It runs without
// cs.mu held.
func (cl *call) wait(req *pendingRequest, deadline time.Time) waitResult {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	var cancel <-chan struct{}
	if cl.interruptible {
		cancel = cl.ctx.Done()
	}

	select {
	case <-req.done:
		return waitEvent
	case <-timer.C:
		return waitTimeout
	case <-cancel:
		return waitInterrupted
	}
}

// decode parses the reply and the results and releases the datagram. It
// reports again=true when the credentials were refreshed and the call must
// be sent again under a new xid. It runs without cs.mu held.
func (cl *call) decode(reply []byte) (rerr *Error, again bool) {
	defer bufpool.Put(reply)

	if len(reply) > cl.recvSize {
		return &Error{Status: CantDecodeRes, Err: fmt.Errorf("reply is %d bytes, receive size is %d", len(reply), cl.recvSize)}, false
	}

	r := bytes.NewReader(reply)
	msg, err := rpc.DecodeReply(r)
	if err != nil {
		return &Error{Status: CantDecodeRes, Err: err}, false
	}

	if msg.IsSuccess() {
		if !cl.auth.Validate(msg.Accepted.Verf) {
			return &Error{Status: AuthError, AuthStat: rpc.AuthInvalidResp}, false
		}
		if cl.res != nil {
			if err := cl.res(r); err != nil {
				return &Error{Status: CantDecodeRes, Err: fmt.Errorf("decode results: %w", err)}, false
			}
		}
		return nil, false
	}

	rerr = replyStatus(msg)
	if rerr.Status == AuthError && cl.refreshesLeft > 0 && cl.auth.Refresh(msg) {
		return nil, true
	}
	return rerr, false
}

// nextBackoff doubles a retransmit interval up to MaxBackoff. An interval
// already above the ceiling is kept, so the schedule never shrinks.
func nextBackoff(interval time.Duration) time.Duration {
	if interval >= MaxBackoff {
		return interval
	}
	if interval *= 2; interval > MaxBackoff {
		return MaxBackoff
	}
	return interval
}
