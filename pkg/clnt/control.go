package clnt

import (
	"fmt"
	"net"
	"time"
)

// ControlRequest names a Control operation (the CLSET_/CLGET_ codes).
type ControlRequest int

const (
	SetTimeout       ControlRequest = iota + 1 // *time.Duration; negative unsets
	GetTimeout                                 // *time.Duration; TimeoutUnset when unset
	GetServerAddr                              // *net.Addr
	SetRetryTimeout                            // *time.Duration; must be positive
	GetRetryTimeout                            // *time.Duration
	GetSvcAddr                                 // *net.Addr
	SetSvcAddr                                 // *net.Addr
	GetXID                                     // *uint32; last xid used
	SetXID                                     // *uint32; next call uses this xid
	GetVersion                                 // *uint32
	SetVersion                                 // *uint32
	GetProgram                                 // *uint32
	SetProgram                                 // *uint32
	SetAsync                                   // *bool
	GetAsync                                   // *bool
	SetConnect                                 // *bool
	GetConnect                                 // *bool
	SetWaitChan                                // *string
	GetWaitChan                                // *string
	SetInterruptible                           // *bool
	GetInterruptible                           // *bool
	SetFDClose                                 // nil; close the socket on Destroy
	SetFDNClose                                // nil; leave the socket open on Destroy
)

var controlNames = map[ControlRequest]string{
	SetTimeout:       "CLSET_TIMEOUT",
	GetTimeout:       "CLGET_TIMEOUT",
	GetServerAddr:    "CLGET_SERVER_ADDR",
	SetRetryTimeout:  "CLSET_RETRY_TIMEOUT",
	GetRetryTimeout:  "CLGET_RETRY_TIMEOUT",
	GetSvcAddr:       "CLGET_SVC_ADDR",
	SetSvcAddr:       "CLSET_SVC_ADDR",
	GetXID:           "CLGET_XID",
	SetXID:           "CLSET_XID",
	GetVersion:       "CLGET_VERS",
	SetVersion:       "CLSET_VERS",
	GetProgram:       "CLGET_PROG",
	SetProgram:       "CLSET_PROG",
	SetAsync:         "CLSET_ASYNC",
	GetAsync:         "CLGET_ASYNC",
	SetConnect:       "CLSET_CONNECT",
	GetConnect:       "CLGET_CONNECT",
	SetWaitChan:      "CLSET_WAITCHAN",
	GetWaitChan:      "CLGET_WAITCHAN",
	SetInterruptible: "CLSET_INTERRUPTIBLE",
	GetInterruptible: "CLGET_INTERRUPTIBLE",
	SetFDClose:       "CLSET_FD_CLOSE",
	SetFDNClose:      "CLSET_FD_NCLOSE",
}

func (r ControlRequest) String() string {
	if name, ok := controlNames[r]; ok {
		return name
	}
	return fmt.Sprintf("ControlRequest(%d)", int(r))
}

// Control reads or changes a handle setting. The type of arg depends on
// req (see the ControlRequest constants). It reports false for
// an unknown request, an argument of the wrong type or an invalid value.
func (c *Client) Control(req ControlRequest, arg any) bool {
	cs := c.cs
	cs.mu.Lock()
	defer cs.mu.Unlock()

	switch req {
	case SetFDClose:
		c.closeOnDestroy = true
		return true
	case SetFDNClose:
		c.closeOnDestroy = false
		return true
	}

	switch v := arg.(type) {
	case *time.Duration:
		if v == nil {
			return false
		}
		return c.controlDuration(req, v)
	case *net.Addr:
		if v == nil {
			return false
		}
		return c.controlAddr(req, v)
	case *uint32:
		if v == nil {
			return false
		}
		return c.controlUint32(req, v)
	case *bool:
		if v == nil {
			return false
		}
		return c.controlBool(req, v)
	case *string:
		if v == nil {
			return false
		}
		return c.controlString(req, v)
	}
	return false
}

func (c *Client) controlDuration(req ControlRequest, v *time.Duration) bool {
	switch req {
	case SetTimeout:
		c.total = *v
		c.totalSet = *v >= 0
	case GetTimeout:
		*v = TimeoutUnset
		if c.totalSet {
			*v = c.total
		}
	case SetRetryTimeout:
		if *v <= 0 {
			return false
		}
		c.retry = *v
	case GetRetryTimeout:
		*v = c.retry
	default:
		return false
	}
	return true
}

func (c *Client) controlAddr(req ControlRequest, v *net.Addr) bool {
	switch req {
	case GetServerAddr, GetSvcAddr:
		*v = c.addr
	case SetSvcAddr:
		if *v == nil {
			return false
		}
		if _, err := transportSize((*v).Network(), 0); err != nil {
			return false
		}
		c.addr = *v
		// A connected socket still points at the old server.
		c.connected = false
	default:
		return false
	}
	return true
}

func (c *Client) controlUint32(req ControlRequest, v *uint32) bool {
	switch req {
	case GetXID:
		*v = c.header.XID
	case SetXID:
		// Calls pre-increment, so the next call uses exactly *v.
		c.header.XID = *v - 1
	case GetVersion:
		*v = c.header.Version
	case SetVersion:
		c.header.Version = *v
	case GetProgram:
		*v = c.header.Program
	case SetProgram:
		c.header.Program = *v
	default:
		return false
	}
	return true
}

func (c *Client) controlBool(req ControlRequest, v *bool) bool {
	switch req {
	case SetAsync:
		c.async = *v
	case GetAsync:
		*v = c.async
	case SetConnect:
		c.connect = *v
	case GetConnect:
		*v = c.connect
	case SetInterruptible:
		c.interruptible = *v
	case GetInterruptible:
		*v = c.interruptible
	default:
		return false
	}
	return true
}

func (c *Client) controlString(req ControlRequest, v *string) bool {
	switch req {
	case SetWaitChan:
		c.waitChan = *v
	case GetWaitChan:
		*v = c.waitChan
	default:
		return false
	}
	return true
}

// ============================================================================
// Typed accessors
// ============================================================================

// Timeout returns the handle's total timeout, or TimeoutUnset.
func (c *Client) Timeout() time.Duration {
	var d time.Duration
	c.Control(GetTimeout, &d)
	return d
}

// SetTimeout sets the total timeout used by every call, overriding the
// per-call timeout. Zero makes calls return TimedOut right after sending.
// A negative value unsets it.
func (c *Client) SetTimeout(d time.Duration) {
	c.Control(SetTimeout, &d)
}

// RetryTimeout returns the first retransmit interval.
func (c *Client) RetryTimeout() time.Duration {
	var d time.Duration
	c.Control(GetRetryTimeout, &d)
	return d
}

// SetRetryTimeout sets the first retransmit interval. It reports false for
// a non-positive interval.
func (c *Client) SetRetryTimeout(d time.Duration) bool {
	return c.Control(SetRetryTimeout, &d)
}

// ServerAddr returns the server address.
func (c *Client) ServerAddr() net.Addr {
	var addr net.Addr
	c.Control(GetServerAddr, &addr)
	return addr
}

// SetServerAddr points the handle at another server. It reports false for
// a nil or non-datagram address.
func (c *Client) SetServerAddr(addr net.Addr) bool {
	return c.Control(SetSvcAddr, &addr)
}

// XID returns the last transaction id used.
func (c *Client) XID() uint32 {
	var xid uint32
	c.Control(GetXID, &xid)
	return xid
}

// SetXID makes the next call use xid.
func (c *Client) SetXID(xid uint32) {
	c.Control(SetXID, &xid)
}

// Version returns the program version sent in calls.
func (c *Client) Version() uint32 {
	var v uint32
	c.Control(GetVersion, &v)
	return v
}

// SetVersion changes the program version sent in later calls.
func (c *Client) SetVersion(v uint32) {
	c.Control(SetVersion, &v)
}

// Program returns the program number sent in calls.
func (c *Client) Program() uint32 {
	var p uint32
	c.Control(GetProgram, &p)
	return p
}

// SetProgram changes the program number sent in later calls.
func (c *Client) SetProgram(p uint32) {
	c.Control(SetProgram, &p)
}

// Async reports whether async mode is on.
func (c *Client) Async() bool {
	var b bool
	c.Control(GetAsync, &b)
	return b
}

// SetAsync turns async mode on or off. In async mode a call with nil args
// sends nothing and waits for another reply to the last transaction id.
func (c *Client) SetAsync(on bool) {
	c.Control(SetAsync, &on)
}

// Connect reports whether the handle connects the socket before calling.
func (c *Client) Connect() bool {
	var b bool
	c.Control(GetConnect, &b)
	return b
}

// SetConnect turns connect-on-first-call on or off.
func (c *Client) SetConnect(on bool) {
	c.Control(SetConnect, &on)
}

// Interruptible reports whether context cancellation interrupts waits.
func (c *Client) Interruptible() bool {
	var b bool
	c.Control(GetInterruptible, &b)
	return b
}

// SetInterruptible makes context cancellation interrupt waits with Intr.
func (c *Client) SetInterruptible(on bool) {
	c.Control(SetInterruptible, &on)
}

// WaitChan returns the tag logged for waits.
func (c *Client) WaitChan() string {
	var s string
	c.Control(GetWaitChan, &s)
	return s
}

// SetWaitChan changes the tag logged for waits.
func (c *Client) SetWaitChan(s string) {
	c.Control(SetWaitChan, &s)
}

// SetCloseOnDestroy chooses whether Destroy closes the socket.
func (c *Client) SetCloseOnDestroy(on bool) {
	if on {
		c.Control(SetFDClose, nil)
	} else {
		c.Control(SetFDNClose, nil)
	}
}
