package clnt

import (
	"fmt"
	"net"
)

// UpcallFunc is invoked by a Socket whenever received data may be ready.
// arg is the value registered with InstallUpcall.
type UpcallFunc func(arg any)

// Socket is the datagram transport a Client sends and receives through.
//
// Several clients may share one Socket. They find each other through the
// socket's upcall association: the first client installs its shared state
// as the upcall argument and later clients read it back with UpcallArg.
type Socket interface {
	// SendTo transmits one datagram. A nil addr sends to the connected
	// peer.
	SendTo(b []byte, addr net.Addr) error

	// Connect fixes the peer. Datagrams from other addresses are dropped
	// afterwards.
	Connect(addr net.Addr) error

	// RecvNonBlocking returns the next queued datagram, or ErrWouldBlock
	// when none is queued. Any other error is a hard, socket-wide receive
	// failure and is reported once. The returned slice is owned by the
	// caller; it comes from internal/bufpool.
	RecvNonBlocking() ([]byte, error)

	// InstallUpcall replaces the upcall if the current upcall argument is
	// old (compare and swap). Passing a nil arg and fn uninstalls it. It
	// reports whether the swap happened.
	InstallUpcall(old, arg any, fn UpcallFunc) bool

	// UpcallArg returns the currently installed upcall argument, or nil.
	UpcallArg() any

	// SendBufferSize and RecvBufferSize are the transport buffer sizes.
	SendBufferSize() int
	RecvBufferSize() int

	LocalAddr() net.Addr
	Close() error
}

const (
	// udpMsgSize is the default datagram size (UDPMSGSIZE).
	udpMsgSize = 8800

	// udpMaxPayload is the largest IPv4 UDP payload.
	udpMaxPayload = 65507
)

// transportSize returns the effective buffer size for network given the
// requested size. Zero selects the transport default; the result is capped
// at the transport maximum and kept a multiple of 4.
func transportSize(network string, size int) (int, error) {
	switch network {
	case "udp", "udp4", "udp6":
	default:
		return 0, &Error{Status: UnknownProto, Err: fmt.Errorf("unsupported network %q", network)}
	}

	if size <= 0 {
		size = udpMsgSize
	}
	size = (size + 3) &^ 3
	if size > udpMaxPayload {
		size = udpMaxPayload &^ 3
	}
	return size, nil
}
