package clnt

import (
	"errors"
	"fmt"
	"net"
	"sync"

	reuseport "github.com/kavu/go_reuseport"
	"github.com/marmos91/dittorpc/internal/bufpool"
	"github.com/marmos91/dittorpc/internal/logger"
)

const (
	// defaultRecvQueueBytes bounds the datagrams queued between the reader
	// goroutine and the upcall, like a kernel receive buffer.
	defaultRecvQueueBytes = 256 << 10
)

// UDPConfig describes a local UDP endpoint.
type UDPConfig struct {
	// Network is "udp", "udp4" or "udp6". Empty means "udp".
	Network string

	// Address is the local bind address. Empty means an ephemeral port on
	// all interfaces.
	Address string

	// ReusePort binds with SO_REUSEPORT so several processes can share the
	// local port.
	ReusePort bool

	// SendBufferSize and RecvBufferSize size the kernel socket buffers and
	// the receive queue. Zero keeps the defaults.
	SendBufferSize int
	RecvBufferSize int
}

// UDPSocket implements Socket on a net.PacketConn.
//
// A reader goroutine receives datagrams into a bounded queue and invokes
// the installed upcall after each one. Datagrams that do not fit in the
// queue are dropped, as a full kernel receive buffer would.
type UDPSocket struct {
	conn     net.PacketConn
	sendSize int
	recvSize int

	mu          sync.Mutex
	queue       [][]byte
	queuedBytes int
	recvErr     error
	peer        net.Addr
	upcall      UpcallFunc
	upcallArg   any
	closed      bool

	closeOnce sync.Once
	done      chan struct{}
}

// ListenUDP binds a new UDP socket.
func ListenUDP(cfg UDPConfig) (*UDPSocket, error) {
	network := cfg.Network
	if network == "" {
		network = "udp"
	}
	if _, err := transportSize(network, 0); err != nil {
		return nil, err
	}

	address := cfg.Address
	if address == "" {
		address = ":0"
	}

	var (
		conn net.PacketConn
		err  error
	)
	if cfg.ReusePort {
		conn, err = reuseport.ListenPacket(network, address)
	} else {
		conn, err = net.ListenPacket(network, address)
	}
	if err != nil {
		return nil, fmt.Errorf("listen %s %s: %w", network, address, err)
	}

	if udpConn, ok := conn.(*net.UDPConn); ok {
		if cfg.SendBufferSize > 0 {
			if err := udpConn.SetWriteBuffer(cfg.SendBufferSize); err != nil {
				logger.Warn("Failed to set UDP send buffer to %d: %v", cfg.SendBufferSize, err)
			}
		}
		if cfg.RecvBufferSize > 0 {
			if err := udpConn.SetReadBuffer(cfg.RecvBufferSize); err != nil {
				logger.Warn("Failed to set UDP receive buffer to %d: %v", cfg.RecvBufferSize, err)
			}
		}
	}

	return NewUDPSocket(conn, cfg.SendBufferSize, cfg.RecvBufferSize), nil
}

// NewUDPSocket wraps conn and starts its reader goroutine. Zero sizes pick
// the defaults. The socket takes ownership of conn.
func NewUDPSocket(conn net.PacketConn, sendSize, recvSize int) *UDPSocket {
	if sendSize <= 0 {
		sendSize = udpMaxPayload
	}
	if recvSize <= 0 {
		recvSize = defaultRecvQueueBytes
	}

	s := &UDPSocket{
		conn:     conn,
		sendSize: sendSize,
		recvSize: recvSize,
		done:     make(chan struct{}),
	}
	go s.readLoop()

	logger.Debug("UDP socket open on %s", conn.LocalAddr())
	return s
}

func (s *UDPSocket) readLoop() {
	defer close(s.done)

	scratch := make([]byte, udpMaxPayload)
	for {
		n, from, err := s.conn.ReadFrom(scratch)
		if err != nil {
			s.mu.Lock()
			closed := s.closed || errors.Is(err, net.ErrClosed)
			if closed {
				s.recvErr = ErrSocketClosed
			} else {
				s.recvErr = err
			}
			s.mu.Unlock()

			s.notify()
			if closed {
				return
			}
			continue
		}

		if !s.enqueue(scratch[:n], from) {
			continue
		}
		s.notify()
	}
}

// enqueue copies a received datagram into the queue. It reports false if
// the datagram was dropped.
func (s *UDPSocket) enqueue(datagram []byte, from net.Addr) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.peer != nil && from != nil && from.String() != s.peer.String() {
		logger.Debug("Dropping datagram from %s: socket connected to %s", from, s.peer)
		return false
	}

	if s.queuedBytes+len(datagram) > s.recvSize {
		logger.Debug("Dropping %d byte datagram from %s: receive queue full", len(datagram), from)
		return false
	}

	s.queue = append(s.queue, bufpool.Clone(datagram))
	s.queuedBytes += len(datagram)
	return true
}

func (s *UDPSocket) notify() {
	s.mu.Lock()
	fn, arg := s.upcall, s.upcallArg
	s.mu.Unlock()

	if fn != nil {
		fn(arg)
	}
}

// SendTo implements Socket.
func (s *UDPSocket) SendTo(b []byte, addr net.Addr) error {
	s.mu.Lock()
	closed := s.closed
	if addr == nil {
		addr = s.peer
	}
	s.mu.Unlock()

	if closed {
		return ErrSocketClosed
	}
	if addr == nil {
		return ErrNotConnected
	}

	if _, err := s.conn.WriteTo(b, addr); err != nil {
		return fmt.Errorf("send to %s: %w", addr, err)
	}
	return nil
}

// Connect implements Socket.
func (s *UDPSocket) Connect(addr net.Addr) error {
	if addr == nil {
		return fmt.Errorf("connect: nil address")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSocketClosed
	}
	s.peer = addr
	return nil
}

// RecvNonBlocking implements Socket.
func (s *UDPSocket) RecvNonBlocking() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) > 0 {
		datagram := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.queuedBytes -= len(datagram)
		return datagram, nil
	}

	if err := s.recvErr; err != nil {
		s.recvErr = nil
		return nil, err
	}
	return nil, ErrWouldBlock
}

// InstallUpcall implements Socket.
func (s *UDPSocket) InstallUpcall(old, arg any, fn UpcallFunc) bool {
	s.mu.Lock()
	if s.upcallArg != old {
		s.mu.Unlock()
		return false
	}
	s.upcallArg = arg
	s.upcall = fn
	pending := len(s.queue) > 0 || s.recvErr != nil
	s.mu.Unlock()

	// Deliver anything that arrived while no upcall was installed.
	if fn != nil && pending {
		fn(arg)
	}
	return true
}

// UpcallArg implements Socket.
func (s *UDPSocket) UpcallArg() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upcallArg
}

// SendBufferSize implements Socket.
func (s *UDPSocket) SendBufferSize() int { return s.sendSize }

// RecvBufferSize implements Socket.
func (s *UDPSocket) RecvBufferSize() int { return s.recvSize }

// LocalAddr implements Socket.
func (s *UDPSocket) LocalAddr() net.Addr { return s.conn.LocalAddr() }

// Close closes the connection and waits for the reader goroutine. Calls
// still pending on the socket fail with CantRecv.
func (s *UDPSocket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		err = s.conn.Close()
		<-s.done

		s.mu.Lock()
		for _, datagram := range s.queue {
			bufpool.Put(datagram)
		}
		s.queue = nil
		s.queuedBytes = 0
		s.mu.Unlock()

		logger.Debug("UDP socket closed on %s", s.conn.LocalAddr())
	})
	return err
}
