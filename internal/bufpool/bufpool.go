// Package bufpool provides reusable byte slices for datagrams.
//
// Received replies are copied out of the socket's scratch buffer into a
// pooled slice, handed to the waiting call, and returned here once the call
// has decoded its results. Encoded requests are built in pooled slices too
// and returned when the call finishes, retransmissions included.
package bufpool

import (
	"sync"
)

const (
	// smallBufferSize holds most control calls and their replies
	// (NULL, GETPORT, GETATTR-sized messages), which fit a single
	// Ethernet frame.
	smallBufferSize = 2 << 10 // 2KB

	// mediumBufferSize holds jumbo-frame sized datagrams.
	mediumBufferSize = 9 << 10 // 9KB

	// largeBufferSize is the largest possible UDP payload, rounded up.
	largeBufferSize = 64 << 10 // 64KB
)

// Pool is a set of byte slice pools organized by size class.
type Pool struct {
	small  sync.Pool
	medium sync.Pool
	large  sync.Pool
}

// New returns an empty pool.
func New() *Pool {
	return &Pool{
		small:  sync.Pool{New: func() any { buf := make([]byte, smallBufferSize); return &buf }},
		medium: sync.Pool{New: func() any { buf := make([]byte, mediumBufferSize); return &buf }},
		large:  sync.Pool{New: func() any { buf := make([]byte, largeBufferSize); return &buf }},
	}
}

var global = New()

// Get returns a slice of length size backed by a pooled buffer.
//
// Requests above the largest size class are allocated directly and are not
// pooled on Put.
func (p *Pool) Get(size int) []byte {
	var bufPtr *[]byte

	switch {
	case size <= smallBufferSize:
		bufPtr = p.small.Get().(*[]byte)
	case size <= mediumBufferSize:
		bufPtr = p.medium.Get().(*[]byte)
	case size <= largeBufferSize:
		bufPtr = p.large.Get().(*[]byte)
	default:
		return make([]byte, size)
	}

	buf := *bufPtr
	return buf[:size]
}

// Put returns a buffer obtained from Get. The buffer must not be used
// afterwards. Nil and foreign-sized buffers are ignored.
func (p *Pool) Put(buf []byte) {
	if buf == nil {
		return
	}

	fullBuf := buf[:cap(buf)]
	switch cap(buf) {
	case smallBufferSize:
		p.small.Put(&fullBuf)
	case mediumBufferSize:
		p.medium.Put(&fullBuf)
	case largeBufferSize:
		p.large.Put(&fullBuf)
	}
}

// Get acquires a buffer from the package-level pool.
func Get(size int) []byte {
	return global.Get(size)
}

// Put returns a buffer to the package-level pool.
func Put(buf []byte) {
	global.Put(buf)
}

// Clone copies b into a pooled buffer of the same length.
func Clone(b []byte) []byte {
	buf := global.Get(len(b))
	copy(buf, b)
	return buf
}
