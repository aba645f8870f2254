// Package ratelimiter paces datagram transmission.
//
// A client that retransmits aggressively against a slow or lossy server can
// flood the path with duplicates. The limiter caps the number of datagrams a
// client handle puts on the wire per second, first transmissions and
// retransmissions alike, using a token bucket from golang.org/x/time/rate.
package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket shared by every transmit of one client.
//
// A nil *RateLimiter never limits, so callers can hold one unconditionally.
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New returns a limiter allowing datagramsPerSecond sustained sends with the
// given burst. A zero rate disables limiting and New returns nil. A zero
// burst is raised to one so that a single send can always proceed.
func New(datagramsPerSecond, burst uint) *RateLimiter {
	if datagramsPerSecond == 0 {
		return nil
	}
	if burst == 0 {
		burst = 1
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(datagramsPerSecond), int(burst)),
	}
}

// Wait blocks until a send is permitted or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}

// SetLimit changes the sustained rate. Zero means unlimited.
func (r *RateLimiter) SetLimit(datagramsPerSecond uint) {
	if r == nil {
		return
	}
	if datagramsPerSecond == 0 {
		r.limiter.SetLimit(rate.Inf)
		return
	}
	r.limiter.SetLimit(rate.Limit(datagramsPerSecond))
}

// Limit returns the sustained rate, or 0 when unlimited.
func (r *RateLimiter) Limit() uint {
	if r == nil || r.limiter.Limit() == rate.Inf {
		return 0
	}
	return uint(r.limiter.Limit())
}
