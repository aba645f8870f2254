package metrics

import "time"

// ClientMetrics observes datagram RPC client activity.
//
// Implementations must be safe for concurrent use: calls on every handle
// sharing a socket report here, and the receive path reports from the
// socket's upcall.
type ClientMetrics interface {
	// RecordCall records a finished call with its final status name
	// (e.g. "RPC_SUCCESS", "RPC_TIMEDOUT") and total duration,
	// retransmissions and auth refreshes included.
	RecordCall(program, procedure uint32, status string, duration time.Duration)

	// RecordTransmit records one datagram put on the wire. retransmit is
	// false for the first send of a transaction id.
	RecordTransmit(bytes int, retransmit bool)

	// RecordReply records a received reply that matched a pending call.
	RecordReply(bytes int)

	// RecordDiscarded records a received datagram that was dropped.
	// reason is "short" or "unmatched".
	RecordDiscarded(reason string)

	// RecordAuthRefresh records a credential refresh followed by a resend.
	RecordAuthRefresh()

	// RecordSocketError records a hard receive error broadcast to all
	// pending calls on a socket.
	RecordSocketError()

	// AddPendingCalls adjusts the in-flight gauge: +1 when a request is
	// registered, -1 when it leaves the registry.
	AddPendingCalls(delta int)
}

// NewNoopClientMetrics returns a ClientMetrics that discards everything.
func NewNoopClientMetrics() ClientMetrics {
	return noopClientMetrics{}
}

type noopClientMetrics struct{}

func (noopClientMetrics) RecordCall(uint32, uint32, string, time.Duration) {}
func (noopClientMetrics) RecordTransmit(int, bool)                        {}
func (noopClientMetrics) RecordReply(int)                                 {}
func (noopClientMetrics) RecordDiscarded(string)                          {}
func (noopClientMetrics) RecordAuthRefresh()                              {}
func (noopClientMetrics) RecordSocketError()                              {}
func (noopClientMetrics) AddPendingCalls(int)                             {}
