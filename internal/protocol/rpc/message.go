package rpc

// CallHeader is the fixed part of every RPC call message.
//
// It is kept as a structured record and marshaled when needed instead of
// patching a pre-encoded byte template, so changing the program, version or
// transaction id never depends on field offsets.
//
// Wire Format (XDR encoding):
//   - XID:        4 bytes (transaction identifier)
//   - MsgType:    4 bytes (0 for CALL)
//   - RPCVersion: 4 bytes (2)
//   - Program:    4 bytes
//   - Version:    4 bytes
//   - Procedure:  4 bytes
//   - [credential, verifier and procedure arguments follow]
//
// Reference: RFC 5531 Section 9
type CallHeader struct {
	// XID matches replies to calls. The client picks it, the server echoes it.
	XID uint32

	// MsgType is always RPCCall.
	MsgType uint32

	// RPCVersion is always 2.
	RPCVersion uint32

	Program   uint32
	Version   uint32
	Procedure uint32
}

// CallHeaderSize is the encoded size of a CallHeader.
const CallHeaderSize = 6 * 4

// OpaqueAuth represents authentication credentials or verifiers.
//
// The RPC layer does not interpret the body; its meaning depends on Flavor.
//
// Reference: RFC 5531 Section 8 (Authentication)
type OpaqueAuth struct {
	// Flavor identifies the authentication scheme (AuthNull, AuthUnix, ...).
	Flavor uint32

	// Body is the flavor-specific data, at most MaxAuthBytes long.
	Body []byte `xdr:"opaque"`
}

// NullAuth returns an AUTH_NULL credential or verifier.
func NullAuth() OpaqueAuth {
	return OpaqueAuth{Flavor: AuthNull, Body: []byte{}}
}

// ReplyHeader is the common prefix of every reply message.
type ReplyHeader struct {
	XID        uint32
	MsgType    uint32
	ReplyState uint32
}

// acceptedHead is the first part of an accepted reply body.
type acceptedHead struct {
	Verf OpaqueAuth
	Stat uint32
}

// mismatchInfo carries the low/high version range of PROG_MISMATCH and
// RPC_MISMATCH replies.
type mismatchInfo struct {
	Low  uint32
	High uint32
}

// AcceptedReply is the body of a MSG_ACCEPTED reply.
type AcceptedReply struct {
	// Verf is the server's verifier, checked by the caller's authenticator.
	Verf OpaqueAuth

	// Stat is the accept_stat.
	Stat uint32

	// MismatchLow and MismatchHigh are only meaningful for RPCProgMismatch.
	MismatchLow  uint32
	MismatchHigh uint32
}

// RejectedReply is the body of a MSG_DENIED reply.
type RejectedReply struct {
	// Stat is the reject_stat.
	Stat uint32

	// MismatchLow and MismatchHigh are only meaningful for RPCMismatch.
	MismatchLow  uint32
	MismatchHigh uint32

	// AuthStat is only meaningful for RPCAuthError.
	AuthStat uint32
}

// Reply is a decoded reply envelope. Exactly one of Accepted and Rejected is
// set, depending on ReplyState.
type Reply struct {
	ReplyHeader

	Accepted *AcceptedReply
	Rejected *RejectedReply
}

// IsSuccess reports whether the reply was accepted with SUCCESS.
func (r *Reply) IsSuccess() bool {
	return r.Accepted != nil && r.Accepted.Stat == RPCSuccess
}

// IsAuthError reports whether the reply was denied with AUTH_ERROR.
func (r *Reply) IsAuthError() bool {
	return r.Rejected != nil && r.Rejected.Stat == RPCAuthError
}
