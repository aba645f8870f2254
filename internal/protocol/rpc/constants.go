package rpc

// RPCVersion is the only ONC RPC protocol version spoken on the wire.
//
// Reference: RFC 5531 Section 8
const RPCVersion = 2

// RPC Message Types
//
// These constants identify whether an RPC message is a call (request)
// from a client or a reply (response) from a server.
//
// Reference: RFC 5531 Section 9 (RPC Message Protocol)
const (
	// RPCCall indicates an RPC call message.
	RPCCall = 0

	// RPCReply indicates an RPC reply message.
	RPCReply = 1
)

// RPC Reply States
//
// Reference: RFC 5531 Section 9 (RPC Message Protocol)
const (
	// RPCMsgAccepted indicates the server recognized the program and version
	// and attempted to run the procedure. An accept_stat follows.
	RPCMsgAccepted = 0

	// RPCMsgDenied indicates the server rejected the call before running it,
	// either because of an RPC version mismatch or an authentication failure.
	// A reject_stat follows.
	RPCMsgDenied = 1
)

// RPC Accept Status (accept_stat)
//
// Reference: RFC 5531 Section 9 (RPC Message Protocol)
const (
	// RPCSuccess indicates the procedure ran; results follow.
	RPCSuccess = 0

	// RPCProgUnavail indicates the remote host does not export the program.
	RPCProgUnavail = 1

	// RPCProgMismatch indicates the program is exported but not this version.
	// The reply carries the lowest and highest supported versions.
	RPCProgMismatch = 2

	// RPCProcUnavail indicates the program cannot support the procedure.
	RPCProcUnavail = 3

	// RPCGarbageArgs indicates the procedure could not decode its arguments.
	RPCGarbageArgs = 4

	// RPCSystemErr indicates a server-side error such as memory exhaustion.
	RPCSystemErr = 5
)

// RPC Reject Status (reject_stat)
const (
	// RPCMismatch indicates the RPC version is not 2. The reply carries the
	// supported version range.
	RPCMismatch = 0

	// RPCAuthError indicates the caller could not be authenticated. The reply
	// carries an auth_stat.
	RPCAuthError = 1
)

// Authentication Status (auth_stat)
//
// Reference: RFC 5531 Section 9, RFC 2203 Section 5.3.3.3
const (
	AuthOK               = 0
	AuthBadCred          = 1
	AuthRejectedCred     = 2
	AuthBadVerf          = 3
	AuthRejectedVerf     = 4
	AuthTooWeak          = 5
	AuthInvalidResp      = 6
	AuthFailed           = 7
	AuthKerbGeneric      = 8
	AuthTimeExpire       = 9
	AuthTktFile          = 10
	AuthDecode           = 11
	AuthNetAddr          = 12
	RPCSecGSSCredProblem = 13
	RPCSecGSSCtxProblem  = 14
)

// Authentication Flavors (auth_flavor)
//
// Reference: RFC 5531 Section 8.2
const (
	// AuthNull carries no credentials.
	AuthNull uint32 = 0

	// AuthUnix carries Unix-style UID/GID credentials (AUTH_SYS).
	AuthUnix uint32 = 1

	// AuthShort is a server-issued shorthand for a previous AUTH_SYS credential.
	AuthShort uint32 = 2

	// AuthDH is Diffie-Hellman authentication (AUTH_DES).
	AuthDH uint32 = 3

	// AuthGSS is RPCSEC_GSS.
	AuthGSS uint32 = 6
)

// MaxAuthBytes is the largest credential or verifier body allowed on the wire.
const MaxAuthBytes = 400

// Program Numbers used by tools and tests.
const (
	// ProgramPortmap is the port mapper program number (RFC 1833).
	ProgramPortmap = 100000

	// ProgramNFS is the NFS program number (RFC 1813).
	ProgramNFS = 100003

	// ProgramMount is the Mount protocol program number (RFC 1813 Appendix I).
	ProgramMount = 100005
)
