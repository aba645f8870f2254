package clnt

import (
	"errors"
	"fmt"

	"github.com/marmos91/dittorpc/internal/protocol/rpc"
)

// Status is the outcome of a call (clnt_stat).
type Status uint32

const (
	Success          Status = 0  // call succeeded
	CantEncodeArgs   Status = 1  // can't encode arguments
	CantDecodeRes    Status = 2  // can't decode results
	CantSend         Status = 3  // failure in sending call
	CantRecv         Status = 4  // failure in receiving result
	TimedOut         Status = 5  // call timed out
	VersMismatch     Status = 6  // rpc versions not compatible
	AuthError        Status = 7  // authentication error
	ProgUnavail      Status = 8  // program not available
	ProgVersMismatch Status = 9  // program version mismatched
	ProcUnavail      Status = 10 // procedure unavailable
	CantDecodeArgs   Status = 11 // decode arguments error
	SystemError      Status = 12 // generic "other problem"
	UnknownHost      Status = 13 // unknown host name
	Failed           Status = 16 // unspecified error
	UnknownProto     Status = 17 // unknown protocol
	Intr             Status = 18 // interrupted
	UnknownAddr      Status = 19 // remote address unknown
)

var statusNames = map[Status]string{
	Success:          "RPC_SUCCESS",
	CantEncodeArgs:   "RPC_CANTENCODEARGS",
	CantDecodeRes:    "RPC_CANTDECODERES",
	CantSend:         "RPC_CANTSEND",
	CantRecv:         "RPC_CANTRECV",
	TimedOut:         "RPC_TIMEDOUT",
	VersMismatch:     "RPC_VERSMISMATCH",
	AuthError:        "RPC_AUTHERROR",
	ProgUnavail:      "RPC_PROGUNAVAIL",
	ProgVersMismatch: "RPC_PROGVERSMISMATCH",
	ProcUnavail:      "RPC_PROCUNAVAIL",
	CantDecodeArgs:   "RPC_CANTDECODEARGS",
	SystemError:      "RPC_SYSTEMERROR",
	UnknownHost:      "RPC_UNKNOWNHOST",
	Failed:           "RPC_FAILED",
	UnknownProto:     "RPC_UNKNOWNPROTO",
	Intr:             "RPC_INTR",
	UnknownAddr:      "RPC_UNKNOWNADDR",
}

var statusMessages = map[Status]string{
	Success:          "RPC: Success",
	CantEncodeArgs:   "RPC: Can't encode arguments",
	CantDecodeRes:    "RPC: Can't decode result",
	CantSend:         "RPC: Unable to send",
	CantRecv:         "RPC: Unable to receive",
	TimedOut:         "RPC: Timed out",
	VersMismatch:     "RPC: Incompatible versions of RPC",
	AuthError:        "RPC: Authentication error",
	ProgUnavail:      "RPC: Program unavailable",
	ProgVersMismatch: "RPC: Program/version mismatch",
	ProcUnavail:      "RPC: Procedure unavailable",
	CantDecodeArgs:   "RPC: Server can't decode arguments",
	SystemError:      "RPC: Remote system error",
	UnknownHost:      "RPC: Unknown host",
	Failed:           "RPC: Failed (unspecified error)",
	UnknownProto:     "RPC: Unknown protocol",
	Intr:             "RPC: Interrupted",
	UnknownAddr:      "RPC: Remote address unknown",
}

// String returns the symbolic name, e.g. "RPC_TIMEDOUT".
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("RPC_STATUS(%d)", uint32(s))
}

// Message returns the human readable description used in error strings.
func (s Status) Message() string {
	if msg, ok := statusMessages[s]; ok {
		return msg
	}
	return fmt.Sprintf("RPC: (unknown error code %d)", uint32(s))
}

var authStatMessages = map[uint32]string{
	rpc.AuthOK:               "Authentication OK",
	rpc.AuthBadCred:          "Invalid client credential",
	rpc.AuthRejectedCred:     "Server rejected credential",
	rpc.AuthBadVerf:          "Invalid client verifier",
	rpc.AuthRejectedVerf:     "Server rejected verifier",
	rpc.AuthTooWeak:          "Client credential too weak",
	rpc.AuthInvalidResp:      "Invalid server verifier",
	rpc.AuthFailed:           "Failed (unspecified error)",
	rpc.AuthKerbGeneric:      "Kerberos generic error",
	rpc.AuthTimeExpire:       "Credential expired",
	rpc.AuthTktFile:          "Bad ticket file",
	rpc.AuthDecode:           "Can't decode authenticator",
	rpc.AuthNetAddr:          "Wrong network address in ticket",
	rpc.RPCSecGSSCredProblem: "GSS credential problem",
	rpc.RPCSecGSSCtxProblem:  "GSS context problem",
}

// Error describes a failed call (rpc_err).
//
// Low and High hold the supported range for VersMismatch and
// ProgVersMismatch. AuthStat holds the server's auth_stat for AuthError.
// Err holds the local cause for transport and codec failures.
type Error struct {
	Status   Status
	Err      error
	AuthStat uint32
	Low      uint32
	High     uint32
}

func (e *Error) Error() string {
	msg := e.Status.Message()

	switch e.Status {
	case VersMismatch, ProgVersMismatch:
		msg = fmt.Sprintf("%s; low version = %d, high version = %d", msg, e.Low, e.High)
	case AuthError:
		why, ok := authStatMessages[e.AuthStat]
		if !ok {
			why = fmt.Sprintf("(unknown authentication error - %d)", e.AuthStat)
		}
		msg = fmt.Sprintf("%s; why = %s", msg, why)
	}

	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusOf returns the Status carried by err. A nil error is Success and an
// error without a *Error in its chain is Failed.
func StatusOf(err error) Status {
	if err == nil {
		return Success
	}

	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr.Status
	}
	return Failed
}

// Sentinel errors wrapped by *Error.
var (
	// ErrWouldBlock is returned by Socket.RecvNonBlocking when no datagram
	// is queued.
	ErrWouldBlock = errors.New("operation would block")

	// ErrDuplicateXID is returned when registering a transaction id that is
	// already pending on the socket.
	ErrDuplicateXID = errors.New("transaction id already pending")

	// ErrSocketClosed is reported to pending calls when their socket closes.
	ErrSocketClosed = errors.New("socket closed")

	// ErrClientDestroyed is returned by calls on a destroyed handle.
	ErrClientDestroyed = errors.New("client handle destroyed")

	// ErrNotConnected is returned by SendTo with a nil address on an
	// unconnected socket.
	ErrNotConnected = errors.New("socket not connected")
)

// replyStatus maps a decoded reply to a call error. It returns nil for an
// accepted SUCCESS reply. The mapping is the direct accept_stat and
// reject_stat correspondence of RFC 5531. An unknown accept_stat is Failed
// with the stat in Low; DecodeReply refuses unknown reject_stat values.
func replyStatus(reply *rpc.Reply) *Error {
	if acc := reply.Accepted; acc != nil {
		switch acc.Stat {
		case rpc.RPCSuccess:
			return nil
		case rpc.RPCProgUnavail:
			return &Error{Status: ProgUnavail}
		case rpc.RPCProgMismatch:
			return &Error{Status: ProgVersMismatch, Low: acc.MismatchLow, High: acc.MismatchHigh}
		case rpc.RPCProcUnavail:
			return &Error{Status: ProcUnavail}
		case rpc.RPCGarbageArgs:
			return &Error{Status: CantDecodeArgs}
		case rpc.RPCSystemErr:
			return &Error{Status: SystemError}
		}
		return &Error{Status: Failed, Low: acc.Stat}
	}

	if rej := reply.Rejected; rej != nil {
		switch rej.Stat {
		case rpc.RPCMismatch:
			return &Error{Status: VersMismatch, Low: rej.MismatchLow, High: rej.MismatchHigh}
		case rpc.RPCAuthError:
			return &Error{Status: AuthError, AuthStat: rej.AuthStat}
		}
	}

	return &Error{Status: Failed}
}
