package rpc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	xdrutil "github.com/marmos91/dittorpc/internal/protocol/xdr"
	xdr "github.com/rasky/go-xdr/xdr2"
)

// ============================================================================
// Call Encoding
// ============================================================================

// EncodeCallHeader appends the XDR encoding of hdr to buf.
//
// MsgType and RPCVersion are forced to CALL and 2; callers only fill in the
// transaction id, program, version and procedure.
func EncodeCallHeader(buf *bytes.Buffer, hdr CallHeader) error {
	hdr.MsgType = RPCCall
	hdr.RPCVersion = RPCVersion

	if _, err := xdr.Marshal(buf, &hdr); err != nil {
		return fmt.Errorf("marshal call header: %w", err)
	}
	return nil
}

// EncodeOpaqueAuth appends a credential or verifier to buf.
func EncodeOpaqueAuth(buf *bytes.Buffer, auth OpaqueAuth) error {
	if len(auth.Body) > MaxAuthBytes {
		return fmt.Errorf("auth body length %d exceeds maximum %d", len(auth.Body), MaxAuthBytes)
	}

	xdrutil.EncodeUint32(buf, auth.Flavor)
	return xdrutil.EncodeOpaque(buf, auth.Body)
}

// PeekXID returns the transaction id at the start of a message.
//
// It reports false when the message is too short to hold one; such packets
// cannot be matched to any call and are dropped by the caller.
func PeekXID(message []byte) (uint32, bool) {
	if len(message) < 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(message[:4]), true
}

// ============================================================================
// Reply Decoding
// ============================================================================

// DecodeOpaqueAuth reads a credential or verifier bounded by MaxAuthBytes.
func DecodeOpaqueAuth(r io.Reader) (OpaqueAuth, error) {
	flavor, err := xdrutil.DecodeUint32(r)
	if err != nil {
		return OpaqueAuth{}, fmt.Errorf("read auth flavor: %w", err)
	}

	body, err := xdrutil.DecodeOpaque(r, MaxAuthBytes)
	if err != nil {
		return OpaqueAuth{}, fmt.Errorf("read auth body: %w", err)
	}

	return OpaqueAuth{Flavor: flavor, Body: body}, nil
}

// DecodeReply parses the reply envelope from r.
//
// On return r is positioned at the first byte of the procedure results when
// the reply is accepted with SUCCESS. Any structural problem (short read,
// not a REPLY, unknown reply state or accept/reject discriminant) is an
// error: the caller treats the datagram as undecodable.
//
// Wire Format:
//
//	xid | REPLY | reply_stat
//	  MSG_ACCEPTED: verf | accept_stat | [PROG_MISMATCH: low | high]
//	  MSG_DENIED:   reject_stat | [RPC_MISMATCH: low | high] [AUTH_ERROR: auth_stat]
func DecodeReply(r io.Reader) (*Reply, error) {
	reply := &Reply{}

	if _, err := xdr.Unmarshal(r, &reply.ReplyHeader); err != nil {
		return nil, fmt.Errorf("unmarshal reply header: %w", err)
	}

	if reply.MsgType != RPCReply {
		return nil, fmt.Errorf("expected REPLY (1), got %d", reply.MsgType)
	}

	switch reply.ReplyState {
	case RPCMsgAccepted:
		verf, err := DecodeOpaqueAuth(r)
		if err != nil {
			return nil, fmt.Errorf("decode verifier: %w", err)
		}

		stat, err := xdrutil.DecodeUint32(r)
		if err != nil {
			return nil, fmt.Errorf("read accept_stat: %w", err)
		}

		accepted := &AcceptedReply{Verf: verf, Stat: stat}
		switch stat {
		case RPCProgMismatch:
			var info mismatchInfo
			if _, err := xdr.Unmarshal(r, &info); err != nil {
				return nil, fmt.Errorf("unmarshal prog mismatch info: %w", err)
			}
			accepted.MismatchLow, accepted.MismatchHigh = info.Low, info.High
		}
		// Other accept_stat values carry no body; the caller decides what
		// an unknown one means.
		reply.Accepted = accepted

	case RPCMsgDenied:
		stat, err := xdrutil.DecodeUint32(r)
		if err != nil {
			return nil, fmt.Errorf("read reject_stat: %w", err)
		}

		rejected := &RejectedReply{Stat: stat}
		switch stat {
		case RPCMismatch:
			var info mismatchInfo
			if _, err := xdr.Unmarshal(r, &info); err != nil {
				return nil, fmt.Errorf("unmarshal rpc mismatch info: %w", err)
			}
			rejected.MismatchLow, rejected.MismatchHigh = info.Low, info.High
		case RPCAuthError:
			if rejected.AuthStat, err = xdrutil.DecodeUint32(r); err != nil {
				return nil, fmt.Errorf("read auth_stat: %w", err)
			}
		default:
			return nil, fmt.Errorf("invalid reject_stat %d", stat)
		}
		reply.Rejected = rejected

	default:
		return nil, fmt.Errorf("invalid reply_stat %d", reply.ReplyState)
	}

	return reply, nil
}

// ============================================================================
// Server Side Helpers
// ============================================================================

// CallMessage is a decoded call header with its credential and verifier.
type CallMessage struct {
	CallHeader
	Cred OpaqueAuth
	Verf OpaqueAuth
}

// ReadCall parses an RPC call datagram and returns the header and the
// procedure argument bytes that follow it (a slice into message).
func ReadCall(message []byte) (*CallMessage, []byte, error) {
	r := bytes.NewReader(message)
	call := &CallMessage{}

	if _, err := xdr.Unmarshal(r, &call.CallHeader); err != nil {
		return nil, nil, fmt.Errorf("unmarshal RPC call: %w", err)
	}

	if call.MsgType != RPCCall {
		return nil, nil, fmt.Errorf("expected CALL (0), got %d", call.MsgType)
	}

	var err error
	if call.Cred, err = DecodeOpaqueAuth(r); err != nil {
		return nil, nil, fmt.Errorf("decode credential: %w", err)
	}
	if call.Verf, err = DecodeOpaqueAuth(r); err != nil {
		return nil, nil, fmt.Errorf("decode verifier: %w", err)
	}

	offset := len(message) - r.Len()
	return call, message[offset:], nil
}

// MakeAcceptedReply builds a MSG_ACCEPTED reply datagram.
//
// results is appended verbatim after the accept_stat and should already be
// XDR encoded. Datagram transports carry no record marking, so unlike stream
// replies no fragment header is prepended.
func MakeAcceptedReply(xid uint32, verf OpaqueAuth, stat uint32, results []byte) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 24+len(verf.Body)+len(results)))

	hdr := ReplyHeader{XID: xid, MsgType: RPCReply, ReplyState: RPCMsgAccepted}
	if _, err := xdr.Marshal(buf, &hdr); err != nil {
		return nil, fmt.Errorf("marshal reply: %w", err)
	}

	if err := EncodeOpaqueAuth(buf, verf); err != nil {
		return nil, fmt.Errorf("encode verifier: %w", err)
	}
	xdrutil.EncodeUint32(buf, stat)
	buf.Write(results)

	return buf.Bytes(), nil
}

// MakeSuccessReply builds an accepted SUCCESS reply with an AUTH_NULL verifier.
func MakeSuccessReply(xid uint32, results []byte) ([]byte, error) {
	return MakeAcceptedReply(xid, NullAuth(), RPCSuccess, results)
}

// MakeProgMismatchReply builds an accepted PROG_MISMATCH reply carrying the
// supported version range.
func MakeProgMismatchReply(xid, low, high uint32) ([]byte, error) {
	var info bytes.Buffer
	if _, err := xdr.Marshal(&info, &mismatchInfo{Low: low, High: high}); err != nil {
		return nil, fmt.Errorf("marshal mismatch info: %w", err)
	}
	return MakeAcceptedReply(xid, NullAuth(), RPCProgMismatch, info.Bytes())
}

// MakeDeniedReply builds a MSG_DENIED reply. For RPCMismatch the detail
// words are the low and high supported RPC versions; for RPCAuthError the
// first detail word is the auth_stat.
func MakeDeniedReply(xid, rejectStat uint32, detail ...uint32) ([]byte, error) {
	buf := new(bytes.Buffer)

	hdr := ReplyHeader{XID: xid, MsgType: RPCReply, ReplyState: RPCMsgDenied}
	if _, err := xdr.Marshal(buf, &hdr); err != nil {
		return nil, fmt.Errorf("marshal denied reply: %w", err)
	}
	xdrutil.EncodeUint32(buf, rejectStat)
	for _, word := range detail {
		xdrutil.EncodeUint32(buf, word)
	}

	return buf.Bytes(), nil
}
