package clnt

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/marmos91/dittorpc/internal/protocol/rpc"
)

// MaxAuthRefreshes bounds how many times one call refreshes its credentials
// and resends after an AUTH_ERROR reply.
const MaxAuthRefreshes = 2

// Auth produces the credential and verifier of each call and checks the
// server's verifier on the way back.
//
// Implementations must be safe for concurrent use; every goroutine calling
// through a Client shares its Auth.
type Auth interface {
	// Marshal writes the credential followed by the verifier for the call
	// with the given transaction id.
	Marshal(w io.Writer, xid uint32) error

	// Validate checks the verifier of an accepted reply.
	Validate(verf rpc.OpaqueAuth) bool

	// Refresh updates the credentials after an AUTH_ERROR reply. It returns
	// true if resending the call with new credentials may succeed.
	Refresh(reply *rpc.Reply) bool
}

// ============================================================================
// AUTH_NONE
// ============================================================================

type authNone struct {
	encoded []byte
}

var noneAuth = newAuthNone()

func newAuthNone() *authNone {
	buf := new(bytes.Buffer)
	// Cannot fail: the null body is empty.
	_ = rpc.EncodeOpaqueAuth(buf, rpc.NullAuth())
	_ = rpc.EncodeOpaqueAuth(buf, rpc.NullAuth())
	return &authNone{encoded: buf.Bytes()}
}

// AuthNone returns the AUTH_NONE authenticator. It is the default for new
// clients.
func AuthNone() Auth {
	return noneAuth
}

func (a *authNone) Marshal(w io.Writer, _ uint32) error {
	_, err := w.Write(a.encoded)
	return err
}

func (a *authNone) Validate(rpc.OpaqueAuth) bool { return true }

func (a *authNone) Refresh(*rpc.Reply) bool { return false }

// ============================================================================
// AUTH_SYS
// ============================================================================

// authUnix sends AUTH_SYS credentials.
//
// When the server answers with an AUTH_SHORT verifier, later calls send the
// shorthand instead of the full credential. If the server forgets the
// shorthand and rejects it, Refresh falls back to the full credential once.
type authUnix struct {
	mu    sync.Mutex
	full  rpc.OpaqueAuth
	cred  rpc.OpaqueAuth
	label string
}

// NewAuthUnix returns an AUTH_SYS authenticator for cred.
func NewAuthUnix(cred rpc.UnixAuth) (Auth, error) {
	body, err := cred.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode AUTH_SYS credential: %w", err)
	}
	if len(body) > rpc.MaxAuthBytes {
		return nil, fmt.Errorf("AUTH_SYS credential is %d bytes, limit is %d", len(body), rpc.MaxAuthBytes)
	}

	full := rpc.OpaqueAuth{Flavor: rpc.AuthUnix, Body: body}
	return &authUnix{full: full, cred: full, label: cred.String()}, nil
}

func (a *authUnix) Marshal(w io.Writer, _ uint32) error {
	a.mu.Lock()
	cred := a.cred
	a.mu.Unlock()

	buf := new(bytes.Buffer)
	if err := rpc.EncodeOpaqueAuth(buf, cred); err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	if err := rpc.EncodeOpaqueAuth(buf, rpc.NullAuth()); err != nil {
		return fmt.Errorf("encode verifier: %w", err)
	}

	_, err := w.Write(buf.Bytes())
	return err
}

func (a *authUnix) Validate(verf rpc.OpaqueAuth) bool {
	if verf.Flavor != rpc.AuthShort {
		return true
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.cred = rpc.OpaqueAuth{Flavor: rpc.AuthShort, Body: append([]byte(nil), verf.Body...)}
	return true
}

func (a *authUnix) Refresh(reply *rpc.Reply) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Nothing to fall back to while the full credential is in use.
	if a.cred.Flavor != rpc.AuthShort {
		return false
	}

	if reply == nil || !reply.IsAuthError() {
		return false
	}

	switch reply.Rejected.AuthStat {
	case rpc.AuthBadCred, rpc.AuthRejectedCred:
		a.cred = a.full
		return true
	}
	return false
}

func (a *authUnix) String() string {
	return a.label
}
