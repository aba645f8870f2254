package rpc

import (
	"bytes"
	"fmt"
	"io"

	xdrutil "github.com/marmos91/dittorpc/internal/protocol/xdr"
)

const (
	// MaxMachineNameLen is the AUTH_SYS machine name limit.
	MaxMachineNameLen = 255

	// MaxUnixGIDs is the AUTH_SYS supplementary group limit.
	MaxUnixGIDs = 16
)

// UnixAuth is the body of an AUTH_SYS (AUTH_UNIX) credential.
//
// Reference: RFC 5531 Appendix A
//
//	struct authsys_parms {
//	    unsigned int stamp;
//	    string machinename<255>;
//	    unsigned int uid;
//	    unsigned int gid;
//	    unsigned int gids<16>;
//	};
type UnixAuth struct {
	Stamp       uint32
	MachineName string
	UID         uint32
	GID         uint32
	GIDs        []uint32
}

// Encode returns the XDR encoding of the credential body.
func (a *UnixAuth) Encode() ([]byte, error) {
	if len(a.MachineName) > MaxMachineNameLen {
		return nil, fmt.Errorf("machine name too long: %d bytes", len(a.MachineName))
	}
	if len(a.GIDs) > MaxUnixGIDs {
		return nil, fmt.Errorf("too many gids: %d", len(a.GIDs))
	}

	buf := new(bytes.Buffer)
	xdrutil.EncodeUint32(buf, a.Stamp)
	if err := xdrutil.EncodeString(buf, a.MachineName); err != nil {
		return nil, fmt.Errorf("encode machine name: %w", err)
	}
	xdrutil.EncodeUint32(buf, a.UID)
	xdrutil.EncodeUint32(buf, a.GID)
	xdrutil.EncodeUint32(buf, uint32(len(a.GIDs)))
	for _, gid := range a.GIDs {
		xdrutil.EncodeUint32(buf, gid)
	}

	return buf.Bytes(), nil
}

// ParseUnixAuth decodes an AUTH_SYS credential body.
func ParseUnixAuth(body []byte) (*UnixAuth, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("empty auth body")
	}

	r := bytes.NewReader(body)
	auth := &UnixAuth{}

	var err error
	if auth.Stamp, err = xdrutil.DecodeUint32(r); err != nil {
		return nil, fmt.Errorf("read stamp: %w", err)
	}

	nameLen, err := xdrutil.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read machine name length: %w", err)
	}
	if nameLen > MaxMachineNameLen {
		return nil, fmt.Errorf("machine name too long: %d bytes", nameLen)
	}
	name := make([]byte, nameLen+xdrutil.Padding(nameLen))
	if _, err := io.ReadFull(r, name); err != nil {
		return nil, fmt.Errorf("read machine name: %w", err)
	}
	auth.MachineName = string(name[:nameLen])

	if auth.UID, err = xdrutil.DecodeUint32(r); err != nil {
		return nil, fmt.Errorf("read uid: %w", err)
	}
	if auth.GID, err = xdrutil.DecodeUint32(r); err != nil {
		return nil, fmt.Errorf("read gid: %w", err)
	}

	count, err := xdrutil.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read gid count: %w", err)
	}
	if count > MaxUnixGIDs {
		return nil, fmt.Errorf("too many gids: %d", count)
	}

	auth.GIDs = make([]uint32, count)
	for i := range auth.GIDs {
		if auth.GIDs[i], err = xdrutil.DecodeUint32(r); err != nil {
			return nil, fmt.Errorf("read gid %d: %w", i, err)
		}
	}

	return auth, nil
}

// String returns a compact description for logs.
func (a *UnixAuth) String() string {
	return fmt.Sprintf("UnixAuth{machine=%s uid=%d gid=%d gids=%v}", a.MachineName, a.UID, a.GID, a.GIDs)
}
