//go:build rpc_lowlatency

package clnt

import "time"

// MaxBackoff caps the retransmit interval.
const MaxBackoff = 1 * time.Second
