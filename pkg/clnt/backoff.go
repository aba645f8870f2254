//go:build !rpc_lowlatency

package clnt

import "time"

// MaxBackoff caps the retransmit interval. Build with the rpc_lowlatency
// tag to lower it to one second.
const MaxBackoff = 30 * time.Second
