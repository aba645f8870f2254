// Package clnt implements a connectionless (UDP) ONC RPC client.
//
// A Client sends one call at a time per goroutine, but any number of
// goroutines may call through the same Client, and any number of Clients may
// share one Socket. Replies are matched to calls by transaction id (xid)
// through a registry kept per socket:
//
//	Call ──register(xid)──► registry ◄──findAndComplete(xid)── upcall
//	  │                                                         ▲
//	  └──────────────── Socket.SendTo ──► server ──► reader ────┘
//
// The caller registers its xid before the datagram leaves, so a reply can
// never arrive before someone is waiting for it. The socket's upcall drains
// every queued datagram, peeks the xid and hands the packet to the matching
// waiter. A reply nobody is waiting for (a duplicate answer to a
// retransmission, or a reply to a call that already gave up) is dropped.
//
// Retransmission follows the classic BSD policy: the first retransmit fires
// after the handle's retry timeout, the interval doubles on every
// retransmit up to MaxBackoff, and the whole call gives up with TimedOut
// once the total timeout has elapsed. A total timeout of exactly zero sends
// the request and returns TimedOut without waiting, which gives one-way
// message passing on top of a request/response protocol.
//
// Every call returns nil or a *Error carrying a Status; the same value is
// kept as the handle's last error.
package clnt
