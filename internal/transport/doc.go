// Package transport wires the CRISP wire protocol onto plain UDP sockets.
//
// Transport sends datagrams through crisp.Protect before they hit the wire
// and runs received datagrams through crisp.Unprotect, with the keys of the
// peer whose address the datagram came from, before handing plaintext to
// the caller. Each peer carries its own anti-replay window,
// guarded by a mutex since CheckAndUpdate mutates the window in place.
package transport
