// Package transport provides the TLS transport for ISO 15118-20 sessions.
//
// The transport layer handles:
//   - TLS 1.3 termination with optional vehicle client certificates
//   - Connection lifecycle events (ACCEPTED, OPEN, NEW_DATA, CLOSED)
//   - Non-blocking reads for the session reactor
//   - Accepting connections and handing each to a session handler
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│   ISO 15118-20 messages        │
//	├────────────────────────────────┤
//	│   V2GTP header (8B)            │
//	├────────────────────────────────┤
//	│         TLS 1.3                │
//	├────────────────────────────────┤
//	│           TCP                  │
//	├────────────────────────────────┤
//	│      IPv6 link-local           │
//	└────────────────────────────────┘
//
// # Threading
//
// Each TLSConnection owns one goroutine that performs the handshake and then
// moves socket bytes into an internal buffer. The session goroutine never
// blocks on the socket: Read returns wouldBlock when the buffer is empty and
// a NEW_DATA event is posted when bytes arrive.
package transport
