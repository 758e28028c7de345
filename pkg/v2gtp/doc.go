// Package v2gtp implements the V2G Transport Protocol framing used by
// ISO 15118 on top of TCP/TLS.
//
// Every message is carried in a frame with a fixed 8-byte header:
//
//	┌─────────┬─────────────┬──────────────────┬──────────────────────┐
//	│ version │ inv version │ payload type u16 │ payload length u32   │
//	│ 1 byte  │ 1 byte      │ big-endian       │ big-endian           │
//	└─────────┴─────────────┴──────────────────┴──────────────────────┘
//
// followed by payload length bytes of encoded message.
//
// The Frame type is filled incrementally from a non-blocking reader. A read
// that has no bytes available reports "would block" and leaves the frame in a
// resumable state, so a single goroutine can drive many partial reads without
// ever blocking.
package v2gtp
