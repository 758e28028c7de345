package transport

import (
	"context"
	"net"
)

// EventType identifies a connection lifecycle event.
type EventType uint8

const (
	// EventAccepted is posted once the socket is accepted, before the
	// TLS handshake.
	EventAccepted EventType = iota

	// EventOpen is posted once the handshake has completed. The vehicle
	// certificate hash is available from this point on.
	EventOpen

	// EventNewData is posted when received bytes are waiting in the buffer.
	EventNewData

	// EventClosed is posted once, when the connection can no longer
	// deliver data.
	EventClosed
)

// String returns the event name.
func (t EventType) String() string {
	switch t {
	case EventAccepted:
		return "ACCEPTED"
	case EventOpen:
		return "OPEN"
	case EventNewData:
		return "NEW_DATA"
	case EventClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Event is a connection lifecycle notification.
type Event struct {
	Type EventType

	// Err is set on EventClosed when the connection failed rather than
	// being closed in an orderly way.
	Err error
}

// Connection is the byte-stream endpoint a session runs on.
// Implemented by TLSConnection.
type Connection interface {
	// ID returns the unique connection identifier.
	ID() string

	// RemoteAddr returns the vehicle's network address.
	RemoteAddr() net.Addr

	// Events returns the lifecycle event channel.
	Events() <-chan Event

	// Read copies buffered bytes into p. It never blocks: wouldBlock is
	// true when nothing is buffered yet.
	Read(p []byte) (n int, wouldBlock bool, err error)

	// Write sends all of p or fails.
	Write(p []byte) error

	// Close closes the connection. It is safe to call more than once.
	Close() error

	// HandshakeComplete reports whether the TLS handshake has finished.
	HandshakeComplete() bool

	// PeerCertHash returns the SHA-512 fingerprint of the vehicle
	// certificate, or nil if none was presented.
	PeerCertHash() []byte
}

// Handler serves one connection. ServeV2G returns when the session is over;
// the server closes the connection afterwards.
type Handler interface {
	ServeV2G(ctx context.Context, conn Connection)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, conn Connection)

// ServeV2G calls f(ctx, conn).
func (f HandlerFunc) ServeV2G(ctx context.Context, conn Connection) {
	f(ctx, conn)
}

// Compile-time interface satisfaction checks.
var (
	_ Connection = (*TLSConnection)(nil)
	_ Handler    = HandlerFunc(nil)
)
