package session

import (
	"errors"
	"fmt"

	"github.com/evse-go/iso15118/pkg/log"
)

// Session errors. A session that ends because of one of these reports it
// from Err, wrapped around the cause.
var (
	// ErrDeserialize is a malformed, oversized or unknown frame.
	ErrDeserialize = errors.New("deserialize error")

	// ErrSerialize is a response that could not be encoded.
	ErrSerialize = errors.New("serialize error")

	// ErrProtocolViolation is a request the current state does not accept.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrSequenceTimeout is a vehicle that stopped sending requests.
	ErrSequenceTimeout = errors.New("sequence timeout")

	// ErrTransport is an I/O or handshake failure.
	ErrTransport = errors.New("transport error")
)

// classify returns the capture layer and context for a session error.
func classify(err error) (log.Layer, string) {
	switch {
	case errors.Is(err, ErrTransport):
		return log.LayerTransport, "TRANSPORT"
	case errors.Is(err, ErrDeserialize):
		return log.LayerMessage, "DECODE"
	case errors.Is(err, ErrSerialize):
		return log.LayerMessage, "ENCODE"
	case errors.Is(err, ErrSequenceTimeout):
		return log.LayerSession, "SEQUENCE"
	case errors.Is(err, ErrProtocolViolation):
		return log.LayerSession, "PROTOCOL"
	}
	return log.LayerSession, ""
}

func wrap(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}
