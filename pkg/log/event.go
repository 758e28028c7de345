package log

import (
	"time"

	"github.com/evse-go/iso15118/pkg/message"
)

// MaxFrameDataSize bounds the frame bytes kept in a FrameEvent.
const MaxFrameDataSize = 1024

// Event is one record of a protocol capture. Exactly one of Frame, Message,
// StateChange and Error is set. Keys are small integers so that records
// stay compact on disk; they must never be renumbered.
type Event struct {
	Timestamp    time.Time `cbor:"1,keyasint"`
	ConnectionID string    `cbor:"2,keyasint"`
	Direction    Direction `cbor:"3,keyasint"`
	Layer        Layer     `cbor:"4,keyasint"`
	Category     Category  `cbor:"5,keyasint"`

	// RemoteAddr is the vehicle's host:port, set on connection events.
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// SessionID is the hex session id once SessionSetup has assigned one.
	SessionID string `cbor:"7,keyasint,omitempty"`

	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"`
}

// Direction is relative to the SECC: In was sent by the vehicle.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

func (d Direction) String() string {
	return enumName(d, []string{"IN", "OUT"})
}

// Layer is the part of the stack that produced an event.
type Layer uint8

const (
	// LayerTransport sees raw V2GTP frames.
	LayerTransport Layer = 0
	// LayerMessage sees decoded messages.
	LayerMessage Layer = 1
	// LayerSession sees connection and state machine changes.
	LayerSession Layer = 2
)

func (l Layer) String() string {
	return enumName(l, []string{"TRANSPORT", "MESSAGE", "SESSION"})
}

// Category tells which payload field of an Event is set. Value 1 is unused
// and must stay unassigned so old captures decode unchanged.
type Category uint8

const (
	CategoryMessage Category = 0
	CategoryState   Category = 2
	CategoryError   Category = 3
)

func (c Category) String() string {
	return enumName(c, []string{"MESSAGE", "", "STATE", "ERROR"})
}

// StateEntity names what changed state in a StateChangeEvent.
type StateEntity uint8

const (
	// StateEntityConnection is the TLS connection lifecycle.
	StateEntityConnection StateEntity = 0
	// StateEntitySession is the session lifecycle (setup, pause, resume).
	StateEntitySession StateEntity = 1
	// StateEntityProtocol is the message sequence state machine.
	StateEntityProtocol StateEntity = 2
)

func (s StateEntity) String() string {
	return enumName(s, []string{"CONNECTION", "SESSION", "PROTOCOL"})
}

func enumName[T ~uint8](v T, names []string) string {
	if int(v) < len(names) && names[v] != "" {
		return names[v]
	}
	return "UNKNOWN"
}

// FrameEvent is a V2GTP frame as seen on the wire, header included.
type FrameEvent struct {
	Size        int    `cbor:"1,keyasint"`
	PayloadType uint16 `cbor:"2,keyasint"`

	// Data holds at most MaxFrameDataSize leading bytes of the frame.
	Data      []byte `cbor:"3,keyasint,omitempty"`
	Truncated bool   `cbor:"4,keyasint,omitempty"`
}

// NewFrameEvent records frame, keeping at most MaxFrameDataSize bytes.
func NewFrameEvent(payloadType uint16, frame []byte) *FrameEvent {
	ev := &FrameEvent{Size: len(frame), PayloadType: payloadType, Data: frame}
	if len(frame) > MaxFrameDataSize {
		ev.Data = frame[:MaxFrameDataSize]
		ev.Truncated = true
	}
	return ev
}

// MessageEvent is a decoded request or response.
type MessageEvent struct {
	Type message.Type `cbor:"1,keyasint"`

	// ResponseCode is copied out of responses so filters need not decode
	// Payload.
	ResponseCode *message.ResponseCode `cbor:"2,keyasint,omitempty"`

	// Payload is the message itself when logging and a generic CBOR value
	// after reading back.
	Payload any `cbor:"3,keyasint,omitempty"`

	// ProcessingTime is request receipt to response send, responses only.
	ProcessingTime *time.Duration `cbor:"4,keyasint,omitempty"`
}

// NewMessageEvent records msg and, for responses, its response code.
func NewMessageEvent(msg message.Message) *MessageEvent {
	ev := &MessageEvent{Type: msg.Type(), Payload: msg}
	if r, ok := msg.(message.Response); ok {
		code := r.Base().ResponseCode
		ev.ResponseCode = &code
	}
	return ev
}

// StateChangeEvent is a transition of a connection, session or state
// machine. OldState is empty for the first transition.
type StateChangeEvent struct {
	Entity   StateEntity `cbor:"1,keyasint"`
	OldState string      `cbor:"2,keyasint,omitempty"`
	NewState string      `cbor:"3,keyasint"`
	Reason   string      `cbor:"4,keyasint,omitempty"`
}

// ErrorEventData is a failure at Layer. Context names the operation that
// failed, such as DECODE or SEQUENCE.
type ErrorEventData struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`
	Context string `cbor:"3,keyasint,omitempty"`
}
