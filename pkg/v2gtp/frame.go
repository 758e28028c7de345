package v2gtp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Header constants.
const (
	// HeaderSize is the size of the V2GTP header in bytes.
	HeaderSize = 8

	// ProtocolVersion is the only protocol version defined by ISO 15118.
	ProtocolVersion byte = 0x01

	// InverseProtocolVersion is the bitwise inverse of ProtocolVersion.
	InverseProtocolVersion byte = ^ProtocolVersion

	// DefaultMaxPayloadSize bounds the payload of a single frame (64 KB).
	DefaultMaxPayloadSize = 65536
)

// PayloadType identifies the encoding namespace of a frame payload.
type PayloadType uint16

// Payload types used by ISO 15118-20.
const (
	PayloadSAP       PayloadType = 0x8001 // supportedAppProtocol
	PayloadCommon    PayloadType = 0x8002 // ISO 15118-20 common messages
	PayloadAC        PayloadType = 0x8003 // ISO 15118-20 AC messages
	PayloadDC        PayloadType = 0x8004 // ISO 15118-20 DC messages
	PayloadACDP      PayloadType = 0x8005 // ISO 15118-20 ACDP messages
	PayloadWPT       PayloadType = 0x8006 // ISO 15118-20 WPT messages
	PayloadScheduled PayloadType = 0x8101 // schedule renegotiation
	PayloadSDP       PayloadType = 0x9000 // SDP request
	PayloadSDPRes    PayloadType = 0x9001 // SDP response
)

// String returns the payload type name.
func (p PayloadType) String() string {
	switch p {
	case PayloadSAP:
		return "SAP"
	case PayloadCommon:
		return "COMMON"
	case PayloadAC:
		return "AC"
	case PayloadDC:
		return "DC"
	case PayloadACDP:
		return "ACDP"
	case PayloadWPT:
		return "WPT"
	case PayloadScheduled:
		return "SCHEDULED"
	case PayloadSDP:
		return "SDP_REQ"
	case PayloadSDPRes:
		return "SDP_RES"
	default:
		return fmt.Sprintf("0x%04X", uint16(p))
	}
}

// Framing errors.
var (
	// ErrInvalidHeader indicates a header with a wrong version/inverse pair.
	ErrInvalidHeader = errors.New("invalid v2gtp header")

	// ErrPayloadTooLarge indicates a payload length above the configured maximum.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrInvalidState indicates ReadFrom was called on a frame in a state that
	// does not accept more bytes.
	ErrInvalidState = errors.New("invalid frame state")

	// ErrConnectionClosed indicates the peer closed the stream mid-frame.
	ErrConnectionClosed = errors.New("connection closed")
)

// Header is a decoded V2GTP header.
type Header struct {
	Version        byte
	InverseVersion byte
	PayloadType    PayloadType
	PayloadLength  uint32
}

// Validate checks the version pair.
func (h Header) Validate() error {
	if h.Version != ProtocolVersion || h.InverseVersion != ^h.Version {
		return fmt.Errorf("%w: version 0x%02X inverse 0x%02X", ErrInvalidHeader, h.Version, h.InverseVersion)
	}
	return nil
}

// PutHeader writes a header for the given payload type and length into dst,
// which must be at least HeaderSize bytes long.
func PutHeader(dst []byte, payloadType PayloadType, length uint32) {
	dst[0] = ProtocolVersion
	dst[1] = InverseProtocolVersion
	binary.BigEndian.PutUint16(dst[2:4], uint16(payloadType))
	binary.BigEndian.PutUint32(dst[4:8], length)
}

// ParseHeader decodes the first HeaderSize bytes of src.
func ParseHeader(src []byte) (Header, error) {
	if len(src) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d header bytes", ErrInvalidHeader, len(src))
	}
	h := Header{
		Version:        src[0],
		InverseVersion: src[1],
		PayloadType:    PayloadType(binary.BigEndian.Uint16(src[2:4])),
		PayloadLength:  binary.BigEndian.Uint32(src[4:8]),
	}
	return h, h.Validate()
}

// Reader is a non-blocking byte source. A call that finds no bytes available
// returns wouldBlock=true and n=0 instead of blocking.
type Reader interface {
	Read(p []byte) (n int, wouldBlock bool, err error)
}

type frameState uint8

const (
	stateHeader frameState = iota
	statePayload
	stateComplete
	stateFailed
)

// Frame is a V2GTP frame being assembled from a non-blocking reader.
// The zero value is not usable; create frames with NewFrame.
type Frame struct {
	Header  Header
	Payload []byte

	maxPayload uint32
	headerBuf  [HeaderSize]byte
	state      frameState
	pos        int
}

// NewFrame creates an empty frame with the default payload bound.
func NewFrame() *Frame {
	return NewFrameWithMaxSize(DefaultMaxPayloadSize)
}

// NewFrameWithMaxSize creates an empty frame with a custom payload bound.
func NewFrameWithMaxSize(maxPayload uint32) *Frame {
	return &Frame{maxPayload: maxPayload}
}

// Complete reports whether header and payload have been fully read.
func (f *Frame) Complete() bool {
	return f.state == stateComplete
}

// Reset empties the frame so the next ReadFrom starts a new header.
func (f *Frame) Reset() {
	f.Header = Header{}
	f.Payload = nil
	f.state = stateHeader
	f.pos = 0
}

// ReadFrom advances the frame with as many bytes as r has available.
// It returns wouldBlock=true when r ran dry before the frame completed.
// Any returned error is fatal for the input path; the frame must not be
// read from again until Reset.
func (f *Frame) ReadFrom(r Reader) (wouldBlock bool, err error) {
	for {
		switch f.state {
		case stateHeader:
			n, wb, err := r.Read(f.headerBuf[f.pos:])
			f.pos += n
			if err != nil {
				return false, f.fail(readError(err))
			}
			if f.pos < HeaderSize {
				if wb || n == 0 {
					return true, nil
				}
				continue
			}

			h, err := ParseHeader(f.headerBuf[:])
			if err != nil {
				return false, f.fail(err)
			}
			if h.PayloadLength > f.maxPayload {
				return false, f.fail(fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, h.PayloadLength, f.maxPayload))
			}
			f.Header = h
			f.Payload = make([]byte, h.PayloadLength)
			f.pos = 0
			if h.PayloadLength == 0 {
				f.state = stateComplete
				return false, nil
			}
			f.state = statePayload

		case statePayload:
			n, wb, err := r.Read(f.Payload[f.pos:])
			f.pos += n
			if err != nil {
				return false, f.fail(readError(err))
			}
			if f.pos == len(f.Payload) {
				f.state = stateComplete
				return false, nil
			}
			if wb || n == 0 {
				return true, nil
			}

		default:
			return false, f.fail(fmt.Errorf("%w: %d", ErrInvalidState, f.state))
		}
	}
}

func (f *Frame) fail(err error) error {
	f.state = stateFailed
	return err
}

func readError(err error) error {
	if errors.Is(err, io.EOF) {
		return ErrConnectionClosed
	}
	return err
}

// WriteFrame writes a complete frame (header and payload) to w.
func WriteFrame(w io.Writer, payloadType PayloadType, payload []byte) error {
	buf := make([]byte, HeaderSize+len(payload))
	PutHeader(buf, payloadType, uint32(len(payload)))
	copy(buf[HeaderSize:], payload)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// FrameSize returns the total frame size including the header.
func FrameSize(payloadSize int) int {
	return HeaderSize + payloadSize
}
