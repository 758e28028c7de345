package message

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/evse-go/iso15118/pkg/v2gtp"
)

// Codec errors.
var (
	// ErrUnknownType indicates a message type without a decoder.
	ErrUnknownType = errors.New("unknown message type")

	// ErrNamespace indicates a message carried under the wrong payload type.
	ErrNamespace = errors.New("message not valid for payload type")

	// ErrMalformed indicates a payload that is not a well-formed envelope.
	ErrMalformed = errors.New("malformed payload")

	// ErrFieldRange indicates a field value outside its protocol bounds.
	ErrFieldRange = errors.New("field out of range")

	// ErrTooLarge indicates an encoding above the maximum payload size.
	ErrTooLarge = errors.New("encoded message too large")
)

// encMode is the CBOR encoder mode for V2G messages.
// Configured for deterministic encoding with integer keys.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for V2G messages.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Duplicate keys and indefinite lengths are rejected: a payload has
	// exactly one valid encoding.
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		IndefLength:       cbor.IndefLengthForbidden,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// envelope is the outer payload map.
type envelope struct {
	Type Type            `cbor:"1,keyasint"`
	Body cbor.RawMessage `cbor:"2,keyasint"`
}

type entry struct {
	new func() Message
}

var registry = map[Type]entry{
	TypeSupportedAppProtocolReq:       {func() Message { return &SupportedAppProtocolRequest{} }},
	TypeSupportedAppProtocolRes:       {func() Message { return &SupportedAppProtocolResponse{} }},
	TypeSessionSetupReq:               {func() Message { return &SessionSetupRequest{} }},
	TypeSessionSetupRes:               {func() Message { return &SessionSetupResponse{} }},
	TypeAuthorizationSetupReq:         {func() Message { return &AuthorizationSetupRequest{} }},
	TypeAuthorizationSetupRes:         {func() Message { return &AuthorizationSetupResponse{} }},
	TypeAuthorizationReq:              {func() Message { return &AuthorizationRequest{} }},
	TypeAuthorizationRes:              {func() Message { return &AuthorizationResponse{} }},
	TypeServiceDiscoveryReq:           {func() Message { return &ServiceDiscoveryRequest{} }},
	TypeServiceDiscoveryRes:           {func() Message { return &ServiceDiscoveryResponse{} }},
	TypeServiceDetailReq:              {func() Message { return &ServiceDetailRequest{} }},
	TypeServiceDetailRes:              {func() Message { return &ServiceDetailResponse{} }},
	TypeServiceSelectionReq:           {func() Message { return &ServiceSelectionRequest{} }},
	TypeServiceSelectionRes:           {func() Message { return &ServiceSelectionResponse{} }},
	TypeScheduleExchangeReq:           {func() Message { return &ScheduleExchangeRequest{} }},
	TypeScheduleExchangeRes:           {func() Message { return &ScheduleExchangeResponse{} }},
	TypePowerDeliveryReq:              {func() Message { return &PowerDeliveryRequest{} }},
	TypePowerDeliveryRes:              {func() Message { return &PowerDeliveryResponse{} }},
	TypeSessionStopReq:                {func() Message { return &SessionStopRequest{} }},
	TypeSessionStopRes:                {func() Message { return &SessionStopResponse{} }},
	TypeDCChargeParameterDiscoveryReq: {func() Message { return &DCChargeParameterDiscoveryRequest{} }},
	TypeDCChargeParameterDiscoveryRes: {func() Message { return &DCChargeParameterDiscoveryResponse{} }},
	TypeDCCableCheckReq:               {func() Message { return &DCCableCheckRequest{} }},
	TypeDCCableCheckRes:               {func() Message { return &DCCableCheckResponse{} }},
	TypeDCPreChargeReq:                {func() Message { return &DCPreChargeRequest{} }},
	TypeDCPreChargeRes:                {func() Message { return &DCPreChargeResponse{} }},
	TypeDCChargeLoopReq:               {func() Message { return &DCChargeLoopRequest{} }},
	TypeDCChargeLoopRes:               {func() Message { return &DCChargeLoopResponse{} }},
	TypeDCWeldingDetectionReq:         {func() Message { return &DCWeldingDetectionRequest{} }},
	TypeDCWeldingDetectionRes:         {func() Message { return &DCWeldingDetectionResponse{} }},
	TypeACChargeParameterDiscoveryReq: {func() Message { return &ACChargeParameterDiscoveryRequest{} }},
	TypeACChargeParameterDiscoveryRes: {func() Message { return &ACChargeParameterDiscoveryResponse{} }},
	TypeACChargeLoopReq:               {func() Message { return &ACChargeLoopRequest{} }},
	TypeACChargeLoopRes:               {func() Message { return &ACChargeLoopResponse{} }},
}

type validator interface {
	Validate() error
}

// Validate checks the protocol bounds of msg, if it declares any.
func Validate(msg Message) error {
	if v, ok := msg.(validator); ok {
		return v.Validate()
	}
	return nil
}

// Encode encodes msg into a V2GTP payload.
func Encode(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil message", ErrUnknownType)
	}
	t := msg.Type()
	if _, ok := registry[t]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
	if err := Validate(msg); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", t, err)
	}

	body, err := encMode.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", t, err)
	}
	data, err := encMode.Marshal(envelope{Type: t, Body: body})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s envelope: %w", t, err)
	}
	if len(data) > v2gtp.DefaultMaxPayloadSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, t, len(data))
	}
	return data, nil
}

// EncodeFrame encodes msg into a complete V2GTP frame.
func EncodeFrame(msg Message) ([]byte, error) {
	payload, err := Encode(msg)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, v2gtp.FrameSize(len(payload)))
	v2gtp.PutHeader(buf, msg.Type().PayloadType(), uint32(len(payload)))
	copy(buf[v2gtp.HeaderSize:], payload)
	return buf, nil
}

// Decode decodes a V2GTP payload received under payloadType.
// Truncated payloads, trailing bytes and unknown message types are errors.
func Decode(payloadType v2gtp.PayloadType, payload []byte) (Message, error) {
	if len(payload) > v2gtp.DefaultMaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(payload))
	}

	var env envelope
	if err := decMode.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	e, ok := registry[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, uint16(env.Type))
	}
	if env.Type.PayloadType() != payloadType {
		return nil, fmt.Errorf("%w: %s under %s", ErrNamespace, env.Type, payloadType)
	}
	if len(env.Body) == 0 {
		return nil, fmt.Errorf("%w: %s without body", ErrMalformed, env.Type)
	}

	msg := e.new()
	if err := decMode.Unmarshal(env.Body, msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, env.Type, err)
	}
	if err := Validate(msg); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", env.Type, err)
	}
	return msg, nil
}
