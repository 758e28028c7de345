package message

import (
	"fmt"

	"github.com/evse-go/iso15118/pkg/v2gtp"
)

// Type identifies a message. Requests have odd values; the matching response
// is always request+1.
type Type uint16

// Message types.
const (
	TypeUnknown Type = 0

	TypeSupportedAppProtocolReq Type = 1
	TypeSupportedAppProtocolRes Type = 2

	TypeSessionSetupReq        Type = 3
	TypeSessionSetupRes        Type = 4
	TypeAuthorizationSetupReq  Type = 5
	TypeAuthorizationSetupRes  Type = 6
	TypeAuthorizationReq       Type = 7
	TypeAuthorizationRes       Type = 8
	TypeServiceDiscoveryReq    Type = 9
	TypeServiceDiscoveryRes    Type = 10
	TypeServiceDetailReq       Type = 11
	TypeServiceDetailRes       Type = 12
	TypeServiceSelectionReq    Type = 13
	TypeServiceSelectionRes    Type = 14
	TypeScheduleExchangeReq    Type = 15
	TypeScheduleExchangeRes    Type = 16
	TypePowerDeliveryReq       Type = 17
	TypePowerDeliveryRes       Type = 18
	TypeSessionStopReq         Type = 19
	TypeSessionStopRes         Type = 20

	TypeDCChargeParameterDiscoveryReq Type = 21
	TypeDCChargeParameterDiscoveryRes Type = 22
	TypeDCCableCheckReq               Type = 23
	TypeDCCableCheckRes               Type = 24
	TypeDCPreChargeReq                Type = 25
	TypeDCPreChargeRes                Type = 26
	TypeDCChargeLoopReq               Type = 27
	TypeDCChargeLoopRes               Type = 28
	TypeDCWeldingDetectionReq         Type = 29
	TypeDCWeldingDetectionRes         Type = 30

	TypeACChargeParameterDiscoveryReq Type = 31
	TypeACChargeParameterDiscoveryRes Type = 32
	TypeACChargeLoopReq               Type = 33
	TypeACChargeLoopRes               Type = 34

	typeLast = TypeACChargeLoopRes
)

var typeNames = map[Type]string{
	TypeSupportedAppProtocolReq:       "SupportedAppProtocolReq",
	TypeSupportedAppProtocolRes:       "SupportedAppProtocolRes",
	TypeSessionSetupReq:               "SessionSetupReq",
	TypeSessionSetupRes:               "SessionSetupRes",
	TypeAuthorizationSetupReq:         "AuthorizationSetupReq",
	TypeAuthorizationSetupRes:         "AuthorizationSetupRes",
	TypeAuthorizationReq:              "AuthorizationReq",
	TypeAuthorizationRes:              "AuthorizationRes",
	TypeServiceDiscoveryReq:           "ServiceDiscoveryReq",
	TypeServiceDiscoveryRes:           "ServiceDiscoveryRes",
	TypeServiceDetailReq:              "ServiceDetailReq",
	TypeServiceDetailRes:              "ServiceDetailRes",
	TypeServiceSelectionReq:           "ServiceSelectionReq",
	TypeServiceSelectionRes:           "ServiceSelectionRes",
	TypeScheduleExchangeReq:           "ScheduleExchangeReq",
	TypeScheduleExchangeRes:           "ScheduleExchangeRes",
	TypePowerDeliveryReq:              "PowerDeliveryReq",
	TypePowerDeliveryRes:              "PowerDeliveryRes",
	TypeSessionStopReq:                "SessionStopReq",
	TypeSessionStopRes:                "SessionStopRes",
	TypeDCChargeParameterDiscoveryReq: "DC_ChargeParameterDiscoveryReq",
	TypeDCChargeParameterDiscoveryRes: "DC_ChargeParameterDiscoveryRes",
	TypeDCCableCheckReq:               "DC_CableCheckReq",
	TypeDCCableCheckRes:               "DC_CableCheckRes",
	TypeDCPreChargeReq:                "DC_PreChargeReq",
	TypeDCPreChargeRes:                "DC_PreChargeRes",
	TypeDCChargeLoopReq:               "DC_ChargeLoopReq",
	TypeDCChargeLoopRes:               "DC_ChargeLoopRes",
	TypeDCWeldingDetectionReq:         "DC_WeldingDetectionReq",
	TypeDCWeldingDetectionRes:         "DC_WeldingDetectionRes",
	TypeACChargeParameterDiscoveryReq: "AC_ChargeParameterDiscoveryReq",
	TypeACChargeParameterDiscoveryRes: "AC_ChargeParameterDiscoveryRes",
	TypeACChargeLoopReq:               "AC_ChargeLoopReq",
	TypeACChargeLoopRes:               "AC_ChargeLoopRes",
}

// String returns the ISO 15118-20 message name.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint16(t))
}

// IsValid returns true for every defined message type.
func (t Type) IsValid() bool {
	return t > TypeUnknown && t <= typeLast
}

// IsRequest returns true if t is a request type.
func (t Type) IsRequest() bool {
	return t.IsValid() && t%2 == 1
}

// ResponseType returns the response type answering request t.
// It returns TypeUnknown if t is not a request.
func (t Type) ResponseType() Type {
	if !t.IsRequest() {
		return TypeUnknown
	}
	return t + 1
}

// PayloadType returns the V2GTP payload type that carries t.
func (t Type) PayloadType() v2gtp.PayloadType {
	switch {
	case t == TypeSupportedAppProtocolReq || t == TypeSupportedAppProtocolRes:
		return v2gtp.PayloadSAP
	case t >= TypeSessionSetupReq && t <= TypeSessionStopRes:
		return v2gtp.PayloadCommon
	case t >= TypeDCChargeParameterDiscoveryReq && t <= TypeDCWeldingDetectionRes:
		return v2gtp.PayloadDC
	case t >= TypeACChargeParameterDiscoveryReq && t <= TypeACChargeLoopRes:
		return v2gtp.PayloadAC
	default:
		return 0
	}
}

// Message is implemented by every request and response.
type Message interface {
	Type() Type
}

// Request is implemented by every ISO 15118-20 request (all but SAP).
type Request interface {
	Message
	RequestHeader() *Header
}

// Response is implemented by every ISO 15118-20 response (all but SAP).
type Response interface {
	Message
	Base() *ResponseBase
}

// RequestBase carries the fields shared by all ISO 15118-20 requests.
type RequestBase struct {
	Header Header `cbor:"1,keyasint"`
}

// RequestHeader returns the request header.
func (r *RequestBase) RequestHeader() *Header {
	return &r.Header
}

// ResponseBase carries the fields shared by all ISO 15118-20 responses.
type ResponseBase struct {
	Header       Header       `cbor:"1,keyasint"`
	ResponseCode ResponseCode `cbor:"2,keyasint"`
}

// Base returns the response base for generic access.
func (r *ResponseBase) Base() *ResponseBase {
	return r
}

// NewResponse returns an empty response answering request type t, or nil if
// t is not a request. It is used to build protocol failure responses for
// requests that arrive in the wrong state.
func NewResponse(t Type) Message {
	rt := t.ResponseType()
	if rt == TypeUnknown {
		return nil
	}
	e, ok := registry[rt]
	if !ok {
		return nil
	}
	return e.new()
}
