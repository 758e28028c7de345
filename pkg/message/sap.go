package message

import "fmt"

// Protocol namespaces negotiated in SupportedAppProtocol.
const (
	NamespaceISO20DC  = "urn:iso:std:iso:15118:-20:DC"
	NamespaceISO20AC  = "urn:iso:std:iso:15118:-20:AC"
	NamespaceISO20WPT = "urn:iso:std:iso:15118:-20:WPT"
)

// MaxAppProtocols bounds the protocol list of a SupportedAppProtocolReq.
const MaxAppProtocols = 20

// SAPResponseCode is the result of application protocol negotiation.
type SAPResponseCode uint8

const (
	SAPOKSuccessfulNegotiation                   SAPResponseCode = 0
	SAPOKSuccessfulNegotiationWithMinorDeviation SAPResponseCode = 1
	SAPFailedNoNegotiation                       SAPResponseCode = 2
)

func (c SAPResponseCode) String() string {
	switch c {
	case SAPOKSuccessfulNegotiation:
		return "OK_SuccessfulNegotiation"
	case SAPOKSuccessfulNegotiationWithMinorDeviation:
		return "OK_SuccessfulNegotiationWithMinorDeviation"
	case SAPFailedNoNegotiation:
		return "Failed_NoNegotiation"
	default:
		return fmt.Sprintf("SAPResponseCode(%d)", uint8(c))
	}
}

// AppProtocol is one protocol offered by the vehicle.
type AppProtocol struct {
	Namespace    string `cbor:"1,keyasint"`
	VersionMajor uint32 `cbor:"2,keyasint"`
	VersionMinor uint32 `cbor:"3,keyasint"`
	SchemaID     uint8  `cbor:"4,keyasint"`
	Priority     uint8  `cbor:"5,keyasint"` // 1 is highest
}

// SupportedAppProtocolRequest lists the protocols the vehicle supports.
type SupportedAppProtocolRequest struct {
	AppProtocols []AppProtocol `cbor:"1,keyasint"`
}

func (*SupportedAppProtocolRequest) Type() Type { return TypeSupportedAppProtocolReq }

// Validate checks list bounds.
func (r *SupportedAppProtocolRequest) Validate() error {
	if len(r.AppProtocols) == 0 || len(r.AppProtocols) > MaxAppProtocols {
		return fmt.Errorf("%w: %d app protocols", ErrFieldRange, len(r.AppProtocols))
	}
	for _, p := range r.AppProtocols {
		if len(p.Namespace) > maxStringLen {
			return fmt.Errorf("%w: namespace length %d", ErrFieldRange, len(p.Namespace))
		}
	}
	return nil
}

// SupportedAppProtocolResponse names the chosen protocol by schema id.
type SupportedAppProtocolResponse struct {
	ResponseCode SAPResponseCode `cbor:"1,keyasint"`
	SchemaID     *uint8          `cbor:"2,keyasint,omitempty"`
}

func (*SupportedAppProtocolResponse) Type() Type { return TypeSupportedAppProtocolRes }
