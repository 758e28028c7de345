package message

import "fmt"

// Field bounds.
const (
	maxStringLen          = 255
	MaxServices           = 8
	MaxParameterSets      = 32
	MaxParameters         = 16
	MaxSupportedProviders = 128
	GenChallengeSize      = 16
)

// SessionSetupRequest opens or resumes a session.
type SessionSetupRequest struct {
	RequestBase
	EVCCID string `cbor:"2,keyasint"`
}

func (*SessionSetupRequest) Type() Type { return TypeSessionSetupReq }

func (r *SessionSetupRequest) Validate() error {
	return checkString("EVCCID", r.EVCCID)
}

// SessionSetupResponse carries the negotiated session id in its header.
type SessionSetupResponse struct {
	ResponseBase
	EVSEID string `cbor:"3,keyasint"`
}

func (*SessionSetupResponse) Type() Type { return TypeSessionSetupRes }

func (r *SessionSetupResponse) Validate() error {
	return checkString("EVSEID", r.EVSEID)
}

// AuthorizationSetupRequest asks for the offered authorization services.
type AuthorizationSetupRequest struct {
	RequestBase
}

func (*AuthorizationSetupRequest) Type() Type { return TypeAuthorizationSetupReq }

// AuthorizationSetupResponse lists the authorization services. GenChallenge
// is set when PnC is offered.
type AuthorizationSetupResponse struct {
	ResponseBase
	AuthorizationServices          []Authorization `cbor:"3,keyasint"`
	CertificateInstallationService bool            `cbor:"4,keyasint"`
	GenChallenge                   []byte          `cbor:"5,keyasint,omitempty"`
	SupportedProviders             []string        `cbor:"6,keyasint,omitempty"`
}

func (*AuthorizationSetupResponse) Type() Type { return TypeAuthorizationSetupRes }

func (r *AuthorizationSetupResponse) Validate() error {
	if len(r.AuthorizationServices) > 2 {
		return fmt.Errorf("%w: %d authorization services", ErrFieldRange, len(r.AuthorizationServices))
	}
	if r.GenChallenge != nil && len(r.GenChallenge) != GenChallengeSize {
		return fmt.Errorf("%w: gen challenge length %d", ErrFieldRange, len(r.GenChallenge))
	}
	if len(r.SupportedProviders) > MaxSupportedProviders {
		return fmt.Errorf("%w: %d supported providers", ErrFieldRange, len(r.SupportedProviders))
	}
	return nil
}

// EIMAuthorization selects external identification means.
type EIMAuthorization struct{}

// PnCAuthorization carries the contract certificate and the signed challenge.
type PnCAuthorization struct {
	ID                       string `cbor:"1,keyasint"`
	GenChallenge             []byte `cbor:"2,keyasint"`
	ContractCertificateChain []byte `cbor:"3,keyasint,omitempty"` // DER
}

// AuthorizationRequest is repeated by the vehicle until processing finishes.
type AuthorizationRequest struct {
	RequestBase
	SelectedAuthorizationService Authorization     `cbor:"2,keyasint"`
	EIM                          *EIMAuthorization `cbor:"3,keyasint,omitempty"`
	PnC                          *PnCAuthorization `cbor:"4,keyasint,omitempty"`
}

func (*AuthorizationRequest) Type() Type { return TypeAuthorizationReq }

func (r *AuthorizationRequest) Validate() error {
	if r.PnC != nil && len(r.PnC.GenChallenge) != GenChallengeSize {
		return fmt.Errorf("%w: gen challenge length %d", ErrFieldRange, len(r.PnC.GenChallenge))
	}
	return nil
}

// AuthorizationResponse reports authorization progress.
type AuthorizationResponse struct {
	ResponseBase
	EVSEProcessing Processing `cbor:"3,keyasint"`
}

func (*AuthorizationResponse) Type() Type { return TypeAuthorizationRes }

// ServiceDiscoveryRequest optionally restricts the services of interest.
type ServiceDiscoveryRequest struct {
	RequestBase
	SupportedServiceIDs []ServiceID `cbor:"2,keyasint,omitempty"`
}

func (*ServiceDiscoveryRequest) Type() Type { return TypeServiceDiscoveryReq }

// ServiceDiscoveryResponse lists energy transfer and value added services.
type ServiceDiscoveryResponse struct {
	ResponseBase
	ServiceRenegotiationSupported bool      `cbor:"3,keyasint"`
	EnergyTransferServices        []Service `cbor:"4,keyasint"`
	VASList                       []Service `cbor:"5,keyasint,omitempty"`
}

func (*ServiceDiscoveryResponse) Type() Type { return TypeServiceDiscoveryRes }

func (r *ServiceDiscoveryResponse) Validate() error {
	if len(r.EnergyTransferServices) > MaxServices || len(r.VASList) > MaxServices {
		return fmt.Errorf("%w: service list too long", ErrFieldRange)
	}
	return nil
}

// ServiceDetailRequest asks for the parameter sets of one service.
type ServiceDetailRequest struct {
	RequestBase
	ServiceID ServiceID `cbor:"2,keyasint"`
}

func (*ServiceDetailRequest) Type() Type { return TypeServiceDetailReq }

// ServiceDetailResponse lists the parameter sets of a service.
type ServiceDetailResponse struct {
	ResponseBase
	ServiceID     ServiceID      `cbor:"3,keyasint"`
	ParameterSets []ParameterSet `cbor:"4,keyasint"`
}

func (*ServiceDetailResponse) Type() Type { return TypeServiceDetailRes }

func (r *ServiceDetailResponse) Validate() error {
	if len(r.ParameterSets) > MaxParameterSets {
		return fmt.Errorf("%w: %d parameter sets", ErrFieldRange, len(r.ParameterSets))
	}
	for _, set := range r.ParameterSets {
		if len(set.Parameters) > MaxParameters {
			return fmt.Errorf("%w: %d parameters in set %d", ErrFieldRange, len(set.Parameters), set.ID)
		}
		for _, p := range set.Parameters {
			if err := checkString("parameter name", p.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// ServiceSelectionRequest selects one energy transfer service and any VAS.
type ServiceSelectionRequest struct {
	RequestBase
	SelectedEnergyTransferService SelectedService   `cbor:"2,keyasint"`
	SelectedVASList               []SelectedService `cbor:"3,keyasint,omitempty"`
}

func (*ServiceSelectionRequest) Type() Type { return TypeServiceSelectionReq }

func (r *ServiceSelectionRequest) Validate() error {
	if len(r.SelectedVASList) > MaxServices {
		return fmt.Errorf("%w: %d selected VAS", ErrFieldRange, len(r.SelectedVASList))
	}
	return nil
}

// ServiceSelectionResponse confirms the selection.
type ServiceSelectionResponse struct {
	ResponseBase
}

func (*ServiceSelectionResponse) Type() Type { return TypeServiceSelectionRes }

// ScheduledScheduleExchangeReq carries energy requests in scheduled mode.
type ScheduledScheduleExchangeReq struct {
	DepartureTime          *uint32         `cbor:"1,keyasint,omitempty"`
	EVTargetEnergyRequest  *RationalNumber `cbor:"2,keyasint,omitempty"`
	EVMaximumEnergyRequest *RationalNumber `cbor:"3,keyasint,omitempty"`
	EVMinimumEnergyRequest *RationalNumber `cbor:"4,keyasint,omitempty"`
}

// DynamicScheduleExchangeReq carries mobility needs in dynamic mode.
type DynamicScheduleExchangeReq struct {
	DepartureTime             uint32          `cbor:"1,keyasint"`
	MinimumSOC                *int8           `cbor:"2,keyasint,omitempty"`
	TargetSOC                 *int8           `cbor:"3,keyasint,omitempty"`
	EVTargetEnergyRequest     RationalNumber  `cbor:"4,keyasint"`
	EVMaximumEnergyRequest    RationalNumber  `cbor:"5,keyasint"`
	EVMinimumEnergyRequest    RationalNumber  `cbor:"6,keyasint"`
	EVMaximumV2XEnergyRequest *RationalNumber `cbor:"7,keyasint,omitempty"`
	EVMinimumV2XEnergyRequest *RationalNumber `cbor:"8,keyasint,omitempty"`
}

// ScheduleExchangeRequest carries exactly one control mode branch.
type ScheduleExchangeRequest struct {
	RequestBase
	MaximumSupportingPoints uint16                        `cbor:"2,keyasint"`
	Scheduled               *ScheduledScheduleExchangeReq `cbor:"3,keyasint,omitempty"`
	Dynamic                 *DynamicScheduleExchangeReq   `cbor:"4,keyasint,omitempty"`
}

func (*ScheduleExchangeRequest) Type() Type { return TypeScheduleExchangeReq }

// ControlMode returns the control mode of the populated branch.
func (r *ScheduleExchangeRequest) ControlMode() (ControlMode, bool) {
	switch {
	case r.Scheduled != nil && r.Dynamic == nil:
		return ControlModeScheduled, true
	case r.Dynamic != nil && r.Scheduled == nil:
		return ControlModeDynamic, true
	default:
		return 0, false
	}
}

// ScheduledScheduleExchangeRes offers schedules in scheduled mode.
type ScheduledScheduleExchangeRes struct {
	ScheduleTuples []ScheduleTuple `cbor:"1,keyasint"`
}

// DynamicScheduleExchangeRes carries station side mobility needs.
type DynamicScheduleExchangeRes struct {
	DepartureTime *uint32 `cbor:"1,keyasint,omitempty"`
	MinimumSOC    *int8   `cbor:"2,keyasint,omitempty"`
	TargetSOC     *int8   `cbor:"3,keyasint,omitempty"`
}

// ScheduleExchangeResponse answers in the control mode of the request.
type ScheduleExchangeResponse struct {
	ResponseBase
	EVSEProcessing Processing                    `cbor:"3,keyasint"`
	GoToPause      *bool                         `cbor:"4,keyasint,omitempty"`
	Scheduled      *ScheduledScheduleExchangeRes `cbor:"5,keyasint,omitempty"`
	Dynamic        *DynamicScheduleExchangeRes   `cbor:"6,keyasint,omitempty"`
}

func (*ScheduleExchangeResponse) Type() Type { return TypeScheduleExchangeRes }

// PowerProfile is the vehicle's planned power curve.
type PowerProfile struct {
	TimeAnchor uint64               `cbor:"1,keyasint"`
	Entries    []PowerScheduleEntry `cbor:"2,keyasint"`
}

// PowerDeliveryRequest starts, stops or pauses energy transfer.
type PowerDeliveryRequest struct {
	RequestBase
	EVProcessing   Processing     `cbor:"2,keyasint"`
	ChargeProgress ChargeProgress `cbor:"3,keyasint"`
	PowerProfile   *PowerProfile  `cbor:"4,keyasint,omitempty"`
}

func (*PowerDeliveryRequest) Type() Type { return TypePowerDeliveryReq }

// PowerDeliveryResponse confirms the charge progress change.
type PowerDeliveryResponse struct {
	ResponseBase
	EVSEStatus *EVSEStatus `cbor:"3,keyasint,omitempty"`
}

func (*PowerDeliveryResponse) Type() Type { return TypePowerDeliveryRes }

// SessionStopRequest terminates, pauses or renegotiates the session.
type SessionStopRequest struct {
	RequestBase
	ChargingSession          ChargingSession `cbor:"2,keyasint"`
	EVTerminationCode        *string         `cbor:"3,keyasint,omitempty"`
	EVTerminationExplanation *string         `cbor:"4,keyasint,omitempty"`
}

func (*SessionStopRequest) Type() Type { return TypeSessionStopReq }

// SessionStopResponse confirms the stop.
type SessionStopResponse struct {
	ResponseBase
}

func (*SessionStopResponse) Type() Type { return TypeSessionStopRes }

func checkString(field, s string) error {
	if len(s) > maxStringLen {
		return fmt.Errorf("%w: %s length %d", ErrFieldRange, field, len(s))
	}
	return nil
}
