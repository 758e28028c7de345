package message

// ACChargeParameters are the vehicle's AC charge limits.
type ACChargeParameters struct {
	EVMaximumChargePower   RationalNumber  `cbor:"1,keyasint"`
	EVMinimumChargePower   RationalNumber  `cbor:"2,keyasint"`
	EVMaximumChargePowerL2 *RationalNumber `cbor:"3,keyasint,omitempty"`
	EVMaximumChargePowerL3 *RationalNumber `cbor:"4,keyasint,omitempty"`
}

// ACDischargeParameters are the vehicle's additional BPT limits.
type ACDischargeParameters struct {
	EVMaximumDischargePower RationalNumber `cbor:"1,keyasint"`
	EVMinimumDischargePower RationalNumber `cbor:"2,keyasint"`
}

// ACChargeParameterDiscoveryRequest carries the vehicle limits.
type ACChargeParameterDiscoveryRequest struct {
	RequestBase
	Params    ACChargeParameters     `cbor:"2,keyasint"`
	Discharge *ACDischargeParameters `cbor:"3,keyasint,omitempty"`
}

func (*ACChargeParameterDiscoveryRequest) Type() Type { return TypeACChargeParameterDiscoveryReq }

// ACEVSEChargeParameters are the station's AC limits.
type ACEVSEChargeParameters struct {
	EVSEMaximumChargePower  RationalNumber  `cbor:"1,keyasint"`
	EVSEMinimumChargePower  RationalNumber  `cbor:"2,keyasint"`
	EVSENominalFrequency    RationalNumber  `cbor:"3,keyasint"`
	MaximumPowerAsymmetry   *RationalNumber `cbor:"4,keyasint,omitempty"`
	EVSEPowerRampLimitation *RationalNumber `cbor:"5,keyasint,omitempty"`
	EVSEPresentActivePower  *RationalNumber `cbor:"6,keyasint,omitempty"`
}

// ACEVSEDischargeParameters are the station's additional BPT limits.
type ACEVSEDischargeParameters struct {
	EVSEMaximumDischargePower RationalNumber `cbor:"1,keyasint"`
	EVSEMinimumDischargePower RationalNumber `cbor:"2,keyasint"`
}

// ACChargeParameterDiscoveryResponse carries the station limits.
type ACChargeParameterDiscoveryResponse struct {
	ResponseBase
	Params    ACEVSEChargeParameters     `cbor:"3,keyasint"`
	Discharge *ACEVSEDischargeParameters `cbor:"4,keyasint,omitempty"`
}

func (*ACChargeParameterDiscoveryResponse) Type() Type { return TypeACChargeParameterDiscoveryRes }

// ACScheduledLoopReq is the scheduled mode branch of AC_ChargeLoopReq.
type ACScheduledLoopReq struct {
	EVTargetEnergyRequest  *RationalNumber `cbor:"1,keyasint,omitempty"`
	EVMaximumChargePower   *RationalNumber `cbor:"2,keyasint,omitempty"`
	EVMinimumChargePower   *RationalNumber `cbor:"3,keyasint,omitempty"`
	EVPresentActivePower   RationalNumber  `cbor:"4,keyasint"`
	EVPresentReactivePower *RationalNumber `cbor:"5,keyasint,omitempty"`
}

// ACDynamicLoopReq is the dynamic mode branch of AC_ChargeLoopReq.
type ACDynamicLoopReq struct {
	DepartureTime          *uint32        `cbor:"1,keyasint,omitempty"`
	EVTargetEnergyRequest  RationalNumber `cbor:"2,keyasint"`
	EVMaximumEnergyRequest RationalNumber `cbor:"3,keyasint"`
	EVMinimumEnergyRequest RationalNumber `cbor:"4,keyasint"`
	EVMaximumChargePower   RationalNumber `cbor:"5,keyasint"`
	EVMinimumChargePower   RationalNumber `cbor:"6,keyasint"`
	EVPresentActivePower   RationalNumber `cbor:"7,keyasint"`
	EVPresentReactivePower RationalNumber `cbor:"8,keyasint"`
}

// ACChargeLoopRequest is sent cyclically during AC energy transfer.
type ACChargeLoopRequest struct {
	RequestBase
	MeterInfoRequested bool                `cbor:"2,keyasint"`
	Scheduled          *ACScheduledLoopReq `cbor:"3,keyasint,omitempty"`
	Dynamic            *ACDynamicLoopReq   `cbor:"4,keyasint,omitempty"`
}

func (*ACChargeLoopRequest) Type() Type { return TypeACChargeLoopReq }

// ControlMode returns the control mode of the populated branch.
func (r *ACChargeLoopRequest) ControlMode() (ControlMode, bool) {
	switch {
	case r.Scheduled != nil && r.Dynamic == nil:
		return ControlModeScheduled, true
	case r.Dynamic != nil && r.Scheduled == nil:
		return ControlModeDynamic, true
	default:
		return 0, false
	}
}

// ACScheduledLoopRes is the scheduled mode branch of AC_ChargeLoopRes.
type ACScheduledLoopRes struct {
	EVSETargetActivePower   *RationalNumber `cbor:"1,keyasint,omitempty"`
	EVSETargetReactivePower *RationalNumber `cbor:"2,keyasint,omitempty"`
	EVSEPresentActivePower  *RationalNumber `cbor:"3,keyasint,omitempty"`
}

// ACDynamicLoopRes is the dynamic mode branch of AC_ChargeLoopRes.
type ACDynamicLoopRes struct {
	DepartureTime           *uint32         `cbor:"1,keyasint,omitempty"`
	MinimumSOC              *int8           `cbor:"2,keyasint,omitempty"`
	TargetSOC               *int8           `cbor:"3,keyasint,omitempty"`
	AckMaxDelay             *uint16         `cbor:"4,keyasint,omitempty"`
	EVSETargetActivePower   RationalNumber  `cbor:"5,keyasint"`
	EVSETargetReactivePower *RationalNumber `cbor:"6,keyasint,omitempty"`
	EVSEPresentActivePower  *RationalNumber `cbor:"7,keyasint,omitempty"`
}

// ACChargeLoopResponse carries the power setpoint.
type ACChargeLoopResponse struct {
	ResponseBase
	EVSEStatus          *EVSEStatus         `cbor:"3,keyasint,omitempty"`
	EVSETargetFrequency *RationalNumber     `cbor:"4,keyasint,omitempty"`
	Scheduled           *ACScheduledLoopRes `cbor:"5,keyasint,omitempty"`
	Dynamic             *ACDynamicLoopRes   `cbor:"6,keyasint,omitempty"`
}

func (*ACChargeLoopResponse) Type() Type { return TypeACChargeLoopRes }
