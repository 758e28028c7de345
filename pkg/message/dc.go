package message

// DCChargeParameters are the vehicle's DC charge limits.
type DCChargeParameters struct {
	EVMaximumChargePower   RationalNumber `cbor:"1,keyasint"`
	EVMinimumChargePower   RationalNumber `cbor:"2,keyasint"`
	EVMaximumChargeCurrent RationalNumber `cbor:"3,keyasint"`
	EVMinimumChargeCurrent RationalNumber `cbor:"4,keyasint"`
	EVMaximumVoltage       RationalNumber `cbor:"5,keyasint"`
	EVMinimumVoltage       RationalNumber `cbor:"6,keyasint"`
	TargetSOC              *int8          `cbor:"7,keyasint,omitempty"`
}

// DCDischargeParameters are the vehicle's additional BPT limits.
type DCDischargeParameters struct {
	EVMaximumDischargePower   RationalNumber `cbor:"1,keyasint"`
	EVMinimumDischargePower   RationalNumber `cbor:"2,keyasint"`
	EVMaximumDischargeCurrent RationalNumber `cbor:"3,keyasint"`
	EVMinimumDischargeCurrent RationalNumber `cbor:"4,keyasint"`
}

// DCChargeParameterDiscoveryRequest carries the vehicle limits. Discharge is
// present only when a BPT service was selected.
type DCChargeParameterDiscoveryRequest struct {
	RequestBase
	Params    DCChargeParameters     `cbor:"2,keyasint"`
	Discharge *DCDischargeParameters `cbor:"3,keyasint,omitempty"`
}

func (*DCChargeParameterDiscoveryRequest) Type() Type { return TypeDCChargeParameterDiscoveryReq }

// DCEVSEChargeParameters are the station's DC limits.
type DCEVSEChargeParameters struct {
	EVSEMaximumChargePower   RationalNumber  `cbor:"1,keyasint"`
	EVSEMinimumChargePower   RationalNumber  `cbor:"2,keyasint"`
	EVSEMaximumChargeCurrent RationalNumber  `cbor:"3,keyasint"`
	EVSEMinimumChargeCurrent RationalNumber  `cbor:"4,keyasint"`
	EVSEMaximumVoltage       RationalNumber  `cbor:"5,keyasint"`
	EVSEMinimumVoltage       RationalNumber  `cbor:"6,keyasint"`
	EVSEPowerRampLimitation  *RationalNumber `cbor:"7,keyasint,omitempty"`
}

// DCEVSEDischargeParameters are the station's additional BPT limits.
type DCEVSEDischargeParameters struct {
	EVSEMaximumDischargePower   RationalNumber `cbor:"1,keyasint"`
	EVSEMinimumDischargePower   RationalNumber `cbor:"2,keyasint"`
	EVSEMaximumDischargeCurrent RationalNumber `cbor:"3,keyasint"`
	EVSEMinimumDischargeCurrent RationalNumber `cbor:"4,keyasint"`
}

// DCChargeParameterDiscoveryResponse carries the station limits.
type DCChargeParameterDiscoveryResponse struct {
	ResponseBase
	Params    DCEVSEChargeParameters     `cbor:"3,keyasint"`
	Discharge *DCEVSEDischargeParameters `cbor:"4,keyasint,omitempty"`
}

func (*DCChargeParameterDiscoveryResponse) Type() Type { return TypeDCChargeParameterDiscoveryRes }

// DCCableCheckRequest is repeated until the isolation check finishes.
type DCCableCheckRequest struct {
	RequestBase
}

func (*DCCableCheckRequest) Type() Type { return TypeDCCableCheckReq }

// DCCableCheckResponse reports isolation check progress.
type DCCableCheckResponse struct {
	ResponseBase
	EVSEProcessing Processing `cbor:"3,keyasint"`
}

func (*DCCableCheckResponse) Type() Type { return TypeDCCableCheckRes }

// DCPreChargeRequest asks the station to match the battery voltage.
type DCPreChargeRequest struct {
	RequestBase
	EVProcessing     Processing     `cbor:"2,keyasint"`
	EVPresentVoltage RationalNumber `cbor:"3,keyasint"`
	EVTargetVoltage  RationalNumber `cbor:"4,keyasint"`
}

func (*DCPreChargeRequest) Type() Type { return TypeDCPreChargeReq }

// DCPreChargeResponse reports the station output voltage.
type DCPreChargeResponse struct {
	ResponseBase
	EVSEPresentVoltage RationalNumber `cbor:"3,keyasint"`
}

func (*DCPreChargeResponse) Type() Type { return TypeDCPreChargeRes }

// DCScheduledLoopReq is the scheduled mode branch of DC_ChargeLoopReq.
// The discharge fields are set in BPT sessions.
type DCScheduledLoopReq struct {
	EVTargetCurrent           RationalNumber  `cbor:"1,keyasint"`
	EVTargetVoltage           RationalNumber  `cbor:"2,keyasint"`
	EVMaximumChargePower      *RationalNumber `cbor:"3,keyasint,omitempty"`
	EVMinimumChargePower      *RationalNumber `cbor:"4,keyasint,omitempty"`
	EVMaximumChargeCurrent    *RationalNumber `cbor:"5,keyasint,omitempty"`
	EVMaximumVoltage          *RationalNumber `cbor:"6,keyasint,omitempty"`
	EVMinimumVoltage          *RationalNumber `cbor:"7,keyasint,omitempty"`
	EVMaximumDischargePower   *RationalNumber `cbor:"8,keyasint,omitempty"`
	EVMinimumDischargePower   *RationalNumber `cbor:"9,keyasint,omitempty"`
	EVMaximumDischargeCurrent *RationalNumber `cbor:"10,keyasint,omitempty"`
}

// IsBPT returns true if the discharge limits are present.
func (r *DCScheduledLoopReq) IsBPT() bool {
	return r.EVMaximumDischargePower != nil || r.EVMinimumDischargePower != nil || r.EVMaximumDischargeCurrent != nil
}

// DCDynamicLoopReq is the dynamic mode branch of DC_ChargeLoopReq.
type DCDynamicLoopReq struct {
	DepartureTime             *uint32         `cbor:"1,keyasint,omitempty"`
	EVTargetEnergyRequest     RationalNumber  `cbor:"2,keyasint"`
	EVMaximumEnergyRequest    RationalNumber  `cbor:"3,keyasint"`
	EVMinimumEnergyRequest    RationalNumber  `cbor:"4,keyasint"`
	EVMaximumChargePower      RationalNumber  `cbor:"5,keyasint"`
	EVMinimumChargePower      RationalNumber  `cbor:"6,keyasint"`
	EVMaximumChargeCurrent    RationalNumber  `cbor:"7,keyasint"`
	EVMaximumVoltage          RationalNumber  `cbor:"8,keyasint"`
	EVMinimumVoltage          RationalNumber  `cbor:"9,keyasint"`
	EVMaximumDischargePower   *RationalNumber `cbor:"10,keyasint,omitempty"`
	EVMinimumDischargePower   *RationalNumber `cbor:"11,keyasint,omitempty"`
	EVMaximumDischargeCurrent *RationalNumber `cbor:"12,keyasint,omitempty"`
	EVMaximumV2XEnergyRequest *RationalNumber `cbor:"13,keyasint,omitempty"`
	EVMinimumV2XEnergyRequest *RationalNumber `cbor:"14,keyasint,omitempty"`
}

// IsBPT returns true if the discharge limits are present.
func (r *DCDynamicLoopReq) IsBPT() bool {
	return r.EVMaximumDischargePower != nil || r.EVMinimumDischargePower != nil || r.EVMaximumDischargeCurrent != nil
}

// DCChargeLoopRequest is sent cyclically during DC energy transfer.
type DCChargeLoopRequest struct {
	RequestBase
	MeterInfoRequested bool                `cbor:"2,keyasint"`
	EVPresentVoltage   RationalNumber      `cbor:"3,keyasint"`
	Scheduled          *DCScheduledLoopReq `cbor:"4,keyasint,omitempty"`
	Dynamic            *DCDynamicLoopReq   `cbor:"5,keyasint,omitempty"`
}

func (*DCChargeLoopRequest) Type() Type { return TypeDCChargeLoopReq }

// ControlMode returns the control mode of the populated branch.
func (r *DCChargeLoopRequest) ControlMode() (ControlMode, bool) {
	switch {
	case r.Scheduled != nil && r.Dynamic == nil:
		return ControlModeScheduled, true
	case r.Dynamic != nil && r.Scheduled == nil:
		return ControlModeDynamic, true
	default:
		return 0, false
	}
}

// IsBPT returns true if the populated branch carries discharge limits.
func (r *DCChargeLoopRequest) IsBPT() bool {
	switch {
	case r.Scheduled != nil:
		return r.Scheduled.IsBPT()
	case r.Dynamic != nil:
		return r.Dynamic.IsBPT()
	}
	return false
}

// DCScheduledLoopRes is the scheduled mode branch of DC_ChargeLoopRes.
type DCScheduledLoopRes struct {
	EVSEMaximumChargePower      *RationalNumber `cbor:"1,keyasint,omitempty"`
	EVSEMinimumChargePower      *RationalNumber `cbor:"2,keyasint,omitempty"`
	EVSEMaximumChargeCurrent    *RationalNumber `cbor:"3,keyasint,omitempty"`
	EVSEMaximumVoltage          *RationalNumber `cbor:"4,keyasint,omitempty"`
	EVSEMaximumDischargePower   *RationalNumber `cbor:"5,keyasint,omitempty"`
	EVSEMinimumDischargePower   *RationalNumber `cbor:"6,keyasint,omitempty"`
	EVSEMaximumDischargeCurrent *RationalNumber `cbor:"7,keyasint,omitempty"`
	EVSEMinimumVoltage          *RationalNumber `cbor:"8,keyasint,omitempty"`
}

// DCDynamicLoopRes is the dynamic mode branch of DC_ChargeLoopRes.
type DCDynamicLoopRes struct {
	DepartureTime               *uint32         `cbor:"1,keyasint,omitempty"`
	MinimumSOC                  *int8           `cbor:"2,keyasint,omitempty"`
	TargetSOC                   *int8           `cbor:"3,keyasint,omitempty"`
	AckMaxDelay                 *uint16         `cbor:"4,keyasint,omitempty"`
	EVSEMaximumChargePower      RationalNumber  `cbor:"5,keyasint"`
	EVSEMinimumChargePower      RationalNumber  `cbor:"6,keyasint"`
	EVSEMaximumChargeCurrent    RationalNumber  `cbor:"7,keyasint"`
	EVSEMaximumVoltage          RationalNumber  `cbor:"8,keyasint"`
	EVSEMaximumDischargePower   *RationalNumber `cbor:"9,keyasint,omitempty"`
	EVSEMinimumDischargePower   *RationalNumber `cbor:"10,keyasint,omitempty"`
	EVSEMaximumDischargeCurrent *RationalNumber `cbor:"11,keyasint,omitempty"`
	EVSEMinimumVoltage          *RationalNumber `cbor:"12,keyasint,omitempty"`
}

// DCChargeLoopResponse reports present values and limits.
type DCChargeLoopResponse struct {
	ResponseBase
	EVSEStatus               *EVSEStatus         `cbor:"3,keyasint,omitempty"`
	EVSEPresentCurrent       RationalNumber      `cbor:"4,keyasint"`
	EVSEPresentVoltage       RationalNumber      `cbor:"5,keyasint"`
	EVSEPowerLimitAchieved   bool                `cbor:"6,keyasint"`
	EVSECurrentLimitAchieved bool                `cbor:"7,keyasint"`
	EVSEVoltageLimitAchieved bool                `cbor:"8,keyasint"`
	Scheduled                *DCScheduledLoopRes `cbor:"9,keyasint,omitempty"`
	Dynamic                  *DCDynamicLoopRes   `cbor:"10,keyasint,omitempty"`
}

func (*DCChargeLoopResponse) Type() Type { return TypeDCChargeLoopRes }

// DCWeldingDetectionRequest is repeated until the vehicle checked its contactors.
type DCWeldingDetectionRequest struct {
	RequestBase
	EVProcessing Processing `cbor:"2,keyasint"`
}

func (*DCWeldingDetectionRequest) Type() Type { return TypeDCWeldingDetectionReq }

// DCWeldingDetectionResponse reports the station output voltage.
type DCWeldingDetectionResponse struct {
	ResponseBase
	EVSEPresentVoltage RationalNumber `cbor:"3,keyasint"`
}

func (*DCWeldingDetectionResponse) Type() Type { return TypeDCWeldingDetectionRes }
