package control

import (
	"fmt"
	"time"

	"github.com/evse-go/iso15118/pkg/message"
)

// Kind identifies the control event type.
type Kind uint8

const (
	KindDCTransferLimits Kind = iota + 1
	KindACTransferLimits
	KindEnergyServices
	KindSupportedVASs
	KindACTargetPower
	KindACPresentPower
	KindUpdateDynamicModeParameters
	KindPresentVoltageCurrent
	KindStopCharging
	KindPauseCharging
	KindCableCheckFinished
	KindAuthorizationResponse
)

var kindNames = map[Kind]string{
	KindDCTransferLimits:            "DC_TRANSFER_LIMITS",
	KindACTransferLimits:            "AC_TRANSFER_LIMITS",
	KindEnergyServices:              "ENERGY_SERVICES",
	KindSupportedVASs:               "SUPPORTED_VAS",
	KindACTargetPower:               "AC_TARGET_POWER",
	KindACPresentPower:              "AC_PRESENT_POWER",
	KindUpdateDynamicModeParameters: "UPDATE_DYNAMIC_MODE_PARAMETERS",
	KindPresentVoltageCurrent:       "PRESENT_VOLTAGE_CURRENT",
	KindStopCharging:                "STOP_CHARGING",
	KindPauseCharging:               "PAUSE_CHARGING",
	KindCableCheckFinished:          "CABLE_CHECK_FINISHED",
	KindAuthorizationResponse:       "AUTHORIZATION_RESPONSE",
}

// String returns the event kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("KIND(%d)", uint8(k))
}

// Event is a command for a session.
type Event interface {
	Kind() Kind
}

// DCTransferLimits replaces the station's DC charge limits. A nil
// Discharge keeps the discharge limits already in effect.
type DCTransferLimits struct {
	Charge    message.DCEVSEChargeParameters
	Discharge *message.DCEVSEDischargeParameters
}

// ACTransferLimits replaces the station's AC charge limits. A nil
// Discharge keeps the discharge limits already in effect.
type ACTransferLimits struct {
	Charge    message.ACEVSEChargeParameters
	Discharge *message.ACEVSEDischargeParameters
}

// EnergyServices replaces the offered energy transfer services.
type EnergyServices struct {
	Services []message.ServiceID
}

// SupportedVASs replaces the offered value added services.
type SupportedVASs struct {
	Services []message.ServiceID
}

// ACTargetPower sets the AC charge loop power setpoint.
type ACTargetPower struct {
	TargetActivePower   message.RationalNumber
	TargetReactivePower *message.RationalNumber
}

// ACPresentPower reports the measured AC power.
type ACPresentPower struct {
	PresentActivePower message.RationalNumber
}

// UpdateDynamicModeParameters sets station side mobility needs.
type UpdateDynamicModeParameters struct {
	DepartureTime *time.Time
	MinimumSOC    *int8
	TargetSOC     *int8
}

// PresentVoltageCurrent reports the measured DC output.
type PresentVoltageCurrent struct {
	Voltage float64
	Current float64
}

// StopCharging asks the session to terminate at the next opportunity.
type StopCharging struct {
	Stop bool
}

// PauseCharging asks the session to pause at the next opportunity.
type PauseCharging struct {
	Pause bool
}

// CableCheckFinished reports the isolation monitoring result.
type CableCheckFinished struct {
	Success bool
}

// AuthorizationResponse reports the EIM or PnC authorization decision.
type AuthorizationResponse struct {
	Accepted bool
}

func (DCTransferLimits) Kind() Kind { return KindDCTransferLimits }
func (ACTransferLimits) Kind() Kind { return KindACTransferLimits }
func (EnergyServices) Kind() Kind { return KindEnergyServices }
func (SupportedVASs) Kind() Kind { return KindSupportedVASs }
func (ACTargetPower) Kind() Kind { return KindACTargetPower }
func (ACPresentPower) Kind() Kind { return KindACPresentPower }
func (UpdateDynamicModeParameters) Kind() Kind { return KindUpdateDynamicModeParameters }
func (PresentVoltageCurrent) Kind() Kind { return KindPresentVoltageCurrent }
func (StopCharging) Kind() Kind { return KindStopCharging }
func (PauseCharging) Kind() Kind { return KindPauseCharging }
func (CableCheckFinished) Kind() Kind { return KindCableCheckFinished }
func (AuthorizationResponse) Kind() Kind { return KindAuthorizationResponse }
