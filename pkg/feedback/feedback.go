// Package feedback reports session progress to the charging control logic.
//
// The session calls Feedback methods from its own goroutine. Every
// callback is optional; unset callbacks are skipped.
package feedback

import (
	"fmt"

	"github.com/evse-go/iso15118/pkg/message"
)

// Signal is a session milestone or a request for hardware action.
type Signal uint8

const (
	SignalRequireAuthEIM Signal = iota + 1
	SignalRequireAuthPnC
	SignalStartCableCheck
	SignalSetupFinished
	SignalChargeLoopStarted
	SignalChargeLoopFinished
	SignalDCOpenContactor
	SignalDLinkTerminate
	SignalDLinkError
	SignalDLinkPause
)

var signalNames = map[Signal]string{
	SignalRequireAuthEIM:     "REQUIRE_AUTH_EIM",
	SignalRequireAuthPnC:     "REQUIRE_AUTH_PNC",
	SignalStartCableCheck:    "START_CABLE_CHECK",
	SignalSetupFinished:      "SETUP_FINISHED",
	SignalChargeLoopStarted:  "CHARGE_LOOP_STARTED",
	SignalChargeLoopFinished: "CHARGE_LOOP_FINISHED",
	SignalDCOpenContactor:    "DC_OPEN_CONTACTOR",
	SignalDLinkTerminate:     "DLINK_TERMINATE",
	SignalDLinkError:         "DLINK_ERROR",
	SignalDLinkPause:         "DLINK_PAUSE",
}

// String returns the signal name.
func (s Signal) String() string {
	if name, ok := signalNames[s]; ok {
		return name
	}
	return fmt.Sprintf("SIGNAL(%d)", uint8(s))
}

// IsTerminal returns true for the signals that end a data link.
func (s Signal) IsTerminal() bool {
	return s == SignalDLinkTerminate || s == SignalDLinkError || s == SignalDLinkPause
}

// DCMaximumLimits are the vehicle's maximum DC limits.
type DCMaximumLimits struct {
	Voltage float64
	Current float64
	Power   float64
}

// Callbacks receives session feedback.
type Callbacks struct {
	Signal                   func(Signal)
	V2GMessage               func(message.Type)
	ResponseCode             func(message.Type, message.ResponseCode)
	EVCCID                   func(string)
	SelectedProtocol         func(string)
	SelectedServices         func(energy message.SelectedService, vas []message.SelectedService)
	DCPreChargeTargetVoltage func(float64)
	DCMaxLimits              func(DCMaximumLimits)
	DCChargeLoopReq          func(*message.DCChargeLoopRequest)
	ACChargeLoopReq          func(*message.ACChargeLoopRequest)
	VASParameters            func(message.ServiceID) ([]message.ParameterSet, bool)
}

// Feedback dispatches to Callbacks.
type Feedback struct {
	cb Callbacks
}

// New creates a Feedback for cb.
func New(cb Callbacks) *Feedback {
	return &Feedback{cb: cb}
}

// Signal reports s.
func (f *Feedback) Signal(s Signal) {
	if f != nil && f.cb.Signal != nil {
		f.cb.Signal(s)
	}
}

// V2GMessage reports a request or response that was exchanged.
func (f *Feedback) V2GMessage(t message.Type) {
	if f != nil && f.cb.V2GMessage != nil {
		f.cb.V2GMessage(t)
	}
}

// ResponseCode reports the code of a sent response.
func (f *Feedback) ResponseCode(t message.Type, code message.ResponseCode) {
	if f != nil && f.cb.ResponseCode != nil {
		f.cb.ResponseCode(t, code)
	}
}

// EVCCID reports the vehicle's communication controller id.
func (f *Feedback) EVCCID(id string) {
	if f != nil && f.cb.EVCCID != nil {
		f.cb.EVCCID(id)
	}
}

// SelectedProtocol reports the negotiated protocol namespace.
func (f *Feedback) SelectedProtocol(ns string) {
	if f != nil && f.cb.SelectedProtocol != nil {
		f.cb.SelectedProtocol(ns)
	}
}

// SelectedServices reports the vehicle's service selection.
func (f *Feedback) SelectedServices(energy message.SelectedService, vas []message.SelectedService) {
	if f != nil && f.cb.SelectedServices != nil {
		f.cb.SelectedServices(energy, vas)
	}
}

// DCPreChargeTargetVoltage reports the voltage requested during pre-charge.
func (f *Feedback) DCPreChargeTargetVoltage(v float64) {
	if f != nil && f.cb.DCPreChargeTargetVoltage != nil {
		f.cb.DCPreChargeTargetVoltage(v)
	}
}

// DCMaxLimits reports the vehicle's maximum DC limits.
func (f *Feedback) DCMaxLimits(l DCMaximumLimits) {
	if f != nil && f.cb.DCMaxLimits != nil {
		f.cb.DCMaxLimits(l)
	}
}

// DCChargeLoopReq forwards a DC charge loop request.
func (f *Feedback) DCChargeLoopReq(req *message.DCChargeLoopRequest) {
	if f != nil && f.cb.DCChargeLoopReq != nil {
		f.cb.DCChargeLoopReq(req)
	}
}

// ACChargeLoopReq forwards an AC charge loop request.
func (f *Feedback) ACChargeLoopReq(req *message.ACChargeLoopRequest) {
	if f != nil && f.cb.ACChargeLoopReq != nil {
		f.cb.ACChargeLoopReq(req)
	}
}

// VASParameters asks for the parameter sets of a value added service.
func (f *Feedback) VASParameters(id message.ServiceID) ([]message.ParameterSet, bool) {
	if f != nil && f.cb.VASParameters != nil {
		return f.cb.VASParameters(id)
	}
	return nil, false
}
