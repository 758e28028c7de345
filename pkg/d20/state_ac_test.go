package d20

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evse-go/iso15118/pkg/control"
	"github.com/evse-go/iso15118/pkg/feedback"
	"github.com/evse-go/iso15118/pkg/message"
)

func acLoopRequest(h *harness) *message.ACChargeLoopRequest {
	return &message.ACChargeLoopRequest{
		RequestBase: h.base(),
		Scheduled:   &message.ACScheduledLoopReq{EVPresentActivePower: rn(11, 3)},
	}
}

func TestACSessionWalkthrough(t *testing.T) {
	h := newHarness(t, testSetup())
	h.selectService(message.ServiceAC, 0)
	require.Equal(t, StateACChargeParameterDiscovery, h.fsm.State())

	cpd := h.send(&message.ACChargeParameterDiscoveryRequest{
		RequestBase: h.base(),
		Params: message.ACChargeParameters{
			EVMaximumChargePower: rn(11, 3),
			EVMinimumChargePower: rn(1380, 0),
		},
	}).(*message.ACChargeParameterDiscoveryResponse)
	assert.Equal(t, message.ResponseOK, cpd.ResponseCode)
	assert.Equal(t, acLimits().Charge, cpd.Params)
	require.Equal(t, StateScheduleExchange, h.fsm.State())

	sched := h.send(&message.ScheduleExchangeRequest{
		RequestBase:             h.base(),
		MaximumSupportingPoints: 1024,
		Scheduled:               &message.ScheduledScheduleExchangeReq{},
	}).(*message.ScheduleExchangeResponse)
	require.NotNil(t, sched.Scheduled)
	assert.Equal(t, rn(22, 3), sched.Scheduled.ScheduleTuples[0].ChargingSchedule.Entries[0].Power)
	require.Equal(t, StatePowerDelivery, h.fsm.State())

	assert.Equal(t, message.ResponseOK, h.code(powerDelivery(h, message.ChargeProgressStart)))
	require.Equal(t, StateACChargeLoop, h.fsm.State())

	h.control(control.ACTargetPower{TargetActivePower: rn(11, 3)})
	h.control(control.ACPresentPower{PresentActivePower: rn(10, 3)})
	loop := h.send(acLoopRequest(h)).(*message.ACChargeLoopResponse)
	assert.Equal(t, message.ResponseOK, loop.ResponseCode)
	require.NotNil(t, loop.Scheduled)
	assert.Equal(t, ptr(rn(11, 3)), loop.Scheduled.EVSETargetActivePower)
	assert.Equal(t, ptr(rn(10, 3)), loop.Scheduled.EVSEPresentActivePower)
	assert.Equal(t, ptr(rn(50, 0)), loop.EVSETargetFrequency)

	assert.Equal(t, message.ResponseOK, h.code(powerDelivery(h, message.ChargeProgressStop)))
	require.Equal(t, StateSessionStop, h.fsm.State())

	assert.Equal(t, message.ResponseOK, h.code(sessionStop(h, message.ChargingSessionTerminate)))
	assert.True(t, h.fsm.Context().Stopped())

	assert.Equal(t, []feedback.Signal{
		feedback.SignalSetupFinished,
		feedback.SignalChargeLoopStarted,
		feedback.SignalChargeLoopFinished,
	}, h.signals)
}

func TestACChargeLoopRejectsDCRequest(t *testing.T) {
	h := newHarness(t, testSetup())
	h.enter(StateACChargeLoop, SelectedServices{EnergyService: message.ServiceAC, ControlMode: message.ControlModeScheduled})

	res := h.send(scheduledLoopRequest(h))

	assert.Equal(t, message.ResponseFailedSequenceError, res.(*message.DCChargeLoopResponse).ResponseCode)
	assert.Equal(t, StateClosed, h.fsm.State())
}

func TestACChargeLoopStop(t *testing.T) {
	h := newHarness(t, testSetup())
	h.enter(StateACChargeLoop, SelectedServices{EnergyService: message.ServiceAC, ControlMode: message.ControlModeScheduled})
	h.control(control.StopCharging{Stop: true})

	res := h.send(acLoopRequest(h)).(*message.ACChargeLoopResponse)

	assert.Equal(t, message.ResponseOK, res.ResponseCode)
	assert.Equal(t, &message.EVSEStatus{Notification: message.EVSENotificationTerminate}, res.EVSEStatus)
}

func TestACChargeParameterDiscoveryWrongParameters(t *testing.T) {
	h := newHarness(t, testSetup())
	h.enter(StateACChargeParameterDiscovery, SelectedServices{EnergyService: message.ServiceAC, ControlMode: message.ControlModeScheduled})

	code := h.code(&message.ACChargeParameterDiscoveryRequest{
		RequestBase: h.base(),
		Params:      message.ACChargeParameters{EVMaximumChargePower: rn(11, 3)},
		Discharge:   &message.ACDischargeParameters{EVMaximumDischargePower: rn(11, 3)},
	})

	assert.Equal(t, message.ResponseFailedWrongChargeParameter, code)
}
