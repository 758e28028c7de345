package d20

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evse-go/iso15118/pkg/message"
)

func TestStateString(t *testing.T) {
	assert.Equal(t, "SessionSetup", StateSessionSetup.String())
	assert.Equal(t, "DC_ChargeLoop", StateDCChargeLoop.String())
	assert.Equal(t, "STATE(99)", StateID(99).String())
	assert.Equal(t, "TIMEOUT", EventTimeout.String())
}

func TestSequenceErrorInSupportedAppProtocol(t *testing.T) {
	h := newHarness(t, testSetup())

	res := h.send(&message.SessionSetupRequest{EVCCID: "WMIV1234567890ABCDEX"})

	require.IsType(t, &message.SessionSetupResponse{}, res)
	assert.Equal(t, message.ResponseFailedSequenceError, res.(*message.SessionSetupResponse).ResponseCode)
	assert.True(t, h.fsm.Context().Stopped())
	assert.Equal(t, StateClosed, h.fsm.State())
}

func TestSequenceErrorRepeatedAppProtocol(t *testing.T) {
	h := newHarness(t, testSetup())
	h.negotiate()

	res := h.send(&message.SupportedAppProtocolRequest{AppProtocols: []message.AppProtocol{
		{Namespace: message.NamespaceISO20DC, VersionMajor: 1, SchemaID: 1, Priority: 1},
	}})

	assert.Equal(t, message.SAPFailedNoNegotiation, res.(*message.SupportedAppProtocolResponse).ResponseCode)
	assert.Equal(t, StateClosed, h.fsm.State())
}

func TestSequenceErrorSkippedState(t *testing.T) {
	h := newHarness(t, testSetup())
	h.negotiate()
	h.setupSession(message.SessionID{})

	res := h.send(&message.ServiceDiscoveryRequest{RequestBase: h.base()})

	assert.Equal(t, message.ResponseFailedSequenceError, res.(*message.ServiceDiscoveryResponse).ResponseCode)
	assert.Equal(t, h.fsm.Context().Session.ID, res.(*message.ServiceDiscoveryResponse).Header.SessionID)
}

func TestSessionStopAcceptedInAnyStateAfterSetup(t *testing.T) {
	for _, state := range []StateID{
		StateAuthorizationSetup,
		StateServiceDetail,
		StateScheduleExchange,
		StateDCCableCheck,
		StatePowerDelivery,
		StateACChargeLoop,
	} {
		t.Run(state.String(), func(t *testing.T) {
			h := newHarness(t, testSetup())
			h.enter(state, SelectedServices{EnergyService: message.ServiceDC})

			assert.Equal(t, message.ResponseOK, h.code(sessionStop(h, message.ChargingSessionTerminate)))
			assert.True(t, h.fsm.Context().Stopped())
			assert.Equal(t, StateClosed, h.fsm.State())
		})
	}
}

func TestSessionStopBeforeSessionSetup(t *testing.T) {
	h := newHarness(t, testSetup())
	h.negotiate()

	res := h.send(&message.SessionStopRequest{ChargingSession: message.ChargingSessionTerminate})

	assert.Equal(t, message.ResponseFailedSequenceError, res.(*message.SessionStopResponse).ResponseCode)
}

func TestClosedMachineIgnoresEvents(t *testing.T) {
	h := newHarness(t, testSetup())
	h.enter(StateDCChargeLoop, SelectedServices{EnergyService: message.ServiceDC, ControlMode: message.ControlModeScheduled})
	h.code(sessionStop(h, message.ChargingSessionTerminate))
	require.Equal(t, StateClosed, h.fsm.State())

	h.ex.req = scheduledLoopRequest(h)
	h.fsm.Feed(V2GTPMessage)

	assert.Len(t, h.ex.responses, 1)
	assert.NotNil(t, h.ex.req)
}
