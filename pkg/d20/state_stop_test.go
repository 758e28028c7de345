package d20

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evse-go/iso15118/pkg/message"
)

func TestSessionStopPauseSavesContext(t *testing.T) {
	hash := certHash("vehicle certificate")
	selected := SelectedServices{EnergyService: message.ServiceDC, ControlMode: message.ControlModeScheduled}
	h := newHarness(t, testSetup())
	h.fsm.Context().SetVehicleCertHash(hash)
	h.enter(StateDCChargeLoop, selected)
	id := h.fsm.Context().Session.ID

	assert.Equal(t, message.ResponseOK, h.code(sessionStop(h, message.ChargingSessionPause)))
	assert.True(t, h.fsm.Context().Paused())
	assert.False(t, h.fsm.Context().Stopped())
	assert.Equal(t, StateClosed, h.fsm.State())

	require.NotNil(t, h.store.pc)
	assert.Equal(t, id, h.store.pc.SessionID)
	assert.Equal(t, hash, h.store.pc.CertHash)
	assert.Equal(t, selected, h.store.pc.Selected)
	assert.Equal(t, h.now, h.store.pc.PausedAt)

	// The same vehicle reconnects into the paused session.
	next := newHarness(t, testSetup())
	next.store = h.store
	next.fsm.Context().pauseStore = h.store
	next.fsm.Context().SetVehicleCertHash(hash)
	next.negotiate()

	res := next.setupSession(id)
	assert.Equal(t, message.ResponseOKOldSessionJoined, res.ResponseCode)
	assert.Equal(t, id, res.Header.SessionID)
	assert.Equal(t, StateDCChargeParameterDiscovery, next.fsm.State())
}

func TestSessionStopPauseNotAllowed(t *testing.T) {
	h := newHarness(t, testSetup())
	h.store.saveErr = errStoreFull
	h.enter(StateDCChargeLoop, SelectedServices{EnergyService: message.ServiceDC, ControlMode: message.ControlModeScheduled})

	assert.Equal(t, message.ResponseFailedPauseNotAllowed, h.code(sessionStop(h, message.ChargingSessionPause)))
	assert.False(t, h.fsm.Context().Paused())
	assert.True(t, h.fsm.Context().Stopped())
}

func TestSessionStopServiceRenegotiation(t *testing.T) {
	t.Run("supported", func(t *testing.T) {
		setup := testSetup()
		setup.ServiceRenegotiationSupported = true
		h := newHarness(t, setup)
		h.enter(StateDCWeldingDetection, SelectedServices{EnergyService: message.ServiceDC})

		assert.Equal(t, message.ResponseOK, h.code(sessionStop(h, message.ChargingSessionServiceRenegotiation)))
		assert.Equal(t, StateServiceDiscovery, h.fsm.State())
		assert.False(t, h.fsm.Context().Done())

		assert.Equal(t, message.ResponseOK, h.code(&message.ServiceDiscoveryRequest{RequestBase: h.base()}))
	})

	t.Run("not supported", func(t *testing.T) {
		h := newHarness(t, testSetup())
		h.enter(StateDCWeldingDetection, SelectedServices{EnergyService: message.ServiceDC})

		assert.Equal(t, message.ResponseFailedNoServiceRenegotiationSupported,
			h.code(sessionStop(h, message.ChargingSessionServiceRenegotiation)))
		assert.True(t, h.fsm.Context().Stopped())
	})
}
