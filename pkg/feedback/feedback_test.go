package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/evse-go/iso15118/pkg/message"
)

func TestCallbacks(t *testing.T) {
	var (
		signal   Signal
		msgType  message.Type
		voltage  float64
		limits   DCMaximumLimits
		evccid   string
		protocol string
		loopReq  *message.DCChargeLoopRequest
		vasID    message.ServiceID
	)

	fb := New(Callbacks{
		Signal:                   func(s Signal) { signal = s },
		V2GMessage:               func(t message.Type) { msgType = t },
		DCPreChargeTargetVoltage: func(v float64) { voltage = v },
		DCMaxLimits:              func(l DCMaximumLimits) { limits = l },
		EVCCID:                   func(id string) { evccid = id },
		SelectedProtocol:         func(ns string) { protocol = ns },
		DCChargeLoopReq:          func(r *message.DCChargeLoopRequest) { loopReq = r },
		VASParameters: func(id message.ServiceID) ([]message.ParameterSet, bool) {
			vasID = id
			return []message.ParameterSet{{ID: 0, Parameters: []message.Parameter{message.IntParameter("Service1", 40)}}}, true
		},
	})

	fb.Signal(SignalRequireAuthEIM)
	assert.Equal(t, SignalRequireAuthEIM, signal)

	fb.V2GMessage(message.TypeDCCableCheckReq)
	assert.Equal(t, message.TypeDCCableCheckReq, msgType)

	fb.DCPreChargeTargetVoltage(421.4)
	assert.Equal(t, 421.4, voltage)

	fb.DCMaxLimits(DCMaximumLimits{Voltage: 803.1, Current: 10, Power: 8031})
	assert.Equal(t, DCMaximumLimits{Voltage: 803.1, Current: 10, Power: 8031}, limits)

	fb.EVCCID("54EA7E40B356")
	assert.Equal(t, "54EA7E40B356", evccid)

	fb.SelectedProtocol(message.NamespaceISO20DC)
	assert.Equal(t, message.NamespaceISO20DC, protocol)

	req := &message.DCChargeLoopRequest{Dynamic: &message.DCDynamicLoopReq{}}
	fb.DCChargeLoopReq(req)
	assert.Same(t, req, loopReq)

	sets, ok := fb.VASParameters(message.ServiceParkingInfo)
	assert.True(t, ok)
	assert.Len(t, sets, 1)
	assert.Equal(t, message.ServiceParkingInfo, vasID)
}

func TestUnsetCallbacks(t *testing.T) {
	fb := New(Callbacks{})
	assert.NotPanics(t, func() {
		fb.Signal(SignalDLinkTerminate)
		fb.V2GMessage(message.TypeSessionStopReq)
		fb.ResponseCode(message.TypeSessionStopRes, message.ResponseOK)
		fb.ACChargeLoopReq(&message.ACChargeLoopRequest{})
		_, ok := fb.VASParameters(message.ServiceInternet)
		assert.False(t, ok)
	})

	var nilFeedback *Feedback
	assert.NotPanics(t, func() { nilFeedback.Signal(SignalDLinkError) })
}

func TestSignalString(t *testing.T) {
	assert.Equal(t, "DLINK_PAUSE", SignalDLinkPause.String())
	assert.Equal(t, "SIGNAL(42)", Signal(42).String())
	assert.True(t, SignalDLinkError.IsTerminal())
	assert.False(t, SignalSetupFinished.IsTerminal())
}
