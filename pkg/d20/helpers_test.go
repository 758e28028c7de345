package d20

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/evse-go/iso15118/pkg/control"
	"github.com/evse-go/iso15118/pkg/feedback"
	"github.com/evse-go/iso15118/pkg/message"
)

// fakeExchange is a single slot mailbox that encodes every response.
type fakeExchange struct {
	req       message.Message
	responses []message.Message
}

func (e *fakeExchange) PeekRequest() message.Message { return e.req }

func (e *fakeExchange) PullRequest() message.Message {
	req := e.req
	e.req = nil
	return req
}

func (e *fakeExchange) SetResponse(msg message.Message) error {
	if _, err := message.Encode(msg); err != nil {
		return err
	}
	e.responses = append(e.responses, msg)
	return nil
}

type fakePauseStore struct {
	pc      *PauseContext
	saveErr error
}

func (s *fakePauseStore) Load() (PauseContext, bool, error) {
	if s.pc == nil {
		return PauseContext{}, false, nil
	}
	return *s.pc, true, nil
}

func (s *fakePauseStore) Save(pc PauseContext) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.pc = &pc
	return nil
}

func (s *fakePauseStore) Clear() error {
	s.pc = nil
	return nil
}

var errStoreFull = errors.New("store full")

type harness struct {
	t       *testing.T
	fsm     *FSM
	ex      *fakeExchange
	store   *fakePauseStore
	now     time.Time
	signals []feedback.Signal
	dcLoop  []*message.DCChargeLoopRequest
}

func newHarness(t *testing.T, setup EvseSetupConfig) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		ex:    &fakeExchange{},
		store: &fakePauseStore{},
		now:   time.Unix(1_750_000_000, 0),
	}
	fb := feedback.New(feedback.Callbacks{
		Signal:          func(s feedback.Signal) { h.signals = append(h.signals, s) },
		DCChargeLoopReq: func(req *message.DCChargeLoopRequest) { h.dcLoop = append(h.dcLoop, req) },
	})
	ctx := NewContext(h.ex, NewSessionConfig(setup),
		WithFeedback(fb),
		WithPauseStore(h.store),
		WithClock(func() time.Time { return h.now }),
		WithLogger(slog.New(slog.DiscardHandler)),
	)
	h.fsm = New(ctx)
	return h
}

// send feeds req and returns the single response it produced.
func (h *harness) send(req message.Message) message.Message {
	h.t.Helper()
	n := len(h.ex.responses)
	h.ex.req = req
	h.fsm.Feed(V2GTPMessage)
	require.Len(h.t, h.ex.responses, n+1, "expected one response to %s", req.Type())
	return h.ex.responses[n]
}

// code sends req and returns the response code.
func (h *harness) code(req message.Message) message.ResponseCode {
	h.t.Helper()
	res, ok := h.send(req).(message.Response)
	require.True(h.t, ok)
	return res.Base().ResponseCode
}

func (h *harness) control(ev control.Event) {
	h.fsm.Context().ApplyControlEvent(ev)
	h.fsm.Feed(ControlMessage)
}

func (h *harness) base() message.RequestBase {
	return message.RequestBase{Header: message.Header{
		SessionID: h.fsm.Context().Session.ID,
		Timestamp: uint64(h.now.Unix()),
	}}
}

func (h *harness) negotiate() {
	h.t.Helper()
	res := h.send(&message.SupportedAppProtocolRequest{AppProtocols: []message.AppProtocol{
		{Namespace: message.NamespaceISO20DC, VersionMajor: 1, SchemaID: 1, Priority: 1},
	}})
	require.Equal(h.t, message.SAPOKSuccessfulNegotiation, res.(*message.SupportedAppProtocolResponse).ResponseCode)
	require.Equal(h.t, StateSessionSetup, h.fsm.State())
}

func (h *harness) setupSession(id message.SessionID) *message.SessionSetupResponse {
	h.t.Helper()
	req := &message.SessionSetupRequest{EVCCID: "WMIV1234567890ABCDEX"}
	req.Header.SessionID = id
	req.Header.Timestamp = uint64(h.now.Unix())
	return h.send(req).(*message.SessionSetupResponse)
}

// discover runs a new session up to ServiceDetail.
func (h *harness) discover() {
	h.t.Helper()
	h.negotiate()
	require.Equal(h.t, message.ResponseOKNewSessionEstablished, h.setupSession(message.SessionID{}).ResponseCode)
	require.Equal(h.t, message.ResponseOK, h.code(&message.AuthorizationSetupRequest{RequestBase: h.base()}))
	require.Equal(h.t, message.ResponseOK, h.code(&message.AuthorizationRequest{
		RequestBase:                  h.base(),
		SelectedAuthorizationService: message.AuthorizationEIM,
		EIM:                          &message.EIMAuthorization{},
	}))
	require.Equal(h.t, message.ResponseOK, h.code(&message.ServiceDiscoveryRequest{RequestBase: h.base()}))
	require.Equal(h.t, StateServiceDetail, h.fsm.State())
}

// selectService runs a new session up to charge parameter discovery.
func (h *harness) selectService(service message.ServiceID, setID uint16) {
	h.t.Helper()
	h.discover()
	require.Equal(h.t, message.ResponseOK, h.code(&message.ServiceSelectionRequest{
		RequestBase:                   h.base(),
		SelectedEnergyTransferService: message.SelectedService{ServiceID: service, ParameterSetID: setID},
	}))
}

// enter places the machine in state with an established session.
func (h *harness) enter(state StateID, selected SelectedServices) {
	ctx := h.fsm.Context()
	ctx.Session = NewSession()
	ctx.Session.Selected = selected
	ctx.Session.Offered.EnergyServices = []message.ServiceID{selected.EnergyService}
	h.fsm.setState(state)
}

func rn(v int16, exp int8) message.RationalNumber {
	return message.RationalNumber{Value: v, Exponent: exp}
}

func dcLimits() control.DCTransferLimits {
	return control.DCTransferLimits{Charge: message.DCEVSEChargeParameters{
		EVSEMaximumChargePower:   rn(150, 3),
		EVSEMinimumChargePower:   rn(0, 0),
		EVSEMaximumChargeCurrent: rn(400, 0),
		EVSEMinimumChargeCurrent: rn(0, 0),
		EVSEMaximumVoltage:       rn(900, 0),
		EVSEMinimumVoltage:       rn(150, 0),
	}}
}

func acLimits() control.ACTransferLimits {
	return control.ACTransferLimits{Charge: message.ACEVSEChargeParameters{
		EVSEMaximumChargePower: rn(22, 3),
		EVSEMinimumChargePower: rn(1380, 0),
		EVSENominalFrequency:   rn(50, 0),
	}}
}

func testSetup() EvseSetupConfig {
	return EvseSetupConfig{
		EVSEID:                  "DE*PNX*E12345*1",
		SupportedEnergyServices: []message.ServiceID{message.ServiceDC, message.ServiceAC},
		AuthorizationServices:   []message.Authorization{message.AuthorizationEIM},
		DCLimits:                dcLimits(),
		ACLimits:                acLimits(),
		AutoAuthorize:           true,
	}
}

func ptr[T any](v T) *T { return &v }
