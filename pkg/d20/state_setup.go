package d20

import (
	"bytes"
	"crypto/rand"
	"slices"

	"github.com/evse-go/iso15118/pkg/feedback"
	"github.com/evse-go/iso15118/pkg/message"
	"github.com/evse-go/iso15118/pkg/timeout"
)

// supportedMajorVersion is the ISO 15118-20 schema major version.
const supportedMajorVersion = 1

func (f *FSM) supportedAppProtocol(ev Event) transition {
	msg := f.pull(ev)
	if msg == nil {
		return stay()
	}
	req, ok := msg.(*message.SupportedAppProtocolRequest)
	if !ok {
		f.ctx.RespondSequenceError(msg)
		return stay()
	}

	res := &message.SupportedAppProtocolResponse{ResponseCode: message.SAPFailedNoNegotiation}
	var chosen *message.AppProtocol
	for i := range req.AppProtocols {
		p := &req.AppProtocols[i]
		if p.VersionMajor != supportedMajorVersion || !f.ctx.Config.SupportsNamespace(p.Namespace) {
			continue
		}
		if chosen == nil || p.Priority < chosen.Priority {
			chosen = p
		}
	}

	if chosen == nil {
		f.ctx.log.Warn("no supported app protocol offered", "count", len(req.AppProtocols))
		f.ctx.Respond(res)
		f.ctx.Stop()
		return stay()
	}

	res.ResponseCode = message.SAPOKSuccessfulNegotiation
	if chosen.VersionMinor != 0 {
		res.ResponseCode = message.SAPOKSuccessfulNegotiationWithMinorDeviation
	}
	schemaID := chosen.SchemaID
	res.SchemaID = &schemaID

	f.ctx.Respond(res)
	f.ctx.feedback.SelectedProtocol(chosen.Namespace)
	return goTo(StateSessionSetup)
}

func (f *FSM) sessionSetup(ev Event) transition {
	msg := f.pull(ev)
	if msg == nil {
		return stay()
	}
	req, ok := msg.(*message.SessionSetupRequest)
	if !ok {
		f.ctx.RespondSequenceError(msg)
		return stay()
	}

	f.ctx.stopTimeout(timeout.KindCommunicationSetup)
	f.ctx.feedback.EVCCID(req.EVCCID)

	res := &message.SessionSetupResponse{EVSEID: f.ctx.Config.EVSEID}

	if pc, ok := f.resumable(req.Header.SessionID); ok {
		f.ctx.Session = Session{ID: pc.SessionID, Selected: pc.Selected}
		f.ctx.Session.Offered.EnergyServices = []message.ServiceID{pc.Selected.EnergyService}
		res.Header = f.ctx.header()
		res.ResponseCode = message.ResponseOKOldSessionJoined
		f.ctx.Respond(res)
		f.ctx.log.Info("session resumed", "session_id", pc.SessionID, "energy_service", pc.Selected.EnergyService)
		f.ctx.feedback.SelectedServices(
			message.SelectedService{ServiceID: pc.Selected.EnergyService, ParameterSetID: pc.Selected.ParameterSetID},
			pc.Selected.VAS,
		)
		if pc.Selected.EnergyService.IsAC() {
			return goTo(StateACChargeParameterDiscovery)
		}
		return goTo(StateDCChargeParameterDiscovery)
	}

	f.ctx.Session = NewSession()
	res.Header = f.ctx.header()
	res.ResponseCode = message.ResponseOKNewSessionEstablished
	f.ctx.Respond(res)
	f.ctx.log.Info("session established", "session_id", f.ctx.Session.ID, "evcc_id", req.EVCCID)
	return goTo(StateAuthorizationSetup)
}

// resumable consumes the stored pause context and reports whether it lets
// the vehicle join the session with id. Any stored context is discarded.
func (f *FSM) resumable(id message.SessionID) (PauseContext, bool) {
	pc, ok := f.ctx.takePauseContext()
	if !ok {
		return PauseContext{}, false
	}
	hash := f.ctx.VehicleCertHash()

	switch {
	case id.IsZero():
		f.ctx.log.Info("discarding pause context: new session requested")
	case pc.SessionID != id:
		f.ctx.log.Info("discarding pause context: session id mismatch", "requested", id, "paused", pc.SessionID)
	case len(hash) == 0 || len(pc.CertHash) == 0:
		f.ctx.log.Info("discarding pause context: no vehicle certificate", "session_id", id)
	case !bytes.Equal(hash, pc.CertHash):
		f.ctx.log.Warn("discarding pause context: vehicle certificate mismatch", "session_id", id)
	case !pc.Selected.EnergyService.IsDC() && !pc.Selected.EnergyService.IsAC():
		f.ctx.log.Warn("discarding pause context: no energy service selected", "session_id", id)
	default:
		return pc, true
	}
	return PauseContext{}, false
}

func (f *FSM) authorizationSetup(ev Event) transition {
	msg := f.pull(ev)
	if msg == nil {
		return stay()
	}
	req, ok := msg.(*message.AuthorizationSetupRequest)
	if !ok {
		f.ctx.RespondSequenceError(msg)
		return stay()
	}

	res := &message.AuthorizationSetupResponse{}
	if !f.ctx.checkHeader(req, res) {
		f.ctx.Respond(res)
		return stay()
	}

	services := slices.Clone(f.ctx.Config.AuthorizationServices)
	f.ctx.Session.Offered.AuthorizationServices = services
	res.AuthorizationServices = services
	res.CertificateInstallationService = f.ctx.Config.CertificateInstallService
	if slices.Contains(services, message.AuthorizationPnC) {
		challenge := make([]byte, message.GenChallengeSize)
		_, _ = rand.Read(challenge)
		f.ctx.Session.GenChallenge = challenge
		res.GenChallenge = challenge
	}
	res.ResponseCode = message.ResponseOK
	f.ctx.Respond(res)
	return goTo(StateAuthorization)
}

func (f *FSM) authorization(ev Event) transition {
	if ev.Type == EventTimeout && ev.Timeout == timeout.KindOngoing {
		f.ctx.log.Warn("authorization processing timed out")
		f.local.ongoingExpired = true
		return stay()
	}

	msg := f.pull(ev)
	if msg == nil {
		return stay()
	}
	req, ok := msg.(*message.AuthorizationRequest)
	if !ok {
		f.ctx.RespondSequenceError(msg)
		return stay()
	}

	res := &message.AuthorizationResponse{EVSEProcessing: message.ProcessingFinished}
	if !f.ctx.checkHeader(req, res) {
		f.ctx.Respond(res)
		return stay()
	}

	selected := req.SelectedAuthorizationService
	if !slices.Contains(f.ctx.Session.Offered.AuthorizationServices, selected) {
		f.ctx.log.Warn("authorization service not offered", "service", selected)
		res.ResponseCode = message.ResponseFailed
		f.ctx.Respond(res)
		return stay()
	}

	if selected == message.AuthorizationPnC {
		if req.PnC == nil || !bytes.Equal(req.PnC.GenChallenge, f.ctx.Session.GenChallenge) {
			res.ResponseCode = message.ResponseWarningChallengeInvalid
			f.ctx.Respond(res)
			f.ctx.Stop()
			return stay()
		}
	}

	if f.local.ongoingExpired {
		res.ResponseCode = message.ResponseFailed
		f.ctx.Respond(res)
		return stay()
	}

	accepted, decided := f.authorizationDecision(selected)
	if !decided {
		if !f.local.signalled {
			if selected == message.AuthorizationPnC {
				f.ctx.feedback.Signal(feedback.SignalRequireAuthPnC)
			} else {
				f.ctx.feedback.Signal(feedback.SignalRequireAuthEIM)
			}
			f.local.signalled = true
		}
		if !f.local.ongoingStarted {
			f.ctx.startTimeout(timeout.KindOngoing, timeout.OngoingTimeout)
			f.local.ongoingStarted = true
		}
		res.ResponseCode = message.ResponseOK
		res.EVSEProcessing = message.ProcessingOngoing
		f.ctx.Respond(res)
		return stay()
	}

	f.ctx.stopTimeout(timeout.KindOngoing)
	if !accepted {
		if selected == message.AuthorizationPnC {
			res.ResponseCode = message.ResponseWarningGeneralPnCAuthorizationError
		} else {
			res.ResponseCode = message.ResponseWarningEIMAuthorizationFailure
		}
		f.ctx.Respond(res)
		f.ctx.Stop()
		return stay()
	}

	res.ResponseCode = message.ResponseOK
	f.ctx.Respond(res)
	return goTo(StateServiceDiscovery)
}

func (f *FSM) authorizationDecision(selected message.Authorization) (accepted, decided bool) {
	if a := f.ctx.Cache.Authorization; a != nil {
		return *a, true
	}
	if selected == message.AuthorizationEIM && f.ctx.Config.AutoAuthorize {
		return true, true
	}
	return false, false
}
