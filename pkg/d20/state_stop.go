package d20

import (
	"github.com/evse-go/iso15118/pkg/message"
)

func (f *FSM) sessionStop(ev Event) transition {
	msg := f.pull(ev)
	if msg == nil {
		return stay()
	}
	req, ok := msg.(*message.SessionStopRequest)
	if !ok {
		f.ctx.RespondSequenceError(msg)
		return stay()
	}

	res := &message.SessionStopResponse{}
	if !f.ctx.checkHeader(req, res) {
		f.ctx.Respond(res)
		return stay()
	}

	switch req.ChargingSession {
	case message.ChargingSessionTerminate:
		res.ResponseCode = message.ResponseOK
		f.ctx.Respond(res)
		f.ctx.Stop()
		return stay()

	case message.ChargingSessionPause:
		if err := f.ctx.savePauseContext(); err != nil {
			f.ctx.log.Error("failed to save pause context", "error", err)
			res.ResponseCode = message.ResponseFailedPauseNotAllowed
			f.ctx.Respond(res)
			return stay()
		}
		res.ResponseCode = message.ResponseOK
		f.ctx.Respond(res)
		if !f.ctx.Stopped() {
			f.ctx.paused = true
		}
		return stay()

	case message.ChargingSessionServiceRenegotiation:
		if !f.ctx.Config.ServiceRenegotiationSupported {
			res.ResponseCode = message.ResponseFailedNoServiceRenegotiationSupported
			f.ctx.Respond(res)
			return stay()
		}
		res.ResponseCode = message.ResponseOK
		f.ctx.Respond(res)
		return goTo(StateServiceDiscovery)
	}

	res.ResponseCode = message.ResponseFailed
	f.ctx.Respond(res)
	return stay()
}
