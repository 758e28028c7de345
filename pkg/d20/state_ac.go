package d20

import (
	"github.com/evse-go/iso15118/pkg/feedback"
	"github.com/evse-go/iso15118/pkg/message"
)

func (f *FSM) acChargeLoop(ev Event) transition {
	msg := f.pull(ev)
	if msg == nil {
		return stay()
	}

	switch req := msg.(type) {
	case *message.PowerDeliveryRequest:
		res := f.handlePowerDelivery(req)
		f.ctx.Respond(res)
		if res.ResponseCode.IsFailure() {
			return stay()
		}
		f.local.chargeLoopEntry = true
		if req.ChargeProgress == message.ChargeProgressStop {
			return f.finishChargeLoop()
		}
		return stay()

	case *message.ACChargeLoopRequest:
		if f.local.chargeLoopEntry {
			f.ctx.feedback.Signal(feedback.SignalChargeLoopStarted)
			f.local.chargeLoopEntry = false
		}
		res := f.handleACChargeLoop(req)
		f.ctx.Respond(res)
		if !res.ResponseCode.IsFailure() {
			f.ctx.feedback.ACChargeLoopReq(req)
		}
		return stay()
	}

	f.ctx.RespondSequenceError(msg)
	return stay()
}

func (f *FSM) handleACChargeLoop(req *message.ACChargeLoopRequest) *message.ACChargeLoopResponse {
	res := &message.ACChargeLoopResponse{}
	if !f.ctx.checkHeader(req, res) {
		return res
	}

	selected := f.ctx.Session.Selected
	mode, ok := req.ControlMode()
	if !ok || mode != selected.ControlMode || !selected.EnergyService.IsAC() {
		res.ResponseCode = message.ResponseFailed
		return res
	}

	var target message.RationalNumber
	var reactive *message.RationalNumber
	if t := f.ctx.Cache.ACTargetPower; t != nil {
		target = t.TargetActivePower
		reactive = t.TargetReactivePower
	}
	var present *message.RationalNumber
	if p := f.ctx.Cache.ACPresentPower; p != nil {
		v := p.PresentActivePower
		present = &v
	}

	switch mode {
	case message.ControlModeScheduled:
		res.Scheduled = &message.ACScheduledLoopRes{
			EVSETargetActivePower:   &target,
			EVSETargetReactivePower: reactive,
			EVSEPresentActivePower:  present,
		}
	case message.ControlModeDynamic:
		res.Dynamic = &message.ACDynamicLoopRes{
			EVSETargetActivePower:   target,
			EVSETargetReactivePower: reactive,
			EVSEPresentActivePower:  present,
		}
		if selected.MobilityNeedsMode == message.MobilityNeedsProvidedBySECC {
			if p := f.ctx.Cache.DynamicParameters; p != nil {
				res.Dynamic.DepartureTime = relativeDeparture(p, res.Header.Timestamp)
				res.Dynamic.MinimumSOC = p.MinimumSOC
				res.Dynamic.TargetSOC = p.TargetSOC
			}
			ack := uint16(dynamicAckMaxDelay)
			res.Dynamic.AckMaxDelay = &ack
		}
	}

	freq := f.ctx.Config.ACLimits.Charge.EVSENominalFrequency
	res.EVSETargetFrequency = &freq
	res.EVSEStatus = f.chargeLoopStatus()
	res.ResponseCode = message.ResponseOK
	return res
}
