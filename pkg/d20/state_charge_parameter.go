package d20

import (
	"github.com/evse-go/iso15118/pkg/feedback"
	"github.com/evse-go/iso15118/pkg/message"
)

func (f *FSM) dcChargeParameterDiscovery(ev Event) transition {
	msg := f.pull(ev)
	if msg == nil {
		return stay()
	}
	req, ok := msg.(*message.DCChargeParameterDiscoveryRequest)
	if !ok {
		f.ctx.RespondSequenceError(msg)
		return stay()
	}

	res := &message.DCChargeParameterDiscoveryResponse{}
	if !f.ctx.checkHeader(req, res) {
		f.ctx.Respond(res)
		return stay()
	}

	bpt := f.ctx.Session.Selected.EnergyService.IsBPT()
	limits := f.ctx.Config.DCLimits
	switch {
	case bpt != (req.Discharge != nil):
		res.ResponseCode = message.ResponseFailedWrongChargeParameter
	case bpt && limits.Discharge == nil:
		f.ctx.log.Error("BPT selected but no DC discharge limits configured")
		res.ResponseCode = message.ResponseFailed
	default:
		res.Params = limits.Charge
		if bpt {
			d := *limits.Discharge
			res.Discharge = &d
		}
		res.ResponseCode = message.ResponseOK
	}
	f.ctx.Respond(res)
	if res.ResponseCode.IsFailure() {
		return stay()
	}

	f.ctx.feedback.DCMaxLimits(feedback.DCMaximumLimits{
		Voltage: req.Params.EVMaximumVoltage.Float(),
		Current: req.Params.EVMaximumChargeCurrent.Float(),
		Power:   req.Params.EVMaximumChargePower.Float(),
	})
	return goTo(StateScheduleExchange)
}

func (f *FSM) acChargeParameterDiscovery(ev Event) transition {
	msg := f.pull(ev)
	if msg == nil {
		return stay()
	}
	req, ok := msg.(*message.ACChargeParameterDiscoveryRequest)
	if !ok {
		f.ctx.RespondSequenceError(msg)
		return stay()
	}

	res := &message.ACChargeParameterDiscoveryResponse{}
	if !f.ctx.checkHeader(req, res) {
		f.ctx.Respond(res)
		return stay()
	}

	bpt := f.ctx.Session.Selected.EnergyService.IsBPT()
	limits := f.ctx.Config.ACLimits
	switch {
	case bpt != (req.Discharge != nil):
		res.ResponseCode = message.ResponseFailedWrongChargeParameter
	case bpt && limits.Discharge == nil:
		f.ctx.log.Error("BPT selected but no AC discharge limits configured")
		res.ResponseCode = message.ResponseFailed
	default:
		res.Params = limits.Charge
		if bpt {
			d := *limits.Discharge
			res.Discharge = &d
		}
		res.ResponseCode = message.ResponseOK
	}
	f.ctx.Respond(res)
	if res.ResponseCode.IsFailure() {
		return stay()
	}
	return goTo(StateScheduleExchange)
}
