package d20

import (
	"github.com/evse-go/iso15118/pkg/control"
	"github.com/evse-go/iso15118/pkg/feedback"
	"github.com/evse-go/iso15118/pkg/message"
)

// scheduleDuration is the length of the single offered schedule entry.
const scheduleDuration = 86400

func (f *FSM) scheduleExchange(ev Event) transition {
	msg := f.pull(ev)
	if msg == nil {
		return stay()
	}
	req, ok := msg.(*message.ScheduleExchangeRequest)
	if !ok {
		f.ctx.RespondSequenceError(msg)
		return stay()
	}

	res := &message.ScheduleExchangeResponse{EVSEProcessing: message.ProcessingFinished}
	if !f.ctx.checkHeader(req, res) {
		f.ctx.Respond(res)
		return stay()
	}

	selected := f.ctx.Session.Selected
	mode, ok := req.ControlMode()
	if !ok || mode != selected.ControlMode {
		f.ctx.log.Warn("schedule exchange control mode mismatch", "selected", selected.ControlMode)
		res.ResponseCode = message.ResponseFailed
		f.ctx.Respond(res)
		return stay()
	}

	switch mode {
	case message.ControlModeScheduled:
		res.Scheduled = &message.ScheduledScheduleExchangeRes{
			ScheduleTuples: []message.ScheduleTuple{{
				ID: 1,
				ChargingSchedule: message.PowerSchedule{
					TimeAnchor: res.Header.Timestamp,
					Entries: []message.PowerScheduleEntry{{
						Duration: scheduleDuration,
						Power:    f.maxChargePower(),
					}},
				},
			}},
		}
	case message.ControlModeDynamic:
		res.Dynamic = &message.DynamicScheduleExchangeRes{}
		if selected.MobilityNeedsMode == message.MobilityNeedsProvidedBySECC {
			if p := f.ctx.Cache.DynamicParameters; p != nil {
				res.Dynamic.DepartureTime = relativeDeparture(p, res.Header.Timestamp)
				res.Dynamic.MinimumSOC = p.MinimumSOC
				res.Dynamic.TargetSOC = p.TargetSOC
			}
		}
	}

	res.ResponseCode = message.ResponseOK
	f.ctx.Respond(res)
	f.ctx.feedback.Signal(feedback.SignalSetupFinished)

	if selected.EnergyService.IsAC() {
		return goTo(StatePowerDelivery)
	}
	return goTo(StateDCCableCheck)
}

func (f *FSM) maxChargePower() message.RationalNumber {
	if f.ctx.Session.Selected.EnergyService.IsAC() {
		return f.ctx.Config.ACLimits.Charge.EVSEMaximumChargePower
	}
	return f.ctx.Config.DCLimits.Charge.EVSEMaximumChargePower
}

// relativeDeparture converts an absolute departure time to seconds after
// the header timestamp. Past departure times are omitted.
func relativeDeparture(p *control.UpdateDynamicModeParameters, timestamp uint64) *uint32 {
	if p.DepartureTime == nil {
		return nil
	}
	departure := p.DepartureTime.Unix()
	if departure <= int64(timestamp) {
		return nil
	}
	d := uint32(departure - int64(timestamp))
	return &d
}
