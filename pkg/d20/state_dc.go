package d20

import (
	"github.com/evse-go/iso15118/pkg/control"
	"github.com/evse-go/iso15118/pkg/feedback"
	"github.com/evse-go/iso15118/pkg/message"
	"github.com/evse-go/iso15118/pkg/timeout"
)

// Charge loop notification delays.
const (
	pauseNotificationDelayDynamic = 60 // seconds
	dynamicAckMaxDelay            = 30 // seconds
)

func (f *FSM) dcCableCheck(ev Event) transition {
	if ev.Type == EventTimeout && ev.Timeout == timeout.KindOngoing {
		f.ctx.log.Warn("cable check timed out")
		f.local.ongoingExpired = true
		return stay()
	}

	msg := f.pull(ev)
	if msg == nil {
		return stay()
	}
	req, ok := msg.(*message.DCCableCheckRequest)
	if !ok {
		f.ctx.RespondSequenceError(msg)
		return stay()
	}

	res := &message.DCCableCheckResponse{EVSEProcessing: message.ProcessingFinished}
	if !f.ctx.checkHeader(req, res) {
		f.ctx.Respond(res)
		return stay()
	}

	if !f.local.signalled {
		f.ctx.feedback.Signal(feedback.SignalStartCableCheck)
		f.local.signalled = true
	}

	if f.local.ongoingExpired {
		res.ResponseCode = message.ResponseFailed
		f.ctx.Respond(res)
		return stay()
	}

	result := f.ctx.Cache.CableCheck
	if result == nil {
		if !f.local.ongoingStarted {
			f.ctx.startTimeout(timeout.KindOngoing, timeout.OngoingTimeout)
			f.local.ongoingStarted = true
		}
		res.EVSEProcessing = message.ProcessingOngoing
		res.ResponseCode = message.ResponseOK
		f.ctx.Respond(res)
		return stay()
	}

	f.ctx.stopTimeout(timeout.KindOngoing)
	if !*result {
		res.ResponseCode = message.ResponseFailed
		f.ctx.Respond(res)
		return stay()
	}
	res.ResponseCode = message.ResponseOK
	f.ctx.Respond(res)
	return goTo(StateDCPreCharge)
}

func (f *FSM) dcPreCharge(ev Event) transition {
	if ev.Type != EventV2GTPMessage {
		return stay()
	}
	if _, ok := f.ctx.PeekRequest().(*message.PowerDeliveryRequest); ok {
		return handOver(StatePowerDelivery)
	}

	msg := f.pull(ev)
	if msg == nil {
		return stay()
	}
	req, ok := msg.(*message.DCPreChargeRequest)
	if !ok {
		f.ctx.RespondSequenceError(msg)
		return stay()
	}
	f.handlePreCharge(req)
	return stay()
}

func (f *FSM) handlePreCharge(req *message.DCPreChargeRequest) {
	res := &message.DCPreChargeResponse{}
	if !f.ctx.checkHeader(req, res) {
		f.ctx.Respond(res)
		return
	}
	f.ctx.feedback.DCPreChargeTargetVoltage(req.EVTargetVoltage.Float())
	res.EVSEPresentVoltage = message.FromFloat(f.ctx.Cache.PresentVoltage)
	res.ResponseCode = message.ResponseOK
	f.ctx.Respond(res)
}

func (f *FSM) powerDelivery(ev Event) transition {
	msg := f.pull(ev)
	if msg == nil {
		return stay()
	}

	switch req := msg.(type) {
	case *message.DCPreChargeRequest:
		if f.ctx.Session.Selected.EnergyService.IsDC() {
			f.handlePreCharge(req)
			return stay()
		}
	case *message.PowerDeliveryRequest:
		res := f.handlePowerDelivery(req)
		f.ctx.Respond(res)
		if res.ResponseCode.IsFailure() {
			return stay()
		}
		switch req.ChargeProgress {
		case message.ChargeProgressStart:
			if f.ctx.Session.Selected.EnergyService.IsAC() {
				return goTo(StateACChargeLoop)
			}
			return goTo(StateDCChargeLoop)
		case message.ChargeProgressStop:
			return f.finishChargeLoop()
		}
		return stay()
	}

	f.ctx.RespondSequenceError(msg)
	return stay()
}

func (f *FSM) handlePowerDelivery(req *message.PowerDeliveryRequest) *message.PowerDeliveryResponse {
	res := &message.PowerDeliveryResponse{}
	if !f.ctx.checkHeader(req, res) {
		return res
	}

	switch req.ChargeProgress {
	case message.ChargeProgressStart, message.ChargeProgressStop:
		res.ResponseCode = message.ResponseOK
	case message.ChargeProgressStandby:
		res.ResponseCode = message.ResponseWarningStandbyNotAllowed
	case message.ChargeProgressScheduleRenegotiation:
		res.ResponseCode = message.ResponseWarningScheduleRenegotiationFailed
	default:
		res.ResponseCode = message.ResponseFailed
	}
	return res
}

// finishChargeLoop leaves energy transfer after PowerDelivery(Stop).
func (f *FSM) finishChargeLoop() transition {
	f.ctx.feedback.Signal(feedback.SignalChargeLoopFinished)
	if f.ctx.Session.Selected.EnergyService.IsAC() {
		return goTo(StateSessionStop)
	}
	f.ctx.feedback.Signal(feedback.SignalDCOpenContactor)
	return goTo(StateDCWeldingDetection)
}

func (f *FSM) dcChargeLoop(ev Event) transition {
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

	case *message.DCChargeLoopRequest:
		if f.local.chargeLoopEntry {
			f.ctx.feedback.Signal(feedback.SignalChargeLoopStarted)
			f.local.chargeLoopEntry = false
		}
		res := f.handleDCChargeLoop(req)
		f.ctx.Respond(res)
		if !res.ResponseCode.IsFailure() {
			f.ctx.feedback.DCChargeLoopReq(req)
		}
		return stay()
	}

	f.ctx.RespondSequenceError(msg)
	return stay()
}

func (f *FSM) handleDCChargeLoop(req *message.DCChargeLoopRequest) *message.DCChargeLoopResponse {
	res := &message.DCChargeLoopResponse{}
	if !f.ctx.checkHeader(req, res) {
		return res
	}

	selected := f.ctx.Session.Selected
	limits := f.ctx.Config.DCLimits
	mode, ok := req.ControlMode()
	bpt := req.IsBPT()

	// The vehicle must stay in the control mode and energy service it selected.
	if !ok || mode != selected.ControlMode || bpt != selected.EnergyService.IsBPT() || !selected.EnergyService.IsDC() {
		res.ResponseCode = message.ResponseFailed
		return res
	}
	if bpt && limits.Discharge == nil {
		f.ctx.log.Error("BPT charge loop without DC discharge limits")
		res.ResponseCode = message.ResponseFailed
		return res
	}

	switch mode {
	case message.ControlModeScheduled:
		res.Scheduled = scheduledDCLimits(limits, bpt)
	case message.ControlModeDynamic:
		res.Dynamic = dynamicDCLimits(limits, bpt)
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

	res.EVSEPresentVoltage = message.FromFloat(f.ctx.Cache.PresentVoltage)
	res.EVSEPresentCurrent = message.FromFloat(f.ctx.Cache.PresentCurrent)
	res.EVSEStatus = f.chargeLoopStatus()
	res.ResponseCode = message.ResponseOK
	return res
}

// chargeLoopStatus turns pending stop or pause requests into a notification.
func (f *FSM) chargeLoopStatus() *message.EVSEStatus {
	switch {
	case f.ctx.Cache.Stop:
		return &message.EVSEStatus{Notification: message.EVSENotificationTerminate}
	case f.ctx.Cache.Pause:
		var delay uint16
		if f.ctx.Session.Selected.ControlMode == message.ControlModeDynamic {
			delay = pauseNotificationDelayDynamic
		}
		return &message.EVSEStatus{NotificationMaxDelay: delay, Notification: message.EVSENotificationPause}
	default:
		return nil
	}
}

func scheduledDCLimits(l control.DCTransferLimits, bpt bool) *message.DCScheduledLoopRes {
	c := l.Charge
	res := &message.DCScheduledLoopRes{
		EVSEMaximumChargePower:   &c.EVSEMaximumChargePower,
		EVSEMinimumChargePower:   &c.EVSEMinimumChargePower,
		EVSEMaximumChargeCurrent: &c.EVSEMaximumChargeCurrent,
		EVSEMaximumVoltage:       &c.EVSEMaximumVoltage,
	}
	if bpt {
		d := *l.Discharge
		res.EVSEMinimumVoltage = &c.EVSEMinimumVoltage
		res.EVSEMaximumDischargePower = &d.EVSEMaximumDischargePower
		res.EVSEMinimumDischargePower = &d.EVSEMinimumDischargePower
		res.EVSEMaximumDischargeCurrent = &d.EVSEMaximumDischargeCurrent
	}
	return res
}

func dynamicDCLimits(l control.DCTransferLimits, bpt bool) *message.DCDynamicLoopRes {
	c := l.Charge
	res := &message.DCDynamicLoopRes{
		EVSEMaximumChargePower:   c.EVSEMaximumChargePower,
		EVSEMinimumChargePower:   c.EVSEMinimumChargePower,
		EVSEMaximumChargeCurrent: c.EVSEMaximumChargeCurrent,
		EVSEMaximumVoltage:       c.EVSEMaximumVoltage,
	}
	if bpt {
		d := *l.Discharge
		res.EVSEMinimumVoltage = &c.EVSEMinimumVoltage
		res.EVSEMaximumDischargePower = &d.EVSEMaximumDischargePower
		res.EVSEMinimumDischargePower = &d.EVSEMinimumDischargePower
		res.EVSEMaximumDischargeCurrent = &d.EVSEMaximumDischargeCurrent
	}
	return res
}

func (f *FSM) dcWeldingDetection(ev Event) transition {
	msg := f.pull(ev)
	if msg == nil {
		return stay()
	}
	req, ok := msg.(*message.DCWeldingDetectionRequest)
	if !ok {
		f.ctx.RespondSequenceError(msg)
		return stay()
	}

	res := &message.DCWeldingDetectionResponse{}
	if !f.ctx.checkHeader(req, res) {
		f.ctx.Respond(res)
		return stay()
	}
	res.EVSEPresentVoltage = message.FromFloat(f.ctx.Cache.PresentVoltage)
	res.ResponseCode = message.ResponseOK
	f.ctx.Respond(res)
	return stay()
}
