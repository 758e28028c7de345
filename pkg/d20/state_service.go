package d20

import (
	"slices"

	"github.com/evse-go/iso15118/pkg/message"
)

func (f *FSM) serviceDiscovery(ev Event) transition {
	msg := f.pull(ev)
	if msg == nil {
		return stay()
	}
	req, ok := msg.(*message.ServiceDiscoveryRequest)
	if !ok {
		f.ctx.RespondSequenceError(msg)
		return stay()
	}

	res := &message.ServiceDiscoveryResponse{}
	if !f.ctx.checkHeader(req, res) {
		f.ctx.Respond(res)
		return stay()
	}

	energy := filterServices(f.ctx.Config.SupportedEnergyServices, req.SupportedServiceIDs)
	vas := filterServices(f.ctx.Config.VASServices, req.SupportedServiceIDs)
	if len(energy) == 0 {
		f.ctx.log.Warn("no energy transfer service to offer")
		res.ResponseCode = message.ResponseFailed
		f.ctx.Respond(res)
		return stay()
	}

	f.ctx.Session.Offered.EnergyServices = energy
	f.ctx.Session.Offered.VASServices = vas

	for _, id := range energy {
		res.EnergyTransferServices = append(res.EnergyTransferServices, message.Service{ServiceID: id})
	}
	for _, id := range vas {
		res.VASList = append(res.VASList, message.Service{ServiceID: id})
	}
	res.ServiceRenegotiationSupported = f.ctx.Config.ServiceRenegotiationSupported
	res.ResponseCode = message.ResponseOK
	f.ctx.Respond(res)
	return goTo(StateServiceDetail)
}

// filterServices returns the offered services, restricted to wanted when
// the vehicle named any.
func filterServices(offered, wanted []message.ServiceID) []message.ServiceID {
	if len(wanted) == 0 {
		return slices.Clone(offered)
	}
	var out []message.ServiceID
	for _, id := range offered {
		if slices.Contains(wanted, id) {
			out = append(out, id)
		}
	}
	return out
}

func (f *FSM) serviceDetail(ev Event) transition {
	if ev.Type != EventV2GTPMessage {
		return stay()
	}
	if _, ok := f.ctx.PeekRequest().(*message.ServiceSelectionRequest); ok {
		return handOver(StateServiceSelection)
	}

	msg := f.pull(ev)
	if msg == nil {
		return stay()
	}
	req, ok := msg.(*message.ServiceDetailRequest)
	if !ok {
		f.ctx.RespondSequenceError(msg)
		return stay()
	}

	f.ctx.Respond(f.handleServiceDetail(req))
	return stay()
}

func (f *FSM) handleServiceDetail(req *message.ServiceDetailRequest) *message.ServiceDetailResponse {
	res := &message.ServiceDetailResponse{ServiceID: message.ServiceDC}
	if !f.ctx.checkHeader(req, res) {
		return res
	}

	session := &f.ctx.Session
	if !session.IsOfferedEnergyService(req.ServiceID) && !session.IsOfferedVAS(req.ServiceID) {
		res.ResponseCode = message.ResponseFailedServiceIDInvalid
		return res
	}

	sets, ok := ParameterSets(&f.ctx.Config, req.ServiceID, f.ctx.feedback)
	if !ok {
		f.ctx.log.Warn("no parameter sets for service", "service", req.ServiceID)
		res.ResponseCode = message.ResponseFailedServiceIDInvalid
		return res
	}

	res.ServiceID = req.ServiceID
	res.ParameterSets = sets
	res.ResponseCode = message.ResponseOK
	return res
}

func (f *FSM) serviceSelection(ev Event) transition {
	msg := f.pull(ev)
	if msg == nil {
		return stay()
	}
	req, ok := msg.(*message.ServiceSelectionRequest)
	if !ok {
		f.ctx.RespondSequenceError(msg)
		return stay()
	}

	res := &message.ServiceSelectionResponse{}
	if !f.ctx.checkHeader(req, res) {
		f.ctx.Respond(res)
		return stay()
	}

	selected, code := f.selectServices(req)
	res.ResponseCode = code
	f.ctx.Respond(res)
	if code.IsFailure() {
		return stay()
	}

	f.ctx.Session.Selected = selected
	f.ctx.feedback.SelectedServices(req.SelectedEnergyTransferService, req.SelectedVASList)
	f.ctx.log.Info("services selected",
		"energy_service", selected.EnergyService,
		"control_mode", selected.ControlMode,
		"vas", len(selected.VAS))

	if selected.EnergyService.IsAC() {
		return goTo(StateACChargeParameterDiscovery)
	}
	return goTo(StateDCChargeParameterDiscovery)
}

func (f *FSM) selectServices(req *message.ServiceSelectionRequest) (SelectedServices, message.ResponseCode) {
	session := &f.ctx.Session
	energy := req.SelectedEnergyTransferService

	if !session.IsOfferedEnergyService(energy.ServiceID) {
		return SelectedServices{}, message.ResponseFailedNoEnergyTransferServiceSelected
	}
	if !energy.ServiceID.IsDC() && !energy.ServiceID.IsAC() {
		return SelectedServices{}, message.ResponseFailedServiceSelectionInvalid
	}

	sets, _ := ParameterSets(&f.ctx.Config, energy.ServiceID, f.ctx.feedback)
	set, ok := findParameterSet(sets, energy.ParameterSetID)
	if !ok {
		return SelectedServices{}, message.ResponseFailedServiceSelectionInvalid
	}

	for _, vas := range req.SelectedVASList {
		if !session.IsOfferedVAS(vas.ServiceID) {
			return SelectedServices{}, message.ResponseFailedServiceSelectionInvalid
		}
		vasSets, _ := ParameterSets(&f.ctx.Config, vas.ServiceID, f.ctx.feedback)
		if _, ok := findParameterSet(vasSets, vas.ParameterSetID); !ok {
			return SelectedServices{}, message.ResponseFailedServiceSelectionInvalid
		}
	}

	controlMode, _ := set.Lookup(ParamControlMode)
	mobility, _ := set.Lookup(ParamMobilityNeedsMode)

	return SelectedServices{
		EnergyService:     energy.ServiceID,
		ParameterSetID:    energy.ParameterSetID,
		ControlMode:       message.ControlMode(controlMode),
		MobilityNeedsMode: message.MobilityNeedsMode(mobility),
		VAS:               slices.Clone(req.SelectedVASList),
	}, message.ResponseOK
}
