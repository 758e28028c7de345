package d20

import (
	"github.com/evse-go/iso15118/pkg/feedback"
	"github.com/evse-go/iso15118/pkg/message"
)

// Parameter names of the service parameter sets.
const (
	ParamConnector         = "Connector"
	ParamControlMode       = "ControlMode"
	ParamMobilityNeedsMode = "MobilityNeedsMode"
	ParamNominalVoltage    = "EVSENominalVoltage"
	ParamPricing           = "Pricing"
	ParamBPTChannel        = "BPTChannel"
	ParamGeneratorMode     = "GeneratorMode"
	ParamProtocol          = "Protocol"
	ParamPort              = "Port"
	ParamIntendedService   = "IntendedService"
	ParamParkingStatusType = "ParkingStatusType"
)

// internetParameterSetIDs maps protocol and port to the ISO 15118-20 set id.
var internetParameterSetIDs = map[InternetParameterSet]uint16{
	{Protocol: "ftp", Port: 20}:    1,
	{Protocol: "ftp", Port: 21}:    2,
	{Protocol: "http", Port: 80}:   3,
	{Protocol: "https", Port: 443}: 4,
}

// ParameterSets returns the parameter sets offered for service id.
func ParameterSets(cfg *SessionConfig, id message.ServiceID, fb *feedback.Feedback) ([]message.ParameterSet, bool) {
	switch {
	case id.IsDC():
		sets := make([]message.ParameterSet, 0, len(cfg.DCParameterList))
		for i, p := range cfg.DCParameterList {
			params := []message.Parameter{
				message.IntParameter(ParamConnector, int32(p.Connector)),
				message.IntParameter(ParamControlMode, int32(p.ControlMode)),
				message.IntParameter(ParamMobilityNeedsMode, int32(p.MobilityNeedsMode)),
				message.IntParameter(ParamPricing, int32(p.Pricing)),
			}
			if id.IsBPT() {
				params = append(params,
					message.IntParameter(ParamBPTChannel, int32(p.BPTChannel)),
					message.IntParameter(ParamGeneratorMode, int32(p.GeneratorMode)),
				)
			}
			sets = append(sets, message.ParameterSet{ID: uint16(i), Parameters: params})
		}
		return sets, len(sets) > 0

	case id.IsAC():
		sets := make([]message.ParameterSet, 0, len(cfg.ACParameterList))
		for i, p := range cfg.ACParameterList {
			params := []message.Parameter{
				message.IntParameter(ParamConnector, int32(p.Connector)),
				message.IntParameter(ParamControlMode, int32(p.ControlMode)),
				message.IntParameter(ParamNominalVoltage, p.NominalVoltage),
				message.IntParameter(ParamMobilityNeedsMode, int32(p.MobilityNeedsMode)),
				message.IntParameter(ParamPricing, int32(p.Pricing)),
			}
			if id.IsBPT() {
				params = append(params,
					message.IntParameter(ParamBPTChannel, int32(p.BPTChannel)),
					message.IntParameter(ParamGeneratorMode, int32(p.GeneratorMode)),
				)
			}
			sets = append(sets, message.ParameterSet{ID: uint16(i), Parameters: params})
		}
		return sets, len(sets) > 0

	case id == message.ServiceInternet:
		var sets []message.ParameterSet
		for _, p := range cfg.InternetParameterList {
			setID, ok := internetParameterSetIDs[p]
			if !ok {
				continue
			}
			protocol := p.Protocol
			sets = append(sets, message.ParameterSet{ID: setID, Parameters: []message.Parameter{
				{Name: ParamProtocol, Finite: &protocol},
				message.IntParameter(ParamPort, p.Port),
			}})
		}
		return sets, len(sets) > 0

	case id == message.ServiceParkingInfo:
		var sets []message.ParameterSet
		for i, p := range cfg.ParkingParameterList {
			sets = append(sets, message.ParameterSet{ID: uint16(i), Parameters: []message.Parameter{
				message.IntParameter(ParamIntendedService, p.IntendedService),
				message.IntParameter(ParamParkingStatusType, p.ParkingStatusType),
			}})
		}
		return sets, len(sets) > 0

	default:
		sets, ok := fb.VASParameters(id)
		return sets, ok && len(sets) > 0
	}
}

func findParameterSet(sets []message.ParameterSet, id uint16) (message.ParameterSet, bool) {
	for _, s := range sets {
		if s.ID == id {
			return s, true
		}
	}
	return message.ParameterSet{}, false
}
