package d20

import (
	"slices"

	"github.com/evse-go/iso15118/pkg/control"
	"github.com/evse-go/iso15118/pkg/message"
)

// DefaultACNominalVoltage is used when the setup names none.
const DefaultACNominalVoltage = 230

// ControlMobilityNeedsMode is a supported combination of control mode and
// mobility needs mode.
type ControlMobilityNeedsMode struct {
	ControlMode       message.ControlMode
	MobilityNeedsMode message.MobilityNeedsMode
}

// DCParameterSet describes one offered DC parameter set.
type DCParameterSet struct {
	Connector         message.DCConnector
	ControlMode       message.ControlMode
	MobilityNeedsMode message.MobilityNeedsMode
	Pricing           message.Pricing
	BPTChannel        message.BPTChannel
	GeneratorMode     message.GeneratorMode
}

// ACParameterSet describes one offered AC parameter set.
type ACParameterSet struct {
	Connector         message.ACConnector
	ControlMode       message.ControlMode
	MobilityNeedsMode message.MobilityNeedsMode
	NominalVoltage    int32
	Pricing           message.Pricing
	BPTChannel        message.BPTChannel
	GeneratorMode     message.GeneratorMode
}

// InternetParameterSet describes the Internet value added service.
type InternetParameterSet struct {
	Protocol string // ftp, http or https
	Port     int32
}

// ParkingParameterSet describes the ParkingStatus value added service.
type ParkingParameterSet struct {
	IntendedService   int32
	ParkingStatusType int32
}

// EvseSetupConfig is the static station setup.
type EvseSetupConfig struct {
	EVSEID                        string
	SupportedEnergyServices       []message.ServiceID
	AuthorizationServices         []message.Authorization
	VASServices                   []message.ServiceID
	CertificateInstallService     bool
	DCLimits                      control.DCTransferLimits
	ACLimits                      control.ACTransferLimits
	ControlMobilityModes          []ControlMobilityNeedsMode
	ACNominalVoltage              int32
	ServiceRenegotiationSupported bool

	// AutoAuthorize accepts EIM authorization without waiting for an
	// AuthorizationResponse control event.
	AutoAuthorize bool

	InternetParameters []InternetParameterSet
	ParkingParameters  []ParkingParameterSet
}

// SessionConfig is the per-session configuration. It starts as a copy of
// the setup and is updated by control events.
type SessionConfig struct {
	EVSEID                        string
	SupportedEnergyServices       []message.ServiceID
	AuthorizationServices         []message.Authorization
	VASServices                   []message.ServiceID
	CertificateInstallService     bool
	DCLimits                      control.DCTransferLimits
	ACLimits                      control.ACTransferLimits
	ServiceRenegotiationSupported bool
	AutoAuthorize                 bool

	DCParameterList       []DCParameterSet
	ACParameterList       []ACParameterSet
	InternetParameterList []InternetParameterSet
	ParkingParameterList  []ParkingParameterSet
}

// NewSessionConfig derives the session configuration from setup.
func NewSessionConfig(setup EvseSetupConfig) SessionConfig {
	modes := setup.ControlMobilityModes
	if len(modes) == 0 {
		modes = []ControlMobilityNeedsMode{{
			ControlMode:       message.ControlModeScheduled,
			MobilityNeedsMode: message.MobilityNeedsProvidedByEVCC,
		}}
	}
	nominal := setup.ACNominalVoltage
	if nominal == 0 {
		nominal = DefaultACNominalVoltage
	}

	cfg := SessionConfig{
		EVSEID:                        setup.EVSEID,
		SupportedEnergyServices:       slices.Clone(setup.SupportedEnergyServices),
		AuthorizationServices:         slices.Clone(setup.AuthorizationServices),
		VASServices:                   slices.Clone(setup.VASServices),
		CertificateInstallService:     setup.CertificateInstallService,
		DCLimits:                      setup.DCLimits,
		ACLimits:                      setup.ACLimits,
		ServiceRenegotiationSupported: setup.ServiceRenegotiationSupported,
		AutoAuthorize:                 setup.AutoAuthorize,
		InternetParameterList:         slices.Clone(setup.InternetParameters),
		ParkingParameterList:          slices.Clone(setup.ParkingParameters),
	}
	if len(cfg.AuthorizationServices) == 0 {
		cfg.AuthorizationServices = []message.Authorization{message.AuthorizationEIM}
	}

	for _, m := range modes {
		mobility := m.MobilityNeedsMode
		// Scheduled mode has no station provided mobility needs.
		if m.ControlMode == message.ControlModeScheduled {
			mobility = message.MobilityNeedsProvidedByEVCC
		}
		cfg.DCParameterList = append(cfg.DCParameterList, DCParameterSet{
			Connector:         message.DCConnectorExtended,
			ControlMode:       m.ControlMode,
			MobilityNeedsMode: mobility,
			Pricing:           message.PricingNone,
			BPTChannel:        message.BPTChannelUnified,
			GeneratorMode:     message.GeneratorModeGridFollowing,
		})
		cfg.ACParameterList = append(cfg.ACParameterList, ACParameterSet{
			Connector:         message.ACConnectorThreePhase,
			ControlMode:       m.ControlMode,
			MobilityNeedsMode: mobility,
			NominalVoltage:    nominal,
			Pricing:           message.PricingNone,
			BPTChannel:        message.BPTChannelUnified,
			GeneratorMode:     message.GeneratorModeGridFollowing,
		})
	}
	return cfg
}

// SupportsNamespace reports whether any offered energy service matches the
// SupportedAppProtocol namespace ns.
func (c *SessionConfig) SupportsNamespace(ns string) bool {
	for _, s := range c.SupportedEnergyServices {
		switch {
		case ns == message.NamespaceISO20DC && s.IsDC():
			return true
		case ns == message.NamespaceISO20AC && s.IsAC():
			return true
		}
	}
	return false
}
