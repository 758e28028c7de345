package message

import (
	"encoding/hex"
	"fmt"
	"math"
)

// SessionIDSize is the length of an ISO 15118-20 session id.
const SessionIDSize = 8

// SessionID is the 8-byte identifier negotiated in SessionSetup.
type SessionID [SessionIDSize]byte

// IsZero returns true for the all-zero id sent by a vehicle starting a new session.
func (id SessionID) IsZero() bool {
	return id == SessionID{}
}

// String returns the id as upper-case hex.
func (id SessionID) String() string {
	return fmt.Sprintf("%X", id[:])
}

// MarshalText encodes the id as hex.
func (id SessionID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText decodes a hex id.
func (id *SessionID) UnmarshalText(text []byte) error {
	parsed, err := ParseSessionID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseSessionID parses a 16 character hex string.
func ParseSessionID(s string) (SessionID, error) {
	var id SessionID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("parse session id: %w", err)
	}
	if len(b) != SessionIDSize {
		return id, fmt.Errorf("parse session id: want %d bytes, got %d", SessionIDSize, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// Header is carried by every ISO 15118-20 request and response.
type Header struct {
	SessionID SessionID `cbor:"1,keyasint"`
	Timestamp uint64    `cbor:"2,keyasint"` // seconds since Unix epoch
}

// RationalNumber is a physical value encoded as Value * 10^Exponent.
type RationalNumber struct {
	Exponent int8  `cbor:"1,keyasint"`
	Value    int16 `cbor:"2,keyasint"`
}

// Float returns the value as float64.
func (r RationalNumber) Float() float64 {
	return float64(r.Value) * math.Pow10(int(r.Exponent))
}

// FromFloat converts f to the RationalNumber with the smallest exponent
// whose value still fits into int16.
func FromFloat(f float64) RationalNumber {
	for exp := -3; exp <= 3; exp++ {
		v := math.Round(f / math.Pow10(exp))
		if v >= math.MinInt16 && v <= math.MaxInt16 {
			return RationalNumber{Exponent: int8(exp), Value: int16(v)}
		}
	}
	if f < 0 {
		return RationalNumber{Exponent: 3, Value: math.MinInt16}
	}
	return RationalNumber{Exponent: 3, Value: math.MaxInt16}
}

// String formats the value with its exponent applied.
func (r RationalNumber) String() string {
	return fmt.Sprintf("%g", r.Float())
}

// ResponseCode is the ISO 15118-20 response code. Codes are ordered so that
// every code >= ResponseFailed is a failure.
type ResponseCode uint8

// Response codes.
const (
	ResponseOK ResponseCode = iota
	ResponseOKCertificateExpiresSoon
	ResponseOKNewSessionEstablished
	ResponseOKOldSessionJoined
	ResponseOKPowerToleranceConfirmed
	ResponseWarningAuthorizationSelectionInvalid
	ResponseWarningCertificateExpired
	ResponseWarningCertificateNotYetValid
	ResponseWarningCertificateRevoked
	ResponseWarningCertificateValidationError
	ResponseWarningChallengeInvalid
	ResponseWarningEIMAuthorizationFailure
	ResponseWarningEMSPUnknown
	ResponseWarningEVPowerProfileViolation
	ResponseWarningGeneralPnCAuthorizationError
	ResponseWarningNoCertificateAvailable
	ResponseWarningNoContractMatchingPCIDFound
	ResponseWarningPowerToleranceNotConfirmed
	ResponseWarningScheduleRenegotiationFailed
	ResponseWarningStandbyNotAllowed
	ResponseWarningWPT
	ResponseFailed
	ResponseFailedAssociationError
	ResponseFailedContactorError
	ResponseFailedEVPowerProfileInvalid
	ResponseFailedEVPowerProfileViolation
	ResponseFailedMeteringSignatureNotValid
	ResponseFailedNoEnergyTransferServiceSelected
	ResponseFailedNoServiceRenegotiationSupported
	ResponseFailedPauseNotAllowed
	ResponseFailedPowerDeliveryNotApplied
	ResponseFailedPowerToleranceNotConfirmed
	ResponseFailedScheduleRenegotiation
	ResponseFailedScheduleSelectionInvalid
	ResponseFailedSequenceError
	ResponseFailedServiceIDInvalid
	ResponseFailedServiceSelectionInvalid
	ResponseFailedSignatureError
	ResponseFailedUnknownSession
	ResponseFailedWrongChargeParameter
)

var responseCodeNames = [...]string{
	"OK",
	"OK_CertificateExpiresSoon",
	"OK_NewSessionEstablished",
	"OK_OldSessionJoined",
	"OK_PowerToleranceConfirmed",
	"WARNING_AuthorizationSelectionInvalid",
	"WARNING_CertificateExpired",
	"WARNING_CertificateNotYetValid",
	"WARNING_CertificateRevoked",
	"WARNING_CertificateValidationError",
	"WARNING_ChallengeInvalid",
	"WARNING_EIMAuthorizationFailure",
	"WARNING_eMSPUnknown",
	"WARNING_EVPowerProfileViolation",
	"WARNING_GeneralPnCAuthorizationError",
	"WARNING_NoCertificateAvailable",
	"WARNING_NoContractMatchingPCIDFound",
	"WARNING_PowerToleranceNotConfirmed",
	"WARNING_ScheduleRenegotiationFailed",
	"WARNING_StandbyNotAllowed",
	"WARNING_WPT",
	"FAILED",
	"FAILED_AssociationError",
	"FAILED_ContactorError",
	"FAILED_EVPowerProfileInvalid",
	"FAILED_EVPowerProfileViolation",
	"FAILED_MeteringSignatureNotValid",
	"FAILED_NoEnergyTransferServiceSelected",
	"FAILED_NoServiceRenegotiationSupported",
	"FAILED_PauseNotAllowed",
	"FAILED_PowerDeliveryNotApplied",
	"FAILED_PowerToleranceNotConfirmed",
	"FAILED_ScheduleRenegotiation",
	"FAILED_ScheduleSelectionInvalid",
	"FAILED_SequenceError",
	"FAILED_ServiceIDInvalid",
	"FAILED_ServiceSelectionInvalid",
	"FAILED_SignatureError",
	"FAILED_UnknownSession",
	"FAILED_WrongChargeParameter",
}

// String returns the ISO 15118-20 name of the code.
func (c ResponseCode) String() string {
	if int(c) < len(responseCodeNames) {
		return responseCodeNames[c]
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(c))
}

// IsValid returns true for every defined response code.
func (c ResponseCode) IsValid() bool {
	return int(c) < len(responseCodeNames)
}

// IsFailure returns true for FAILED and every FAILED_* code.
func (c ResponseCode) IsFailure() bool {
	return c >= ResponseFailed
}

// ServiceID identifies an energy transfer service or value added service.
type ServiceID uint16

// Energy transfer and value added services.
const (
	ServiceAC          ServiceID = 1
	ServiceDC          ServiceID = 2
	ServiceWPT         ServiceID = 3
	ServiceDCACDP      ServiceID = 4
	ServiceACBPT       ServiceID = 5
	ServiceDCBPT       ServiceID = 6
	ServiceDCACDPBPT   ServiceID = 7
	ServiceMCS         ServiceID = 8
	ServiceMCSBPT      ServiceID = 9
	ServiceInternet    ServiceID = 65
	ServiceParkingInfo ServiceID = 66
)

// String returns the service name.
func (s ServiceID) String() string {
	switch s {
	case ServiceAC:
		return "AC"
	case ServiceDC:
		return "DC"
	case ServiceWPT:
		return "WPT"
	case ServiceDCACDP:
		return "DC_ACDP"
	case ServiceACBPT:
		return "AC_BPT"
	case ServiceDCBPT:
		return "DC_BPT"
	case ServiceDCACDPBPT:
		return "DC_ACDP_BPT"
	case ServiceMCS:
		return "MCS"
	case ServiceMCSBPT:
		return "MCS_BPT"
	case ServiceInternet:
		return "Internet"
	case ServiceParkingInfo:
		return "ParkingStatus"
	default:
		return fmt.Sprintf("Service(%d)", uint16(s))
	}
}

// IsEnergyTransfer returns true for energy transfer services.
func (s ServiceID) IsEnergyTransfer() bool {
	return s >= ServiceAC && s <= ServiceMCSBPT
}

// IsDC returns true for the DC family of energy transfer services.
func (s ServiceID) IsDC() bool {
	switch s {
	case ServiceDC, ServiceDCBPT, ServiceDCACDP, ServiceDCACDPBPT, ServiceMCS, ServiceMCSBPT:
		return true
	}
	return false
}

// IsAC returns true for the AC family of energy transfer services.
func (s ServiceID) IsAC() bool {
	return s == ServiceAC || s == ServiceACBPT
}

// IsBPT returns true for bidirectional power transfer services.
func (s ServiceID) IsBPT() bool {
	switch s {
	case ServiceACBPT, ServiceDCBPT, ServiceDCACDPBPT, ServiceMCSBPT:
		return true
	}
	return false
}

// Authorization is an authorization service.
type Authorization uint8

const (
	AuthorizationEIM Authorization = 0 // external identification means
	AuthorizationPnC Authorization = 1 // plug and charge
)

func (a Authorization) String() string {
	switch a {
	case AuthorizationEIM:
		return "EIM"
	case AuthorizationPnC:
		return "PnC"
	default:
		return fmt.Sprintf("Authorization(%d)", uint8(a))
	}
}

// Processing reports whether a party has finished processing.
type Processing uint8

const (
	ProcessingFinished                            Processing = 0
	ProcessingOngoing                             Processing = 1
	ProcessingOngoingWaitingForCustomerInteraction Processing = 2
)

func (p Processing) String() string {
	switch p {
	case ProcessingFinished:
		return "Finished"
	case ProcessingOngoing:
		return "Ongoing"
	case ProcessingOngoingWaitingForCustomerInteraction:
		return "Ongoing_WaitingForCustomerInteraction"
	default:
		return fmt.Sprintf("Processing(%d)", uint8(p))
	}
}

// ControlMode is the charge control mode negotiated in ServiceSelection.
type ControlMode uint8

const (
	ControlModeScheduled ControlMode = 1
	ControlModeDynamic   ControlMode = 2
)

func (m ControlMode) String() string {
	switch m {
	case ControlModeScheduled:
		return "Scheduled"
	case ControlModeDynamic:
		return "Dynamic"
	default:
		return fmt.Sprintf("ControlMode(%d)", uint8(m))
	}
}

// MobilityNeedsMode tells who provides mobility needs in dynamic mode.
type MobilityNeedsMode uint8

const (
	MobilityNeedsProvidedByEVCC MobilityNeedsMode = 1
	MobilityNeedsProvidedBySECC MobilityNeedsMode = 2
)

// Pricing is the tariff representation offered by the station.
type Pricing uint8

const (
	PricingNone        Pricing = 0
	PricingAbsolute    Pricing = 1
	PricingPriceLevels Pricing = 2
)

// DCConnector is the DC connector type.
type DCConnector uint8

const (
	DCConnectorCore     DCConnector = 1
	DCConnectorExtended DCConnector = 2
	DCConnectorDual2    DCConnector = 3
	DCConnectorDual4    DCConnector = 4
)

// ACConnector is the AC connector type.
type ACConnector uint8

const (
	ACConnectorSinglePhase ACConnector = 1
	ACConnectorThreePhase  ACConnector = 3
)

// BPTChannel is the bidirectional channel layout.
type BPTChannel uint8

const (
	BPTChannelUnified   BPTChannel = 1
	BPTChannelSeparated BPTChannel = 2
)

// GeneratorMode is the grid behaviour during discharge.
type GeneratorMode uint8

const (
	GeneratorModeGridFollowing GeneratorMode = 1
	GeneratorModeGridForming   GeneratorMode = 2
)

// ChargeProgress is the vehicle's PowerDelivery intent.
type ChargeProgress uint8

const (
	ChargeProgressStart                 ChargeProgress = 0
	ChargeProgressStop                  ChargeProgress = 1
	ChargeProgressStandby               ChargeProgress = 2
	ChargeProgressScheduleRenegotiation ChargeProgress = 3
)

func (p ChargeProgress) String() string {
	switch p {
	case ChargeProgressStart:
		return "Start"
	case ChargeProgressStop:
		return "Stop"
	case ChargeProgressStandby:
		return "Standby"
	case ChargeProgressScheduleRenegotiation:
		return "ScheduleRenegotiation"
	default:
		return fmt.Sprintf("ChargeProgress(%d)", uint8(p))
	}
}

// ChargingSession is the vehicle's SessionStop intent.
type ChargingSession uint8

const (
	ChargingSessionPause                ChargingSession = 0
	ChargingSessionTerminate            ChargingSession = 1
	ChargingSessionServiceRenegotiation ChargingSession = 2
)

func (c ChargingSession) String() string {
	switch c {
	case ChargingSessionPause:
		return "Pause"
	case ChargingSessionTerminate:
		return "Terminate"
	case ChargingSessionServiceRenegotiation:
		return "ServiceRenegotiation"
	default:
		return fmt.Sprintf("ChargingSession(%d)", uint8(c))
	}
}

// EVSENotification asks the vehicle to act during the charge loop.
type EVSENotification uint8

const (
	EVSENotificationPause                 EVSENotification = 0
	EVSENotificationExitStandby           EVSENotification = 1
	EVSENotificationTerminate             EVSENotification = 2
	EVSENotificationScheduleRenegotiation EVSENotification = 3
	EVSENotificationServiceRenegotiation  EVSENotification = 4
	EVSENotificationMeteringConfirmation  EVSENotification = 5
)

func (n EVSENotification) String() string {
	switch n {
	case EVSENotificationPause:
		return "Pause"
	case EVSENotificationExitStandby:
		return "ExitStandby"
	case EVSENotificationTerminate:
		return "Terminate"
	case EVSENotificationScheduleRenegotiation:
		return "ScheduleRenegotiation"
	case EVSENotificationServiceRenegotiation:
		return "ServiceRenegotiation"
	case EVSENotificationMeteringConfirmation:
		return "MeteringConfirmation"
	default:
		return fmt.Sprintf("EVSENotification(%d)", uint8(n))
	}
}

// EVSEStatus carries a notification and the delay the vehicle may take to
// react to it.
type EVSEStatus struct {
	NotificationMaxDelay uint16           `cbor:"1,keyasint"` // seconds
	Notification         EVSENotification `cbor:"2,keyasint"`
}

// Service is an entry of the ServiceDiscovery service lists.
type Service struct {
	ServiceID   ServiceID `cbor:"1,keyasint"`
	FreeService bool      `cbor:"2,keyasint"`
}

// Parameter is a named value of a service parameter set. Exactly one of the
// value fields is set.
type Parameter struct {
	Name     string          `cbor:"1,keyasint"`
	Bool     *bool           `cbor:"2,keyasint,omitempty"`
	Int      *int32          `cbor:"3,keyasint,omitempty"`
	Finite   *string         `cbor:"4,keyasint,omitempty"`
	Rational *RationalNumber `cbor:"5,keyasint,omitempty"`
}

// IntParameter returns a parameter carrying an integer value.
func IntParameter(name string, v int32) Parameter {
	return Parameter{Name: name, Int: &v}
}

// ParameterSet is one selectable parameter combination of a service.
type ParameterSet struct {
	ID         uint16      `cbor:"1,keyasint"`
	Parameters []Parameter `cbor:"2,keyasint"`
}

// Lookup returns the integer value of the named parameter.
func (p ParameterSet) Lookup(name string) (int32, bool) {
	for _, param := range p.Parameters {
		if param.Name == name && param.Int != nil {
			return *param.Int, true
		}
	}
	return 0, false
}

// SelectedService is a service together with the chosen parameter set.
type SelectedService struct {
	ServiceID      ServiceID `cbor:"1,keyasint"`
	ParameterSetID uint16    `cbor:"2,keyasint"`
}

// PowerScheduleEntry is one step of a power schedule or profile.
type PowerScheduleEntry struct {
	Duration uint32         `cbor:"1,keyasint"` // seconds
	Power    RationalNumber `cbor:"2,keyasint"`
}

// PowerSchedule is the station's charging schedule offered in scheduled mode.
type PowerSchedule struct {
	TimeAnchor uint64               `cbor:"1,keyasint"`
	Entries    []PowerScheduleEntry `cbor:"2,keyasint"`
}

// ScheduleTuple is one offered schedule.
type ScheduleTuple struct {
	ID               uint32        `cbor:"1,keyasint"`
	ChargingSchedule PowerSchedule `cbor:"2,keyasint"`
}
