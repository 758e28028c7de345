package d20

import (
	"crypto/rand"
	"slices"
	"time"

	"github.com/evse-go/iso15118/pkg/message"
)

// OfferedServices are the services listed to the vehicle.
type OfferedServices struct {
	EnergyServices        []message.ServiceID
	VASServices           []message.ServiceID
	AuthorizationServices []message.Authorization
}

// SelectedServices is the vehicle's service selection.
type SelectedServices struct {
	EnergyService     message.ServiceID         `json:"energy_service"`
	ParameterSetID    uint16                    `json:"parameter_set_id"`
	ControlMode       message.ControlMode       `json:"control_mode"`
	MobilityNeedsMode message.MobilityNeedsMode `json:"mobility_needs_mode"`
	VAS               []message.SelectedService `json:"vas,omitempty"`
}

// Session is the protocol data of one negotiated session.
type Session struct {
	ID           message.SessionID
	Offered      OfferedServices
	Selected     SelectedServices
	GenChallenge []byte
}

// NewSession creates a session with a random non-zero id.
func NewSession() Session {
	return Session{ID: NewSessionID()}
}

// NewSessionID returns a random non-zero session id.
func NewSessionID() message.SessionID {
	var id message.SessionID
	for id.IsZero() {
		_, _ = rand.Read(id[:])
	}
	return id
}

// IsOfferedEnergyService reports whether id was listed in ServiceDiscovery.
func (s *Session) IsOfferedEnergyService(id message.ServiceID) bool {
	return slices.Contains(s.Offered.EnergyServices, id)
}

// IsOfferedVAS reports whether id was listed as value added service.
func (s *Session) IsOfferedVAS(id message.ServiceID) bool {
	return slices.Contains(s.Offered.VASServices, id)
}

// PauseContext is the record that lets a vehicle resume a paused session.
type PauseContext struct {
	SessionID message.SessionID `json:"session_id"`
	// CertHash is the SHA-512 digest of the vehicle certificate presented
	// when the session was paused. Empty when no certificate was presented.
	CertHash []byte           `json:"cert_hash,omitempty"`
	Selected SelectedServices `json:"selected"`
	PausedAt time.Time        `json:"paused_at"`
}

// PauseStore keeps at most one PauseContext across connections.
type PauseStore interface {
	Load() (PauseContext, bool, error)
	Save(PauseContext) error
	Clear() error
}
