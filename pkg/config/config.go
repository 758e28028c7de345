// Package config loads the SECC configuration file.
//
// The file is YAML. Unknown keys are rejected so typos do not silently fall
// back to defaults. Command-line flags of the daemon override file values.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/evse-go/iso15118/pkg/control"
	"github.com/evse-go/iso15118/pkg/d20"
	"github.com/evse-go/iso15118/pkg/message"
	"github.com/evse-go/iso15118/pkg/session"
	"github.com/evse-go/iso15118/pkg/timeout"
	"github.com/evse-go/iso15118/pkg/transport"
	"github.com/evse-go/iso15118/pkg/v2gtp"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete SECC configuration.
type Config struct {
	Listen  ListenConfig  `yaml:"listen"`
	TLS     TLSConfig     `yaml:"tls"`
	EVSE    EVSEConfig    `yaml:"evse"`
	Session SessionConfig `yaml:"session"`
	State   StateConfig   `yaml:"state"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ListenConfig configures the TCP listener.
type ListenConfig struct {
	Address        string `yaml:"address"`
	MaxConnections int    `yaml:"max_connections"`
}

// TLSConfig names the credential files.
type TLSConfig struct {
	// Cert is the SECC chain, leaf first.
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`

	// OCSP is a DER OCSP response stapled in the handshake (optional).
	OCSP string `yaml:"ocsp"`

	// VehicleRoots verifies vehicle certificates.
	VehicleRoots string `yaml:"vehicle_roots"`

	// ClientAuth is none, optional or required.
	ClientAuth string `yaml:"client_auth"`

	// KeyLog receives NSS key log lines for traffic decryption (debug only).
	KeyLog string `yaml:"key_log"`

	// DevPKI generates a throwaway root and SECC certificate at startup
	// instead of reading Cert and Key.
	DevPKI bool `yaml:"dev_pki"`
}

// EVSEConfig is the station setup offered to vehicles.
type EVSEConfig struct {
	ID                   string              `yaml:"id"`
	EnergyServices       []string            `yaml:"energy_services"`
	Authorization        []string            `yaml:"authorization"`
	AutoAuthorize        bool                `yaml:"auto_authorize"`
	ServiceRenegotiation bool                `yaml:"service_renegotiation"`
	ACNominalVoltage     int32               `yaml:"ac_nominal_voltage"`
	ControlModes         []ControlModeConfig `yaml:"control_modes"`
	DCLimits             DCLimitsConfig      `yaml:"dc_limits"`
	ACLimits             ACLimitsConfig      `yaml:"ac_limits"`
}

// ControlModeConfig is one offered control mode with its mobility needs
// mode.
type ControlModeConfig struct {
	// Mode is scheduled or dynamic.
	Mode string `yaml:"mode"`

	// MobilityNeeds is evcc or secc.
	MobilityNeeds string `yaml:"mobility_needs"`
}

// DCLimitsConfig are the station's DC charge limits in W, A and V.
type DCLimitsConfig struct {
	MaxPower   float64 `yaml:"max_power"`
	MinPower   float64 `yaml:"min_power"`
	MaxCurrent float64 `yaml:"max_current"`
	MinCurrent float64 `yaml:"min_current"`
	MaxVoltage float64 `yaml:"max_voltage"`
	MinVoltage float64 `yaml:"min_voltage"`
}

// ACLimitsConfig are the station's AC charge limits in W and Hz.
type ACLimitsConfig struct {
	MaxPower         float64 `yaml:"max_power"`
	MinPower         float64 `yaml:"min_power"`
	NominalFrequency float64 `yaml:"nominal_frequency"`
}

// SessionConfig tunes the session driver.
type SessionConfig struct {
	SequenceTimeout           time.Duration `yaml:"sequence_timeout"`
	CommunicationSetupTimeout time.Duration `yaml:"communication_setup_timeout"`
	CloseLinger               time.Duration `yaml:"close_linger"`
	MaxPayloadSize            uint32        `yaml:"max_payload_size"`
}

// StateConfig locates the persistent state file.
type StateConfig struct {
	// File keeps the pause context across restarts. Empty keeps it in
	// memory only.
	File string `yaml:"file"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`

	// Protocol is a .v2glog capture file (optional).
	Protocol string `yaml:"protocol"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Address serves /metrics when set.
	Address string `yaml:"address"`
}

// Default returns a configuration for a DC station with EIM and a
// generated development PKI.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{
			Address:        fmt.Sprintf("[::]:%d", transport.DefaultPort),
			MaxConnections: 1,
		},
		TLS: TLSConfig{
			ClientAuth: transport.ClientAuthOptional.String(),
			DevPKI:     true,
		},
		EVSE: EVSEConfig{
			ID:             "DE*EVG*E0000001*1",
			EnergyServices: []string{message.ServiceDC.String()},
			Authorization:  []string{message.AuthorizationEIM.String()},
			AutoAuthorize:  true,
			ControlModes:   []ControlModeConfig{{Mode: "scheduled", MobilityNeeds: "evcc"}},
			DCLimits: DCLimitsConfig{
				MaxPower:   150000,
				MaxCurrent: 400,
				MaxVoltage: 900,
				MinVoltage: 150,
			},
			ACLimits: ACLimitsConfig{
				MaxPower:         22000,
				MinPower:         1380,
				NominalFrequency: 50,
			},
		},
		Session: SessionConfig{
			SequenceTimeout:           timeout.SequenceTimeout,
			CommunicationSetupTimeout: timeout.CommunicationSetupTimeout,
			CloseLinger:               session.DefaultCloseLinger,
			MaxPayloadSize:            v2gtp.DefaultMaxPayloadSize,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.decode(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML from r over the defaults and validates the result.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(r); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	check(c.Listen.Address != "", "listen.address is empty")
	check(c.Listen.MaxConnections >= 0, "listen.max_connections is negative")

	auth, err := transport.ParseClientAuth(c.TLS.ClientAuth)
	check(err == nil, "tls.client_auth %q", c.TLS.ClientAuth)
	if !c.TLS.DevPKI {
		check(c.TLS.Cert != "" && c.TLS.Key != "", "tls.cert and tls.key are required without dev_pki")
		check(auth == transport.ClientAuthNone || c.TLS.VehicleRoots != "",
			"tls.vehicle_roots is required for client_auth %s", auth)
	}

	check(c.EVSE.ID != "", "evse.id is empty")
	check(len(c.EVSE.EnergyServices) > 0, "evse.energy_services is empty")
	if _, err := c.energyServices(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.authorizationServices(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.controlModes(); err != nil {
		errs = append(errs, err)
	}

	dc := c.EVSE.DCLimits
	check(dc.MaxPower >= dc.MinPower, "evse.dc_limits.max_power below min_power")
	check(dc.MaxCurrent >= dc.MinCurrent, "evse.dc_limits.max_current below min_current")
	check(dc.MaxVoltage >= dc.MinVoltage, "evse.dc_limits.max_voltage below min_voltage")
	ac := c.EVSE.ACLimits
	check(ac.MaxPower >= ac.MinPower, "evse.ac_limits.max_power below min_power")

	check(c.Session.SequenceTimeout > 0, "session.sequence_timeout must be positive")
	check(c.Session.CommunicationSetupTimeout > 0, "session.communication_setup_timeout must be positive")
	check(c.Session.CloseLinger >= 0, "session.close_linger is negative")
	check(c.Session.MaxPayloadSize > 0 && c.Session.MaxPayloadSize <= v2gtp.DefaultMaxPayloadSize,
		"session.max_payload_size %d out of range", c.Session.MaxPayloadSize)

	_, err = ParseLevel(c.Log.Level)
	check(err == nil, "log.level %q", c.Log.Level)

	return errors.Join(errs...)
}

// ClientAuth returns the parsed client authentication mode.
func (c *Config) ClientAuth() transport.ClientAuth {
	auth, _ := transport.ParseClientAuth(c.TLS.ClientAuth)
	return auth
}

// EvseSetup converts the EVSE section into the state machine setup.
func (c *Config) EvseSetup() (d20.EvseSetupConfig, error) {
	services, err := c.energyServices()
	if err != nil {
		return d20.EvseSetupConfig{}, err
	}
	auth, err := c.authorizationServices()
	if err != nil {
		return d20.EvseSetupConfig{}, err
	}
	modes, err := c.controlModes()
	if err != nil {
		return d20.EvseSetupConfig{}, err
	}

	dc, ac := c.EVSE.DCLimits, c.EVSE.ACLimits
	return d20.EvseSetupConfig{
		EVSEID:                        c.EVSE.ID,
		SupportedEnergyServices:       services,
		AuthorizationServices:         auth,
		AutoAuthorize:                 c.EVSE.AutoAuthorize,
		ServiceRenegotiationSupported: c.EVSE.ServiceRenegotiation,
		ACNominalVoltage:              c.EVSE.ACNominalVoltage,
		ControlMobilityModes:          modes,
		DCLimits: control.DCTransferLimits{Charge: message.DCEVSEChargeParameters{
			EVSEMaximumChargePower:   message.FromFloat(dc.MaxPower),
			EVSEMinimumChargePower:   message.FromFloat(dc.MinPower),
			EVSEMaximumChargeCurrent: message.FromFloat(dc.MaxCurrent),
			EVSEMinimumChargeCurrent: message.FromFloat(dc.MinCurrent),
			EVSEMaximumVoltage:       message.FromFloat(dc.MaxVoltage),
			EVSEMinimumVoltage:       message.FromFloat(dc.MinVoltage),
		}},
		ACLimits: control.ACTransferLimits{Charge: message.ACEVSEChargeParameters{
			EVSEMaximumChargePower: message.FromFloat(ac.MaxPower),
			EVSEMinimumChargePower: message.FromFloat(ac.MinPower),
			EVSENominalFrequency:   message.FromFloat(ac.NominalFrequency),
		}},
	}, nil
}

// SessionConfig returns the session driver settings. Callbacks, stores and
// loggers are left for the caller.
func (c *Config) SessionConfig() (session.Config, error) {
	setup, err := c.EvseSetup()
	if err != nil {
		return session.Config{}, err
	}
	return session.Config{
		Setup:                     setup,
		SequenceTimeout:           c.Session.SequenceTimeout,
		CommunicationSetupTimeout: c.Session.CommunicationSetupTimeout,
		CloseLinger:               c.Session.CloseLinger,
		MaxPayloadSize:            c.Session.MaxPayloadSize,
	}, nil
}

var energyServiceNames = map[string]message.ServiceID{
	"dc": message.ServiceDC,
	"ac": message.ServiceAC,
}

func (c *Config) energyServices() ([]message.ServiceID, error) {
	var out []message.ServiceID
	for _, name := range c.EVSE.EnergyServices {
		id, ok := energyServiceNames[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("%w: evse.energy_services: unsupported service %q", ErrInvalid, name)
		}
		out = append(out, id)
	}
	return out, nil
}

func (c *Config) authorizationServices() ([]message.Authorization, error) {
	var out []message.Authorization
	for _, name := range c.EVSE.Authorization {
		switch strings.ToLower(name) {
		case "eim":
			out = append(out, message.AuthorizationEIM)
		case "pnc":
			out = append(out, message.AuthorizationPnC)
		default:
			return nil, fmt.Errorf("%w: evse.authorization: unknown service %q", ErrInvalid, name)
		}
	}
	return out, nil
}

func (c *Config) controlModes() ([]d20.ControlMobilityNeedsMode, error) {
	var out []d20.ControlMobilityNeedsMode
	for i, m := range c.EVSE.ControlModes {
		var mode d20.ControlMobilityNeedsMode
		switch strings.ToLower(m.Mode) {
		case "scheduled":
			mode.ControlMode = message.ControlModeScheduled
		case "dynamic":
			mode.ControlMode = message.ControlModeDynamic
		default:
			return nil, fmt.Errorf("%w: evse.control_modes[%d]: unknown mode %q", ErrInvalid, i, m.Mode)
		}
		switch strings.ToLower(m.MobilityNeeds) {
		case "", "evcc":
			mode.MobilityNeedsMode = message.MobilityNeedsProvidedByEVCC
		case "secc":
			mode.MobilityNeedsMode = message.MobilityNeedsProvidedBySECC
		default:
			return nil, fmt.Errorf("%w: evse.control_modes[%d]: unknown mobility needs %q", ErrInvalid, i, m.MobilityNeeds)
		}
		out = append(out, mode)
	}
	return out, nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}
