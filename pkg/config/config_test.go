package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evse-go/iso15118/pkg/message"
	"github.com/evse-go/iso15118/pkg/timeout"
	"github.com/evse-go/iso15118/pkg/transport"
)

const sampleConfig = `
listen:
  address: "127.0.0.1:15118"
  max_connections: 2
tls:
  cert: /etc/evse/secc.pem
  key: /etc/evse/secc.key
  ocsp: /etc/evse/secc.ocsp
  vehicle_roots: /etc/evse/v2g-root.pem
  client_auth: required
  dev_pki: false
evse:
  id: "DE*PNX*E12345*1"
  energy_services: [DC, AC]
  authorization: [EIM, PnC]
  auto_authorize: false
  service_renegotiation: true
  control_modes:
    - mode: scheduled
    - mode: dynamic
      mobility_needs: secc
  dc_limits:
    max_power: 350000
    max_current: 500
    max_voltage: 1000
    min_voltage: 200
session:
  sequence_timeout: 30s
  close_linger: 2s
state:
  file: /var/lib/evse/state.json
log:
  level: debug
  protocol: /var/log/evse/session.v2glog
metrics:
  address: ":9100"
`

func TestDefaultIsValid(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.TLS.DevPKI)
	assert.Equal(t, transport.ClientAuthOptional, cfg.ClientAuth())
	assert.Equal(t, timeout.SequenceTimeout, cfg.Session.SequenceTimeout)

	setup, err := cfg.EvseSetup()
	require.NoError(t, err)
	assert.Equal(t, []message.ServiceID{message.ServiceDC}, setup.SupportedEnergyServices)
	assert.Equal(t, []message.Authorization{message.AuthorizationEIM}, setup.AuthorizationServices)
}

func TestParse(t *testing.T) {
	cfg, err := Parse(strings.NewReader(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:15118", cfg.Listen.Address)
	assert.Equal(t, 2, cfg.Listen.MaxConnections)
	assert.Equal(t, transport.ClientAuthRequired, cfg.ClientAuth())
	assert.Equal(t, 30*time.Second, cfg.Session.SequenceTimeout)
	assert.Equal(t, 2*time.Second, cfg.Session.CloseLinger)
	assert.Equal(t, timeout.CommunicationSetupTimeout, cfg.Session.CommunicationSetupTimeout, "unset keys keep defaults")
	assert.Equal(t, ":9100", cfg.Metrics.Address)

	setup, err := cfg.EvseSetup()
	require.NoError(t, err)
	assert.Equal(t, "DE*PNX*E12345*1", setup.EVSEID)
	assert.Equal(t, []message.ServiceID{message.ServiceDC, message.ServiceAC}, setup.SupportedEnergyServices)
	assert.Equal(t, []message.Authorization{message.AuthorizationEIM, message.AuthorizationPnC}, setup.AuthorizationServices)
	assert.False(t, setup.AutoAuthorize)
	assert.True(t, setup.ServiceRenegotiationSupported)
	require.Len(t, setup.ControlMobilityModes, 2)
	assert.Equal(t, message.ControlModeDynamic, setup.ControlMobilityModes[1].ControlMode)
	assert.Equal(t, message.MobilityNeedsProvidedBySECC, setup.ControlMobilityModes[1].MobilityNeedsMode)
	assert.InDelta(t, 350000, setup.DCLimits.Charge.EVSEMaximumChargePower.Float(), 1)
	assert.InDelta(t, 500, setup.DCLimits.Charge.EVSEMaximumChargeCurrent.Float(), 0.001)
	assert.InDelta(t, 200, setup.DCLimits.Charge.EVSEMinimumVoltage.Float(), 0.001)

	sc, err := cfg.SessionConfig()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, sc.SequenceTimeout)
	assert.Equal(t, setup, sc.Setup)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/evse/state.json", cfg.State.File)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse(strings.NewReader("session:\n  sequence_timout: 10s\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sequence_timout")
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty address", func(c *Config) { c.Listen.Address = "" }, "listen.address"},
		{"bad client auth", func(c *Config) { c.TLS.ClientAuth = "sometimes" }, "tls.client_auth"},
		{"missing credentials", func(c *Config) { c.TLS.DevPKI = false }, "tls.cert"},
		{"missing vehicle roots", func(c *Config) {
			c.TLS.DevPKI = false
			c.TLS.Cert, c.TLS.Key = "a.pem", "a.key"
			c.TLS.ClientAuth = "required"
		}, "tls.vehicle_roots"},
		{"empty evse id", func(c *Config) { c.EVSE.ID = "" }, "evse.id"},
		{"no energy service", func(c *Config) { c.EVSE.EnergyServices = nil }, "evse.energy_services"},
		{"unknown energy service", func(c *Config) { c.EVSE.EnergyServices = []string{"WPT"} }, "unsupported service"},
		{"unknown authorization", func(c *Config) { c.EVSE.Authorization = []string{"RFID"} }, "evse.authorization"},
		{"unknown control mode", func(c *Config) {
			c.EVSE.ControlModes = []ControlModeConfig{{Mode: "manual"}}
		}, "evse.control_modes[0]"},
		{"inverted dc voltage", func(c *Config) { c.EVSE.DCLimits.MinVoltage = 2000 }, "max_voltage below min_voltage"},
		{"zero sequence timeout", func(c *Config) { c.Session.SequenceTimeout = 0 }, "session.sequence_timeout"},
		{"oversized payload bound", func(c *Config) { c.Session.MaxPayloadSize = 1 << 20 }, "session.max_payload_size"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
