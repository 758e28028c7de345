package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"

	"github.com/evse-go/iso15118/pkg/cert"
)

// DefaultPort is the TCP port advertised to vehicles through SDP when none is
// configured.
const DefaultPort = 50000

// ClientAuth selects how vehicle certificates are handled.
type ClientAuth uint8

const (
	// ClientAuthNone does not request a vehicle certificate. Only EIM
	// authorization is possible.
	ClientAuthNone ClientAuth = iota

	// ClientAuthOptional verifies a vehicle certificate if one is sent.
	ClientAuthOptional

	// ClientAuthRequired rejects vehicles without a valid certificate.
	ClientAuthRequired
)

// String returns the mode name.
func (a ClientAuth) String() string {
	switch a {
	case ClientAuthNone:
		return "none"
	case ClientAuthOptional:
		return "optional"
	case ClientAuthRequired:
		return "required"
	default:
		return "unknown"
	}
}

// ParseClientAuth parses the names returned by String.
func ParseClientAuth(s string) (ClientAuth, error) {
	switch s {
	case "none", "":
		return ClientAuthNone, nil
	case "optional":
		return ClientAuthOptional, nil
	case "required":
		return ClientAuthRequired, nil
	default:
		return 0, fmt.Errorf("unknown client auth mode %q", s)
	}
}

// TLSConfig holds configuration for the SECC side of the TLS connection.
type TLSConfig struct {
	// Credentials are the SECC chain, key and optional OCSP staple.
	Credentials *cert.Credentials

	// VehicleRoots verifies vehicle certificates. Required unless
	// ClientAuth is ClientAuthNone.
	VehicleRoots *x509.CertPool

	// ClientAuth selects how vehicle certificates are handled.
	ClientAuth ClientAuth

	// KeyLogWriter receives TLS secrets for traffic analysis.
	// Only for testing - never use in production!
	KeyLogWriter io.Writer
}

// NewServerTLSConfig creates the TLS configuration for an SECC.
func NewServerTLSConfig(cfg *TLSConfig) (*tls.Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("TLSConfig is required")
	}
	if cfg.Credentials == nil || cfg.Credentials.Leaf() == nil || cfg.Credentials.PrivateKey == nil {
		return nil, fmt.Errorf("server certificate is required")
	}
	if cfg.ClientAuth != ClientAuthNone && cfg.VehicleRoots == nil {
		return nil, fmt.Errorf("vehicle roots are required for client auth %s", cfg.ClientAuth)
	}

	tlsConfig := &tls.Config{
		// TLS 1.3 only - no fallback
		MinVersion: tls.VersionTLS13,
		MaxVersion: tls.VersionTLS13,

		Certificates: []tls.Certificate{cfg.Credentials.TLSCertificate()},
		ClientCAs:    cfg.VehicleRoots,

		CurvePreferences: []tls.CurveID{
			tls.CurveP521,
			tls.CurveP256,
			tls.X25519,
		},

		// Sessions are resumed at the V2G layer, not by TLS
		SessionTicketsDisabled: true,

		KeyLogWriter: cfg.KeyLogWriter,
	}

	switch cfg.ClientAuth {
	case ClientAuthOptional:
		tlsConfig.ClientAuth = tls.VerifyClientCertIfGiven
	case ClientAuthRequired:
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	default:
		tlsConfig.ClientAuth = tls.NoClientCert
	}

	return tlsConfig, nil
}

// NewVehicleTLSConfig creates a client configuration for the vehicle side.
// creds may be nil for vehicles that authorize with EIM.
func NewVehicleTLSConfig(seccRoots *x509.CertPool, creds *cert.Credentials, serverName string) *tls.Config {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS13,
		MaxVersion: tls.VersionTLS13,
		RootCAs:    seccRoots,
		ServerName: serverName,
	}
	if creds != nil {
		tlsConfig.Certificates = []tls.Certificate{creds.TLSCertificate()}
	}
	return tlsConfig
}

// VerifyConnection checks a completed handshake.
func VerifyConnection(state tls.ConnectionState) error {
	if state.Version != tls.VersionTLS13 {
		return fmt.Errorf("TLS 1.3 required, got version 0x%04x", state.Version)
	}
	return nil
}
