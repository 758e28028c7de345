package main

import (
	"crypto/ecdsa"
	"crypto/x509"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/ocsp"

	"github.com/evse-go/iso15118/pkg/cert"
	"github.com/evse-go/iso15118/pkg/config"
	"github.com/evse-go/iso15118/pkg/transport"
)

// devStapleValidity bounds the OCSP response of the development PKI.
const devStapleValidity = 24 * time.Hour

// loadTLS reads the configured credentials or generates a development PKI.
func loadTLS(cfg *config.Config, logger *slog.Logger) (*transport.TLSConfig, error) {
	now := time.Now()
	tc := &transport.TLSConfig{ClientAuth: cfg.ClientAuth()}

	if cfg.TLS.KeyLog != "" {
		f, err := os.OpenFile(cfg.TLS.KeyLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, fmt.Errorf("open key log: %w", err)
		}
		logger.Warn("writing TLS secrets, never enable this in production", "path", cfg.TLS.KeyLog)
		tc.KeyLogWriter = f
	}

	if cfg.TLS.DevPKI {
		creds, roots, err := generateDevPKI(now, flags.DevPKIDir, logger)
		if err != nil {
			return nil, err
		}
		tc.Credentials = creds
		tc.VehicleRoots = roots
		return tc, nil
	}

	creds, err := cert.LoadCredentials(cfg.TLS.Cert, cfg.TLS.Key, cfg.TLS.OCSP, now)
	if err != nil {
		return nil, err
	}
	if creds.NeedsRenewal(now) {
		logger.Warn("SECC certificate expires soon", "not_after", creds.Leaf().NotAfter)
	}
	tc.Credentials = creds

	if cfg.TLS.VehicleRoots != "" {
		roots, err := cert.ReadPoolFile(cfg.TLS.VehicleRoots)
		if err != nil {
			return nil, fmt.Errorf("read vehicle roots: %w", err)
		}
		tc.VehicleRoots = roots
	}

	info := cert.GetCertificateInfo(creds.Leaf())
	logger.Info("loaded SECC certificate", "subject", info.CommonName, "not_after", info.NotAfter, "ocsp", creds.OCSPStaple != nil)
	return tc, nil
}

// generateDevPKI creates one root that signs both the SECC and a vehicle
// certificate. With dir set the root and the vehicle credentials are
// written there for a test vehicle.
func generateDevPKI(now time.Time, dir string, logger *slog.Logger) (*cert.Credentials, *x509.CertPool, error) {
	root, err := cert.GenerateAuthority("V2G Development Root", now)
	if err != nil {
		return nil, nil, fmt.Errorf("generate root: %w", err)
	}
	secc, err := root.Issue("SECC Development", cert.RoleSECC, now, "secc.local")
	if err != nil {
		return nil, nil, fmt.Errorf("issue SECC certificate: %w", err)
	}
	staple, err := root.Staple(secc.Leaf(), ocsp.Good, now, devStapleValidity)
	if err != nil {
		return nil, nil, fmt.Errorf("create OCSP staple: %w", err)
	}
	secc.OCSPStaple = staple

	logger.Warn("using generated development PKI", "root_fingerprint", fmt.Sprintf("%X", cert.Fingerprint(root.Certificate)[:8]))

	if dir != "" {
		vehicle, err := root.Issue("WMIDEV0000000000001", cert.RoleVehicle, now)
		if err != nil {
			return nil, nil, fmt.Errorf("issue vehicle certificate: %w", err)
		}
		if err := writeDevPKI(dir, root, vehicle); err != nil {
			return nil, nil, err
		}
		logger.Info("wrote development PKI", "dir", dir)
	}
	return secc, root.Pool(), nil
}

func writeDevPKI(dir string, root *cert.Authority, vehicle *cert.Credentials) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	key, ok := vehicle.PrivateKey.(*ecdsa.PrivateKey)
	if !ok {
		return fmt.Errorf("vehicle key is %T, want ECDSA", vehicle.PrivateKey)
	}
	if err := cert.WriteChainFile(filepath.Join(dir, "root.pem"), []*x509.Certificate{root.Certificate}); err != nil {
		return err
	}
	if err := cert.WriteChainFile(filepath.Join(dir, "vehicle.pem"), vehicle.Chain); err != nil {
		return err
	}
	return cert.WriteKeyFile(filepath.Join(dir, "vehicle.key"), key)
}
