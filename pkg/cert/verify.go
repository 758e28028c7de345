package cert

import (
	"crypto/x509"
	"errors"
	"fmt"
	"time"
)

// Verification errors.
var (
	ErrCertExpired     = errors.New("certificate has expired")
	ErrCertNotYetValid = errors.New("certificate is not yet valid")
	ErrInvalidChain    = errors.New("invalid certificate chain")
)

// VerifyChain checks that chain[0] is valid at now and chains to roots for
// the given usage. Remaining chain entries are offered as intermediates.
func VerifyChain(chain []*x509.Certificate, roots *x509.CertPool, usage x509.ExtKeyUsage, now time.Time) error {
	if len(chain) == 0 || chain[0] == nil {
		return ErrInvalidCert
	}
	if roots == nil {
		return fmt.Errorf("%w: root pool required", ErrInvalidChain)
	}

	leaf := chain[0]
	if now.Before(leaf.NotBefore) {
		return ErrCertNotYetValid
	}
	if now.After(leaf.NotAfter) {
		return ErrCertExpired
	}

	intermediates := x509.NewCertPool()
	for _, c := range chain[1:] {
		intermediates.AddCert(c)
	}
	opts := x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		CurrentTime:   now,
		KeyUsages:     []x509.ExtKeyUsage{usage},
	}
	if _, err := leaf.Verify(opts); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChain, err)
	}
	return nil
}

// CertificateInfo is a human-readable summary of a certificate.
type CertificateInfo struct {
	CommonName  string
	Issuer      string
	NotBefore   time.Time
	NotAfter    time.Time
	IsCA        bool
	Fingerprint []byte
}

// GetCertificateInfo extracts information from a certificate.
func GetCertificateInfo(c *x509.Certificate) *CertificateInfo {
	if c == nil {
		return nil
	}
	return &CertificateInfo{
		CommonName:  c.Subject.CommonName,
		Issuer:      c.Issuer.CommonName,
		NotBefore:   c.NotBefore,
		NotAfter:    c.NotAfter,
		IsCA:        c.IsCA,
		Fingerprint: Fingerprint(c),
	}
}
