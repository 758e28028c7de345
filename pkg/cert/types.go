package cert

import (
	"crypto"
	"crypto/sha512"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"
)

// Validity periods used when generating development credentials.
const (
	// RootValidity is the validity of a generated V2G root.
	RootValidity = 10 * 365 * 24 * time.Hour

	// LeafValidity is the validity of a generated SECC or vehicle leaf.
	LeafValidity = 365 * 24 * time.Hour

	// RenewalWindow is how long before expiry a leaf is reported as due.
	RenewalWindow = 30 * 24 * time.Hour
)

// FingerprintSize is the length of a certificate fingerprint.
const FingerprintSize = sha512.Size

// ErrInvalidCert is returned for nil or incomplete certificates.
var ErrInvalidCert = errors.New("invalid certificate")

// Fingerprint returns the SHA-512 digest of the DER encoding of c.
// A session paused with one vehicle certificate can only be resumed by a
// connection presenting a certificate with the same fingerprint.
func Fingerprint(c *x509.Certificate) []byte {
	if c == nil {
		return nil
	}
	sum := sha512.Sum512(c.Raw)
	return sum[:]
}

// FingerprintRaw is Fingerprint for a DER certificate as delivered by a TLS
// handshake.
func FingerprintRaw(der []byte) []byte {
	if len(der) == 0 {
		return nil
	}
	sum := sha512.Sum512(der)
	return sum[:]
}

// Credentials are the SECC certificate chain, its key and an optional
// stapled OCSP response for the leaf.
type Credentials struct {
	// Chain is the certificate chain, leaf first.
	Chain []*x509.Certificate

	// PrivateKey signs for the leaf.
	PrivateKey crypto.Signer

	// OCSPStaple is a DER OCSP response for the leaf, or nil.
	OCSPStaple []byte
}

// Leaf returns the end-entity certificate.
func (c *Credentials) Leaf() *x509.Certificate {
	if c == nil || len(c.Chain) == 0 {
		return nil
	}
	return c.Chain[0]
}

// Issuer returns the certificate that signed the leaf, if the chain has one.
func (c *Credentials) Issuer() *x509.Certificate {
	if c == nil || len(c.Chain) < 2 {
		return nil
	}
	return c.Chain[1]
}

// NeedsRenewal reports whether the leaf expires within RenewalWindow of now.
func (c *Credentials) NeedsRenewal(now time.Time) bool {
	leaf := c.Leaf()
	if leaf == nil {
		return true
	}
	return now.Add(RenewalWindow).After(leaf.NotAfter)
}

// TLSCertificate converts the credentials to a tls.Certificate. The OCSP
// staple is attached as-is.
func (c *Credentials) TLSCertificate() tls.Certificate {
	if c == nil || len(c.Chain) == 0 || c.PrivateKey == nil {
		return tls.Certificate{}
	}
	out := tls.Certificate{
		PrivateKey: c.PrivateKey,
		Leaf:       c.Chain[0],
		OCSPStaple: c.OCSPStaple,
	}
	for _, crt := range c.Chain {
		out.Certificate = append(out.Certificate, crt.Raw)
	}
	return out
}

// LoadCredentials reads a chain and key from PEM files. ocspPath is optional;
// when set, the staple is read and verified against the leaf and its issuer.
func LoadCredentials(chainPath, keyPath, ocspPath string, now time.Time) (*Credentials, error) {
	chain, err := ReadChainFile(chainPath)
	if err != nil {
		return nil, fmt.Errorf("read chain: %w", err)
	}
	key, err := ReadKeyFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}
	creds := &Credentials{Chain: chain, PrivateKey: key}

	if ocspPath == "" {
		return creds, nil
	}
	staple, err := os.ReadFile(ocspPath)
	if err != nil {
		return nil, fmt.Errorf("read ocsp staple: %w", err)
	}
	if _, err := VerifyStaple(staple, creds.Leaf(), creds.Issuer(), now); err != nil {
		return nil, err
	}
	creds.OCSPStaple = staple
	return creds, nil
}
