package cert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/ocsp"
)

// Authority is a generated root used for development stations and tests.
// Production stations load their chain from the V2G PKI instead.
type Authority struct {
	Certificate *x509.Certificate
	PrivateKey  *ecdsa.PrivateKey
}

// Role selects the extended key usage of an issued leaf.
type Role uint8

const (
	// RoleSECC issues a TLS server certificate for the charging station.
	RoleSECC Role = iota

	// RoleVehicle issues a TLS client certificate for a vehicle.
	RoleVehicle
)

// GenerateAuthority creates a self-signed P-256 root.
func GenerateAuthority(commonName string, now time.Time) (*Authority, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	ski, err := subjectKeyID(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: commonName, Organization: []string{"V2G Development"}},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(RootValidity),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            1,
		SubjectKeyId:          ski,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("create root: %w", err)
	}
	crt, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, err
	}
	return &Authority{Certificate: crt, PrivateKey: key}, nil
}

// Pool returns a pool holding only the authority's certificate.
func (a *Authority) Pool() *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(a.Certificate)
	return pool
}

// Issue creates a P-256 leaf signed by the authority. SECC leaves carry
// dnsNames as subject alternative names.
func (a *Authority) Issue(commonName string, role Role, now time.Time, dnsNames ...string) (*Credentials, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	ski, err := subjectKeyID(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}

	usage := x509.ExtKeyUsageServerAuth
	if role == RoleVehicle {
		usage = x509.ExtKeyUsageClientAuth
	}

	template := &x509.Certificate{
		SerialNumber:   serial,
		Subject:        pkix.Name{CommonName: commonName},
		NotBefore:      now.Add(-time.Minute),
		NotAfter:       now.Add(LeafValidity),
		KeyUsage:       x509.KeyUsageDigitalSignature | x509.KeyUsageKeyAgreement,
		ExtKeyUsage:    []x509.ExtKeyUsage{usage},
		SubjectKeyId:   ski,
		AuthorityKeyId: a.Certificate.SubjectKeyId,
		DNSNames:       dnsNames,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, a.Certificate, &key.PublicKey, a.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("issue %q: %w", commonName, err)
	}
	crt, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, err
	}
	return &Credentials{
		Chain:      []*x509.Certificate{crt, a.Certificate},
		PrivateKey: key,
	}, nil
}

// Staple signs an OCSP response for leaf with the given status
// (ocsp.Good, ocsp.Revoked or ocsp.Unknown), valid for validFor from now.
func (a *Authority) Staple(leaf *x509.Certificate, status int, now time.Time, validFor time.Duration) ([]byte, error) {
	tmpl := ocsp.Response{
		Status:       status,
		SerialNumber: leaf.SerialNumber,
		ThisUpdate:   now.Add(-time.Minute),
		NextUpdate:   now.Add(validFor),
	}
	if status == ocsp.Revoked {
		tmpl.RevokedAt = now.Add(-time.Hour)
		tmpl.RevocationReason = ocsp.KeyCompromise
	}
	return ocsp.CreateResponse(a.Certificate, a.Certificate, tmpl, a.PrivateKey)
}

func subjectKeyID(pub *ecdsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	sum := sha1.Sum(der)
	return sum[:], nil
}

func randomSerial() (*big.Int, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("generate serial: %w", err)
	}
	return serial, nil
}
