package cert

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/ocsp"
)

var testNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func newAuthority(t *testing.T) *Authority {
	t.Helper()
	ca, err := GenerateAuthority("V2G Test Root", testNow)
	if err != nil {
		t.Fatalf("GenerateAuthority() error = %v", err)
	}
	return ca
}

func issue(t *testing.T, ca *Authority, cn string, role Role) *Credentials {
	t.Helper()
	creds, err := ca.Issue(cn, role, testNow, "secc.local")
	if err != nil {
		t.Fatalf("Issue(%q) error = %v", cn, err)
	}
	return creds
}

func TestGenerateAuthority(t *testing.T) {
	ca := newAuthority(t)

	if !ca.Certificate.IsCA {
		t.Error("root should be a CA")
	}
	if ca.Certificate.Subject.CommonName != "V2G Test Root" {
		t.Errorf("CommonName = %q", ca.Certificate.Subject.CommonName)
	}
	if got := ca.PrivateKey.Curve.Params().Name; got != "P-256" {
		t.Errorf("curve = %s, want P-256", got)
	}
	if len(ca.Certificate.SubjectKeyId) != 20 {
		t.Errorf("SKI length = %d, want 20", len(ca.Certificate.SubjectKeyId))
	}
}

func TestIssueRoles(t *testing.T) {
	ca := newAuthority(t)

	tests := []struct {
		name  string
		role  Role
		usage x509.ExtKeyUsage
	}{
		{"secc", RoleSECC, x509.ExtKeyUsageServerAuth},
		{"vehicle", RoleVehicle, x509.ExtKeyUsageClientAuth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds := issue(t, ca, tt.name, tt.role)

			if err := VerifyChain(creds.Chain, ca.Pool(), tt.usage, testNow); err != nil {
				t.Errorf("VerifyChain() error = %v", err)
			}
			if !bytes.Equal(creds.Leaf().AuthorityKeyId, ca.Certificate.SubjectKeyId) {
				t.Error("AKI should match root SKI")
			}
			if creds.Issuer() != ca.Certificate {
				t.Error("Issuer() should return the root")
			}
		})
	}
}

func TestFingerprint(t *testing.T) {
	ca := newAuthority(t)
	a := issue(t, ca, "WMIV1234567890ABCDEX", RoleVehicle).Leaf()
	b := issue(t, ca, "WMIV1234567890ABCDEX", RoleVehicle).Leaf()

	fa := Fingerprint(a)
	if len(fa) != FingerprintSize {
		t.Fatalf("fingerprint length = %d, want %d", len(fa), FingerprintSize)
	}
	if !bytes.Equal(fa, FingerprintRaw(a.Raw)) {
		t.Error("Fingerprint and FingerprintRaw disagree")
	}
	if bytes.Equal(fa, Fingerprint(b)) {
		t.Error("distinct certificates with the same subject must not share a fingerprint")
	}
	if Fingerprint(nil) != nil || FingerprintRaw(nil) != nil {
		t.Error("empty input should give a nil fingerprint")
	}
}

func TestNeedsRenewal(t *testing.T) {
	creds := issue(t, newAuthority(t), "secc", RoleSECC)

	if creds.NeedsRenewal(testNow) {
		t.Error("fresh leaf should not need renewal")
	}
	if !creds.NeedsRenewal(testNow.Add(LeafValidity - RenewalWindow/2)) {
		t.Error("leaf inside the renewal window should need renewal")
	}
	var empty *Credentials
	if !empty.NeedsRenewal(testNow) {
		t.Error("missing credentials always need renewal")
	}
}

func TestTLSCertificate(t *testing.T) {
	creds := issue(t, newAuthority(t), "secc", RoleSECC)
	creds.OCSPStaple = []byte{0x30}

	tc := creds.TLSCertificate()
	if len(tc.Certificate) != 2 {
		t.Fatalf("chain length = %d, want 2", len(tc.Certificate))
	}
	if tc.Leaf != creds.Leaf() {
		t.Error("Leaf not set")
	}
	if !bytes.Equal(tc.OCSPStaple, creds.OCSPStaple) {
		t.Error("staple not carried over")
	}

	var empty *Credentials
	if got := empty.TLSCertificate(); got.Certificate != nil {
		t.Error("nil credentials should give an empty certificate")
	}
}

func TestPEMRoundTrip(t *testing.T) {
	ca := newAuthority(t)
	creds := issue(t, ca, "secc", RoleSECC)
	dir := t.TempDir()

	chainPath := filepath.Join(dir, "secc.pem")
	keyPath := filepath.Join(dir, "secc.key")
	if err := WriteChainFile(chainPath, creds.Chain); err != nil {
		t.Fatalf("WriteChainFile() error = %v", err)
	}
	if err := WriteKeyFile(keyPath, creds.PrivateKey.(*ecdsa.PrivateKey)); err != nil {
		t.Fatalf("WriteKeyFile() error = %v", err)
	}

	info, err := os.Stat(keyPath)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("key file mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadCredentials(chainPath, keyPath, "", testNow)
	if err != nil {
		t.Fatalf("LoadCredentials() error = %v", err)
	}
	if len(loaded.Chain) != 2 || !loaded.Leaf().Equal(creds.Leaf()) {
		t.Error("chain did not round-trip")
	}

	pool, err := ReadPoolFile(chainPath)
	if err != nil {
		t.Fatalf("ReadPoolFile() error = %v", err)
	}
	if err := VerifyChain(loaded.Chain, pool, x509.ExtKeyUsageServerAuth, testNow); err != nil {
		t.Errorf("VerifyChain() against loaded pool error = %v", err)
	}
}

func TestLoadCredentialsWithStaple(t *testing.T) {
	ca := newAuthority(t)
	creds := issue(t, ca, "secc", RoleSECC)
	dir := t.TempDir()

	chainPath := filepath.Join(dir, "secc.pem")
	keyPath := filepath.Join(dir, "secc.key")
	WriteChainFile(chainPath, creds.Chain)
	WriteKeyFile(keyPath, creds.PrivateKey.(*ecdsa.PrivateKey))

	good, err := ca.Staple(creds.Leaf(), ocsp.Good, testNow, time.Hour)
	if err != nil {
		t.Fatalf("Staple() error = %v", err)
	}
	goodPath := filepath.Join(dir, "good.ocsp")
	os.WriteFile(goodPath, good, 0644)

	loaded, err := LoadCredentials(chainPath, keyPath, goodPath, testNow)
	if err != nil {
		t.Fatalf("LoadCredentials() error = %v", err)
	}
	if !bytes.Equal(loaded.OCSPStaple, good) {
		t.Error("staple not attached")
	}

	revoked, _ := ca.Staple(creds.Leaf(), ocsp.Revoked, testNow, time.Hour)
	revokedPath := filepath.Join(dir, "revoked.ocsp")
	os.WriteFile(revokedPath, revoked, 0644)

	if _, err := LoadCredentials(chainPath, keyPath, revokedPath, testNow); err == nil {
		t.Error("revoked staple should be rejected")
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := DecodeChainPEM([]byte("not pem")); err != ErrNoCertificate {
		t.Errorf("DecodeChainPEM() error = %v, want ErrNoCertificate", err)
	}
	if _, err := DecodeKeyPEM([]byte("not pem")); err != ErrInvalidPEM {
		t.Errorf("DecodeKeyPEM() error = %v, want ErrInvalidPEM", err)
	}
	if _, err := ReadChainFile(filepath.Join(t.TempDir(), "missing.pem")); err == nil {
		t.Error("missing file should fail")
	}
}
