package transport

import (
	"crypto/tls"
	"testing"

	"github.com/evse-go/iso15118/pkg/cert"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServerTLSConfig(t *testing.T) {
	pki := newTestPKI(t)

	tests := []struct {
		name string
		auth ClientAuth
		want tls.ClientAuthType
	}{
		{"none", ClientAuthNone, tls.NoClientCert},
		{"optional", ClientAuthOptional, tls.VerifyClientCertIfGiven},
		{"required", ClientAuthRequired, tls.RequireAndVerifyClientCert},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := pki.serverTLS(t, tt.auth)

			assert.Equal(t, tt.want, conf.ClientAuth)
			assert.Equal(t, uint16(tls.VersionTLS13), conf.MinVersion)
			assert.Equal(t, uint16(tls.VersionTLS13), conf.MaxVersion)
			assert.True(t, conf.SessionTicketsDisabled)
			require.Len(t, conf.Certificates, 1)
			assert.Len(t, conf.Certificates[0].Certificate, 2)
		})
	}
}

func TestNewServerTLSConfigErrors(t *testing.T) {
	pki := newTestPKI(t)

	_, err := NewServerTLSConfig(nil)
	assert.Error(t, err)

	_, err = NewServerTLSConfig(&TLSConfig{})
	assert.Error(t, err)

	_, err = NewServerTLSConfig(&TLSConfig{Credentials: &cert.Credentials{Chain: pki.secc.Chain}})
	assert.Error(t, err, "key missing")

	_, err = NewServerTLSConfig(&TLSConfig{Credentials: pki.secc, ClientAuth: ClientAuthRequired})
	assert.Error(t, err, "vehicle roots missing")
}

func TestServerTLSConfigCarriesStaple(t *testing.T) {
	pki := newTestPKI(t)
	creds := *pki.secc
	creds.OCSPStaple = []byte{0x30, 0x03, 0x0a, 0x01, 0x00}

	conf, err := NewServerTLSConfig(&TLSConfig{Credentials: &creds})
	require.NoError(t, err)
	assert.Equal(t, creds.OCSPStaple, conf.Certificates[0].OCSPStaple)
}

func TestParseClientAuth(t *testing.T) {
	for _, mode := range []ClientAuth{ClientAuthNone, ClientAuthOptional, ClientAuthRequired} {
		got, err := ParseClientAuth(mode.String())
		require.NoError(t, err)
		assert.Equal(t, mode, got)
	}

	got, err := ParseClientAuth("")
	require.NoError(t, err)
	assert.Equal(t, ClientAuthNone, got)

	_, err = ParseClientAuth("mutual")
	assert.Error(t, err)
}

func TestVerifyConnection(t *testing.T) {
	assert.NoError(t, VerifyConnection(tls.ConnectionState{Version: tls.VersionTLS13}))
	assert.Error(t, VerifyConnection(tls.ConnectionState{Version: tls.VersionTLS12}))
}
