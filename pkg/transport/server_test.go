package transport

import (
	"context"
	"crypto/tls"
	"io"
	"testing"
	"time"

	"github.com/evse-go/iso15118/pkg/cert"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, pki *testPKI, handler Handler, maxConns int) *Server {
	t.Helper()
	srv, err := NewServer(ServerConfig{
		TLSConfig: &TLSConfig{
			Credentials:  pki.secc,
			VehicleRoots: pki.root.Pool(),
			ClientAuth:   ClientAuthOptional,
		},
		Address:        "127.0.0.1:0",
		MaxConnections: maxConns,
		Handler:        handler,
	})
	require.NoError(t, err)
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { srv.Stop() })
	return srv
}

// echoHandler writes back every chunk it reads until the connection closes
// or the server stops.
func echoHandler(hashes chan<- []byte) HandlerFunc {
	return func(ctx context.Context, conn Connection) {
		buf := make([]byte, 256)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-conn.Events():
				switch ev.Type {
				case EventOpen:
					hashes <- conn.PeerCertHash()
				case EventClosed:
					return
				case EventNewData:
					for {
						n, wouldBlock, err := conn.Read(buf)
						if err != nil || wouldBlock {
							break
						}
						conn.Write(buf[:n])
					}
				}
			}
		}
	}
}

func TestServerServesVehicle(t *testing.T) {
	pki := newTestPKI(t)
	hashes := make(chan []byte, 1)
	srv := startServer(t, pki, echoHandler(hashes), 0)

	client, err := tls.Dial("tcp", srv.Addr().String(), pki.vehicleTLS(true))
	require.NoError(t, err)
	defer client.Close()

	select {
	case hash := <-hashes:
		assert.Equal(t, cert.Fingerprint(pki.vehicle.Leaf()), hash)
	case <-time.After(5 * time.Second):
		t.Fatal("handler never saw OPEN")
	}
	assert.Equal(t, 1, srv.ConnectionCount())

	_, err = client.Write([]byte("ping"))
	require.NoError(t, err)
	got := make([]byte, 4)
	_, err = io.ReadFull(client, got)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(got))

	client.Close()
	assert.Eventually(t, func() bool { return srv.ConnectionCount() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestServerStopEndsSessions(t *testing.T) {
	pki := newTestPKI(t)
	hashes := make(chan []byte, 1)
	srv := startServer(t, pki, echoHandler(hashes), 0)

	client, err := tls.Dial("tcp", srv.Addr().String(), pki.vehicleTLS(false))
	require.NoError(t, err)
	defer client.Close()

	select {
	case hash := <-hashes:
		assert.Nil(t, hash)
	case <-time.After(5 * time.Second):
		t.Fatal("handler never saw OPEN")
	}

	require.NoError(t, srv.Stop())
	assert.Equal(t, 0, srv.ConnectionCount())

	_, err = client.Read(make([]byte, 1))
	assert.Error(t, err)

	require.NoError(t, srv.Stop(), "second stop is a no-op")
}

func TestServerConnectionLimit(t *testing.T) {
	pki := newTestPKI(t)
	hashes := make(chan []byte, 2)
	srv := startServer(t, pki, echoHandler(hashes), 1)

	first, err := tls.Dial("tcp", srv.Addr().String(), pki.vehicleTLS(false))
	require.NoError(t, err)
	defer first.Close()
	<-hashes

	second, err := tls.Dial("tcp", srv.Addr().String(), pki.vehicleTLS(false))
	if err == nil {
		defer second.Close()
		_, err = second.Read(make([]byte, 1))
	}
	assert.Error(t, err, "second vehicle must be turned away")
	assert.Equal(t, 1, srv.ConnectionCount())
}

func TestNewServerValidation(t *testing.T) {
	pki := newTestPKI(t)

	_, err := NewServer(ServerConfig{TLSConfig: &TLSConfig{Credentials: pki.secc}})
	assert.Error(t, err, "handler missing")

	_, err = NewServer(ServerConfig{Handler: HandlerFunc(func(context.Context, Connection) {})})
	assert.Error(t, err, "TLS config missing")

	srv, err := NewServer(ServerConfig{
		TLSConfig: &TLSConfig{Credentials: pki.secc},
		Handler:   HandlerFunc(func(context.Context, Connection) {}),
	})
	require.NoError(t, err)
	assert.Equal(t, ":50000", srv.config.Address)
	assert.Nil(t, srv.Addr())
}
