package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/evse-go/iso15118/pkg/cert"
	"github.com/evse-go/iso15118/pkg/log"
)

// Connection errors.
var (
	ErrNotOpen          = errors.New("connection not open")
	ErrConnectionClosed = errors.New("connection closed")
	ErrHandshake        = errors.New("TLS handshake failed")
)

// Default connection settings.
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
	DefaultCloseTimeout     = 5 * time.Second
	DefaultReadBufferSize   = 4096
	DefaultMaxBuffered      = 256 * 1024
)

// eventQueueSize bounds the lifecycle channel. ACCEPTED, OPEN and CLOSED are
// posted at most once each; NEW_DATA is dropped while the queue is nearly
// full since one pending NEW_DATA already covers all buffered bytes.
const eventQueueSize = 8

// ConnectionConfig configures a TLSConnection.
type ConnectionConfig struct {
	// HandshakeTimeout bounds the TLS handshake (default: 10s).
	HandshakeTimeout time.Duration

	// WriteTimeout bounds a single Write (default: 5s).
	WriteTimeout time.Duration

	// CloseTimeout bounds sending close_notify (default: 5s).
	CloseTimeout time.Duration

	// ReadBufferSize is the socket read chunk size (default: 4096).
	ReadBufferSize int

	// MaxBuffered stops socket reads while this many bytes are unread
	// (default: 256KiB).
	MaxBuffered int

	// Logger receives connection state changes (optional).
	Logger log.Logger
}

func (c *ConnectionConfig) applyDefaults() {
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.CloseTimeout == 0 {
		c.CloseTimeout = DefaultCloseTimeout
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = DefaultReadBufferSize
	}
	if c.MaxBuffered == 0 {
		c.MaxBuffered = DefaultMaxBuffered
	}
}

// TLSConnection is a server-side TLS connection with non-blocking reads.
type TLSConnection struct {
	id     string
	raw    net.Conn
	conn   *tls.Conn
	config ConnectionConfig

	events chan Event

	mu      sync.Mutex
	cond    *sync.Cond
	inbox   []byte
	readErr error
	closing bool

	open     atomic.Bool
	peerHash []byte

	writeMu sync.Mutex

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

// NewTLSConnection wraps an accepted socket and starts the handshake in the
// background. EventAccepted is already queued when it returns.
func NewTLSConnection(id string, raw net.Conn, tlsConf *tls.Config, config ConnectionConfig) *TLSConnection {
	config.applyDefaults()

	c := &TLSConnection{
		id:     id,
		raw:    raw,
		conn:   tls.Server(raw, tlsConf),
		config: config,
		events: make(chan Event, eventQueueSize),
		done:   make(chan struct{}),
	}
	c.cond = sync.NewCond(&c.mu)
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.logState("", "ACCEPTED", "")
	c.events <- Event{Type: EventAccepted}

	go c.run()
	return c
}

// ID returns the unique connection identifier.
func (c *TLSConnection) ID() string {
	return c.id
}

// RemoteAddr returns the remote address of the vehicle.
func (c *TLSConnection) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}

// Events returns the lifecycle event channel.
func (c *TLSConnection) Events() <-chan Event {
	return c.events
}

// Done is closed once the connection goroutine has exited.
func (c *TLSConnection) Done() <-chan struct{} {
	return c.done
}

// HandshakeComplete reports whether the TLS handshake has finished.
func (c *TLSConnection) HandshakeComplete() bool {
	return c.open.Load()
}

// PeerCertHash returns the SHA-512 fingerprint of the vehicle certificate.
// It is nil before EventOpen and when no certificate was presented.
func (c *TLSConnection) PeerCertHash() []byte {
	if !c.open.Load() {
		return nil
	}
	return c.peerHash
}

// Read copies buffered bytes into p without blocking.
func (c *TLSConnection) Read(p []byte) (int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.inbox) > 0 {
		n := copy(p, c.inbox)
		c.inbox = c.inbox[n:]
		if len(c.inbox) == 0 {
			c.inbox = nil
		}
		c.cond.Broadcast()
		return n, false, nil
	}
	if c.readErr != nil {
		return 0, false, c.readErr
	}
	return 0, true, nil
}

// Write sends all of p before the write timeout or fails.
func (c *TLSConnection) Write(p []byte) error {
	if !c.open.Load() {
		return ErrNotOpen
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.raw.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if _, err := c.conn.Write(p); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Close sends close_notify if the handshake completed and closes the socket.
func (c *TLSConnection) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		c.closing = true
		c.cond.Broadcast()
		c.mu.Unlock()

		c.raw.SetWriteDeadline(time.Now().Add(c.config.CloseTimeout))
		if c.open.Load() {
			c.closeErr = c.conn.Close()
		} else {
			c.closeErr = c.raw.Close()
		}
	})
	return c.closeErr
}

// run performs the handshake, then moves socket bytes into the inbox.
func (c *TLSConnection) run() {
	defer close(c.done)

	if err := c.handshake(); err != nil {
		c.finish(err)
		c.raw.Close()
		return
	}

	buf := make([]byte, c.config.ReadBufferSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 && !c.buffer(buf[:n]) {
			c.finish(nil)
			return
		}
		if err != nil {
			if errors.Is(err, io.EOF) || c.ctx.Err() != nil {
				err = nil
			}
			c.finish(err)
			return
		}
	}
}

func (c *TLSConnection) handshake() error {
	ctx, cancel := context.WithTimeout(c.ctx, c.config.HandshakeTimeout)
	defer cancel()

	if err := c.conn.HandshakeContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrHandshake, err)
	}

	state := c.conn.ConnectionState()
	if err := VerifyConnection(state); err != nil {
		return fmt.Errorf("%w: %w", ErrHandshake, err)
	}
	if len(state.PeerCertificates) > 0 {
		c.peerHash = cert.Fingerprint(state.PeerCertificates[0])
	}
	c.open.Store(true)

	c.logState("ACCEPTED", "OPEN", "")
	c.events <- Event{Type: EventOpen}
	return nil
}

// buffer appends data to the inbox, waiting while the inbox is full.
// It returns false if the connection was closed meanwhile.
func (c *TLSConnection) buffer(data []byte) bool {
	c.mu.Lock()
	for len(c.inbox) > 0 && len(c.inbox)+len(data) > c.config.MaxBuffered && !c.closing {
		c.cond.Wait()
	}
	if c.closing {
		c.mu.Unlock()
		return false
	}
	c.inbox = append(c.inbox, data...)
	c.mu.Unlock()

	if len(c.events) < cap(c.events)-1 {
		c.events <- Event{Type: EventNewData}
	}
	return true
}

// finish records the terminal read error and posts EventClosed.
func (c *TLSConnection) finish(err error) {
	c.mu.Lock()
	switch {
	case err != nil:
		c.readErr = err
	case c.closing:
		c.readErr = ErrConnectionClosed
	default:
		c.readErr = io.EOF
	}
	c.mu.Unlock()

	reason := ""
	if err != nil {
		reason = err.Error()
	}
	c.logState("OPEN", "CLOSED", reason)
	c.events <- Event{Type: EventClosed, Err: err}
}

func (c *TLSConnection) logState(from, to, reason string) {
	if c.config.Logger == nil {
		return
	}
	c.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		RemoteAddr:   c.raw.RemoteAddr().String(),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: from,
			NewState: to,
			Reason:   reason,
		},
	})
}
