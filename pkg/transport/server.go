package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/evse-go/iso15118/pkg/log"
	"github.com/google/uuid"
)

// ServerConfig configures an SECC server.
type ServerConfig struct {
	// TLSConfig holds the SECC credentials and the client auth mode.
	TLSConfig *TLSConfig

	// Address to listen on (e.g., "[::]:50000" or "127.0.0.1:0").
	Address string

	// Connection configures every accepted connection.
	Connection ConnectionConfig

	// MaxConnections limits concurrent sessions. Zero means unlimited.
	// An SECC normally serves a single vehicle per EVSE.
	MaxConnections int

	// Handler serves each accepted connection.
	Handler Handler

	// Logger captures connection state events (optional).
	Logger log.Logger

	// Log receives operational messages (optional).
	Log *slog.Logger
}

// Server accepts vehicle connections and runs one handler goroutine per
// connection.
type Server struct {
	config   ServerConfig
	tlsConf  *tls.Config
	listener net.Listener
	log      *slog.Logger

	conns   map[*TLSConnection]struct{}
	connsMu sync.RWMutex

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a new SECC server.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Handler == nil {
		return nil, errors.New("transport: nil handler")
	}
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", DefaultPort)
	}
	if config.Connection.Logger == nil {
		config.Connection.Logger = config.Logger
	}

	tlsConf, err := NewServerTLSConfig(config.TLSConfig)
	if err != nil {
		return nil, fmt.Errorf("secc tls: %w", err)
	}

	logger := config.Log
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Server{
		config:  config,
		tlsConf: tlsConf,
		log:     logger,
		conns:   make(map[*TLSConnection]struct{}),
	}, nil
}

// Start binds the listen address and accepts vehicles until Stop or until
// ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return errors.New("server already started")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		s.cancel()
		return fmt.Errorf("listen %s: %w", s.config.Address, err)
	}
	s.listener = listener

	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()

	s.log.Info("SECC listening", "addr", listener.Addr().String(), "client_auth", s.config.TLSConfig.ClientAuth.String())
	return nil
}

// Stop stops accepting, cancels running handlers, closes all connections and
// waits for their goroutines.
func (s *Server) Stop() error {
	if !s.running.Load() {
		return nil
	}

	s.running.Store(false)
	s.cancel()

	if s.listener != nil {
		s.listener.Close()
	}

	s.connsMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()

	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// ConnectionCount returns the number of vehicles currently served.
func (s *Server) ConnectionCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	retry := newBackoff(acceptBackoffInitial, acceptBackoffMax)
	for s.running.Load() {
		raw, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || !s.running.Load() {
				return
			}
			delay := retry.Next()
			s.log.Warn("accept failed", "error", err, "retry_in", delay)
			select {
			case <-time.After(delay):
			case <-s.ctx.Done():
				return
			}
			continue
		}
		retry.Reset()

		if limit := s.config.MaxConnections; limit > 0 && s.ConnectionCount() >= limit {
			s.log.Warn("rejecting connection, limit reached", "remote", raw.RemoteAddr().String(), "max", limit)
			raw.Close()
			continue
		}

		conn := NewTLSConnection(uuid.New().String(), raw, s.tlsConf, s.config.Connection)

		s.connsMu.Lock()
		s.conns[conn] = struct{}{}
		s.connsMu.Unlock()

		s.wg.Add(1)
		go s.serve(conn)
	}
}

// serve runs the handler and cleans up once it returns.
func (s *Server) serve(conn *TLSConnection) {
	defer s.wg.Done()

	s.log.Debug("connection accepted", "conn_id", conn.ID(), "remote", conn.RemoteAddr().String())

	s.config.Handler.ServeV2G(s.ctx, conn)

	conn.Close()
	<-conn.Done()

	s.connsMu.Lock()
	delete(s.conns, conn)
	s.connsMu.Unlock()

	s.log.Debug("connection finished", "conn_id", conn.ID())
}
