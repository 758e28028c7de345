package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/evse-go/iso15118/pkg/control"
	"github.com/evse-go/iso15118/pkg/transport"
)

// ErrNoSession is returned by Broadcast when no session is running.
var ErrNoSession = errors.New("no active session")

// Manager creates a Session for every connection the transport server
// accepts and fans control events out to the running sessions.
type Manager struct {
	config Config

	mu       sync.Mutex
	sessions map[string]*Session

	// onFinish is called with every finished session (optional).
	onFinish func(*Session)
}

// NewManager creates a manager whose sessions use config.
func NewManager(config Config) *Manager {
	return &Manager{
		config:   config,
		sessions: make(map[string]*Session),
	}
}

// OnFinish registers a callback invoked on the session goroutine after a
// session finished.
func (m *Manager) OnFinish(fn func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFinish = fn
}

// ServeV2G runs a session for conn until it finishes or ctx is cancelled.
func (m *Manager) ServeV2G(ctx context.Context, conn transport.Connection) {
	s := New(conn, m.config)

	m.mu.Lock()
	m.sessions[conn.ID()] = s
	m.mu.Unlock()

	if err := s.Run(ctx); err != nil {
		s.log.Info("session ended with error", "error", err)
	}

	m.mu.Lock()
	delete(m.sessions, conn.ID())
	onFinish := m.onFinish
	m.mu.Unlock()

	if onFinish != nil {
		onFinish(s)
	}
}

// Broadcast pushes ev to every running session. It returns ErrNoSession
// when none is running and the joined push errors otherwise, each prefixed
// with its connection id.
func (m *Manager) Broadcast(ev control.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) == 0 {
		return ErrNoSession
	}
	var errs []error
	for id, s := range m.sessions {
		if err := s.Push(ev); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Push sends ev to the session on connection id.
func (m *Manager) Push(id string, ev control.Event) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return ErrNoSession
	}
	return s.Push(ev)
}

// ActiveIDs returns the connection ids of running sessions in sorted order.
func (m *Manager) ActiveIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

var _ transport.Handler = (*Manager)(nil)
