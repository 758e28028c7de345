package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/evse-go/iso15118/pkg/d20"
	"github.com/evse-go/iso15118/pkg/message"
)

// StateVersion is the current version of the state file format.
const StateVersion = 1

// MaxHistory bounds the finished sessions kept in the state file.
const MaxHistory = 32

// StationState is the persisted runtime state of one EVSE.
type StationState struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	// Pause is the context of a paused session, if any.
	Pause *d20.PauseContext `json:"pause,omitempty"`

	// History lists finished sessions, oldest first.
	History []SessionRecord `json:"history,omitempty"`
}

// SessionRecord summarizes a finished session.
type SessionRecord struct {
	ConnectionID string            `json:"connection_id"`
	SessionID    message.SessionID `json:"session_id"`
	Outcome      string            `json:"outcome"`
	Error        string            `json:"error,omitempty"`
	EndedAt      time.Time         `json:"ended_at"`
}

// StateStore persists StationState to a JSON file. It implements
// d20.PauseStore so a paused session survives a restart.
type StateStore struct {
	mu    sync.Mutex
	path  string
	clock func() time.Time
}

// NewStateStore creates a store backed by path.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path, clock: time.Now}
}

// Path returns the state file path.
func (s *StateStore) Path() string {
	return s.path
}

// Load reads the station state. A missing file yields an empty state.
func (s *StateStore) Load() (*StationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save writes state to disk.
func (s *StateStore) Save(state *StationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(state)
}

// LoadPause returns the stored pause context.
func (s *StateStore) LoadPause() (d20.PauseContext, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return d20.PauseContext{}, false, err
	}
	if state.Pause == nil {
		return d20.PauseContext{}, false, nil
	}
	return *state.Pause, true, nil
}

// SavePause stores pc, replacing any previous pause context.
func (s *StateStore) SavePause(pc d20.PauseContext) error {
	return s.update(func(state *StationState) {
		pc.CertHash = slices.Clone(pc.CertHash)
		pc.Selected.VAS = slices.Clone(pc.Selected.VAS)
		state.Pause = &pc
	})
}

// ClearPause removes the stored pause context.
func (s *StateStore) ClearPause() error {
	return s.update(func(state *StationState) {
		state.Pause = nil
	})
}

// Record appends a finished session to the history.
func (s *StateStore) Record(rec SessionRecord) error {
	return s.update(func(state *StationState) {
		state.History = append(state.History, rec)
		if n := len(state.History); n > MaxHistory {
			state.History = slices.Clone(state.History[n-MaxHistory:])
		}
	})
}

// Clear removes the state file.
func (s *StateStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// PauseStore adapts the store to d20.PauseStore.
func (s *StateStore) PauseStore() d20.PauseStore {
	return pauseStore{s}
}

func (s *StateStore) update(fn func(*StationState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return err
	}
	fn(state)
	state.SavedAt = time.Time{}
	return s.save(state)
}

func (s *StateStore) load() (*StationState, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &StationState{Version: StateVersion}, nil
	}
	if err != nil {
		return nil, err
	}

	state := &StationState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if state.Version > StateVersion {
		return nil, fmt.Errorf("state file version %d is newer than %d", state.Version, StateVersion)
	}
	return state, nil
}

// save writes to a temporary file and renames it so a crash never leaves a
// truncated state file.
func (s *StateStore) save(state *StationState) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	state.Version = StateVersion
	if state.SavedAt.IsZero() {
		state.SavedAt = s.clock()
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

type pauseStore struct{ s *StateStore }

func (p pauseStore) Load() (d20.PauseContext, bool, error) { return p.s.LoadPause() }
func (p pauseStore) Save(pc d20.PauseContext) error        { return p.s.SavePause(pc) }
func (p pauseStore) Clear() error                          { return p.s.ClearPause() }

var _ d20.PauseStore = pauseStore{}
