package session

import (
	"slices"
	"sync"

	"github.com/evse-go/iso15118/pkg/d20"
)

// MemoryPauseStore keeps the pause context in memory. It is shared by all
// sessions of one EVSE and is safe for concurrent use.
type MemoryPauseStore struct {
	mu sync.Mutex
	pc *d20.PauseContext
}

// NewMemoryPauseStore creates an empty store.
func NewMemoryPauseStore() *MemoryPauseStore {
	return &MemoryPauseStore{}
}

// Load returns the stored pause context, if any.
func (s *MemoryPauseStore) Load() (d20.PauseContext, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pc == nil {
		return d20.PauseContext{}, false, nil
	}
	return clonePause(*s.pc), true, nil
}

// Save replaces the stored pause context.
func (s *MemoryPauseStore) Save(pc d20.PauseContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := clonePause(pc)
	s.pc = &c
	return nil
}

// Clear removes the stored pause context.
func (s *MemoryPauseStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pc = nil
	return nil
}

func clonePause(pc d20.PauseContext) d20.PauseContext {
	pc.CertHash = slices.Clone(pc.CertHash)
	pc.Selected.VAS = slices.Clone(pc.Selected.VAS)
	return pc
}

var _ d20.PauseStore = (*MemoryPauseStore)(nil)
