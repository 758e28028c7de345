package timeout

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Timeout errors.
var (
	ErrTimerNotFound   = errors.New("timer not found")
	ErrInvalidDuration = errors.New("invalid duration")
)

// ISO 15118-20 default durations.
const (
	// SequenceTimeout is V2G20_SECC_Sequence_Timeout.
	SequenceTimeout = 40 * time.Second

	// OngoingTimeout bounds the time the station may answer "Ongoing".
	OngoingTimeout = 60 * time.Second

	// CommunicationSetupTimeout is V2G20_SECC_CommunicationSetup_Timeout.
	CommunicationSetupTimeout = 20 * time.Second
)

// Kind identifies a timer class.
type Kind uint8

const (
	KindSequence Kind = iota + 1
	KindOngoing
	KindCommunicationSetup
)

// String returns the timer kind name.
func (k Kind) String() string {
	switch k {
	case KindSequence:
		return "SEQUENCE"
	case KindOngoing:
		return "ONGOING"
	case KindCommunicationSetup:
		return "COMMUNICATION_SETUP"
	default:
		return fmt.Sprintf("KIND(%d)", uint8(k))
	}
}

// Record is an armed timer.
type Record struct {
	Kind     Kind
	Duration time.Duration
	Deadline time.Time
}

// Manager holds the armed timers of one session.
type Manager struct {
	clock   func() time.Time
	records map[Kind]*Record
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// NewManager creates a manager with no armed timers.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		clock:   time.Now,
		records: make(map[Kind]*Record),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start arms kind to expire d from now, replacing any armed timer of the
// same kind.
func (m *Manager) Start(kind Kind, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: %s %v", ErrInvalidDuration, kind, d)
	}
	m.records[kind] = &Record{
		Kind:     kind,
		Duration: d,
		Deadline: m.clock().Add(d),
	}
	return nil
}

// Stop disarms kind. Stopping an unarmed kind is a no-op.
func (m *Manager) Stop(kind Kind) {
	delete(m.records, kind)
}

// Reset re-arms kind with its last duration.
func (m *Manager) Reset(kind Kind) error {
	r, ok := m.records[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTimerNotFound, kind)
	}
	r.Deadline = m.clock().Add(r.Duration)
	return nil
}

// Active returns true if kind is armed.
func (m *Manager) Active(kind Kind) bool {
	_, ok := m.records[kind]
	return ok
}

// Remaining returns the time until kind expires, or 0 if it is not armed.
func (m *Manager) Remaining(kind Kind) time.Duration {
	r, ok := m.records[kind]
	if !ok {
		return 0
	}
	return max(r.Deadline.Sub(m.clock()), 0)
}

// Check disarms and returns every kind whose deadline is not after now,
// earliest first.
func (m *Manager) Check(now time.Time) []Kind {
	var expired []*Record
	for kind, r := range m.records {
		if !r.Deadline.After(now) {
			expired = append(expired, r)
			delete(m.records, kind)
		}
	}
	if len(expired) == 0 {
		return nil
	}

	slices.SortFunc(expired, func(a, b *Record) int {
		if c := a.Deadline.Compare(b.Deadline); c != 0 {
			return c
		}
		return int(a.Kind) - int(b.Kind)
	})

	kinds := make([]Kind, len(expired))
	for i, r := range expired {
		kinds[i] = r.Kind
	}
	return kinds
}

// NextDeadline returns the earliest armed deadline.
func (m *Manager) NextDeadline() (time.Time, bool) {
	var next time.Time
	found := false
	for _, r := range m.records {
		if !found || r.Deadline.Before(next) {
			next = r.Deadline
			found = true
		}
	}
	return next, found
}
