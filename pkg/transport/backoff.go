package transport

import "time"

// Accept retry delays. Accept errors such as EMFILE are usually transient,
// so the loop waits and retries instead of giving up.
const (
	acceptBackoffInitial = 5 * time.Millisecond
	acceptBackoffMax     = 1 * time.Second
)

// backoff doubles a delay up to a maximum. It is owned by a single goroutine.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

func newBackoff(initial, max time.Duration) *backoff {
	return &backoff{initial: initial, max: max}
}

// Next returns the delay before the next attempt.
func (b *backoff) Next() time.Duration {
	if b.current == 0 {
		b.current = b.initial
	} else {
		b.current = min(b.current*2, b.max)
	}
	return b.current
}

// Reset restarts from the initial delay after a successful attempt.
func (b *backoff) Reset() {
	b.current = 0
}
