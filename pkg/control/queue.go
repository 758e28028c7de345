package control

import (
	"errors"
	"sync"
)

// DefaultCapacity bounds a queue created with NewQueue(0).
const DefaultCapacity = 1024

// Queue errors.
var (
	ErrQueueFull   = errors.New("control queue full")
	ErrQueueClosed = errors.New("control queue closed")
	ErrNilEvent    = errors.New("nil control event")
)

// Queue is a bounded FIFO of control events, safe for concurrent use.
type Queue struct {
	mu       sync.Mutex
	events   []Event
	capacity int
	closed   bool

	notify chan struct{}
}

// NewQueue creates a queue holding at most capacity events.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		capacity: capacity,
		notify:   make(chan struct{}, 1),
	}
}

// Push appends ev without blocking.
func (q *Queue) Push(ev Event) error {
	if ev == nil {
		return ErrNilEvent
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	if len(q.events) >= q.capacity {
		q.mu.Unlock()
		return ErrQueueFull
	}
	q.events = append(q.events, ev)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Pop removes the oldest event without blocking.
func (q *Queue) Pop() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return nil, false
	}
	ev := q.events[0]
	q.events[0] = nil
	q.events = q.events[1:]
	if len(q.events) == 0 {
		q.events = nil
	}
	return ev, true
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Notify returns a channel that receives after a Push. A single receive may
// stand for several pushed events.
func (q *Queue) Notify() <-chan struct{} {
	return q.notify
}

// Close rejects further pushes. Queued events can still be popped.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}
