package log

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/evse-go/iso15118/pkg/message"
)

// ErrTruncated reports a final record cut short, as a crash mid-write
// leaves it.
var ErrTruncated = errors.New("truncated log record")

// Filter selects events. Zero fields match everything.
type Filter struct {
	ConnectionID string
	SessionID    string // hex, as in Event.SessionID
	Direction    *Direction
	Layer        *Layer
	Category     *Category
	MessageType  *message.Type

	// TimeStart is inclusive, TimeEnd exclusive.
	TimeStart *time.Time
	TimeEnd   *time.Time
}

func same[T comparable](want *T, got T) bool {
	return want == nil || *want == got
}

// Match reports whether event passes every criterion of f.
func (f Filter) Match(event Event) bool {
	switch {
	case f.ConnectionID != "" && f.ConnectionID != event.ConnectionID,
		f.SessionID != "" && f.SessionID != event.SessionID,
		!same(f.Direction, event.Direction),
		!same(f.Layer, event.Layer),
		!same(f.Category, event.Category),
		f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart),
		f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd):
		return false
	}
	if f.MessageType != nil {
		return event.Message != nil && event.Message.Type == *f.MessageType
	}
	return true
}

// Reader streams events from a .v2glog file without loading it whole.
type Reader struct {
	file   *os.File
	dec    *cbor.Decoder
	filter Filter
	read   int
}

// NewReader opens path and returns every event.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens path and returns the events matching filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{file: f, dec: newEventDecoder(f), filter: filter}, nil
}

// Next returns the next matching event, or io.EOF at the end of the file.
// A partial final record yields ErrTruncated.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		err := r.dec.Decode(&event)
		switch {
		case errors.Is(err, io.EOF):
			return Event{}, io.EOF
		case errors.Is(err, io.ErrUnexpectedEOF):
			return Event{}, fmt.Errorf("%w after %d events", ErrTruncated, r.read)
		case err != nil:
			return Event{}, fmt.Errorf("record %d: %w", r.read+1, err)
		}
		r.read++
		if r.filter.Match(event) {
			return event, nil
		}
	}
}

// All ranges over the remaining matching events. A read error is yielded
// once with a zero Event and ends the iteration.
func (r *Reader) All() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			event, err := r.Next()
			if err == io.EOF {
				return
			}
			if !yield(event, err) || err != nil {
				return
			}
		}
	}
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}
