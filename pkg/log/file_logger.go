package log

import (
	"fmt"
	"os"
	"sync"
)

// FileLogger appends CBOR encoded events to a .v2glog file. Every event is
// written with a single write call, so a reader sees whole records while
// the SECC is running.
type FileLogger struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	written int
	dropped int
	err     error
}

// NewFileLogger opens path for appending. New files get mode 0600 because
// captures contain vehicle identifiers and certificate fingerprints.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("open protocol log: %w", err)
	}
	return &FileLogger{path: path, file: f}, nil
}

// Log appends event. An event that cannot be encoded is dropped; after a
// write error the logger stops writing and Err reports it.
func (l *FileLogger) Log(event Event) {
	data, err := EncodeEvent(event)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil || l.err != nil {
		return
	}
	if err != nil {
		l.dropped++
		return
	}
	if _, err := l.file.Write(data); err != nil {
		l.err = fmt.Errorf("write %s: %w", l.path, err)
		return
	}
	l.written++
}

// Path returns the log file path.
func (l *FileLogger) Path() string {
	return l.path
}

// Written returns how many events were stored and how many were dropped
// because they could not be encoded.
func (l *FileLogger) Written() (stored, dropped int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written, l.dropped
}

// Err returns the write error that stopped the logger, if any.
func (l *FileLogger) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Close closes the file. Later Log calls are ignored and further Close
// calls return nil.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

var _ Logger = (*FileLogger)(nil)
