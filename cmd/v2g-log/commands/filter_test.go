package commands

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/evse-go/iso15118/pkg/log"
)

func readAll(t *testing.T, path string) []log.Event {
	t.Helper()
	r, err := log.NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	var events []log.Event
	for {
		e, err := r.Next()
		if err == io.EOF {
			return events
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		events = append(events, e)
	}
}

func TestFilterBySession(t *testing.T) {
	path := createTestLogFile(t, sessionEvents())
	out := filepath.Join(t.TempDir(), "filtered.v2glog")

	n, err := RunFilter(path, FilterOptions{Output: out, SessionID: "0102030405060708"})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if n != 4 {
		t.Errorf("filtered %d events, want 4", n)
	}
	for _, e := range readAll(t, out) {
		if e.SessionID != "0102030405060708" {
			t.Errorf("unexpected event for session %q", e.SessionID)
		}
	}
}

func TestFilterByTypeAndTime(t *testing.T) {
	path := createTestLogFile(t, sessionEvents())
	out := filepath.Join(t.TempDir(), "filtered.v2glog")

	n, err := RunFilter(path, FilterOptions{
		Output:      out,
		MessageType: "SessionSetupReq",
		TimeStart:   "2026-03-14T09:26:53Z",
		TimeEnd:     "2026-03-14T09:26:54Z",
	})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("filtered %d events, want 1", n)
	}
	events := readAll(t, out)
	if len(events) != 1 || events[0].Message == nil {
		t.Fatalf("unexpected output: %+v", events)
	}
}

func TestFilterInvalidOptions(t *testing.T) {
	path := createTestLogFile(t, sessionEvents())
	out := filepath.Join(t.TempDir(), "filtered.v2glog")

	tests := []struct {
		name string
		opts FilterOptions
	}{
		{"bad time", FilterOptions{Output: out, TimeStart: "yesterday"}},
		{"bad layer", FilterOptions{Output: out, Layer: "wire"}},
		{"bad direction", FilterOptions{Output: out, Direction: "up"}},
		{"bad category", FilterOptions{Output: out, Category: "snapshot"}},
		{"bad type", FilterOptions{Output: out, MessageType: "ReadReq"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := RunFilter(path, tt.opts); err == nil {
				t.Error("expected error")
			}
		})
	}
}
