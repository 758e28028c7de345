package log

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/evse-go/iso15118/pkg/message"
)

var testTime = time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC)

func frameEvent(connID string, dir Direction) Event {
	return Event{
		Timestamp:    testTime,
		ConnectionID: connID,
		Direction:    dir,
		Layer:        LayerTransport,
		Category:     CategoryMessage,
		Frame:        NewFrameEvent(0x8002, []byte{0x01, 0xFE, 0x80, 0x02, 0, 0, 0, 1, 0xA0}),
	}
}

func messageEvent(connID, sessionID string, msg message.Message) Event {
	dir := DirectionIn
	if !msg.Type().IsRequest() {
		dir = DirectionOut
	}
	return Event{
		Timestamp:    testTime,
		ConnectionID: connID,
		SessionID:    sessionID,
		Direction:    dir,
		Layer:        LayerMessage,
		Category:     CategoryMessage,
		Message:      NewMessageEvent(msg),
	}
}

func stateEvent(connID, from, to string) Event {
	return Event{
		Timestamp:    testTime,
		ConnectionID: connID,
		Layer:        LayerSession,
		Category:     CategoryState,
		StateChange:  &StateChangeEvent{Entity: StateEntityProtocol, OldState: from, NewState: to},
	}
}

func writeLog(t *testing.T, events ...Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.v2glog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return path
}
