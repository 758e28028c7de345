package commands

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/evse-go/iso15118/pkg/log"
	"github.com/evse-go/iso15118/pkg/message"
)

var testTime = time.Date(2026, 3, 14, 9, 26, 53, 123456000, time.UTC)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.v2glog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("failed to close logger: %v", err)
	}
	return path
}

// sessionEvents is a short SessionSetup exchange on one connection.
func sessionEvents() []log.Event {
	res := &message.SessionSetupResponse{EVSEID: "DE*PNX*E12345*1"}
	res.ResponseCode = message.ResponseOKNewSessionEstablished
	stop := &message.SessionStopResponse{}
	stop.ResponseCode = message.ResponseFailedSequenceError

	return []log.Event{
		{
			Timestamp:    testTime,
			ConnectionID: "abc12345-6789",
			RemoteAddr:   "[fe80::1]:51234",
			Layer:        log.LayerTransport,
			Category:     log.CategoryState,
			StateChange:  &log.StateChangeEvent{Entity: log.StateEntityConnection, OldState: "ACCEPTED", NewState: "OPEN"},
		},
		{
			Timestamp:    testTime.Add(time.Millisecond),
			ConnectionID: "abc12345-6789",
			Direction:    log.DirectionIn,
			Layer:        log.LayerTransport,
			Category:     log.CategoryMessage,
			Frame:        log.NewFrameEvent(0x8002, []byte{0x01, 0xFE, 0x80, 0x02, 0, 0, 0, 1, 0xA0}),
		},
		{
			Timestamp:    testTime.Add(2 * time.Millisecond),
			ConnectionID: "abc12345-6789",
			Direction:    log.DirectionIn,
			Layer:        log.LayerMessage,
			Category:     log.CategoryMessage,
			Message:      log.NewMessageEvent(&message.SessionSetupRequest{EVCCID: "WMIV1234567890ABCDEX"}),
		},
		{
			Timestamp:    testTime.Add(3 * time.Millisecond),
			ConnectionID: "abc12345-6789",
			SessionID:    "0102030405060708",
			Direction:    log.DirectionOut,
			Layer:        log.LayerMessage,
			Category:     log.CategoryMessage,
			Message:      log.NewMessageEvent(res),
		},
		{
			Timestamp:    testTime.Add(4 * time.Millisecond),
			ConnectionID: "abc12345-6789",
			SessionID:    "0102030405060708",
			Layer:        log.LayerSession,
			Category:     log.CategoryState,
			StateChange:  &log.StateChangeEvent{Entity: log.StateEntityProtocol, OldState: "SessionSetup", NewState: "AuthorizationSetup"},
		},
		{
			Timestamp:    testTime.Add(5 * time.Millisecond),
			ConnectionID: "abc12345-6789",
			SessionID:    "0102030405060708",
			Direction:    log.DirectionOut,
			Layer:        log.LayerMessage,
			Category:     log.CategoryMessage,
			Message:      log.NewMessageEvent(stop),
		},
		{
			Timestamp:    testTime.Add(6 * time.Millisecond),
			ConnectionID: "abc12345-6789",
			SessionID:    "0102030405060708",
			Layer:        log.LayerSession,
			Category:     log.CategoryError,
			Error:        &log.ErrorEventData{Layer: log.LayerSession, Message: "sequence error", Context: "AuthorizationSetup"},
		},
	}
}
