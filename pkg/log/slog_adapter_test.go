package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/evse-go/iso15118/pkg/message"
)

func logJSON(t *testing.T, event Event) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	adapter := NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	adapter.Log(event)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output %q: %v", buf.String(), err)
	}
	return entry
}

func checkEntry(t *testing.T, entry map[string]any, want map[string]any) {
	t.Helper()
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s: got %v, want %v", k, entry[k], v)
		}
	}
}

func TestSlogAdapterFrame(t *testing.T) {
	entry := logJSON(t, frameEvent("conn-123", DirectionIn))

	checkEntry(t, entry, map[string]any{
		"level":        "DEBUG",
		"msg":          "v2gtp frame",
		"conn_id":      "conn-123",
		"direction":    "IN",
		"layer":        "TRANSPORT",
		"payload_type": "COMMON",
		"size":         float64(9),
	})
	if _, ok := entry["truncated"]; ok {
		t.Error("complete frame must not carry truncated")
	}
}

func TestSlogAdapterMessage(t *testing.T) {
	res := &message.ServiceDetailResponse{ServiceID: message.ServiceDC}
	res.ResponseCode = message.ResponseFailedServiceIDInvalid

	entry := logJSON(t, messageEvent("conn-9", "1034AB7A01F39502", res))

	checkEntry(t, entry, map[string]any{
		"level":         "WARN",
		"msg":           message.TypeServiceDetailRes.String(),
		"direction":     "OUT",
		"response_code": "FAILED_ServiceIDInvalid",
		"session_id":    "1034AB7A01F39502",
	})
}

func TestSlogAdapterSuccessIsDebug(t *testing.T) {
	res := &message.SessionStopResponse{}
	res.ResponseCode = message.ResponseOK

	entry := logJSON(t, messageEvent("conn-9", "1034AB7A01F39502", res))
	if entry["level"] != "DEBUG" {
		t.Errorf("level: got %v, want DEBUG", entry["level"])
	}
}

func TestSlogAdapterState(t *testing.T) {
	entry := logJSON(t, stateEvent("conn-1", "PowerDelivery", "DC_ChargeLoop"))

	checkEntry(t, entry, map[string]any{
		"msg":  "protocol state",
		"from": "PowerDelivery",
		"to":   "DC_ChargeLoop",
	})
	if _, ok := entry["session_id"]; ok {
		t.Error("session_id must be omitted when empty")
	}
}

func TestSlogAdapterError(t *testing.T) {
	entry := logJSON(t, Event{
		ConnectionID: "conn-1",
		Layer:        LayerSession,
		Category:     CategoryError,
		Error:        &ErrorEventData{Layer: LayerSession, Message: "sequence timeout", Context: "SEQUENCE"},
	})

	checkEntry(t, entry, map[string]any{
		"level":       "WARN",
		"msg":         "sequence timeout",
		"error_layer": "SESSION",
		"context":     "SEQUENCE",
	})
}
