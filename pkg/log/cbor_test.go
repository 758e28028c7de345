package log

import (
	"testing"
	"time"

	"github.com/evse-go/iso15118/pkg/message"
)

func TestEventRoundTrip(t *testing.T) {
	processing := 12 * time.Millisecond
	res := &message.AuthorizationResponse{EVSEProcessing: message.ProcessingOngoing}
	event := messageEvent("conn-1", "1034AB7A01F39502", res)
	event.RemoteAddr = "[fe80::1]:50000"
	event.Message.ProcessingTime = &processing

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if !decoded.Timestamp.Equal(testTime) {
		t.Errorf("Timestamp: got %v, want %v", decoded.Timestamp, testTime)
	}
	if decoded.SessionID != "1034AB7A01F39502" {
		t.Errorf("SessionID: got %q", decoded.SessionID)
	}
	if decoded.RemoteAddr != event.RemoteAddr {
		t.Errorf("RemoteAddr: got %q", decoded.RemoteAddr)
	}
	if decoded.Message == nil {
		t.Fatal("Message is nil")
	}
	if decoded.Message.Type != message.TypeAuthorizationRes {
		t.Errorf("Message.Type: got %v", decoded.Message.Type)
	}
	if decoded.Message.ResponseCode == nil || *decoded.Message.ResponseCode != message.ResponseOK {
		t.Errorf("Message.ResponseCode: got %v", decoded.Message.ResponseCode)
	}
	if decoded.Message.ProcessingTime == nil || *decoded.Message.ProcessingTime != processing {
		t.Errorf("Message.ProcessingTime: got %v", decoded.Message.ProcessingTime)
	}
	if decoded.Message.Payload == nil {
		t.Error("Message.Payload is nil")
	}
}

func TestEventEncodingIsCompact(t *testing.T) {
	data, err := EncodeEvent(stateEvent("c", "SessionSetup", "AuthorizationSetup"))
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	// Integer keys keep field names out of the encoding.
	for _, name := range []string{"Timestamp", "StateChange", "NewState"} {
		if containsString(data, name) {
			t.Errorf("encoding contains field name %q", name)
		}
	}
}

func containsString(data []byte, s string) bool {
	for i := 0; i+len(s) <= len(data); i++ {
		if string(data[i:i+len(s)]) == s {
			return true
		}
	}
	return false
}
