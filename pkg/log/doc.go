// Package log provides structured protocol capture for V2G sessions.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events at three layers (transport, message, session).
// It is separate from operational logging (slog): protocol capture provides
// a complete machine-readable trace of every frame, decoded message and
// state change of a charging session.
//
// # Basic Usage
//
//	// Console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// Binary capture file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/evse/secc.v2glog")
//
//	// Both
//	cfg.ProtocolLogger = log.Tee(fileLogger, log.NewSlogAdapter(slog.Default()))
//
// Captures are read back with NewReader or NewFilteredReader:
//
//	r, _ := log.NewFilteredReader(path, log.Filter{SessionID: id})
//	for event, err := range r.All() {
//	    ...
//	}
//
// # Event Types
//
//   - Transport: V2GTP frames as raw bytes (FrameEvent)
//   - Message: decoded ISO 15118-20 messages (MessageEvent)
//   - Session: connection and state machine changes (StateChangeEvent)
//
// Errors at any layer have a dedicated event type.
//
// # File Format
//
// Log files are a stream of CBOR encoded events with the .v2glog extension.
// The v2g-log command provides viewing, filtering and statistics.
package log
