// Package session drives one ISO 15118-20 session per vehicle connection.
//
// A Session owns the connection, the frame reader, the message exchange,
// the timeout manager, the control event queue and the state machine. All
// of them are touched only from the session goroutine; the control event
// queue is the single entry point for other goroutines.
//
// # Poll Cycle
//
// Each Poll call:
//  1. drains connection events and advances the frame reader
//  2. applies queued control events, feeding CONTROL_MESSAGE per event
//  3. checks timers; an expired sequence timer ends the session
//  4. decodes a complete frame and feeds V2GTP_MESSAGE
//  5. writes a ready response and restarts the sequence timer
//  6. starts the close sequence once the session was stopped or paused
//
// Poll returns the time it wants to be called again. Run is the reactor
// that blocks on connection events, control notifications and that
// deadline.
package session
