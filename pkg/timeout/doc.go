// Package timeout tracks the protocol timers of one V2G session.
//
// Three kinds exist:
//
//   - Sequence: armed after every response sent to the vehicle, stopped when
//     the next request arrives. Expiry ends the session.
//   - Ongoing: the station's processing budget while it answers "Ongoing"
//     (Authorization, CableCheck). Expiry is delivered to the state machine.
//   - CommunicationSetup: from TLS open until the first SessionSetupReq.
//
// A Manager is owned by the session goroutine and is not safe for
// concurrent use. It never starts goroutines or Go timers; the session
// polls Check and sleeps until NextDeadline.
package timeout
