// Package persistence keeps station state that must survive an SECC restart.
//
// The state file holds the pause context of a vehicle that paused its
// session, so the vehicle can resume after the charger restarted, and a
// short history of finished sessions.
package persistence
