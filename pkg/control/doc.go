// Package control carries commands from the charging control logic into a
// running V2G session.
//
// Producers call Queue.Push from any goroutine; it never blocks. The session
// goroutine waits on Queue.Notify and drains with Queue.Pop, applying events
// in the order they were pushed.
package control
