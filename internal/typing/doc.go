// Package typing collapses bursts of typing signals into start/stop pairs.
//
// Each (connection, target) pair owns at most one inactivity timer. The first
// Start for a pair reports that a start event should be emitted; further Starts
// only refresh the timer. Stop reports whether a stop event is owed. When a
// timer runs out, the expiry callback receives an Expiry which the owner
// confirms with Expire, normally under its own lock, before emitting the
// synthetic stop. A refresh racing with the callback invalidates the Expiry.
package typing
