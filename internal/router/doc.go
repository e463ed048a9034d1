// Package router is the chat relay core.
//
// The router owns the presence registry, the room table and the per-connection
// session state, all guarded by one mutex with short critical sections. It
// consumes decoded client events, applies state transitions, calls the message
// store and account directory, and fans encoded frames out to connections.
//
// Per-connection state machine:
//
//	Anonymous --register--> Registered --joinRoom--> InRoom
//	InRoom --leaveRoom--> Registered
//	any --disconnect--> gone
//
// The lock is never held across store or directory I/O. Sends compute what
// they need, release the lock, perform the I/O, then re-resolve the fan-out
// set. A member who leaves mid-write may still receive the message.
//
// Every client-facing failure is an error frame to the originating
// connection only.
package router
