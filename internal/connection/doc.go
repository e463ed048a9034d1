// Package connection implements the WebSocket transport.
//
// The server side:
//   - Upgrades HTTP requests and gives each connection a UUID
//   - Reads one frame at a time and hands decoded events to the router
//   - Queues outbound frames in a bounded per-connection Outbox drained by a
//     single writer goroutine
//   - Pings clients and drops those that stop answering or fall too far behind
//
// Client is the dialing side, used by chatprobe and the tests.
package connection
