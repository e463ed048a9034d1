package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrServerClosed    = errors.New("server closed")
)

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// ServerConfig configures the WebSocket server.
type ServerConfig struct {
	ReadTimeout     time.Duration // Max silence (no frame, no pong) before dropping a client
	WriteTimeout    time.Duration // Write deadline per frame
	PingInterval    time.Duration // Server ping cadence; must be below ReadTimeout
	MaxMessageBytes int64         // Largest inbound frame
	OutboxInitial   int           // Initial outbox capacity per connection
	OutboxSize      int           // Outbox limit; a client that falls this far behind is dropped
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    10 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageBytes: 16 * 1024,
		OutboxInitial:   16,
		OutboxSize:      256,
	}
}

// ServerStats provides statistics about the server.
type ServerStats struct {
	Active          int   `json:"active"`
	Accepted        int64 `json:"accepted"`
	Closed          int64 `json:"closed"`
	UpgradeFailures int64 `json:"upgrade_failures"`
	MalformedFrames int64 `json:"malformed_frames"`
	SlowClients     int64 `json:"slow_clients"`
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL          string        // WebSocket URL (e.g., ws://localhost:3000/ws)
	PingTimeout  time.Duration // Max time without ping before considering connection stale
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingTimeout:  90 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   1000,
	}
}
