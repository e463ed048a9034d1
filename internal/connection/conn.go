package connection

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// conn is one accepted client. It implements router.Sender: frames go into
// the outbox and a single writer goroutine owns all data writes.
type conn struct {
	id     uuid.UUID
	ws     *websocket.Conn
	cfg    ServerConfig
	logger *slog.Logger
	outbox *Outbox

	done      chan struct{}
	closeOnce sync.Once

	// Set once inside closeOnce, read by the writer after the outbox drains.
	closeCode   int
	closeReason string

	onSlow func()
}

func newConn(id uuid.UUID, ws *websocket.Conn, cfg ServerConfig, logger *slog.Logger) *conn {
	return &conn{
		id:        id,
		ws:        ws,
		cfg:       cfg,
		logger:    logger,
		outbox:    NewOutbox(cfg.OutboxInitial, cfg.OutboxSize),
		done:      make(chan struct{}),
		closeCode: websocket.CloseNormalClosure,
	}
}

// Send queues frame without blocking. A client whose outbox is full is
// disconnected rather than allowed to stall the router.
func (c *conn) Send(frame []byte) bool {
	if c.outbox.Push(frame) {
		return true
	}

	select {
	case <-c.done:
	default:
		c.logger.Warn("outbox full, dropping slow client", "queued", c.outbox.Len())
		if c.onSlow != nil {
			c.onSlow()
		}
		c.close(websocket.CloseTryAgainLater, "too slow")
	}
	return false
}

// close stops accepting frames. The writer flushes what is queued, sends a
// close frame and closes the socket. Safe to call more than once.
func (c *conn) close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		close(c.done)
		c.outbox.Close()
	})
}

// writeLoop drains the outbox to the socket. It closes the socket on exit,
// which also ends readLoop.
func (c *conn) writeLoop() {
	defer c.ws.Close()

	for {
		frame, ok := c.outbox.Pop()
		if !ok {
			c.ws.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(c.closeCode, c.closeReason),
				time.Now().Add(time.Second),
			)
			return
		}

		c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
		if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
			c.logger.Debug("write failed", "error", err)
			c.close(websocket.CloseAbnormalClosure, "")
			return
		}
	}
}

// pingLoop keeps the read deadline fed on healthy clients.
func (c *conn) pingLoop() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// readLoop delivers inbound frames to handle until the socket fails. Frames
// are handled one at a time so a client's events stay ordered.
func (c *conn) readLoop(handle func(TimestampedMessage)) error {
	c.ws.SetReadLimit(c.cfg.MaxMessageBytes)
	c.ws.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		receivedAt := time.Now()
		if err != nil {
			return err
		}
		c.ws.SetReadDeadline(receivedAt.Add(c.cfg.ReadTimeout))

		handle(TimestampedMessage{Data: data, ReceivedAt: receivedAt})
	}
}
