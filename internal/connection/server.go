package connection

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rickgao/chat-relay/internal/router"
)

// Server accepts WebSocket clients and connects them to a router.
type Server struct {
	cfg      ServerConfig
	router   router.Router
	logger   *slog.Logger
	upgrader websocket.Upgrader

	// Base context for event handling; cancelled by Shutdown.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	conns  map[uuid.UUID]*conn
	closed bool

	accepted        atomic.Int64
	disconnected    atomic.Int64
	upgradeFailures atomic.Int64
	malformed       atomic.Int64
	slow            atomic.Int64
}

// NewServer creates a server handing events to rt.
func NewServer(cfg ServerConfig, rt router.Router, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultServerConfig()
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.ReadTimeout {
		cfg.PingInterval = cfg.ReadTimeout / 2
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = def.MaxMessageBytes
	}
	if cfg.OutboxInitial <= 0 {
		cfg.OutboxInitial = def.OutboxInitial
	}
	if cfg.OutboxSize <= 0 {
		cfg.OutboxSize = def.OutboxSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:    cfg,
		router: rt,
		logger: logger.With("component", "ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients are served from other origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		ctx:    ctx,
		cancel: cancel,
		conns:  make(map[uuid.UUID]*conn),
	}
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		http.Error(w, ErrServerClosed.Error(), http.StatusServiceUnavailable)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.upgradeFailures.Add(1)
		s.logger.Debug("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	id := uuid.New()
	c := newConn(id, ws, s.cfg, s.logger.With("conn_id", id))
	c.onSlow = func() { s.slow.Add(1) }

	s.mu.Lock()
	if s.closed {
		// Shutdown began during the upgrade and will not see this conn.
		s.mu.Unlock()
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		ws.Close()
		return
	}
	s.conns[id] = c
	s.mu.Unlock()
	s.accepted.Add(1)

	s.router.Connect(id, c)
	s.logger.Debug("client connected", "conn_id", id, "remote", r.RemoteAddr)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop()
	}()
	go c.pingLoop()

	err = c.readLoop(func(msg TimestampedMessage) {
		ev, err := router.Decode(msg.Data)
		if err != nil {
			s.malformed.Add(1)
			c.logger.Debug("malformed frame", "error", err)
			return
		}
		s.router.Handle(s.ctx, id, ev)
	})

	s.router.Disconnect(id)
	c.close(websocket.CloseNormalClosure, "")
	<-writerDone

	s.disconnected.Add(1)
	s.mu.Lock()
	delete(s.conns, id)
	s.mu.Unlock()

	if isUnexpectedClose(err) {
		s.logger.Info("client dropped", "conn_id", id, "error", err)
	} else {
		s.logger.Debug("client disconnected", "conn_id", id)
	}
}

// Shutdown closes every connection and waits for their handlers to finish or
// ctx to expire. New upgrades are refused.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conns := make([]*conn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	s.logger.Info("closing client connections", "count", len(conns))
	s.cancel()
	for _, c := range conns {
		c.close(websocket.CloseGoingAway, "server shutting down")
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.logger.Warn("shutdown timeout, forcing close")
		for _, c := range conns {
			c.ws.Close()
		}
		return ctx.Err()
	}
}

// Stats returns current statistics.
func (s *Server) Stats() ServerStats {
	s.mu.Lock()
	active := len(s.conns)
	s.mu.Unlock()

	return ServerStats{
		Active:          active,
		Accepted:        s.accepted.Load(),
		Closed:          s.disconnected.Load(),
		UpgradeFailures: s.upgradeFailures.Load(),
		MalformedFrames: s.malformed.Load(),
		SlowClients:     s.slow.Load(),
	}
}

func isUnexpectedClose(err error) bool {
	if err == nil || errors.Is(err, websocket.ErrCloseSent) {
		return false
	}
	return websocket.IsUnexpectedCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}
