package router

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/rickgao/chat-relay/internal/model"
	"github.com/rickgao/chat-relay/internal/presence"
	"github.com/rickgao/chat-relay/internal/rooms"
	"github.com/rickgao/chat-relay/internal/typing"
)

// Router routes client events between connections.
type Router interface {
	// Connect creates an anonymous session for a new transport connection.
	Connect(id uuid.UUID, out Sender)

	// Handle processes one client event. Events of a single connection must
	// be handled sequentially; events of different connections may run
	// concurrently.
	Handle(ctx context.Context, id uuid.UUID, ev Event)

	// Disconnect tears down the session and all state referencing it.
	Disconnect(id uuid.UUID)

	// Rooms returns the configured room names.
	Rooms() []string

	// Stats returns current router statistics.
	Stats() Stats

	// Close cancels all typing timers.
	Close()
}

// session is the per-connection state.
// Identity and room live in the presence registry and room table.
type session struct {
	id  uuid.UUID
	out Sender
}

// router is the internal implementation.
type router struct {
	cfg    Config
	logger *slog.Logger

	store MessageStore
	dir   Directory

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
	presence *presence.Registry
	rooms    *rooms.Table
	typing   *typing.Debouncer

	stats counters
}

// New creates a router.
func New(cfg Config, store MessageStore, dir Directory, logger *slog.Logger) Router {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Rooms) == 0 {
		cfg.Rooms = DefaultRooms
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 20
	}
	if cfg.PrivateHistoryLimit <= 0 {
		cfg.PrivateHistoryLimit = 50
	}

	r := &router{
		cfg:      cfg,
		logger:   logger.With("component", "router"),
		store:    store,
		dir:      dir,
		sessions: make(map[uuid.UUID]*session),
		presence: presence.NewRegistry(),
		rooms:    rooms.NewTable(cfg.Rooms),
	}
	r.typing = typing.New(cfg.TypingWindow, r.typingExpired)

	r.logger.Info("router ready",
		"rooms", len(r.rooms.Names()),
		"history_limit", cfg.HistoryLimit,
		"typing_window", r.typing.Window(),
	)
	return r
}

// Connect registers a new anonymous session.
func (r *router) Connect(id uuid.UUID, out Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[id] = &session{id: id, out: out}
	r.logger.Debug("session opened", "conn_id", id)
}

// Handle dispatches one event.
func (r *router) Handle(ctx context.Context, id uuid.UUID, ev Event) {
	r.stats.received.Add(1)

	switch ev.Type {
	case EventRegister:
		var p registerPayload
		if r.decode(id, ev, &p) {
			r.register(id, model.NormalizeIdentity(p.Identity))
		}
	case EventJoinRoom:
		var p joinRoomPayload
		if r.decode(id, ev, &p) {
			r.joinRoom(ctx, id, model.NormalizeRoom(p.Room))
		}
	case EventLeaveRoom:
		r.leaveRoom(id)
	case EventRoomMessage:
		var p roomMessagePayload
		if r.decode(id, ev, &p) {
			r.roomMessage(ctx, id, model.NormalizeText(p.Text))
		}
	case EventPrivateMessage:
		var p privateMessagePayload
		if r.decode(id, ev, &p) {
			r.privateMessage(ctx, id, model.NormalizeIdentity(p.ToIdentity), model.NormalizeText(p.Text))
		}
	case EventRoomTyping:
		r.roomTyping(id, true)
	case EventRoomTypingStop:
		r.roomTyping(id, false)
	case EventPrivateTyping, EventPrivateTypingStop:
		var p privateTypingPayload
		if r.decode(id, ev, &p) {
			r.privateTyping(id, model.NormalizeIdentity(p.ToIdentity), ev.Type == EventPrivateTyping)
		}
	case EventPrivateHistory:
		var p privateHistoryPayload
		if r.decode(id, ev, &p) {
			r.privateHistory(ctx, id, model.NormalizeIdentity(p.WithIdentity))
		}
	default:
		r.stats.unknown.Add(1)
		r.logger.Debug("unknown event", "conn_id", id, "type", ev.Type)
	}
}

// Disconnect removes every trace of the connection.
func (r *router) Disconnect(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return
	}
	delete(r.sessions, id)
	identity := r.identityOf(id)

	for _, key := range r.typing.StopAll(id) {
		if key.Target.Kind == typing.Private {
			r.sendTo(key.Target.Name, EventPrivateTypingStop, PrivateTyping{FromIdentity: identity})
		}
	}

	if room, ok := r.rooms.Remove(id); ok {
		others := r.rooms.Members(room)
		r.fanout(others, EventLeftRoom, RoomNotice{Room: room, Identity: identity})
		r.fanout(others, EventRoomTypingStop, RoomTyping{Identity: identity})
	}

	_, current := r.presence.Remove(id)
	r.logger.Debug("session closed",
		"conn_id", id,
		"identity", identity,
		"was_current", current,
	)
}

// Rooms returns the configured rooms.
func (r *router) Rooms() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rooms.Names()
}

// Stats returns current statistics.
func (r *router) Stats() Stats {
	st := r.stats.snapshot()

	r.mu.Lock()
	st.Sessions = len(r.sessions)
	st.Online = r.presence.Online()
	st.Registered = r.presence.Attached()
	st.Occupancy = r.rooms.Occupancy()
	r.mu.Unlock()

	st.TypingTimers = r.typing.Len()
	return st
}

// Close stops all typing timers.
func (r *router) Close() {
	r.typing.Close()
	r.logger.Info("router closed")
}

// register attaches identity to the session once.
func (r *router) register(id uuid.UUID, identity string) {
	if identity == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return
	}

	prev, replaced := r.presence.Lookup(identity)
	if !r.presence.Register(id, identity) {
		return
	}

	r.deliver(s, EventRoomsList, RoomsList{Rooms: r.rooms.Names()})

	if replaced {
		r.logger.Info("identity moved to new connection", "identity", identity, "conn_id", id, "previous_conn_id", prev)
	} else {
		r.logger.Debug("identity registered", "identity", identity, "conn_id", id)
	}
}

// joinRoom moves the session into room and replays its history.
func (r *router) joinRoom(ctx context.Context, id uuid.UUID, room string) {
	if room == "" {
		return
	}

	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	identity := r.identityOf(id)
	if identity == "" {
		r.mu.Unlock()
		r.fail(s, errUnregistered)
		return
	}

	joined, err := r.rooms.Join(id, identity, room)
	if err != nil {
		r.mu.Unlock()
		switch {
		case errors.Is(err, rooms.ErrUnknownRoom):
			r.fail(s, errUnknownRoom)
		case errors.Is(err, rooms.ErrUnregistered):
			r.fail(s, errUnregistered)
		}
		return
	}

	if joined.Previous != "" {
		r.vacate(s, joined.Previous)
	}
	r.deliver(s, EventJoinedRoom, RoomNotice{Room: joined.Room})
	r.mu.Unlock()

	// History is read after the lock is released; a message persisted in
	// between can arrive live and again in the history.
	history, err := r.store.RecentRoomHistory(ctx, joined.Room, r.cfg.HistoryLimit)
	if err != nil {
		r.logger.Warn("room history failed", "room", joined.Room, "conn_id", id, "error", err)
		r.fail(s, errHistory)
		return
	}
	if history == nil {
		history = []model.RoomMessage{}
	}
	r.deliver(s, EventRoomHistory, RoomHistory{Room: joined.Room, Records: history})
}

// leaveRoom removes the session from its room.
func (r *router) leaveRoom(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return
	}

	room, err := r.rooms.Leave(id)
	if err != nil {
		r.fail(s, errNotInAnyRoom)
		return
	}

	r.vacate(s, room)
	r.deliver(s, EventLeftRoom, RoomNotice{Room: room})
}

// vacate tells the members remaining in room that s left and stopped typing.
// Must be called with r.mu held, after s was removed from the room.
func (r *router) vacate(s *session, room string) {
	r.typing.Stop(roomKey(s.id, room))

	identity := r.identityOf(s.id)
	others := r.rooms.MembersExcept(room, s.id)
	r.fanout(others, EventLeftRoom, RoomNotice{Room: room, Identity: identity})
	r.fanout(others, EventRoomTypingStop, RoomTyping{Identity: identity})
}

// roomMessage persists text and fans it out to the sender's room.
func (r *router) roomMessage(ctx context.Context, id uuid.UUID, text string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	identity, room := r.identityOf(id), r.roomOf(id)
	if identity == "" {
		r.mu.Unlock()
		r.fail(s, errUnregistered)
		return
	}
	if room == "" {
		r.mu.Unlock()
		r.fail(s, errNotInRoom)
		return
	}
	if text == "" {
		r.mu.Unlock()
		return
	}

	if r.typing.Stop(roomKey(id, room)) {
		r.fanout(r.rooms.MembersExcept(room, id), EventRoomTypingStop, RoomTyping{Identity: identity})
	}
	r.mu.Unlock()

	// Accounts can be referenced by name without the store guaranteeing
	// they still exist, so room sends re-check the sender.
	exists, err := r.dir.AccountExists(ctx, identity)
	if err != nil {
		r.logger.Warn("account lookup failed", "identity", identity, "error", err)
		r.fail(s, errDirectoryDown)
		return
	}
	if !exists {
		r.fail(s, errUserNotFound)
		return
	}

	msg, err := r.store.PersistRoomMessage(ctx, room, identity, text)
	if err != nil {
		r.logger.Error("persist room message failed", "room", room, "identity", identity, "error", err)
		r.fail(s, errPersistence)
		return
	}
	r.stats.persisted.Add(1)

	// Membership is read after persisting; it may differ from the one at
	// send time.
	r.mu.Lock()
	r.fanout(r.rooms.Members(room), EventRoomMessage, msg)
	r.mu.Unlock()
}

// privateMessage persists text and delivers it to sender and recipient.
func (r *router) privateMessage(ctx context.Context, id uuid.UUID, to, text string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	identity := r.identityOf(id)
	if identity == "" {
		r.mu.Unlock()
		r.fail(s, errUnregistered)
		return
	}
	if to == "" || text == "" {
		r.mu.Unlock()
		return
	}
	if to == identity {
		r.mu.Unlock()
		r.fail(s, errSelfMessage)
		return
	}

	if r.typing.Stop(privateKey(id, to)) {
		r.sendTo(to, EventPrivateTypingStop, PrivateTyping{FromIdentity: identity})
	}
	r.mu.Unlock()

	// Only the recipient is checked; the sender's identity was bound at
	// registration.
	exists, err := r.dir.AccountExists(ctx, to)
	if err != nil {
		r.logger.Warn("account lookup failed", "identity", to, "error", err)
		r.fail(s, errDirectoryDown)
		return
	}
	if !exists {
		r.fail(s, errRecipient)
		return
	}

	msg, err := r.store.PersistPrivateMessage(ctx, identity, to, text)
	if err != nil {
		r.logger.Error("persist private message failed", "from", identity, "to", to, "error", err)
		r.fail(s, errPersistence)
		return
	}
	r.stats.persisted.Add(1)

	frame := r.encode(EventPrivateMessage, msg)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; ok {
		r.deliverFrame(s, frame)
	}
	if rc, ok := r.presence.Lookup(to); ok && rc != id {
		if rs, ok := r.sessions[rc]; ok {
			r.deliverFrame(rs, frame)
		}
	}
}

// roomTyping relays typing start/stop to the other members of the room.
func (r *router) roomTyping(id uuid.UUID, start bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return
	}
	identity, room := r.identityOf(id), r.roomOf(id)
	if identity == "" || room == "" {
		return
	}

	key := roomKey(id, room)
	eventType := EventRoomTypingStop
	var emit bool
	if start {
		eventType = EventRoomTyping
		emit = r.typing.Start(key)
	} else {
		emit = r.typing.Stop(key)
	}
	if emit {
		r.fanout(r.rooms.MembersExcept(room, id), eventType, RoomTyping{Identity: identity})
	}
}

// privateTyping relays typing start/stop to an online recipient.
func (r *router) privateTyping(id uuid.UUID, to string, start bool) {
	if to == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return
	}
	identity := r.identityOf(id)
	if identity == "" || to == identity {
		return
	}

	key := privateKey(id, to)
	if !start {
		if r.typing.Stop(key) {
			r.sendTo(to, EventPrivateTypingStop, PrivateTyping{FromIdentity: identity})
		}
		return
	}

	if _, online := r.presence.Lookup(to); !online {
		return
	}
	if r.typing.Start(key) {
		r.sendTo(to, EventPrivateTyping, PrivateTyping{FromIdentity: identity})
	}
}

// privateHistory returns recent messages between the session and peer.
func (r *router) privateHistory(ctx context.Context, id uuid.UUID, peer string) {
	if peer == "" {
		return
	}

	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	identity := r.identityOf(id)
	r.mu.Unlock()

	if identity == "" {
		r.fail(s, errUnregistered)
		return
	}

	history, err := r.store.RecentPrivateHistory(ctx, identity, peer, r.cfg.PrivateHistoryLimit)
	if err != nil {
		r.logger.Warn("private history failed", "identity", identity, "peer", peer, "error", err)
		r.fail(s, errHistory)
		return
	}
	if history == nil {
		history = []model.PrivateMessage{}
	}
	r.deliver(s, EventPrivateHistory, PrivateHistory{WithIdentity: peer, Records: history})
}

// typingExpired emits the synthetic stop for a timer that ran out.
func (r *router) typingExpired(exp typing.Expiry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.typing.Expire(exp) {
		return
	}
	id := exp.Key.Conn
	if _, ok := r.sessions[id]; !ok {
		return
	}
	identity := r.identityOf(id)

	target := exp.Key.Target
	switch target.Kind {
	case typing.Room:
		if r.roomOf(id) == target.Name {
			r.fanout(r.rooms.MembersExcept(target.Name, id), EventRoomTypingStop, RoomTyping{Identity: identity})
		}
	case typing.Private:
		r.sendTo(target.Name, EventPrivateTypingStop, PrivateTyping{FromIdentity: identity})
	}
}

// identityOf returns the identity attached to id, empty while anonymous.
// Must be called with r.mu held.
func (r *router) identityOf(id uuid.UUID) string {
	identity, _ := r.presence.IdentityOf(id)
	return identity
}

// roomOf returns the room id belongs to, empty when idle. Must be called
// with r.mu held.
func (r *router) roomOf(id uuid.UUID) string {
	room, _ := r.rooms.RoomOf(id)
	return room
}

func roomKey(id uuid.UUID, room string) typing.Key {
	return typing.Key{Conn: id, Target: typing.Target{Kind: typing.Room, Name: room}}
}

func privateKey(id uuid.UUID, to string) typing.Key {
	return typing.Key{Conn: id, Target: typing.Target{Kind: typing.Private, Name: to}}
}

// decode unmarshals the payload, counting and dropping malformed ones.
func (r *router) decode(id uuid.UUID, ev Event, dst any) bool {
	if err := decodePayload(ev, dst); err != nil {
		r.stats.malformed.Add(1)
		r.logger.Debug("malformed payload", "conn_id", id, "type", ev.Type, "error", err)
		return false
	}
	return true
}

func (r *router) encode(eventType string, payload any) []byte {
	frame, err := Encode(eventType, payload)
	if err != nil {
		r.logger.Error("encode frame failed", "type", eventType, "error", err)
		return nil
	}
	return frame
}

// fail reports err to s only. Safe with or without r.mu held.
func (r *router) fail(s *session, err *Error) {
	r.stats.clientError(err.Kind)
	r.deliver(s, EventError, err)
}

// deliver encodes and sends one frame to s.
func (r *router) deliver(s *session, eventType string, payload any) {
	r.deliverFrame(s, r.encode(eventType, payload))
}

func (r *router) deliverFrame(s *session, frame []byte) {
	if frame == nil {
		return
	}
	if s.out.Send(frame) {
		r.stats.delivered.Add(1)
	} else {
		r.stats.dropped.Add(1)
	}
}

// fanout encodes once and sends to every listed connection that still has a
// session. Must be called with r.mu held.
func (r *router) fanout(ids []uuid.UUID, eventType string, payload any) {
	if len(ids) == 0 {
		return
	}
	frame := r.encode(eventType, payload)
	for _, id := range ids {
		if s, ok := r.sessions[id]; ok {
			r.deliverFrame(s, frame)
		}
	}
}

// sendTo delivers to the connection currently registered for identity, if
// any. Must be called with r.mu held.
func (r *router) sendTo(identity, eventType string, payload any) {
	conn, ok := r.presence.Lookup(identity)
	if !ok {
		return
	}
	if s, ok := r.sessions[conn]; ok {
		r.deliver(s, eventType, payload)
	}
}
