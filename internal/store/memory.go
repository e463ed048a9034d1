package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/chat-relay/internal/model"
)

// Memory is an in-process Store.
type Memory struct {
	mu       sync.RWMutex
	room     []model.RoomMessage
	private  []model.PrivateMessage
	accounts map[string]struct{}
	now      func() time.Time
}

// NewMemory creates a memory store seeded with accounts.
func NewMemory(accounts ...string) *Memory {
	m := &Memory{
		accounts: make(map[string]struct{}, len(accounts)),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, id := range accounts {
		if id = model.NormalizeIdentity(id); id != "" {
			m.accounts[id] = struct{}{}
		}
	}
	return m
}

// PersistRoomMessage appends a room message.
func (m *Memory) PersistRoomMessage(ctx context.Context, room, from, text string) (model.RoomMessage, error) {
	if err := ctx.Err(); err != nil {
		return model.RoomMessage{}, err
	}
	if err := validRoomMessage(room, from, text); err != nil {
		return model.RoomMessage{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	msg := model.RoomMessage{
		ID:           uuid.New(),
		Room:         room,
		FromIdentity: from,
		Text:         text,
		PersistedAt:  m.now(),
	}
	m.room = append(m.room, msg)
	return msg, nil
}

// PersistPrivateMessage appends a private message.
func (m *Memory) PersistPrivateMessage(ctx context.Context, from, to, text string) (model.PrivateMessage, error) {
	if err := ctx.Err(); err != nil {
		return model.PrivateMessage{}, err
	}
	if err := validPrivateMessage(from, to, text); err != nil {
		return model.PrivateMessage{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	msg := model.PrivateMessage{
		ID:           uuid.New(),
		FromIdentity: from,
		ToIdentity:   to,
		Text:         text,
		PersistedAt:  m.now(),
	}
	m.private = append(m.private, msg)
	return msg, nil
}

// RecentRoomHistory returns the newest limit messages of room, oldest first.
func (m *Memory) RecentRoomHistory(ctx context.Context, room string, limit int) ([]model.RoomMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.RoomMessage, 0)
	for i := len(m.room) - 1; i >= 0 && len(out) < limit; i-- {
		if m.room[i].Room == room {
			out = append(out, m.room[i])
		}
	}
	slices.Reverse(out)
	return out, nil
}

// RecentPrivateHistory returns the newest limit messages between a and b,
// oldest first.
func (m *Memory) RecentPrivateHistory(ctx context.Context, a, b string, limit int) ([]model.PrivateMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.PrivateMessage, 0)
	for i := len(m.private) - 1; i >= 0 && len(out) < limit; i-- {
		if m.private[i].Between(a, b) {
			out = append(out, m.private[i])
		}
	}
	slices.Reverse(out)
	return out, nil
}

// AccountExists reports whether identity is a known account.
func (m *Memory) AccountExists(ctx context.Context, identity string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.accounts[identity]
	return ok, nil
}

// CreateAccounts adds identities that are not yet known.
func (m *Memory) CreateAccounts(ctx context.Context, identities ...string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	ids, err := normalizeAccounts(identities)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	created := 0
	for _, id := range ids {
		if _, ok := m.accounts[id]; ok {
			continue
		}
		m.accounts[id] = struct{}{}
		created++
	}
	return created, nil
}

// Ping always succeeds.
func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}
