package store

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/rickgao/chat-relay/internal/model"
)

var (
	// ErrInvalidMessage is returned when a required message field is blank.
	ErrInvalidMessage = errors.New("store: room or identity or text is empty")

	// ErrInvalidIdentity is returned when creating an account with a blank identity.
	ErrInvalidIdentity = errors.New("store: identity is empty")

	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.New("store: unknown driver")
)

// Store is a message store plus the account table it shares a backend with.
type Store interface {
	PersistRoomMessage(ctx context.Context, room, from, text string) (model.RoomMessage, error)
	PersistPrivateMessage(ctx context.Context, from, to, text string) (model.PrivateMessage, error)

	// RecentRoomHistory returns up to limit messages of room, oldest first.
	RecentRoomHistory(ctx context.Context, room string, limit int) ([]model.RoomMessage, error)

	// RecentPrivateHistory returns up to limit messages exchanged between a
	// and b in either direction, oldest first.
	RecentPrivateHistory(ctx context.Context, a, b string, limit int) ([]model.PrivateMessage, error)

	AccountExists(ctx context.Context, identity string) (bool, error)

	// CreateAccounts inserts identities that do not exist yet and returns how
	// many were new.
	CreateAccounts(ctx context.Context, identities ...string) (int, error)

	Ping(ctx context.Context) error
	Close() error
}

func validRoomMessage(room, from, text string) error {
	if strings.TrimSpace(room) == "" || strings.TrimSpace(from) == "" || strings.TrimSpace(text) == "" {
		return ErrInvalidMessage
	}
	return nil
}

func validPrivateMessage(from, to, text string) error {
	if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" || strings.TrimSpace(text) == "" {
		return ErrInvalidMessage
	}
	return nil
}

// normalizeAccounts trims, drops duplicates and rejects blanks.
func normalizeAccounts(identities []string) ([]string, error) {
	out := make([]string, 0, len(identities))
	for _, id := range identities {
		id = model.NormalizeIdentity(id)
		if id == "" {
			return nil, ErrInvalidIdentity
		}
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out, nil
}
