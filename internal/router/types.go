package router

import (
	"context"
	"fmt"
	"time"

	"github.com/rickgao/chat-relay/internal/model"
)

// Config holds router behaviour.
type Config struct {
	Rooms               []string
	HistoryLimit        int           // room messages replayed on join
	PrivateHistoryLimit int           // messages returned by privateHistory
	TypingWindow        time.Duration // inactivity before a synthetic typing stop
}

// DefaultRooms is the room set used when none is configured.
var DefaultRooms = []string{"devops", "cloud computing", "covid19", "sports", "nodeJS", "general"}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Rooms:               append([]string(nil), DefaultRooms...),
		HistoryLimit:        20,
		PrivateHistoryLimit: 50,
		TypingWindow:        800 * time.Millisecond,
	}
}

// Sender delivers an encoded frame to one connection. Send must not block and
// must be safe for concurrent use; it returns false if the frame was dropped.
type Sender interface {
	Send(frame []byte) bool
}

// MessageStore persists messages and serves history.
type MessageStore interface {
	PersistRoomMessage(ctx context.Context, room, from, text string) (model.RoomMessage, error)
	PersistPrivateMessage(ctx context.Context, from, to, text string) (model.PrivateMessage, error)
	RecentRoomHistory(ctx context.Context, room string, limit int) ([]model.RoomMessage, error)
	RecentPrivateHistory(ctx context.Context, a, b string, limit int) ([]model.PrivateMessage, error)
}

// Directory checks that an identity is a registered account.
type Directory interface {
	AccountExists(ctx context.Context, identity string) (bool, error)
}

// Kind classifies client-facing errors.
type Kind string

const (
	KindUnregistered          Kind = "Unregistered"
	KindUnknownRoom           Kind = "UnknownRoom"
	KindNotInRoom             Kind = "NotInRoom"
	KindRecipientNotFound     Kind = "RecipientNotFound"
	KindSelfMessageNotAllowed Kind = "SelfMessageNotAllowed"
	KindUserNotFound          Kind = "UserNotFound"
	KindPersistenceFailure    Kind = "PersistenceFailure"
	KindDirectoryFailure      Kind = "DirectoryFailure"
)

// Error is a non-fatal failure reported to the originating connection.
type Error struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Text)
}

var (
	errUnregistered  = &Error{Kind: KindUnregistered, Text: "Not registered (missing identity)."}
	errUnknownRoom   = &Error{Kind: KindUnknownRoom, Text: "Invalid room."}
	errNotInRoom     = &Error{Kind: KindNotInRoom, Text: "Join a room first."}
	errNotInAnyRoom  = &Error{Kind: KindNotInRoom, Text: "You are not in a room."}
	errRecipient     = &Error{Kind: KindRecipientNotFound, Text: "Recipient user not found."}
	errSelfMessage   = &Error{Kind: KindSelfMessageNotAllowed, Text: "You can't message yourself."}
	errUserNotFound  = &Error{Kind: KindUserNotFound, Text: "User not found. Sign up again."}
	errPersistence   = &Error{Kind: KindPersistenceFailure, Text: "Message could not be saved. Try again."}
	errHistory       = &Error{Kind: KindPersistenceFailure, Text: "History is unavailable right now."}
	errDirectoryDown = &Error{Kind: KindDirectoryFailure, Text: "Account lookup failed. Try again."}
)
