package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RoomMessage is a persisted message broadcast to a room.
type RoomMessage struct {
	ID           uuid.UUID `json:"id"`
	Room         string    `json:"room"`
	FromIdentity string    `json:"from_identity"`
	Text         string    `json:"text"`
	PersistedAt  time.Time `json:"persisted_at"`
}

// PrivateMessage is a persisted direct message between two identities.
type PrivateMessage struct {
	ID           uuid.UUID `json:"id"`
	FromIdentity string    `json:"from_identity"`
	ToIdentity   string    `json:"to_identity"`
	Text         string    `json:"text"`
	PersistedAt  time.Time `json:"persisted_at"`
}

// Between reports whether the message was exchanged by a and b in either
// direction.
func (m PrivateMessage) Between(a, b string) bool {
	return (m.FromIdentity == a && m.ToIdentity == b) ||
		(m.FromIdentity == b && m.ToIdentity == a)
}

// NormalizeIdentity trims an identity. An empty result means absent.
func NormalizeIdentity(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeRoom trims a room name. An empty result means absent.
func NormalizeRoom(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeText trims a message body. An empty result means absent.
func NormalizeText(s string) string {
	return strings.TrimSpace(s)
}
