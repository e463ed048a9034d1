package router

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rickgao/chat-relay/internal/model"
)

// Inbound event types.
const (
	EventRegister          = "register"
	EventJoinRoom          = "joinRoom"
	EventLeaveRoom         = "leaveRoom"
	EventRoomMessage       = "roomMessage"
	EventPrivateMessage    = "privateMessage"
	EventRoomTyping        = "roomTyping"
	EventRoomTypingStop    = "roomTypingStop"
	EventPrivateTyping     = "privateTyping"
	EventPrivateTypingStop = "privateTypingStop"
	EventPrivateHistory    = "privateHistory"
)

// Outbound-only event types. roomMessage, privateMessage, the typing events
// and privateHistory reuse the inbound names.
const (
	EventRoomsList   = "roomsList"
	EventJoinedRoom  = "joinedRoom"
	EventLeftRoom    = "leftRoom"
	EventRoomHistory = "roomHistory"
	EventError       = "error"
)

// ErrMissingType is returned by Decode for a frame without a type.
var ErrMissingType = errors.New("frame has no type")

// Event is one decoded client frame: {"type": ..., "payload": {...}}.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode parses a client frame.
func Decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("decode frame: %w", err)
	}
	if ev.Type == "" {
		return Event{}, ErrMissingType
	}
	return ev, nil
}

// Inbound payloads.

type registerPayload struct {
	Identity string `json:"identity"`
}

type joinRoomPayload struct {
	Room string `json:"room"`
}

type roomMessagePayload struct {
	Text string `json:"text"`
}

type privateMessagePayload struct {
	ToIdentity string `json:"to_identity"`
	Text       string `json:"text"`
}

type privateTypingPayload struct {
	ToIdentity string `json:"to_identity"`
}

type privateHistoryPayload struct {
	WithIdentity string `json:"with_identity"`
}

// Outbound payloads.

// RoomsList lists the configured rooms.
type RoomsList struct {
	Rooms []string `json:"rooms"`
}

// RoomNotice is the payload of joinedRoom and leftRoom. Identity is set when
// the notice is about another member.
type RoomNotice struct {
	Room     string `json:"room"`
	Identity string `json:"identity,omitempty"`
}

// RoomHistory is replayed to a joiner.
type RoomHistory struct {
	Room    string              `json:"room"`
	Records []model.RoomMessage `json:"records"`
}

// PrivateHistory answers a privateHistory request.
type PrivateHistory struct {
	WithIdentity string                 `json:"with_identity"`
	Records      []model.PrivateMessage `json:"records"`
}

// RoomTyping is the payload of roomTyping and roomTypingStop.
type RoomTyping struct {
	Identity string `json:"identity"`
}

// PrivateTyping is the payload of privateTyping and privateTypingStop.
type PrivateTyping struct {
	FromIdentity string `json:"from_identity"`
}

// Frame is an outbound message.
type Frame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Encode marshals an outbound frame. Fan-outs encode once and share the
// bytes with every recipient.
func Encode(eventType string, payload any) ([]byte, error) {
	data, err := json.Marshal(Frame{Type: eventType, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", eventType, err)
	}
	return data, nil
}

// decodePayload unmarshals an event payload. An absent payload leaves dst
// zeroed.
func decodePayload(ev Event, dst any) error {
	if len(ev.Payload) == 0 || string(ev.Payload) == "null" {
		return nil
	}
	return json.Unmarshal(ev.Payload, dst)
}
