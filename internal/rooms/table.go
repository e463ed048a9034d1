package rooms

import (
	"errors"
	"slices"

	"github.com/google/uuid"
)

var (
	// ErrUnknownRoom is returned when joining a room outside the configured set.
	ErrUnknownRoom = errors.New("unknown room")

	// ErrUnregistered is returned when an anonymous connection tries to join.
	ErrUnregistered = errors.New("connection has no identity")

	// ErrNotInRoom is returned when leaving without a current room.
	ErrNotInRoom = errors.New("not in a room")
)

// Joined describes a successful join.
type Joined struct {
	Room string

	// Previous is the room vacated by the join, empty when the connection
	// was idle or re-joined the room it was already in.
	Previous string
}

// Table holds per-room member sets.
type Table struct {
	names   []string
	members map[string]map[uuid.UUID]struct{}
	roomOf  map[uuid.UUID]string
}

// NewTable creates a table for the given room names. Duplicates are ignored.
func NewTable(names []string) *Table {
	t := &Table{
		members: make(map[string]map[uuid.UUID]struct{}, len(names)),
		roomOf:  make(map[uuid.UUID]string),
	}
	for _, name := range names {
		if _, ok := t.members[name]; ok {
			continue
		}
		t.names = append(t.names, name)
		t.members[name] = make(map[uuid.UUID]struct{})
	}
	return t
}

// Names returns the configured rooms in configuration order.
func (t *Table) Names() []string {
	return slices.Clone(t.names)
}

// Join moves conn into room. identity is the identity attached to conn;
// an empty identity fails with ErrUnregistered.
func (t *Table) Join(conn uuid.UUID, identity, room string) (Joined, error) {
	set, ok := t.members[room]
	if !ok {
		return Joined{}, ErrUnknownRoom
	}
	if identity == "" {
		return Joined{}, ErrUnregistered
	}

	joined := Joined{Room: room}
	if prev, ok := t.roomOf[conn]; ok && prev != room {
		delete(t.members[prev], conn)
		joined.Previous = prev
	}

	set[conn] = struct{}{}
	t.roomOf[conn] = room
	return joined, nil
}

// Leave removes conn from its current room and returns the vacated room.
func (t *Table) Leave(conn uuid.UUID) (string, error) {
	room, ok := t.Remove(conn)
	if !ok {
		return "", ErrNotInRoom
	}
	return room, nil
}

// Remove drops conn from whatever room it belongs to. It never fails.
func (t *Table) Remove(conn uuid.UUID) (string, bool) {
	room, ok := t.roomOf[conn]
	if !ok {
		return "", false
	}
	delete(t.roomOf, conn)
	delete(t.members[room], conn)
	return room, true
}

// RoomOf returns the room conn currently belongs to.
func (t *Table) RoomOf(conn uuid.UUID) (string, bool) {
	room, ok := t.roomOf[conn]
	return room, ok
}

// Members returns the connections in room.
func (t *Table) Members(room string) []uuid.UUID {
	set := t.members[room]
	out := make([]uuid.UUID, 0, len(set))
	for conn := range set {
		out = append(out, conn)
	}
	return out
}

// MembersExcept returns the connections in room other than conn.
func (t *Table) MembersExcept(room string, conn uuid.UUID) []uuid.UUID {
	set := t.members[room]
	out := make([]uuid.UUID, 0, len(set))
	for member := range set {
		if member != conn {
			out = append(out, member)
		}
	}
	return out
}

// Occupancy returns the member count per configured room.
func (t *Table) Occupancy() map[string]int {
	out := make(map[string]int, len(t.members))
	for name, set := range t.members {
		out[name] = len(set)
	}
	return out
}
