// Package rooms tracks membership of a fixed set of named rooms.
//
// A connection belongs to at most one room. Joining a different room first
// removes the connection from its current room and reports the vacated room
// so the caller can notify the members left behind.
//
// Table is not safe for concurrent use; the router serializes access.
package rooms
