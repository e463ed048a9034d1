// Package database opens the relational backends behind the message store.
//
//   - PostgreSQL via a pgx connection pool
//   - SQLite via modernc.org/sqlite (pure Go, no cgo)
//
// Both carry the same two tables (room_messages, private_messages) plus an
// accounts table used by the store-backed account directory. Schemas are
// embedded and applied idempotently at startup.
package database
