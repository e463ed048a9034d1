// Package store persists chat messages and answers account-existence checks.
//
// Backends:
//   - Memory: in-process, for tests and single-node demos
//   - SQLite: modernc.org/sqlite, millisecond timestamps
//   - Postgres: pgx pool, canonical timestamp from INSERT ... RETURNING
//
// Every backend assigns the message ID and the persisted timestamp; the
// returned record is what the router fans out. History is returned oldest
// first.
package store
