// Package presence maps identities to their live connection.
//
// An identity maps to at most one connection. Registering an identity on a
// new connection overwrites the entry; the older connection keeps its attached
// identity but is no longer reachable by lookup. Removal only clears the
// identity entry if it still points at the removed connection, so a late
// teardown cannot clobber a newer registration.
//
// Registry is not safe for concurrent use; the router serializes access.
package presence
