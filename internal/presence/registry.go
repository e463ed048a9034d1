package presence

import "github.com/google/uuid"

// Registry is the identity <-> connection mapping.
type Registry struct {
	byIdentity map[string]uuid.UUID
	byConn     map[uuid.UUID]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byIdentity: make(map[string]uuid.UUID),
		byConn:     make(map[uuid.UUID]string),
	}
}

// Register attaches identity to conn. It is a no-op, returning false, when
// conn already has an identity attached.
func (r *Registry) Register(conn uuid.UUID, identity string) bool {
	if _, ok := r.byConn[conn]; ok {
		return false
	}
	r.byConn[conn] = identity
	r.byIdentity[identity] = conn
	return true
}

// Lookup returns the connection currently registered for identity.
func (r *Registry) Lookup(identity string) (uuid.UUID, bool) {
	conn, ok := r.byIdentity[identity]
	return conn, ok
}

// IdentityOf returns the identity attached to conn.
func (r *Registry) IdentityOf(conn uuid.UUID) (string, bool) {
	identity, ok := r.byConn[conn]
	return identity, ok
}

// Remove detaches conn. The identity entry is cleared only if it still points
// at conn; current reports whether that happened.
func (r *Registry) Remove(conn uuid.UUID) (identity string, current bool) {
	identity, ok := r.byConn[conn]
	if !ok {
		return "", false
	}
	delete(r.byConn, conn)

	if r.byIdentity[identity] == conn {
		delete(r.byIdentity, identity)
		return identity, true
	}
	return identity, false
}

// Online returns the number of identities reachable by lookup.
func (r *Registry) Online() int {
	return len(r.byIdentity)
}

// Attached returns the number of connections with an identity attached,
// including presence-orphaned ones.
func (r *Registry) Attached() int {
	return len(r.byConn)
}
