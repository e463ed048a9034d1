// Package model defines the message records shared by the router and the
// stores.
//
// Conventions:
//   - Identities and room names are compared after trimming surrounding space
//   - PersistedAt is assigned by the store and is the canonical timestamp
//   - IDs are uuid.UUID assigned at persist time
package model
