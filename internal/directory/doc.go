// Package directory answers "is this identity a registered account?".
//
// Implementations:
//   - Static: a fixed set from configuration
//   - HTTP: GET {base}/accounts/{identity} against an account service
//   - the store itself (store.Store satisfies Directory)
//
// Cached wraps any of them with a Redis cache and coalesces concurrent
// lookups of the same identity.
package directory
