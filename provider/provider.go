// Package provider defines the raw storage backend behind the local object store.
//
// A Provider is an opaque container: it keeps whatever value it is given, by reference,
// and hands the same value back. The object store layered on top owns TTL bookkeeping
// and write conditions; the provider only needs get/set/remove semantics. The ttl passed
// to Set is a reclamation hint: a provider may drop the entry once it elapses, but the
// store never relies on that for correctness.
package provider

import "time"

// Provider must be safe for concurrent use.
type Provider interface {
	// Get returns (value, true) on hit and (nil, false) on miss.
	Get(key string) (any, bool)

	// Set stores value. ttl <= 0 means "no expiry".
	// Returns false when the provider refused the write (capacity/admission);
	// a refused write reads back as a miss.
	Set(key string, value any, ttl time.Duration) bool

	// Del removes a key (best-effort).
	Del(key string)

	// Clear removes every key.
	Clear()

	// Close releases resources.
	Close() error
}
