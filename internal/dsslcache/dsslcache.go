// Package dsslcache contains the cache the store adapter uses for its read
// methods.
package dsslcache

import (
	"time"
)

// Interface is the cache interface.  Every entry carries a TTL, since cached
// store data must converge after control-plane edits.
type Interface[K, T any] interface {
	// SetWithExpire sets key and val as a cache pair that expires after ttl.
	SetWithExpire(key K, val T, ttl time.Duration)

	// Get gets val from the cache using key.
	Get(key K) (val T, ok bool)

	// Clear completely clears the cache.
	Clear()
}
