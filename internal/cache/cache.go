package cache

import "time"

// Cache stores serialized responses keyed by endpoint. Implementations must
// be safe for concurrent use.
type Cache interface {
	// Get returns the cached value and true when present and fresh.
	Get(key string) ([]byte, bool)

	// Set stores value under key. A zero ttl uses the cache default.
	Set(key string, value []byte, ttl time.Duration)

	// Delete removes a single key.
	Delete(key string)

	// Clear drops everything.
	Clear()

	// Stats returns counters from the underlying store.
	Stats() Stats
}

// Stats is served as part of the metrics payload.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	KeysAdded uint64 `json:"keys_added"`
	Evictions uint64 `json:"evictions"`
	Size      int64  `json:"size_bytes"`
	Items     int64  `json:"items"`
}
