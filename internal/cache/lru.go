package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

// LRUCache is a size-bounded cache over ristretto with per-entry TTL.
// Expiry is checked on Get so a stale entry never leaves the cache.
type LRUCache struct {
	store      *ristretto.Cache
	defaultTTL time.Duration
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

// NewLRU builds a cache capped at maxSizeMB megabytes and sized for
// maxEntries keys.
func NewLRU(maxSizeMB, maxEntries int64, defaultTTL time.Duration) (*LRUCache, error) {
	// Ristretto wants roughly 10x counters per tracked key.
	counters := maxEntries * 10
	if counters < 1000 {
		counters = 1000
	}

	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: counters,
		MaxCost:     maxSizeMB << 20,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}

	return &LRUCache{store: store, defaultTTL: defaultTTL}, nil
}

func (c *LRUCache) Get(key string) ([]byte, bool) {
	val, found := c.store.Get(key)
	if !found {
		return nil, false
	}
	e, ok := val.(*entry)
	if !ok {
		c.store.Del(key)
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.store.Del(key)
		return nil, false
	}
	return e.data, true
}

func (c *LRUCache) Set(key string, value []byte, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	e := &entry{data: value, expiresAt: time.Now().Add(ttl)}
	c.store.Set(key, e, int64(len(value)))
	// Sets are buffered; Wait makes them visible to the next Get.
	c.store.Wait()
}

func (c *LRUCache) Delete(key string) {
	c.store.Del(key)
}

func (c *LRUCache) Clear() {
	c.store.Clear()
}

// Stats reads ristretto's counters. Size is cost added minus cost evicted,
// an approximation that drifts as entries are deleted.
func (c *LRUCache) Stats() Stats {
	m := c.store.Metrics
	return Stats{
		Hits:      m.Hits(),
		Misses:    m.Misses(),
		KeysAdded: m.KeysAdded(),
		Evictions: m.KeysEvicted(),
		Size:      int64(m.CostAdded() - m.CostEvicted()),
		Items:     int64(m.KeysAdded() - m.KeysEvicted()),
	}
}

// Close releases ristretto's internal goroutines.
func (c *LRUCache) Close() {
	c.store.Close()
}
