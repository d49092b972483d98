package pollen

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/crowdpollen/crowdpollen/internal/clock"
)

// CacheKey identifies a cached forecast. Coordinates are rounded to
// 3 decimal places (~110m) before keying so nearby requests share an
// entry; this trades location precision for cache hits.
type CacheKey struct {
	Lat  float64
	Lon  float64
	Days int
}

// NewCacheKey builds a key from raw coordinates and a day count.
func NewCacheKey(lat, lon float64, days int) CacheKey {
	return CacheKey{
		Lat:  roundCoord(lat),
		Lon:  roundCoord(lon),
		Days: days,
	}
}

func roundCoord(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// String returns a stable textual form, usable as a map key in external
// stores.
func (k CacheKey) String() string {
	return fmt.Sprintf("%.3f:%.3f:%d", k.Lat, k.Lon, k.Days)
}

// CacheEntry is an immutable cached forecast with its fetch timestamp.
type CacheEntry struct {
	Forecast  *Forecast
	FetchedAt time.Time
}

// Cache is an injectable keyed forecast store. Implementations own TTL
// checking: Get returns only entries that are still fresh. Entries are
// immutable value objects, so concurrent writes to the same key are
// idempotent and last-write-wins is correct.
type Cache interface {
	Get(key CacheKey) (*CacheEntry, bool)
	Set(key CacheKey, entry *CacheEntry)
}

// MemoryCacheConfig holds configuration for the in-process cache.
type MemoryCacheConfig struct {
	// TTL is how long authoritative entries stay fresh. Default: 6 hours.
	TTL time.Duration

	// SyntheticTTL is how long synthetic fallback entries stay fresh.
	// Kept deliberately shorter than TTL so cached fallback data cannot
	// mask provider recovery for the full window. Default: 30 minutes.
	SyntheticTTL time.Duration

	// Clock is the time source. Default: clock.Real.
	Clock clock.Clock
}

// MemoryCache is a process-wide in-memory forecast cache.
type MemoryCache struct {
	ttl          time.Duration
	syntheticTTL time.Duration
	clock        clock.Clock

	mu      sync.RWMutex
	entries map[CacheKey]*CacheEntry
}

// NewMemoryCache creates a MemoryCache applying defaults for zero fields.
func NewMemoryCache(cfg MemoryCacheConfig) *MemoryCache {
	if cfg.TTL == 0 {
		cfg.TTL = 6 * time.Hour
	}
	if cfg.SyntheticTTL == 0 {
		cfg.SyntheticTTL = 30 * time.Minute
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	return &MemoryCache{
		ttl:          cfg.TTL,
		syntheticTTL: cfg.SyntheticTTL,
		clock:        cfg.Clock,
		entries:      make(map[CacheKey]*CacheEntry),
	}
}

// Get returns the entry for key if present and not expired.
func (c *MemoryCache) Get(key CacheKey) (*CacheEntry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	ttl := c.ttl
	if entry.Forecast != nil && entry.Forecast.Synthetic() {
		ttl = c.syntheticTTL
	}
	if c.clock.Now().Sub(entry.FetchedAt) > ttl {
		return nil, false
	}
	return entry, true
}

// Set stores an entry under key, replacing any previous entry.
func (c *MemoryCache) Set(key CacheKey, entry *CacheEntry) {
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge removes entries whose fetch time is older than the authoritative
// TTL. Expired synthetic entries are removed on the same sweep.
func (c *MemoryCache) Purge() int {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		ttl := c.ttl
		if entry.Forecast != nil && entry.Forecast.Synthetic() {
			ttl = c.syntheticTTL
		}
		if now.Sub(entry.FetchedAt) > ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}
