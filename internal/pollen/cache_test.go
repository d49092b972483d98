package pollen_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdpollen/crowdpollen/internal/clock"
	"github.com/crowdpollen/crowdpollen/internal/pollen"
)

func TestNewCacheKey_Rounding(t *testing.T) {
	// Coordinates within ~110m round to the same key.
	k1 := pollen.NewCacheKey(40.71281, -74.00604, 3)
	k2 := pollen.NewCacheKey(40.71299, -74.00570, 3)
	assert.Equal(t, k1, k2)

	// Clearly separate coordinates do not.
	k3 := pollen.NewCacheKey(40.72, -74.00604, 3)
	assert.NotEqual(t, k1, k3)

	// Day count is part of the key.
	k4 := pollen.NewCacheKey(40.71281, -74.00604, 5)
	assert.NotEqual(t, k1, k4)
}

func TestMemoryCache_TTL(t *testing.T) {
	fake := clock.NewFake(time.Date(2026, 4, 15, 8, 0, 0, 0, time.UTC))
	cache := pollen.NewMemoryCache(pollen.MemoryCacheConfig{
		TTL:   6 * time.Hour,
		Clock: fake,
	})

	key := pollen.NewCacheKey(40.7128, -74.0060, 3)
	forecast := &pollen.Forecast{Source: pollen.SourceAuthoritative}
	cache.Set(key, &pollen.CacheEntry{Forecast: forecast, FetchedAt: fake.Now()})

	entry, ok := cache.Get(key)
	require.True(t, ok)
	assert.Same(t, forecast, entry.Forecast)

	// Still fresh just inside the TTL.
	fake.Advance(6*time.Hour - time.Minute)
	_, ok = cache.Get(key)
	assert.True(t, ok)

	// Expired past the TTL.
	fake.Advance(2 * time.Minute)
	_, ok = cache.Get(key)
	assert.False(t, ok)
}

func TestMemoryCache_SyntheticShorterTTL(t *testing.T) {
	fake := clock.NewFake(time.Date(2026, 4, 15, 8, 0, 0, 0, time.UTC))
	cache := pollen.NewMemoryCache(pollen.MemoryCacheConfig{
		TTL:          6 * time.Hour,
		SyntheticTTL: 30 * time.Minute,
		Clock:        fake,
	})

	key := pollen.NewCacheKey(40.7128, -74.0060, 3)
	cache.Set(key, &pollen.CacheEntry{
		Forecast:  &pollen.Forecast{Source: pollen.SourceSynthetic},
		FetchedAt: fake.Now(),
	})

	_, ok := cache.Get(key)
	assert.True(t, ok)

	// Synthetic entries expire on the shorter TTL so cached fallback
	// data cannot mask provider recovery for the full window.
	fake.Advance(31 * time.Minute)
	_, ok = cache.Get(key)
	assert.False(t, ok)
}

func TestMemoryCache_Purge(t *testing.T) {
	fake := clock.NewFake(time.Date(2026, 4, 15, 8, 0, 0, 0, time.UTC))
	cache := pollen.NewMemoryCache(pollen.MemoryCacheConfig{
		TTL:          time.Hour,
		SyntheticTTL: 10 * time.Minute,
		Clock:        fake,
	})

	cache.Set(pollen.NewCacheKey(40.0, -74.0, 3), &pollen.CacheEntry{
		Forecast:  &pollen.Forecast{Source: pollen.SourceAuthoritative},
		FetchedAt: fake.Now(),
	})
	cache.Set(pollen.NewCacheKey(41.0, -74.0, 3), &pollen.CacheEntry{
		Forecast:  &pollen.Forecast{Source: pollen.SourceSynthetic},
		FetchedAt: fake.Now(),
	})
	require.Equal(t, 2, cache.Len())

	fake.Advance(30 * time.Minute)
	assert.Equal(t, 1, cache.Purge())
	assert.Equal(t, 1, cache.Len())
}
