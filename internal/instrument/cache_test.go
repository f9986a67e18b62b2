package instrument

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometryCache_HitAfterMiss(t *testing.T) {
	inst := SyntheticArray(2, 2, 100)
	cache, err := NewGeometryCache(inst, DefaultGeometryCacheSize)
	require.NoError(t, err)

	g1, err := cache.Get(1)
	require.NoError(t, err)
	g2, err := cache.Get(1)
	require.NoError(t, err)

	assert.Same(t, g1, g2, "second access should return the cached geometry")
	assert.Equal(t, 1, g1.TelID)
	assert.Equal(t, CacheStats{Entries: 1, Hits: 1, Misses: 1}, cache.Stats())
}

func TestGeometryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	inst := SyntheticArray(DefaultGeometryCacheSize+1, 0, 10)
	cache, err := NewGeometryCache(inst, DefaultGeometryCacheSize)
	require.NoError(t, err)

	for id := 1; id <= DefaultGeometryCacheSize; id++ {
		_, err := cache.Get(id)
		require.NoError(t, err)
	}
	require.Equal(t, DefaultGeometryCacheSize, cache.Len())

	// Touch telescope 1 so telescope 2 becomes the least recently used.
	_, err = cache.Get(1)
	require.NoError(t, err)

	_, err = cache.Get(DefaultGeometryCacheSize + 1)
	require.NoError(t, err)

	assert.Equal(t, DefaultGeometryCacheSize, cache.Len(), "cache must never exceed its bound")
	assert.True(t, cache.Contains(1))
	assert.False(t, cache.Contains(2), "least recently used entry should be evicted")
	assert.True(t, cache.Contains(DefaultGeometryCacheSize+1))
}

func TestGeometryCache_UnknownTelescopeNotCached(t *testing.T) {
	cache, err := NewGeometryCache(SyntheticArray(1, 1, 0), 4)
	require.NoError(t, err)

	_, err = cache.Get(42)
	assert.True(t, errors.Is(err, ErrUnknownTelescope))
	assert.Equal(t, 0, cache.Len())
}

func TestNewGeometryCache_Invalid(t *testing.T) {
	_, err := NewGeometryCache(nil, 4)
	assert.Error(t, err)

	_, err = NewGeometryCache(SyntheticArray(1, 1, 0), 0)
	assert.Error(t, err, "golang-lru rejects non-positive sizes")
}
