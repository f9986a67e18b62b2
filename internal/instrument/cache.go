package instrument

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultGeometryCacheSize is the per-instance bound on cached geometries.
const DefaultGeometryCacheSize = 128

// GeometryCache memoises CameraGeometry per telescope id with
// least-recently-used eviction. Entries are never invalidated because the
// description they derive from is immutable. One cache belongs to one
// stage instance.
type GeometryCache struct {
	inst   *Description
	guess  func(pixX, pixY []float64, focalLength float64) (*CameraGeometry, error)
	cache  *lru.Cache[int, *CameraGeometry]
	hits   uint64
	misses uint64
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Entries int
	Hits    uint64
	Misses  uint64
}

// NewGeometryCache creates a cache of at most size entries over inst.
func NewGeometryCache(inst *Description, size int) (*GeometryCache, error) {
	if inst == nil {
		return nil, fmt.Errorf("geometry cache requires an instrument description")
	}
	c, err := lru.New[int, *CameraGeometry](size)
	if err != nil {
		return nil, fmt.Errorf("create geometry cache: %w", err)
	}
	return &GeometryCache{inst: inst, guess: Guess, cache: c}, nil
}

// Get returns the geometry for telID, inferring and caching it on first
// access. Failed inferences are not cached.
func (c *GeometryCache) Get(telID int) (*CameraGeometry, error) {
	if g, ok := c.cache.Get(telID); ok {
		c.hits++
		return g, nil
	}
	c.misses++

	tel, err := c.inst.Telescope(telID)
	if err != nil {
		return nil, err
	}
	g, err := c.guess(tel.PixelX, tel.PixelY, tel.FocalLength)
	if err != nil {
		return nil, fmt.Errorf("telescope %d: %w", telID, err)
	}
	g.TelID = telID
	c.cache.Add(telID, g)
	return g, nil
}

// Contains reports whether telID is cached without touching its recency.
func (c *GeometryCache) Contains(telID int) bool {
	return c.cache.Contains(telID)
}

// Len returns the number of cached geometries.
func (c *GeometryCache) Len() int { return c.cache.Len() }

// Stats returns a snapshot of cache counters.
func (c *GeometryCache) Stats() CacheStats {
	return CacheStats{Entries: c.cache.Len(), Hits: c.hits, Misses: c.misses}
}
