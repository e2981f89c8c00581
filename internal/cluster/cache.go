package cluster

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// EmbeddingCache holds one summary vector per incident id. Entries are
// computed lazily on first comparison and dropped whenever the incident's
// belief state changes, so a cached vector never outlives the text it
// represents.
type EmbeddingCache struct {
	cache *gocache.Cache
}

// NewEmbeddingCache creates an empty cache. Entries have no TTL; staleness is
// handled by explicit invalidation on incident mutation.
func NewEmbeddingCache() *EmbeddingCache {
	return &EmbeddingCache{
		cache: gocache.New(gocache.NoExpiration, 10*time.Minute),
	}
}

// Get returns the cached vector for an incident id
func (c *EmbeddingCache) Get(incidentID string) ([]float32, bool) {
	if val, found := c.cache.Get(incidentID); found {
		return val.([]float32), true
	}
	return nil, false
}

// Set stores the vector for an incident id
func (c *EmbeddingCache) Set(incidentID string, vec []float32) {
	c.cache.Set(incidentID, vec, gocache.NoExpiration)
}

// Invalidate drops the cached vector after an incident mutation
func (c *EmbeddingCache) Invalidate(incidentID string) {
	c.cache.Delete(incidentID)
}
