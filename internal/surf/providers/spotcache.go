package providers

import (
	"sync"
	"time"

	"github.com/i474232898/surf-forecast/internal/surf"
)

// DefaultSpotCacheTTL is how long a fetched spot directory is reused.
const DefaultSpotCacheTTL = 24 * time.Hour

// SpotCache holds the most recently fetched spot directory and when it was
// fetched. The lock guards the two fields only and is never held across I/O,
// so concurrent refreshes may both hit upstream; the last write wins.
type SpotCache struct {
	mu        sync.Mutex
	spots     []surf.Spot
	fetchedAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

// NewSpotCache creates an empty cache. A nil clock means time.Now.
func NewSpotCache(ttl time.Duration, now func() time.Time) *SpotCache {
	if ttl <= 0 {
		ttl = DefaultSpotCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	return &SpotCache{ttl: ttl, now: now}
}

// Lookup returns the cached directory while it is younger than the TTL.
func (c *SpotCache) Lookup() ([]surf.Spot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fetchedAt.IsZero() || c.now().Sub(c.fetchedAt) >= c.ttl {
		return nil, false
	}
	return c.spots, true
}

// Replace swaps in a freshly fetched directory wholesale.
func (c *SpotCache) Replace(spots []surf.Spot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spots = spots
	c.fetchedAt = c.now()
}

// FetchedAt reports when the cached directory was fetched.
func (c *SpotCache) FetchedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchedAt
}
