package etnclient

import (
	"strings"
	"sync"
	"time"
)

// decimalsCache remembers token decimals() results so repeated swaps of the
// same asset do not re-query the chain. Entries expire after the TTL in case
// a token contract is upgraded in place.
type decimalsCache struct {
	mu    sync.RWMutex
	cache map[string]cachedDecimals
	ttl   time.Duration
}

type cachedDecimals struct {
	decimals  uint8
	timestamp time.Time
}

func newDecimalsCache(ttl time.Duration) *decimalsCache {
	return &decimalsCache{
		cache: make(map[string]cachedDecimals),
		ttl:   ttl,
	}
}

// Get retrieves cached decimals if still valid.
func (c *decimalsCache) Get(address string) (uint8, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cached, exists := c.cache[strings.ToLower(address)]
	if !exists {
		return 0, false
	}
	if time.Since(cached.timestamp) > c.ttl {
		return 0, false
	}
	return cached.decimals, true
}

// Set stores decimals with the current timestamp.
func (c *decimalsCache) Set(address string, decimals uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache[strings.ToLower(address)] = cachedDecimals{
		decimals:  decimals,
		timestamp: time.Now(),
	}
}
