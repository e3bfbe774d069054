package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-process idempotency cache for single-node runs
// without Redis. Expired keys are swept on a write at most once per sweep
// interval.
type MemoryCache struct {
	mu        sync.Mutex
	ttl       time.Duration
	interval  time.Duration
	now       func() time.Time
	nextSweep time.Time
	keys      map[string]time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = defaultIdempotencyKeyTTL
	}
	return &MemoryCache{
		ttl:      ttl,
		interval: min(ttl, time.Minute),
		now:      time.Now,
		keys:     make(map[string]time.Time),
	}
}

func (c *MemoryCache) SetIdempotency(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if exp, ok := c.keys[key]; ok && now.Before(exp) {
		return false, nil
	}
	if !now.Before(c.nextSweep) {
		c.sweepLocked(now)
	}
	c.keys[key] = now.Add(c.ttl)
	return true, nil
}

func (c *MemoryCache) ClearIdempotency(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.keys, key)
	return nil
}

func (c *MemoryCache) sweepLocked(now time.Time) {
	for k, exp := range c.keys {
		if !now.Before(exp) {
			delete(c.keys, k)
		}
	}
	c.nextSweep = now.Add(c.interval)
}
