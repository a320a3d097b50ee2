// Package quotecache provides a TTL cache over guarded source fetches. A
// cache hit serves the stored quote without touching the network, and
// concurrent misses for the same (source, symbol) pair are coalesced into a
// single upstream call.
package quotecache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/zhongsurehow/crossarb/internal/domain"
)

// Fetcher is the upstream the cache fills from, normally the resilience
// guard.
type Fetcher interface {
	Fetch(ctx context.Context, source domain.SourceID, symbol string) (domain.Quote, error)
}

type entry struct {
	quote     domain.Quote
	expiresAt time.Time
}

// Cache stores quotes keyed by (source, symbol) for a fixed TTL.
type Cache struct {
	fetcher Fetcher
	ttl     time.Duration

	mu      sync.RWMutex
	entries map[string]entry

	group singleflight.Group

	// now is swappable in tests.
	now func() time.Time
}

// New creates a cache over fetcher with the given TTL.
func New(fetcher Fetcher, ttl time.Duration) *Cache {
	return &Cache{
		fetcher: fetcher,
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func key(source domain.SourceID, symbol string) string {
	return string(source) + "|" + symbol
}

// Get returns the cached quote for (source, symbol), fetching upstream on a
// miss or an expired entry. Errors are never cached; the next caller fetches
// again.
func (c *Cache) Get(ctx context.Context, source domain.SourceID, symbol string) (domain.Quote, error) {
	k := key(source, symbol)

	if q, ok := c.lookup(k); ok {
		return q, nil
	}

	v, err, _ := c.group.Do(k, func() (any, error) {
		// A winner may have populated the entry while we queued.
		if q, ok := c.lookup(k); ok {
			return q, nil
		}
		q, err := c.fetcher.Fetch(ctx, source, symbol)
		if err != nil {
			return domain.Quote{}, err
		}
		c.store(k, q)
		return q, nil
	})
	if err != nil {
		return domain.Quote{}, err
	}
	return v.(domain.Quote), nil
}

// Invalidate drops the cached entry for (source, symbol).
func (c *Cache) Invalidate(source domain.SourceID, symbol string) {
	c.mu.Lock()
	delete(c.entries, key(source, symbol))
	c.mu.Unlock()
}

// Len reports how many live entries the cache holds, dropping expired ones
// along the way.
func (c *Cache) Len() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	return len(c.entries)
}

func (c *Cache) lookup(k string) (domain.Quote, bool) {
	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()
	if !ok || c.now().After(e.expiresAt) {
		return domain.Quote{}, false
	}
	return e.quote, true
}

func (c *Cache) store(k string, q domain.Quote) {
	c.mu.Lock()
	c.entries[k] = entry{quote: q, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}
