// Package memory is the in-process result cache used when no Redis is
// configured. Entries expire lazily on read; Set prunes expired entries
// opportunistically so the map stays bounded under steady traffic.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/startupscout/scout/internal/core/domain"
	"github.com/startupscout/scout/internal/core/ports"
)

type entry struct {
	answer    *domain.Answer
	expiresAt time.Time
}

type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	hits    int64
	misses  int64
	now     func() time.Time
}

func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (c *Cache) Get(_ context.Context, key string) (*domain.Answer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		if ok {
			delete(c.entries, key)
		}
		c.misses++
		return nil, false
	}
	c.hits++
	return e.answer, true
}

func (c *Cache) Set(_ context.Context, key string, answer *domain.Answer, ttl time.Duration) {
	if answer == nil || ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = entry{answer: answer, expiresAt: now.Add(ttl)}
}

func (c *Cache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
	c.hits = 0
	c.misses = 0
	return nil
}

func (c *Cache) Stats(_ context.Context) ports.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ports.CacheStats{
		Backend: "memory",
		Hits:    c.hits,
		Misses:  c.misses,
		Entries: len(c.entries),
	}
}
