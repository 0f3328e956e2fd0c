// Package redis is the shared result cache used when REDIS_URL is
// configured, so identical questions hit once across replicas. Read
// and write failures degrade to cache misses; the ask path never sees
// a Redis error.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/rueidis"

	"github.com/startupscout/scout/internal/core/domain"
	"github.com/startupscout/scout/internal/core/ports"
)

type Cache struct {
	client rueidis.Client
	prefix string
	hits   atomic.Int64
	misses atomic.Int64
	logger *slog.Logger
}

func New(addr, password, keyPrefix string, logger *slog.Logger) (*Cache, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{addr},
		Password:     password,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create redis client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{client: client, prefix: keyPrefix, logger: logger}, nil
}

func (c *Cache) Close() {
	c.client.Close()
}

// cacheEntry is the stored form of an answer. Answer.Outcome never
// serializes on the HTTP wire, but a cache hit must come back with the
// same outcome it was stored with, so the entry carries it explicitly.
type cacheEntry struct {
	Answer  *domain.Answer    `json:"answer"`
	Outcome domain.AskOutcome `json:"outcome"`
}

func encodeAnswer(answer *domain.Answer) ([]byte, error) {
	return json.Marshal(cacheEntry{Answer: answer, Outcome: answer.Outcome})
}

func decodeAnswer(data []byte) (*domain.Answer, error) {
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	if entry.Answer == nil {
		return nil, fmt.Errorf("cache entry missing answer")
	}
	entry.Answer.Outcome = entry.Outcome
	return entry.Answer, nil
}

func (c *Cache) Get(ctx context.Context, key string) (*domain.Answer, bool) {
	cmd := c.client.B().Get().Key(c.prefix + key).Build()
	data, err := c.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if !rueidis.IsRedisNil(err) {
			c.logger.Warn("redis_cache_read_failed", "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}

	answer, err := decodeAnswer(data)
	if err != nil {
		c.logger.Warn("redis_cache_decode_failed", "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return answer, true
}

func (c *Cache) Set(ctx context.Context, key string, answer *domain.Answer, ttl time.Duration) {
	if answer == nil || ttl <= 0 {
		return
	}
	data, err := encodeAnswer(answer)
	if err != nil {
		c.logger.Warn("redis_cache_encode_failed", "error", err)
		return
	}
	cmd := c.client.B().Set().Key(c.prefix + key).Value(string(data)).Ex(ttl).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		c.logger.Warn("redis_cache_write_failed", "error", err)
	}
}

// Clear removes only keys under this cache's prefix, never the whole
// database.
func (c *Cache) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		cmd := c.client.B().Scan().Cursor(cursor).Match(c.prefix + "*").Count(500).Build()
		entry, err := c.client.Do(ctx, cmd).AsScanEntry()
		if err != nil {
			return fmt.Errorf("scan cache keys: %w", err)
		}
		if len(entry.Elements) > 0 {
			del := c.client.B().Del().Key(entry.Elements...).Build()
			if err := c.client.Do(ctx, del).Error(); err != nil {
				return fmt.Errorf("delete cache keys: %w", err)
			}
		}
		cursor = entry.Cursor
		if cursor == 0 {
			break
		}
	}
	c.hits.Store(0)
	c.misses.Store(0)
	return nil
}

func (c *Cache) Stats(ctx context.Context) ports.CacheStats {
	stats := ports.CacheStats{
		Backend: "redis",
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
	cmd := c.client.B().Dbsize().Build()
	if size, err := c.client.Do(ctx, cmd).AsInt64(); err == nil {
		stats.Entries = int(size)
	}
	return stats
}
