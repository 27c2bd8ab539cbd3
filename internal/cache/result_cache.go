package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/irfndi/forecast-baseline-go/internal/database"
	"github.com/irfndi/forecast-baseline-go/internal/evaluation"
)

// ResultCacheEntry represents a cached evaluation result with metadata
type ResultCacheEntry struct {
	Result    evaluation.Result `json:"result"`
	CachedAt  time.Time         `json:"cached_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// ResultCacheStats tracks cache performance metrics
type ResultCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	mu     sync.RWMutex
}

// RedisResultCache stores completed evaluation runs in Redis so they can be
// fetched again by ID without recomputing.
type RedisResultCache struct {
	redis  *database.RedisClient
	ttl    time.Duration
	stats  *ResultCacheStats
	prefix string
}

// NewRedisResultCache creates a new Redis-based evaluation result cache
func NewRedisResultCache(redisClient *database.RedisClient, ttl time.Duration) *RedisResultCache {
	return &RedisResultCache{
		redis:  redisClient,
		ttl:    ttl,
		stats:  &ResultCacheStats{},
		prefix: "evaluation_result:",
	}
}

// Get retrieves an evaluation result by ID from Redis cache
func (c *RedisResultCache) Get(ctx context.Context, id string) (*evaluation.Result, bool) {
	cacheKey := c.prefix + id

	data, err := c.redis.Get(ctx, cacheKey)
	if errors.Is(err, redis.Nil) {
		// Cache miss
		c.stats.mu.Lock()
		c.stats.Misses++
		c.stats.mu.Unlock()
		return nil, false
	}
	if err != nil {
		log.Printf("Redis error getting evaluation %s: %v", id, err)
		c.stats.mu.Lock()
		c.stats.Misses++
		c.stats.mu.Unlock()
		return nil, false
	}

	var entry ResultCacheEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		log.Printf("Error deserializing cached evaluation %s: %v", id, err)
		c.stats.mu.Lock()
		c.stats.Misses++
		c.stats.mu.Unlock()
		return nil, false
	}

	// Cache hit
	c.stats.mu.Lock()
	c.stats.Hits++
	c.stats.mu.Unlock()

	return &entry.Result, true
}

// Set stores an evaluation result in Redis cache under its ID
func (c *RedisResultCache) Set(ctx context.Context, result *evaluation.Result) error {
	cacheKey := c.prefix + result.ID

	now := time.Now()
	entry := ResultCacheEntry{
		Result:    *result,
		CachedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("error serializing evaluation %s: %w", result.ID, err)
	}

	if err := c.redis.Set(ctx, cacheKey, data, c.ttl); err != nil {
		return fmt.Errorf("redis error setting evaluation %s: %w", result.ID, err)
	}

	c.stats.mu.Lock()
	c.stats.Sets++
	c.stats.mu.Unlock()

	return nil
}

// GetStats returns current cache statistics
func (c *RedisResultCache) GetStats() ResultCacheStats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()
	return ResultCacheStats{
		Hits:   c.stats.Hits,
		Misses: c.stats.Misses,
		Sets:   c.stats.Sets,
	}
}

// LogStats logs current cache performance statistics
func (c *RedisResultCache) LogStats() {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}

	log.Printf("Redis Result Cache Stats - Hits: %d, Misses: %d, Sets: %d, Hit Rate: %.2f%%",
		stats.Hits, stats.Misses, stats.Sets, hitRate)
}

// Clear removes all cached evaluation results
func (c *RedisResultCache) Clear(ctx context.Context) error {
	keys, err := c.redis.Keys(ctx, c.prefix+"*")
	if err != nil {
		return fmt.Errorf("error scanning cache keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	if err := c.redis.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("error clearing cache: %w", err)
	}

	log.Printf("Cleared %d evaluation result entries", len(keys))
	return nil
}

// CachedIDs returns the IDs of every cached evaluation result
func (c *RedisResultCache) CachedIDs(ctx context.Context) ([]string, error) {
	keys, err := c.redis.Keys(ctx, c.prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("error scanning cache keys: %w", err)
	}

	var ids []string
	prefixLen := len(c.prefix)
	for _, key := range keys {
		if len(key) > prefixLen {
			ids = append(ids, key[prefixLen:])
		}
	}

	return ids, nil
}
