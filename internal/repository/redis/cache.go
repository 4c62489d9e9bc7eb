package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"linkpulse/internal/domain"
	"linkpulse/internal/metrics"

	"github.com/redis/go-redis/v9"
)

// tombstone marks a cached negative result (code known not to exist).
const tombstone = "__notfound__"

// Cache is the read-through resolution cache in front of the mapping store.
// Entries use sliding expiration: every hit is served with GETEX, which
// resets the TTL, so hot codes stay cached as long as they keep being
// resolved. Redis performs get-or-reset atomically, so concurrent
// resolutions of the same code need no external locking.
type Cache struct {
	client      *redis.Client
	window      time.Duration
	negativeTTL time.Duration
}

// NewCache creates a resolution cache. window is the sliding-expiration
// lifetime; negativeTTL > 0 enables caching of not-found codes with a fixed
// short TTL (a policy choice to blunt code-guessing scans, not a correctness
// requirement), 0 disables it.
func NewCache(client *redis.Client, window, negativeTTL time.Duration) *Cache {
	return &Cache{
		client:      client,
		window:      window,
		negativeTTL: negativeTTL,
	}
}

// Get retrieves a link by code. Returns (nil, nil) on a cache miss and
// domain.ErrLinkNotFound when a negative entry is cached for the code.
func (c *Cache) Get(ctx context.Context, code string) (*domain.ShortLink, error) {
	start := time.Now()
	defer func() {
		metrics.CacheOperationDuration.WithLabelValues("get").Observe(time.Since(start).Seconds())
	}()

	key := cacheKey(code)

	// GETEX resets the TTL on the way out, which is what makes the
	// expiration sliding rather than absolute.
	data, err := c.client.GetEx(ctx, key, c.window).Result()
	if err == redis.Nil {
		metrics.RecordCacheMiss()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	if data == tombstone {
		metrics.RecordCacheHit()
		return nil, domain.ErrLinkNotFound
	}

	metrics.RecordCacheHit()

	var link domain.ShortLink
	if err := json.Unmarshal([]byte(data), &link); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached link: %w", err)
	}

	return &link, nil
}

// Set populates the cache after a store read.
func (c *Cache) Set(ctx context.Context, code string, link *domain.ShortLink) error {
	start := time.Now()
	defer func() {
		metrics.CacheOperationDuration.WithLabelValues("set").Observe(time.Since(start).Seconds())
	}()

	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to marshal link: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(code), data, c.window).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}

	return nil
}

// SetNegative caches a not-found result. No-op when negative caching is
// disabled. Negative entries use an absolute (not sliding) TTL so a scan
// cannot keep a tombstone alive past the grace period.
func (c *Cache) SetNegative(ctx context.Context, code string) error {
	if c.negativeTTL <= 0 {
		return nil
	}

	if err := c.client.Set(ctx, cacheKey(code), tombstone, c.negativeTTL).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}

	return nil
}

func cacheKey(code string) string {
	return fmt.Sprintf("link:%s", code)
}

// InitRedis creates a Redis client and verifies connectivity.
func InitRedis(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}
