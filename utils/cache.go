package utils

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// PageCache stores rendered pages for a bounded time.
type PageCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	// Clear drops every cached page.
	Clear(ctx context.Context) error
}

const pageCachePrefix = "cache:page:"

// RedisPageCache keeps pages in Redis under a common prefix.
type RedisPageCache struct {
	rc     *redis.Client
	prefix string
}

func NewRedisPageCache(rc *redis.Client) *RedisPageCache {
	return &RedisPageCache{rc: rc, prefix: pageCachePrefix}
}

func (c *RedisPageCache) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, err := c.rc.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			Sugar.Warnf("cache get failed key=%s err=%v", key, err)
		}
		return nil, false
	}
	return b, true
}

func (c *RedisPageCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.rc.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

// Clear deletes keys under the cache prefix using SCAN.
func (c *RedisPageCache) Clear(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var cursor uint64
	for {
		keys, next, err := c.rc.Scan(ctx, cursor, c.prefix+"*", 1000).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			pipe := c.rc.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryPageCache is a process-local PageCache. The clock is injectable for tests.
type MemoryPageCache struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	now   func() time.Time
}

// NewMemoryPageCache creates a cache using now as its clock; nil means time.Now.
func NewMemoryPageCache(now func() time.Time) *MemoryPageCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryPageCache{items: make(map[string]memoryEntry), now: now}
}

func (c *MemoryPageCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		if cur, still := c.items[key]; still && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

func (c *MemoryPageCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	buf := make([]byte, len(value))
	copy(buf, value)
	c.mu.Lock()
	c.items[key] = memoryEntry{value: buf, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

func (c *MemoryPageCache) Clear(context.Context) error {
	c.mu.Lock()
	c.items = make(map[string]memoryEntry)
	c.mu.Unlock()
	return nil
}

// NewPageCache picks the backend named by kind, falling back to memory when Redis is unavailable.
func NewPageCache(kind string) PageCache {
	if strings.EqualFold(kind, "redis") {
		if rc := GetRedis(); rc != nil {
			return NewRedisPageCache(rc)
		}
	}
	return NewMemoryPageCache(nil)
}
