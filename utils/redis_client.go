package utils

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Morgoth-Ryuk/hw05-final/config"
)

var (
	redisClient *redis.Client
	redisReady  bool
	redisMu     sync.Mutex
)

// GetRedis returns a shared Redis client based on loaded config.
// It returns nil when Redis is not reachable so callers can fall back to in-process state.
func GetRedis() *redis.Client {
	redisMu.Lock()
	defer redisMu.Unlock()
	if redisReady {
		return redisClient
	}
	redisReady = true

	cfg := config.Get()
	rc := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		Sugar.Warnf("redis unavailable at %s, using in-memory fallbacks: %v", rc.Options().Addr, err)
		_ = rc.Close()
		return nil
	}
	redisClient = rc
	return redisClient
}

// UseRedis overrides the shared client. Passing nil forces in-memory fallbacks.
func UseRedis(rc *redis.Client) {
	redisMu.Lock()
	redisClient = rc
	redisReady = true
	redisMu.Unlock()
}
