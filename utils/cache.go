package utils

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL bounds how long a cached response may be served.
const DefaultCacheTTL = time.Hour

// ResponseCache stores rendered responses. Generations let writers retire every key of a namespace
// at once: readers fold the current generation into their keys, writers bump it.
type ResponseCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, b []byte, ttl time.Duration)
	// Generation reports the current generation of name; false means caching is unavailable.
	Generation(name string) (int64, bool)
	Bump(name string)
}

// RedisCache is the ResponseCache backed by the shared Redis client. Without Redis it caches nothing.
type RedisCache struct{}

func (RedisCache) Get(key string) ([]byte, bool) { return CacheGetBytes(key) }

func (RedisCache) Set(key string, b []byte, ttl time.Duration) { CacheSetBytes(key, b, ttl) }

func (RedisCache) Generation(name string) (int64, bool) {
	rc := GetRedis()
	if rc == nil {
		return 0, false
	}
	ctx, cancel := redisCtx()
	defer cancel()
	gen, err := rc.Get(ctx, name).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		Sugar.Warnf("cache generation read failed name=%s err=%v", name, err)
		return 0, false
	}
	return gen, true
}

// Bump advances the generation of name.
func (RedisCache) Bump(name string) {
	rc := GetRedis()
	if rc == nil {
		return
	}
	ctx, cancel := redisCtx()
	defer cancel()
	if err := rc.Incr(ctx, name).Err(); err != nil {
		Sugar.Warnf("cache generation bump failed name=%s err=%v", name, err)
	}
}

// CacheGetBytes returns the cached bytes for key. Misses, errors and a missing Redis all report false.
func CacheGetBytes(key string) ([]byte, bool) {
	rc := GetRedis()
	if rc == nil {
		return nil, false
	}
	ctx, cancel := redisCtx()
	defer cancel()
	b, err := rc.Get(ctx, key).Bytes()
	if err != nil {
		Sugar.Debugf("cache miss key=%s err=%v", key, err)
		return nil, false
	}
	return b, true
}

// CacheSetBytes stores b under key; ttl <= 0 means DefaultCacheTTL.
func CacheSetBytes(key string, b []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	rc := GetRedis()
	if rc == nil {
		return
	}
	ctx, cancel := redisCtx()
	defer cancel()
	if err := rc.Set(ctx, key, b, ttl).Err(); err != nil {
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}
