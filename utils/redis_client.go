package utils

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/socialnet/config"
)

var (
	redisClient *redis.Client
	redisOnce   sync.Once
)

// GetRedis returns the shared Redis client, or nil when Redis is not configured or unreachable at startup.
// Every caller must handle nil by falling back to in-process state or skipping the feature.
func GetRedis() *redis.Client {
	redisOnce.Do(func() {
		cfg := config.Get()
		if cfg.RedisHost == "" {
			return
		}
		addr := net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort))
		rc := redis.NewClient(&redis.Options{
			Addr:         addr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  3 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Ping(ctx).Err(); err != nil {
			Sugar.Warnf("redis unavailable at %s, using in-process fallbacks: %v", addr, err)
			_ = rc.Close()
			return
		}
		redisClient = rc
	})
	return redisClient
}

// CloseRedis releases the client on shutdown.
func CloseRedis() {
	if redisClient != nil {
		_ = redisClient.Close()
	}
}

func redisCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Second)
}

// getDel reads and removes key atomically; GETDEL needs Redis 6.2, older servers get a Lua script.
func getDel(rc *redis.Client, key string) (string, bool) {
	ctx, cancel := redisCtx()
	defer cancel()
	v, err := rc.GetDel(ctx, key).Result()
	if err == nil {
		return v, true
	}
	if err == redis.Nil {
		return "", false
	}
	script := `local v=redis.call('GET', KEYS[1]); if v then redis.call('DEL', KEYS[1]); end; return v`
	res, err := rc.Eval(ctx, script, []string{key}).Result()
	if err != nil || res == nil {
		return "", false
	}
	s, ok := res.(string)
	return s, ok
}
