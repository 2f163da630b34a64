package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/cppla/socialnet/utils"
)

const limiterIdle = 5 * time.Minute

type rateLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

// ipLimiters hands out one token bucket per client IP and forgets idle ones.
type ipLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rateLimiter
	limit    rate.Limit
	burst    int
}

func newIPLimiters(perMinute int) *ipLimiters {
	perMinute = max(perMinute, 1)
	return &ipLimiters{
		limiters: map[string]*rateLimiter{},
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    max(perMinute/2, 1),
	}
}

func (l *ipLimiters) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for k, v := range l.limiters {
		if now.After(v.expires) {
			delete(l.limiters, k)
		}
	}
	rl, ok := l.limiters[key]
	if !ok {
		rl = &rateLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = rl
	}
	rl.expires = now.Add(limiterIdle)
	return rl.limiter.Allow()
}

// RateLimit applies an IP based token bucket allowing perMinute requests per minute.
func RateLimit(perMinute int) gin.HandlerFunc {
	limiters := newIPLimiters(perMinute)
	return func(ctx *gin.Context) {
		if !limiters.allow(ctx.ClientIP()) {
			utils.AbortError(ctx, http.StatusTooManyRequests, "Too many requests, please try again later")
			return
		}
		ctx.Next()
	}
}
