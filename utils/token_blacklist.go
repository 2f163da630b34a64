package utils

import (
	"time"
)

const blacklistPrefix = "jwt:blacklist:"

var blacklist = newExpiringMap()

// BlacklistToken revokes token until its natural expiry.
func BlacklistToken(token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := redisCtx()
		defer cancel()
		if err := rc.Set(ctx, blacklistPrefix+token, "1", ttl).Err(); err == nil {
			return
		}
	}
	blacklist.Put(token, "1", ttl)
}

// IsTokenBlacklisted reports whether token was revoked by logout.
func IsTokenBlacklisted(token string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := redisCtx()
		defer cancel()
		n, err := rc.Exists(ctx, blacklistPrefix+token).Result()
		if err == nil && n > 0 {
			return true
		}
	}
	_, ok := blacklist.Get(token)
	return ok
}
