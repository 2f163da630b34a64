package utils

import (
	"time"
)

const statePrefix = "oauth:state:"

var oauthStates = newExpiringMap()

// SaveState records an OAuth state token for ttl (10 minutes when ttl <= 0).
func SaveState(state string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := redisCtx()
		defer cancel()
		if err := rc.Set(ctx, statePrefix+state, "1", ttl).Err(); err == nil {
			return
		}
	}
	oauthStates.Put(state, "1", ttl)
}

// ConsumeState validates and removes a state token. A token is accepted at most once.
func ConsumeState(state string) bool {
	if state == "" {
		return false
	}
	if rc := GetRedis(); rc != nil {
		if _, ok := getDel(rc, statePrefix+state); ok {
			return true
		}
	}
	_, ok := oauthStates.Take(state)
	return ok
}
