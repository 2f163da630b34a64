package utils

import (
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/socialnet/config"
)

// Registration throttling lives in Redis only; without Redis every check passes.

func regKey(parts ...string) string {
	return "reg:" + strings.Join(parts, ":")
}

// RegistrationCooldownTry claims the per-IP cooldown slot. False means the IP retried too soon.
func RegistrationCooldownTry(ip string) bool {
	sec := config.Get().RegisterAttemptCooldownSec
	rc := GetRedis()
	if sec <= 0 || rc == nil {
		return true
	}
	ctx, cancel := redisCtx()
	defer cancel()
	ok, err := rc.SetNX(ctx, regKey("cooldown", ip), "1", time.Duration(sec)*time.Second).Result()
	if err != nil {
		return true
	}
	return ok
}

// RegistrationDailyLimitCheck reports whether ip is still under today's successful registration cap.
func RegistrationDailyLimitCheck(ip string) bool {
	limit := config.Get().RegisterMaxPerIPPerDay
	rc := GetRedis()
	if limit <= 0 || rc == nil {
		return true
	}
	ctx, cancel := redisCtx()
	defer cancel()
	n, err := rc.Get(ctx, regKey("succday", ip, time.Now().Format("20060102"))).Int()
	if err == redis.Nil {
		return true
	}
	if err != nil {
		return true
	}
	return n < limit
}

// RegistrationDailyIncrement counts a successful registration for ip until midnight.
func RegistrationDailyIncrement(ip string) {
	rc := GetRedis()
	if rc == nil {
		return
	}
	ctx, cancel := redisCtx()
	defer cancel()
	key := regKey("succday", ip, time.Now().Format("20060102"))
	if err := rc.Incr(ctx, key).Err(); err == nil {
		now := time.Now()
		midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
		_ = rc.Expire(ctx, key, time.Until(midnight)).Err()
	}
}

// RegistrationFailRecord counts a failed attempt and bans the IP once the hourly threshold is crossed.
func RegistrationFailRecord(ip string) {
	rc := GetRedis()
	if rc == nil {
		return
	}
	cfg := config.Get()
	ctx, cancel := redisCtx()
	defer cancel()
	key := regKey("failhour", ip, time.Now().Format("2006010215"))
	n, err := rc.Incr(ctx, key).Result()
	if err != nil {
		return
	}
	_ = rc.Expire(ctx, key, time.Hour).Err()
	if cfg.RegisterFailedMaxPerIPPerHour > 0 && int(n) >= cfg.RegisterFailedMaxPerIPPerHour {
		minutes := cfg.RegisterTempBanMinutes
		if minutes <= 0 {
			minutes = 60
		}
		_ = rc.Set(ctx, regKey("ban", ip), "1", time.Duration(minutes)*time.Minute).Err()
		Sugar.Warnf("registration temporarily banned ip=%s failures=%d", ip, n)
	}
}

// RegistrationIsBanned reports whether ip is serving a temporary ban.
func RegistrationIsBanned(ip string) bool {
	rc := GetRedis()
	if rc == nil {
		return false
	}
	ctx, cancel := redisCtx()
	defer cancel()
	exists, err := rc.Exists(ctx, regKey("ban", ip)).Result()
	if err != nil {
		return false
	}
	return exists > 0
}
