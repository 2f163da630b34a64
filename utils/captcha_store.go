package utils

import (
	"time"

	"github.com/mojocn/base64Captcha"
)

const captchaPrefix = "captcha:"

// captchaStore implements base64Captcha.Store in Redis so answers survive across instances,
// with an in-process map when Redis is absent.
type captchaStore struct {
	ttl   time.Duration
	local *expiringMap
}

// NewCaptchaStore returns a store whose answers expire after ttl (10 minutes when ttl <= 0).
func NewCaptchaStore(ttl time.Duration) base64Captcha.Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &captchaStore{ttl: ttl, local: newExpiringMap()}
}

func (s *captchaStore) Set(id string, value string) error {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := redisCtx()
		defer cancel()
		return rc.Set(ctx, captchaPrefix+id, value, s.ttl).Err()
	}
	s.local.Put(id, value, s.ttl)
	return nil
}

func (s *captchaStore) Get(id string, clear bool) string {
	if rc := GetRedis(); rc != nil {
		if clear {
			v, _ := getDel(rc, captchaPrefix+id)
			return v
		}
		ctx, cancel := redisCtx()
		defer cancel()
		v, err := rc.Get(ctx, captchaPrefix+id).Result()
		if err != nil {
			return ""
		}
		return v
	}
	var v string
	if clear {
		v, _ = s.local.Take(id)
	} else {
		v, _ = s.local.Get(id)
	}
	return v
}

func (s *captchaStore) Verify(id, answer string, clear bool) bool {
	v := s.Get(id, clear)
	return v != "" && v == answer
}
