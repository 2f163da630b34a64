package utils

import (
	"sync"
	"time"
)

// expiringMap is the single-instance fallback used when Redis is absent.
type expiringMap struct {
	mu      sync.Mutex
	entries map[string]expiringEntry
}

type expiringEntry struct {
	value     string
	expiresAt time.Time
}

func newExpiringMap() *expiringMap {
	return &expiringMap{entries: map[string]expiringEntry{}}
}

func (m *expiringMap) Put(key, value string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	m.entries[key] = expiringEntry{value: value, expiresAt: time.Now().Add(ttl)}
}

func (m *expiringMap) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return "", false
	}
	if time.Now().After(e.expiresAt) {
		delete(m.entries, key)
		return "", false
	}
	return e.value, true
}

// Take returns the value and removes it, so each entry is usable once.
func (m *expiringMap) Take(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return "", false
	}
	delete(m.entries, key)
	if time.Now().After(e.expiresAt) {
		return "", false
	}
	return e.value, true
}

func (m *expiringMap) sweepLocked() {
	// amortised cleanup; the maps stay small in practice
	if len(m.entries) < 1024 {
		return
	}
	now := time.Now()
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}
