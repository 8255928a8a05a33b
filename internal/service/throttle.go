package service

import (
	"sync"
	"time"
)

// throttle remembers keys for a fixed window. It backs reset request rate
// limiting and single use of reset tokens.
type throttle struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

func newThrottle(ttl time.Duration) *throttle {
	return &throttle{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

// markIfNew returns true if key has not been seen within the window.
// When it returns true, key is recorded with an expiry timestamp.
// A zero window disables throttling.
func (t *throttle) markIfNew(key string) bool {
	if t.ttl <= 0 {
		return true
	}
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	for k, expiry := range t.entries {
		if now.After(expiry) {
			delete(t.entries, k)
		}
	}

	if expiry, ok := t.entries[key]; ok && now.Before(expiry) {
		return false
	}

	t.entries[key] = now.Add(t.ttl)
	return true
}

// forget drops key so the next markIfNew for it succeeds.
func (t *throttle) forget(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
}
