package server

import (
	"sync"
	"time"
)

type rateLimiter struct {
	limit  int
	window time.Duration

	mu    sync.Mutex
	items map[string]*rateWindow
}

type rateWindow struct {
	windowStart time.Time
	count       int
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:  limit,
		window: window,
		items:  make(map[string]*rateWindow),
	}
}

func (r *rateLimiter) Allow(key string) bool {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[key]
	if !ok || now.Sub(item.windowStart) >= r.window {
		r.items[key] = &rateWindow{windowStart: now, count: 1}
		r.prune(now)
		return true
	}
	if item.count >= r.limit {
		return false
	}
	item.count++
	return true
}

func (r *rateLimiter) prune(now time.Time) {
	if len(r.items) < 10000 {
		return
	}
	for key, item := range r.items {
		if now.Sub(item.windowStart) >= r.window {
			delete(r.items, key)
		}
	}
}
