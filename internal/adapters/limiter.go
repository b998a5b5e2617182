package adapters

import (
	"sync"
	"time"
)

// FrameLimiter is a sliding-window rate limit for one connection's inbound
// frames. Excess frames are dropped at the adapter before they reach the
// exchange.
type FrameLimiter struct {
	mu       sync.Mutex
	history  []time.Time
	limit    int
	interval time.Duration
}

func NewFrameLimiter(limit int, interval time.Duration) *FrameLimiter {
	return &FrameLimiter{limit: limit, interval: interval}
}

func (rl *FrameLimiter) Allow() bool {
	if rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.interval)

	fresh := rl.history[:0]
	for _, t := range rl.history {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}
	rl.history = fresh

	if len(rl.history) >= rl.limit {
		return false
	}
	rl.history = append(rl.history, now)
	return true
}
