// Package server throttles inbound frames per connection so one chatty
// socket cannot monopolize the hub loop for its room.
package server

import (
	"sync"
	"time"
)

// rateLimiter is a token bucket sized by the configured burst. Every inbound
// frame costs one token, changeRoom and exitUser included; tokens regenerate
// continuously at burst per refill interval.
type rateLimiter struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	perSecond  float64
	lastRefill time.Time
}

func newRateLimiter(burst int, interval time.Duration) *rateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if interval <= 0 {
		interval = time.Second
	}

	perSecond := float64(burst) / interval.Seconds()
	if perSecond <= 0 {
		perSecond = float64(burst)
	}

	return &rateLimiter{
		tokens:     float64(burst),
		capacity:   float64(burst),
		perSecond:  perSecond,
		lastRefill: time.Now(),
	}
}

// allow consumes a token if one is available. A full bucket caps at the
// burst, so idle connections do not accumulate credit.
func (rl *rateLimiter) allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.lastRefill = now

	if elapsed > 0 {
		rl.tokens += elapsed * rl.perSecond
		if rl.tokens > rl.capacity {
			rl.tokens = rl.capacity
		}
	}

	if rl.tokens < 1 {
		return false
	}

	rl.tokens--
	return true
}
