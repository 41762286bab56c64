package notification

import (
	"sync"
	"time"
)

// RateLimiter is a token bucket limiting outbound delivery attempts so a
// misbehaving detector cannot flood the messaging backends.
type RateLimiter struct {
	mu         sync.Mutex
	rate       int           // tokens per interval
	interval   time.Duration // refill window
	tokens     int           // currently available tokens
	maxTokens  int           // burst capacity
	lastRefill time.Time
}

// NewRateLimiter creates a token bucket allowing requestsPerMinute sustained
// and burstSize burst deliveries. Non-positive values fall back to defaults.
func NewRateLimiter(requestsPerMinute, burstSize int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	if burstSize <= 0 {
		burstSize = 10
	}
	return &RateLimiter{
		rate:       requestsPerMinute,
		interval:   time.Minute,
		tokens:     burstSize,
		maxTokens:  burstSize,
		lastRefill: time.Now(),
	}
}

// Allow reports whether a delivery is allowed under the rate limit and
// consumes a token when it is.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastRefill)
	if elapsed > 0 {
		tokensToAdd := int(float64(rl.rate) * (elapsed.Seconds() / rl.interval.Seconds()))
		if tokensToAdd > 0 {
			rl.tokens = min(rl.maxTokens, rl.tokens+tokensToAdd)
			rl.lastRefill = now
		}
	}

	if rl.tokens > 0 {
		rl.tokens--
		return true
	}
	return false
}

// Available returns the number of currently available tokens.
func (rl *RateLimiter) Available() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.tokens
}
