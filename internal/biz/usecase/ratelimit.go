package usecase

import (
	"sync"
	"time"
)

// RateLimitConfig contains sliding-window admission settings
type RateLimitConfig struct {
	Max    int           // Max admitted messages per window
	Window time.Duration // Window length
}

// DefaultRateLimitConfig admits 5 messages per 30 seconds
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Max:    5,
		Window: 30 * time.Second,
	}
}

// RateLimiter is a per-chat sliding-window limiter
type RateLimiter struct {
	config RateLimitConfig
	now    func() time.Time

	mu      sync.Mutex
	windows map[int64][]time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.Max <= 0 || config.Window <= 0 {
		config = DefaultRateLimitConfig()
	}
	return &RateLimiter{
		config:  config,
		now:     time.Now,
		windows: make(map[int64][]time.Time),
	}
}

// Config returns the effective configuration
func (l *RateLimiter) Config() RateLimitConfig {
	return l.config
}

// Allow prunes the chat's window and admits the message if there is room
func (l *RateLimiter) Allow(chatID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.config.Window)

	window := l.windows[chatID]
	kept := window[:0]
	for _, ts := range window {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.config.Max {
		l.windows[chatID] = kept
		return false
	}
	l.windows[chatID] = append(kept, now)
	return true
}
