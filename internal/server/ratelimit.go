package server

import (
	"sync"
	"time"
)

// =============================================================================
// Rate Limiter for Failed Authentication Attempts
// =============================================================================

// RateLimiter implements rate limiting for FAILED authentication attempts.
//
// FAILED auth attempts per client IP per time window. Successful
// authentications are NOT counted and reset the failure counter.
//
// Flow:
//  1. Request arrives
//  2. Check IsBlocked() - if true, reject immediately
//  3. Attempt authentication
//  4. If auth FAILS: call RecordFailure()
//  5. If auth SUCCEEDS: call Reset() to clear failure count
type RateLimiter struct {
	mu       sync.RWMutex
	failures map[string]*rateLimitEntry
	limit    int           // max failures before blocking
	window   time.Duration // time window for counting failures
}

type rateLimitEntry struct {
	count     int       // number of failed attempts
	resetTime time.Time // when this entry expires
}

// NewRateLimiter creates a new rate limiter.
//
// Parameters:
//   - limit: maximum failed attempts before blocking
//   - window: time window for counting failures (e.g., 1 minute)
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		failures: make(map[string]*rateLimitEntry),
		limit:    limit,
		window:   window,
	}
	go rl.cleanupLoop()
	return rl
}

// IsBlocked checks if an IP has exceeded the failure limit.
func (rl *RateLimiter) IsBlocked(ip string) bool {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	entry, ok := rl.failures[ip]
	if !ok {
		return false
	}

	if time.Now().After(entry.resetTime) {
		return false
	}

	return entry.count >= rl.limit
}

// RecordFailure records a failed authentication attempt for an IP.
func (rl *RateLimiter) RecordFailure(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	entry, ok := rl.failures[ip]
	if !ok || now.After(entry.resetTime) {
		rl.failures[ip] = &rateLimitEntry{
			count:     1,
			resetTime: now.Add(rl.window),
		}
		return
	}

	// Within window - increment counter
	entry.count++
}

// Reset clears the failure count for an IP (after successful auth).
func (rl *RateLimiter) Reset(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.failures, ip)
}

// GetFailureCount returns the current failure count for an IP (for testing/monitoring).
func (rl *RateLimiter) GetFailureCount(ip string) int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	entry, ok := rl.failures[ip]
	if !ok {
		return 0
	}

	if time.Now().After(entry.resetTime) {
		return 0
	}

	return entry.count
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.cleanup()
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for ip, entry := range rl.failures {
		if now.After(entry.resetTime) {
			delete(rl.failures, ip)
		}
	}
}
