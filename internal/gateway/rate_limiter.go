package gateway

import (
	"sync"
	"time"
)

// RateLimiter throttles requests per acting user with a token bucket
type RateLimiter struct {
	clients    map[string]*tokenBucket
	clientsMux sync.RWMutex
	limit      int
	period     time.Duration
}

// tokenBucket tracks remaining tokens for one client
type tokenBucket struct {
	tokens     int
	lastRefill time.Time
	mutex      sync.Mutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*tokenBucket),
		limit:   limit,
		period:  period,
	}
}

// Allow reports whether a request from the given client is within the limit
func (rl *RateLimiter) Allow(clientID string) bool {
	bucket := rl.getBucket(clientID)

	bucket.mutex.Lock()
	defer bucket.mutex.Unlock()

	now := time.Now()
	elapsed := now.Sub(bucket.lastRefill)

	if elapsed >= rl.period {
		bucket.tokens = rl.limit
		bucket.lastRefill = now
	} else {
		// Partial refill proportional to elapsed time
		tokensToAdd := int(elapsed.Nanoseconds() * int64(rl.limit) / rl.period.Nanoseconds())
		if tokensToAdd > 0 {
			bucket.tokens = minInt(bucket.tokens+tokensToAdd, rl.limit)
			bucket.lastRefill = now
		}
	}

	if bucket.tokens > 0 {
		bucket.tokens--
		return true
	}

	return false
}

// getBucket gets or creates the token bucket for a client
func (rl *RateLimiter) getBucket(clientID string) *tokenBucket {
	rl.clientsMux.RLock()
	bucket, exists := rl.clients[clientID]
	rl.clientsMux.RUnlock()

	if exists {
		return bucket
	}

	rl.clientsMux.Lock()
	defer rl.clientsMux.Unlock()

	// Double-check after acquiring the write lock
	if bucket, exists := rl.clients[clientID]; exists {
		return bucket
	}

	bucket = &tokenBucket{
		tokens:     rl.limit,
		lastRefill: time.Now(),
	}
	rl.clients[clientID] = bucket

	return bucket
}

// cleanup drops buckets that have been idle for over 24 hours
func (rl *RateLimiter) cleanup() {
	rl.clientsMux.Lock()
	defer rl.clientsMux.Unlock()

	cutoff := time.Now().Add(-24 * time.Hour)

	for clientID, bucket := range rl.clients {
		bucket.mutex.Lock()
		if bucket.lastRefill.Before(cutoff) {
			delete(rl.clients, clientID)
		}
		bucket.mutex.Unlock()
	}
}

// StartCleanup starts periodic removal of idle buckets
func (rl *RateLimiter) StartCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			rl.cleanup()
		}
	}()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
