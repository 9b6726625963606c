package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket is a mutex-protected token bucket. Used for coarse HTTP-level
// request limiting; the verification policy engine lives in
// VerificationLimiter.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	tokens     float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

// NewTokenBucket creates a full bucket.
func NewTokenBucket(capacity, refillRate float64) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow consumes one token if available.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	tb.tokens += now.Sub(tb.lastRefill).Seconds() * tb.refillRate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// PerKeyLimiter maintains one token bucket per key (user ID, IP address).
// Idle buckets are evicted by a background sweep to bound memory.
type PerKeyLimiter struct {
	mu         sync.RWMutex
	buckets    map[string]*TokenBucket
	capacity   float64
	refillRate float64

	sweepEvery time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewPerKeyLimiter creates a keyed limiter and starts its sweep loop.
func NewPerKeyLimiter(capacity, refillRate float64) *PerKeyLimiter {
	l := &PerKeyLimiter{
		buckets:    make(map[string]*TokenBucket),
		capacity:   capacity,
		refillRate: refillRate,
		sweepEvery: 10 * time.Minute,
		stop:       make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// Allow consumes one token from the key's bucket.
func (l *PerKeyLimiter) Allow(key string) bool {
	return l.bucket(key).Allow()
}

// Reset drops the key's bucket, refilling it on next use.
func (l *PerKeyLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// Close stops the sweep loop. Idempotent.
func (l *PerKeyLimiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *PerKeyLimiter) bucket(key string) *TokenBucket {
	l.mu.RLock()
	b, ok := l.buckets[key]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring the write lock
	if b, ok = l.buckets[key]; ok {
		return b
	}
	b = NewTokenBucket(l.capacity, l.refillRate)
	l.buckets[key] = b
	return b
}

func (l *PerKeyLimiter) sweepLoop() {
	ticker := time.NewTicker(l.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// sweep evicts buckets that have been idle long enough to be full again.
func (l *PerKeyLimiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, b := range l.buckets {
		b.mu.Lock()
		idle := now.Sub(b.lastRefill)
		full := b.tokens+idle.Seconds()*b.refillRate >= b.capacity
		b.mu.Unlock()

		if full && idle > l.sweepEvery {
			delete(l.buckets, key)
		}
	}
}
