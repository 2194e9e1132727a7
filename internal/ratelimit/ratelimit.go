// Package ratelimit provides per-client token bucket rate limiting.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Config tunes the limiter.
type Config struct {
	// PerMinute is the sustained request allowance per client.
	PerMinute int
	// Burst is the bucket capacity, allowing short spikes above the
	// sustained rate.
	Burst int
	// SweepInterval controls how often idle client buckets are dropped.
	SweepInterval time.Duration
}

// DefaultConfig allows one request per second sustained with bursts of ten.
func DefaultConfig() Config {
	return Config{
		PerMinute:     60,
		Burst:         10,
		SweepInterval: time.Minute,
	}
}

// Limiter hands out tokens per client key.
type Limiter struct {
	cfg  Config
	stop chan struct{}
	now  func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// New creates a limiter and starts its idle-bucket sweeper. Call Stop
// when the limiter is no longer needed.
func New(cfg Config) *Limiter {
	l := &Limiter{
		cfg:     cfg,
		stop:    make(chan struct{}),
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
	go l.sweep()
	return l
}

// Stop terminates the sweeper goroutine.
func (l *Limiter) Stop() {
	close(l.stop)
}

// Allow takes one token from key's bucket, reporting whether one was
// available. New keys start with a full bucket.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		l.buckets[key] = &bucket{tokens: float64(l.cfg.Burst) - 1, seen: now}
		return true
	}

	refill := now.Sub(b.seen).Seconds() * float64(l.cfg.PerMinute) / 60.0
	b.tokens = min(b.tokens+refill, float64(l.cfg.Burst))
	b.seen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Middleware rejects over-limit requests with 429. Clients are keyed by
// bearer token when one is presented, falling back to source IP.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if auth := c.GetHeader("Authorization"); auth != "" {
			key = "auth:" + auth[:min(20, len(auth))]
		}

		if !l.Allow(key) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limit_exceeded",
				"message":     "Too many requests. Please slow down.",
				"retry_after": 1,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// sweep drops buckets that have not been touched for two sweep intervals.
func (l *Limiter) sweep() {
	ticker := time.NewTicker(l.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := l.now().Add(-2 * l.cfg.SweepInterval)
			l.mu.Lock()
			for key, b := range l.buckets {
				if b.seen.Before(cutoff) {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		case <-l.stop:
			return
		}
	}
}
