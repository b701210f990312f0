// Package ratelimit throttles storefront API clients: a token bucket per
// caller for request bursts, and daily counters for anonymous quotas.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/auditelle/storefront/internal/reseller"
	"github.com/gin-gonic/gin"
)

// Config configures the request limiter.
type Config struct {
	// RequestsPerMinute is the sustained rate per caller.
	RequestsPerMinute int
	// BurstSize is how many requests an idle caller may send at once.
	BurstSize int
	// CleanupInterval is how often idle buckets are dropped.
	CleanupInterval time.Duration
	// Identify returns the verified user behind a request. Requests it
	// cannot identify share their client IP's bucket. Nil keys on IP only.
	Identify func(*http.Request) (userID string, ok bool)
}

// DefaultConfig is one request per second with bursts of ten.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		BurstSize:         10,
		CleanupInterval:   time.Minute,
	}
}

// Limiter keeps one token bucket per key.
type Limiter struct {
	cfg     Config
	now     func() time.Time
	mu      sync.Mutex
	buckets map[string]*bucket
	stop    chan struct{}
	once    sync.Once
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// New starts a limiter. Stop releases its cleanup goroutine.
func New(cfg Config) *Limiter {
	l := newLimiter(cfg, time.Now)
	go l.cleanup()
	return l
}

func newLimiter(cfg Config, now func() time.Time) *Limiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = DefaultConfig().RequestsPerMinute
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = 1
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}
	return &Limiter{cfg: cfg, now: now, buckets: make(map[string]*bucket), stop: make(chan struct{})}
}

func (l *Limiter) cleanup() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.prune()
		case <-l.stop:
			return
		}
	}
}

// prune drops buckets that have refilled completely; forgetting them
// changes nothing for their owner.
func (l *Limiter) prune() {
	full := time.Duration(float64(l.cfg.BurstSize) / l.rate() * float64(time.Second))
	cutoff := l.now().Add(-full)
	l.mu.Lock()
	for key, b := range l.buckets {
		if b.seen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
	l.mu.Unlock()
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// rate is the refill in tokens per second.
func (l *Limiter) rate() float64 {
	return float64(l.cfg.RequestsPerMinute) / 60
}

// Allow spends one token of key's bucket if there is one.
func (l *Limiter) Allow(key string) bool {
	ok, _ := l.take(key)
	return ok
}

// take spends a token, or reports how long until the next one.
func (l *Limiter) take(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.cfg.BurstSize), seen: now}
		l.buckets[key] = b
	}
	b.tokens = math.Min(float64(l.cfg.BurstSize), b.tokens+now.Sub(b.seen).Seconds()*l.rate())
	b.seen = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	wait := (1 - b.tokens) / l.rate()
	return false, time.Duration(wait * float64(time.Second))
}

// clientKey is the bucket for a request: the verified user when there is
// one, so a shared campus IP does not throttle every student at once,
// else the client IP. Unverified credentials never earn their own bucket.
func (l *Limiter) clientKey(c *gin.Context) string {
	if l.cfg.Identify != nil {
		if id, ok := l.cfg.Identify(c.Request); ok && id != "" {
			return "user:" + id
		}
	}
	return "ip:" + c.ClientIP()
}

// Middleware answers 429 with Retry-After once a caller's bucket is empty.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, wait := l.take(l.clientKey(c))
		if ok {
			c.Next()
			return
		}

		retryAfter := int(math.Ceil(wait.Seconds()))
		message := "Too many requests. Please slow down."
		if cfg, err := reseller.FromContext(c.Request.Context()); err == nil {
			message = cfg.Strings.Errors.RateLimitRetry
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":       "rate_limit_exceeded",
			"message":     message,
			"retry_after": retryAfter,
		})
	}
}
