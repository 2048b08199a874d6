package ratelimit

import (
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Result reports the outcome of a limiter check.
type Result struct {
	OK        bool
	Remaining int
	ResetAt   time.Time
}

type bucket struct {
	count   int
	resetAt time.Time
}

// Limiter is a fixed-window request counter keyed by an opaque client
// identity. State lives in process memory only: it is neither persisted nor
// shared across instances, which is acceptable for a single-instance
// deployment. Entries are never swept; they are reused once their window
// elapses.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

// New constructs a Limiter. A nil clock defaults to time.Now.
func New(clock func() time.Time) *Limiter {
	if clock == nil {
		clock = time.Now
	}
	return &Limiter{buckets: make(map[string]*bucket), now: clock}
}

// Check counts one request for key within a fixed window. The first call in a
// window initialises the counter; once count reaches max, further calls are
// rejected until the window boundary passes, at which point the window
// restarts.
func (l *Limiter) Check(key string, max int, window time.Duration) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok || now.After(b.resetAt) {
		b = &bucket{count: 1, resetAt: now.Add(window)}
		l.buckets[key] = b
		return Result{OK: true, Remaining: max - 1, ResetAt: b.resetAt}
	}

	if b.count >= max {
		return Result{OK: false, Remaining: 0, ResetAt: b.resetAt}
	}

	b.count++
	return Result{OK: true, Remaining: max - b.count, ResetAt: b.resetAt}
}

// ClientKey derives the limiter identity for an HTTP request from the
// forwarded client IP and user agent.
func ClientKey(c *gin.Context) string {
	ip := c.GetHeader("X-Forwarded-For")
	if ip == "" {
		ip = c.GetHeader("X-Real-IP")
	}
	if ip == "" {
		ip = "unknown"
	}
	if idx := strings.Index(ip, ","); idx >= 0 {
		ip = strings.TrimSpace(ip[:idx])
	}
	return ip + ":" + c.GetHeader("User-Agent")
}
