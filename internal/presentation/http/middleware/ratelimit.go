package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterSweepInterval = time.Minute
	limiterIdleTTL       = 3 * time.Minute
)

// SessionLimiter keeps one token bucket per key, typically tenant plus session.
type SessionLimiter struct {
	rps      rate.Limit
	burst    int
	mu       sync.Mutex
	visitors map[string]*visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewSessionLimiter creates a limiter. A non-positive rps disables limiting.
func NewSessionLimiter(rps float64, burst int) *SessionLimiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &SessionLimiter{
		rps:      limit,
		burst:    burst,
		visitors: make(map[string]*visitor),
	}
}

// Allow reports whether one more request for key fits in its bucket.
func (l *SessionLimiter) Allow(key string) bool {
	l.mu.Lock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = time.Now()
	l.mu.Unlock()

	return v.limiter.Allow()
}

// Run removes idle buckets until ctx is done.
func (l *SessionLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.sweep(now, limiterIdleTTL)
		}
	}
}

func (l *SessionLimiter) sweep(now time.Time, ttl time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > ttl {
			delete(l.visitors, key)
			removed++
		}
	}
	return removed
}
