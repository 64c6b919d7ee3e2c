// Package ratelimit bounds abuse of the read-heavy endpoints. The default is
// a process-local fixed-window counter; the Limiter interface lets a shared
// backend replace it without touching callers. A fixed window is approximate
// when the service runs as multiple instances.
package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// Limiter answers whether one more request under key is allowed now.
type Limiter interface {
	Allow(key string) bool
}

type window struct {
	start time.Time
	count int
}

// FixedWindow is the in-memory default Limiter.
type FixedWindow struct {
	mu        sync.Mutex
	limit     int
	length    time.Duration
	seen      map[string]*window
	lastSweep time.Time
}

func NewFixedWindow(limit int, length time.Duration) *FixedWindow {
	return &FixedWindow{
		limit:     limit,
		length:    length,
		seen:      map[string]*window{},
		lastSweep: time.Now(),
	}
}

func (f *FixedWindow) Allow(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	f.sweep(now)
	w, ok := f.seen[key]
	if !ok || now.Sub(w.start) >= f.length {
		f.seen[key] = &window{start: now, count: 1}
		return true
	}
	if w.count >= f.limit {
		return false
	}
	w.count++
	return true
}

// sweep drops expired windows at most once per window length, keeping the
// per-key map from growing with every client the process ever saw.
func (f *FixedWindow) sweep(now time.Time) {
	if now.Sub(f.lastSweep) < f.length {
		return
	}
	f.lastSweep = now
	for k, w := range f.seen {
		if now.Sub(w.start) >= f.length {
			delete(f.seen, k)
		}
	}
}

// Middleware keys requests by client IP.
func Middleware(l Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			if !l.Allow(host) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
