package httpmiddleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimitConfig controls the per-client fixed-window rate limiter.
type RateLimitConfig struct {
	// Max requests allowed per window. Zero disables limiting.
	Max int
	// Window duration.
	Window time.Duration
}

type clientWindow struct {
	count   int
	resetAt time.Time
}

type rateLimiter struct {
	cfg RateLimitConfig

	mu      sync.Mutex
	clients map[string]*clientWindow
}

// allow counts a request for the client and reports whether it is within
// the window budget.
func (l *rateLimiter) allow(client string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.clients[client]
	if !ok || now.After(w.resetAt) {
		l.clients[client] = &clientWindow{count: 1, resetAt: now.Add(l.cfg.Window)}
		return true
	}
	w.count++
	return w.count <= l.cfg.Max
}

// sweep drops expired client windows.
func (l *rateLimiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for client, w := range l.clients {
		if now.After(w.resetAt) {
			delete(l.clients, client)
		}
	}
}

// RateLimit returns a middleware limiting each client IP to cfg.Max requests
// per cfg.Window, answering 429 beyond that. A background sweeper bound to
// ctx evicts idle clients.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	limiter := &rateLimiter{cfg: cfg, clients: make(map[string]*clientWindow)}

	if cfg.Max > 0 {
		go func() {
			ticker := time.NewTicker(cfg.Window)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case now := <-ticker.C:
					limiter.sweep(now)
				}
			}
		}()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Max <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			if !limiter.allow(clientIP(r), time.Now()) {
				w.Header().Set("Retry-After", cfg.Window.String())
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the remote host, ignoring the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
