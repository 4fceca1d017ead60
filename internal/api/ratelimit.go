// ABOUTME: Per-client-IP rate limiting for the auth and recovery endpoints
// ABOUTME: Token buckets via golang.org/x/time/rate with idle-entry pruning

package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ipLimiter hands out one token bucket per client IP. Entries idle longer
// than the window are pruned on the next lookup.
type ipLimiter struct {
	mu      sync.Mutex
	clients map[string]*ipClient

	limit  rate.Limit
	burst  int
	window time.Duration
}

type ipClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newIPLimiter allows max requests per window from each client IP.
func newIPLimiter(window time.Duration, max int) *ipLimiter {
	return &ipLimiter{
		clients: make(map[string]*ipClient),
		limit:   rate.Every(window / time.Duration(max)),
		burst:   max,
		window:  window,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for addr, c := range l.clients {
		if now.Sub(c.lastSeen) > l.window {
			delete(l.clients, addr)
		}
	}

	c, ok := l.clients[ip]
	if !ok {
		c = &ipClient{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.Allow()
}

// wrap returns next guarded by the limiter; over-limit requests get a 429
// with the shared failure envelope.
func (l *ipLimiter) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientIP(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"success":false,"message":"too many requests, try again later"}`))
			return
		}
		next(w, r)
	}
}

// clientIP prefers the first X-Forwarded-For hop (the gateway runs behind a
// reverse proxy in production) and falls back to the socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
