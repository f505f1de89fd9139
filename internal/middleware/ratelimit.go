package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// RateLimitMiddleware provides sliding-window rate limiting per client IP
type RateLimitMiddleware struct {
	requests   map[string][]int64 // IP -> timestamps inside the window
	mu         sync.Mutex
	now        func() time.Time
	trustProxy bool
	lastSweep  int64
}

// NewRateLimitMiddleware creates a rate limiter. With trustProxy the client is
// identified by X-Forwarded-For / X-Real-IP, which only a reverse proxy in
// front of the API may set; otherwise by the connection's remote address.
func NewRateLimitMiddleware(trustProxy bool) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		requests:   make(map[string][]int64),
		now:        time.Now,
		trustProxy: trustProxy,
	}
}

// RateLimit rejects a client's request once it has made maxRequests within
// the last windowSeconds.
func (m *RateLimitMiddleware) RateLimit(maxRequests int, windowSeconds int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := m.clientIP(r)
			if !m.allow(clientIP, maxRequests, windowSeconds) {
				log.WithFields(log.Fields{"client_ip": clientIP, "path": r.URL.Path}).Warn("Rate limit exceeded")
				w.Header().Set("Retry-After", strconv.Itoa(windowSeconds))
				reject(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *RateLimitMiddleware) allow(clientIP string, maxRequests, windowSeconds int) bool {
	now := m.now().Unix()
	windowStart := now - int64(windowSeconds)

	m.mu.Lock()
	defer m.mu.Unlock()

	if now-m.lastSweep >= int64(windowSeconds) {
		m.sweep(windowStart)
		m.lastSweep = now
	}

	valid := inWindow(m.requests[clientIP], windowStart)
	if len(valid) >= maxRequests {
		if len(valid) == 0 {
			delete(m.requests, clientIP)
		} else {
			m.requests[clientIP] = valid
		}
		return false
	}
	m.requests[clientIP] = append(valid, now)
	return true
}

// sweep drops clients with no request inside the window. Callers hold mu.
func (m *RateLimitMiddleware) sweep(windowStart int64) {
	for ip, ts := range m.requests {
		if len(inWindow(ts, windowStart)) == 0 {
			delete(m.requests, ip)
		}
	}
}

// clients reports how many clients are being tracked.
func (m *RateLimitMiddleware) clients() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func inWindow(ts []int64, windowStart int64) []int64 {
	var valid []int64
	for _, t := range ts {
		if t > windowStart {
			valid = append(valid, t)
		}
	}
	return valid
}

func (m *RateLimitMiddleware) clientIP(r *http.Request) string {
	if m.trustProxy {
		if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
			return strings.TrimSpace(strings.Split(ip, ",")[0])
		}
		if ip := r.Header.Get("X-Real-IP"); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
