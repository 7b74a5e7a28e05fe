// Package ratelimit throttles login attempts in-process with fixed
// windows per key.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limiter counts requests per key in fixed windows. It is safe for
// concurrent use. Call Close to stop the cleanup goroutine.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int
	duration time.Duration
	now      func() time.Time
	stop     chan struct{}
	once     sync.Once
}

type window struct {
	count     int
	expiresAt time.Time
}

// New creates a limiter allowing limit requests per key per duration.
func New(limit int, duration time.Duration) *Limiter {
	l := newLimiter(limit, duration, time.Now)
	go l.cleanupLoop(duration * 2)
	return l
}

func newLimiter(limit int, duration time.Duration, now func() time.Time) *Limiter {
	if limit < 1 {
		limit = 1
	}
	return &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		now:      now,
		stop:     make(chan struct{}),
	}
}

// Allow records an attempt for key and reports whether it is within the
// limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.duration)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Remaining returns how many attempts are left for key in its window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !l.now().Before(w.expiresAt) {
		return l.limit
	}
	return max(l.limit-w.count, 0)
}

// Reset clears the window for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// Close stops background cleanup. It is safe to call more than once.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Limiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
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

func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for key, w := range l.windows {
		if !now.Before(w.expiresAt) {
			delete(l.windows, key)
		}
	}
}

// ClientIP extracts the client IP from an HTTP request. Proxy headers are
// trusted; deploy behind a proxy that overwrites them.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// LoginLimiter combines a per-IP and a per-identifier limit. Identifier
// keys are scoped by signing domain, so a participant and a staff user
// sharing an email do not share a budget.
type LoginLimiter struct {
	ip    *Limiter
	email *Limiter
}

// NewLoginLimiter allows ipPerMinute attempts per IP per minute and
// ipPerMinute/2 (at least 3) per identifier per five minutes.
func NewLoginLimiter(ipPerMinute int) *LoginLimiter {
	if ipPerMinute < 1 {
		ipPerMinute = 10
	}
	return &LoginLimiter{
		ip:    New(ipPerMinute, time.Minute),
		email: New(max(ipPerMinute/2, 3), 5*time.Minute),
	}
}

// Scopes reported by Check when an attempt is refused.
const (
	ScopeIP    = "ip"
	ScopeEmail = "email"
)

// Check records an attempt and reports whether it may proceed. When it may
// not, scope names the budget that ran out.
func (ll *LoginLimiter) Check(r *http.Request, domain, email string) (ok bool, scope string) {
	if !ll.ip.Allow(ClientIP(r)) {
		return false, ScopeIP
	}
	if key := emailKey(domain, email); key != "" && !ll.email.Allow(key) {
		return false, ScopeEmail
	}
	return true, ""
}

// DenialMessage is the caller-facing text for a refused scope.
func DenialMessage(scope string) string {
	if scope == ScopeEmail {
		return "too many login attempts for this account; wait a few minutes"
	}
	return "too many login attempts; wait a minute before trying again"
}

// RetryAfter is a conservative Retry-After value in seconds for scope.
func RetryAfter(scope string) int {
	if scope == ScopeEmail {
		return 300
	}
	return 60
}

// ResetEmail clears the identifier budget after a successful login.
func (ll *LoginLimiter) ResetEmail(domain, email string) {
	if key := emailKey(domain, email); key != "" {
		ll.email.Reset(key)
	}
}

// Close stops both limiters.
func (ll *LoginLimiter) Close() {
	ll.ip.Close()
	ll.email.Close()
}

func emailKey(domain, email string) string {
	e := strings.ToLower(strings.TrimSpace(email))
	if e == "" {
		return ""
	}
	return domain + ":" + e
}
