// Package ratelimit throttles credential endpoints with fixed windows keyed
// by client IP and by email.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limiter counts hits per key in fixed windows. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type bucket struct {
	hits  int
	reset time.Time
}

// New returns a Limiter allowing limit hits per window and starts a sweeper
// that drops expired buckets. Call Close to stop the sweeper.
func New(limit int, window time.Duration) *Limiter {
	l := newLimiter(limit, window, time.Now)
	go l.sweep(2 * window)
	return l
}

func newLimiter(limit int, window time.Duration, now func() time.Time) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
		now:     now,
		stop:    make(chan struct{}),
	}
}

// Allow records a hit for key and reports whether it is within the limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok || !now.Before(b.reset) {
		l.buckets[key] = &bucket{hits: 1, reset: now.Add(l.window)}
		return true
	}
	if b.hits >= l.limit {
		return false
	}
	b.hits++
	return true
}

// Remaining reports how many hits key has left in its current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || !l.now().Before(b.reset) {
		return l.limit
	}
	return max(l.limit-b.hits, 0)
}

// Reset forgets key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	delete(l.buckets, key)
	l.mu.Unlock()
}

// Close stops the sweeper. Safe to call more than once.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Limiter) sweep(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-t.C:
			l.mu.Lock()
			now := l.now()
			for k, b := range l.buckets {
				if !now.Before(b.reset) {
					delete(l.buckets, k)
				}
			}
			l.mu.Unlock()
		}
	}
}

// ClientIP returns the caller address, preferring the first
// X-Forwarded-For hop, then X-Real-IP, then RemoteAddr without its port.
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
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Messages returned by AuthLimiter.Check.
const (
	MsgTooManyFromIP     = "Too many attempts. Please wait a minute before trying again."
	MsgTooManyForAccount = "Too many attempts for this account. Please wait a few minutes."
)

// AuthLimiter guards login and registration. It limits attempts per client
// IP and, when an email is supplied, per account.
type AuthLimiter struct {
	ip    *Limiter
	email *Limiter
}

// NewAuthLimiter allows 10 attempts per IP per minute and 5 per email per
// five minutes.
func NewAuthLimiter() *AuthLimiter {
	return NewAuthLimiterWithConfig(10, time.Minute, 5, 5*time.Minute)
}

// NewAuthLimiterWithConfig is NewAuthLimiter with explicit limits and windows.
func NewAuthLimiterWithConfig(ipLimit int, ipWindow time.Duration, emailLimit int, emailWindow time.Duration) *AuthLimiter {
	return &AuthLimiter{
		ip:    New(ipLimit, ipWindow),
		email: New(emailLimit, emailWindow),
	}
}

// Check records an attempt and returns ("", true) when it may proceed or
// a user-facing reason and false when it must be rejected with 429.
func (a *AuthLimiter) Check(r *http.Request, email string) (string, bool) {
	if !a.ip.Allow(ClientIP(r)) {
		return MsgTooManyFromIP, false
	}
	if key := emailKey(email); key != "" && !a.email.Allow(key) {
		return MsgTooManyForAccount, false
	}
	return "", true
}

// Succeeded clears the per-account counter after a successful login.
func (a *AuthLimiter) Succeeded(email string) {
	if key := emailKey(email); key != "" {
		a.email.Reset(key)
	}
}

// Close stops both sweepers.
func (a *AuthLimiter) Close() {
	a.ip.Close()
	a.email.Close()
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
