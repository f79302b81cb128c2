package ratelimit

import (
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestLimiter_WindowResets(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := newLimiter(2, time.Minute, clk.Now)

	if !l.Allow("k") || !l.Allow("k") {
		t.Fatal("first two hits should be allowed")
	}
	if l.Allow("k") {
		t.Fatal("third hit should be rejected")
	}
	if got := l.Remaining("k"); got != 0 {
		t.Errorf("Remaining = %d, want 0", got)
	}

	clk.Advance(time.Minute)
	if !l.Allow("k") {
		t.Error("hit after window expiry should be allowed")
	}
	if got := l.Remaining("k"); got != 1 {
		t.Errorf("Remaining = %d, want 1", got)
	}
}

func TestLimiter_Reset(t *testing.T) {
	l := newLimiter(1, time.Hour, time.Now)
	l.Allow("a")
	if l.Allow("a") {
		t.Fatal("expected limit")
	}
	l.Reset("a")
	if !l.Allow("a") {
		t.Error("expected allow after Reset")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded first hop", map[string]string{"X-Forwarded-For": "1.1.1.1, 2.2.2.2"}, "9.9.9.9:1", "1.1.1.1"},
		{"real ip", map[string]string{"X-Real-IP": " 3.3.3.3 "}, "9.9.9.9:1", "3.3.3.3"},
		{"remote with port", nil, "4.4.4.4:5555", "4.4.4.4"},
		{"remote without port", nil, "4.4.4.4", "4.4.4.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAuthLimiter(t *testing.T) {
	a := NewAuthLimiterWithConfig(100, time.Minute, 2, time.Minute)
	defer a.Close()

	r := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
	for i := 0; i < 2; i++ {
		if _, ok := a.Check(r, "Alice@X.edu"); !ok {
			t.Fatalf("attempt %d should pass", i+1)
		}
	}
	msg, ok := a.Check(r, " alice@x.edu ")
	if ok || msg != MsgTooManyForAccount {
		t.Fatalf("expected account limit, got ok=%v msg=%q", ok, msg)
	}

	a.Succeeded("ALICE@x.edu")
	if _, ok := a.Check(r, "alice@x.edu"); !ok {
		t.Error("expected allow after Succeeded")
	}
}

func TestAuthLimiter_IP(t *testing.T) {
	a := NewAuthLimiterWithConfig(1, time.Minute, 100, time.Minute)
	defer a.Close()

	r := httptest.NewRequest("POST", "/", nil)
	a.Check(r, "")
	if msg, ok := a.Check(r, ""); ok || msg != MsgTooManyFromIP {
		t.Errorf("expected IP limit, got ok=%v msg=%q", ok, msg)
	}
}
