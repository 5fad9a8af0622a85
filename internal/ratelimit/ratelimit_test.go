// internal/ratelimit/ratelimit_test.go
//
// Fixed-window semantics: monotone counting, lazy reset, identifier
// isolation, and the response-header contract.
//
// Run: go test ./internal/ratelimit -v

package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestWindowMonotonicity(t *testing.T) {
	l := New(5, 15*time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, wantRemaining := range []int{4, 3, 2, 1, 0} {
		res := l.CheckAndIncrement("10.0.0.1", now)
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if res.Remaining != wantRemaining {
			t.Fatalf("request %d: remaining = %d, want %d", i+1, res.Remaining, wantRemaining)
		}
		if res.Limit != 5 {
			t.Fatalf("limit = %d, want 5", res.Limit)
		}
	}

	res := l.CheckAndIncrement("10.0.0.1", now)
	if res.Allowed {
		t.Fatal("6th request should be denied")
	}
	if res.Remaining != 0 {
		t.Fatalf("denied remaining = %d, want 0", res.Remaining)
	}
	if res.RetryAfterSeconds <= 0 {
		t.Fatalf("denied retryAfter = %d, want > 0", res.RetryAfterSeconds)
	}
}

func TestWindowReset(t *testing.T) {
	l := New(5, 15*time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 6; i++ {
		l.CheckAndIncrement("10.0.0.1", now)
	}

	// Crossing resetAt starts a fresh window.
	later := now.Add(15*time.Minute + time.Second)
	res := l.CheckAndIncrement("10.0.0.1", later)
	if !res.Allowed {
		t.Fatal("request after window reset should be allowed")
	}
	if res.Remaining != 4 {
		t.Fatalf("remaining after reset = %d, want 4", res.Remaining)
	}
	if got, want := res.ResetAt, later.Add(15*time.Minute); !got.Equal(want) {
		t.Fatalf("resetAt = %v, want %v", got, want)
	}
}

func TestIdentifierIsolation(t *testing.T) {
	l := New(5, 15*time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 6; i++ {
		l.CheckAndIncrement("10.0.0.1", now)
	}

	res := l.CheckAndIncrement("10.0.0.2", now)
	if !res.Allowed || res.Remaining != 4 {
		t.Fatalf("exhausting one identifier must not affect another: %+v", res)
	}
}

func TestRetryAfterRoundsUp(t *testing.T) {
	l := New(1, time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	l.CheckAndIncrement("id", now)
	res := l.CheckAndIncrement("id", now.Add(59*time.Second+500*time.Millisecond))
	if res.Allowed {
		t.Fatal("expected denial")
	}
	if res.RetryAfterSeconds != 1 {
		t.Fatalf("retryAfter = %d, want 1 (rounded up)", res.RetryAfterSeconds)
	}
}

func TestSweepEvictsOnlyStaleCounters(t *testing.T) {
	l := New(5, 15*time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	l.CheckAndIncrement("fresh", now)
	l.CheckAndIncrement("stale", now.Add(-31*time.Minute)) // window lapsed 16 min ago

	if n := l.Sweep(now); n != 1 {
		t.Fatalf("swept %d counters, want 1", n)
	}

	// "fresh" keeps its live window.
	res := l.CheckAndIncrement("fresh", now)
	if res.Remaining != 3 {
		t.Fatalf("fresh counter lost state: remaining = %d, want 3", res.Remaining)
	}
}

func TestSweepSparesRecentlyLapsedWindow(t *testing.T) {
	l := New(5, 15*time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Window lapsed 5 minutes ago: stale, but not yet 2× window old.
	l.CheckAndIncrement("id", now.Add(-20*time.Minute))
	if n := l.Sweep(now); n != 0 {
		t.Fatalf("swept %d counters, want 0", n)
	}
}

func TestDeriveIdentifierPriority(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	r := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	r.Header.Set("X-Forwarded-For", " 203.0.113.7 , 10.0.0.1")
	r.Header.Set("X-Real-Ip", "198.51.100.2")
	r.Header.Set("CF-Connecting-IP", "198.51.100.3")

	if got := DeriveIdentifier(r, now); got != "203.0.113.7" {
		t.Fatalf("identifier = %q, want first trimmed forwarded-for value", got)
	}

	r.Header.Del("X-Forwarded-For")
	if got := DeriveIdentifier(r, now); got != "198.51.100.2" {
		t.Fatalf("identifier = %q, want real-ip value", got)
	}

	r.Header.Del("X-Real-Ip")
	if got := DeriveIdentifier(r, now); got != "198.51.100.3" {
		t.Fatalf("identifier = %q, want connecting-ip value", got)
	}

	r.Header.Del("CF-Connecting-IP")
	if got := DeriveIdentifier(r, now); got != "192.0.2.1" {
		t.Fatalf("identifier = %q, want remote addr host", got)
	}

	r.RemoteAddr = "bogus"
	if got := DeriveIdentifier(r, now); !strings.HasPrefix(got, "anon-") {
		t.Fatalf("identifier = %q, want synthetic fallback", got)
	}
}

func TestHeadersFor(t *testing.T) {
	resetAt := time.Date(2026, 3, 1, 12, 15, 0, 0, time.UTC)

	h := http.Header{}
	HeadersFor(h, Result{Allowed: true, Limit: 5, Remaining: 2, ResetAt: resetAt})
	if h.Get("X-RateLimit-Limit") != "5" || h.Get("X-RateLimit-Remaining") != "2" {
		t.Fatalf("unexpected limit headers: %v", h)
	}
	if h.Get("X-RateLimit-Reset") != "2026-03-01T12:15:00Z" {
		t.Fatalf("reset header = %q, want ISO-8601", h.Get("X-RateLimit-Reset"))
	}
	if h.Get("Retry-After") != "" {
		t.Fatal("Retry-After must be absent on allowed results")
	}

	h = http.Header{}
	HeadersFor(h, Result{Allowed: false, Limit: 5, ResetAt: resetAt, RetryAfterSeconds: 42})
	if h.Get("Retry-After") != "42" {
		t.Fatalf("Retry-After = %q, want 42", h.Get("Retry-After"))
	}
}

func TestWriteDenied(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteDenied(rec, Result{
		Allowed:           false,
		Limit:             5,
		ResetAt:           time.Date(2026, 3, 1, 12, 15, 0, 0, time.UTC),
		RetryAfterSeconds: 60,
	})

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Too many requests") {
		t.Fatalf("body = %q, want standard error text", rec.Body.String())
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("Retry-After = %q, want 60", rec.Header().Get("Retry-After"))
	}
}
