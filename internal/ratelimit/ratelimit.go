// internal/ratelimit/ratelimit.go
//
// Fixed-window request limiter for the contact endpoint.
//
// Context
//   One counter per client identifier, five requests per 15 minute window
//   by default.  The window resets lazily on the next access after it
//   lapses, never on a timer, so there is no drift and no wakeup per
//   client.  Fixed-window is a deliberate choice for a personal contact
//   form: the worst case is a burst of 2× the limit straddling a window
//   boundary, which is acceptable at this traffic level and much simpler
//   than a sliding window.  Do not swap the algorithm without revisiting
//   the response-header contract.
//
//   Counters idle for two full windows are reclaimed by Sweep, which the
//   entry point runs on a ticker.  Every operation takes an explicit `now`
//   so tests can cross window boundaries deterministically.
//
// Style
//   Two-space sentence spacing, Oxford comma, terse inline notes.
//
//------------------------------------------------------------------------------

package ratelimit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/aburnley/portfolio-api/internal/metrics"
)

// Result is the outcome of one CheckAndIncrement, carrying everything the
// handler needs to build the conventional X-RateLimit-* response headers.
type Result struct {
	Allowed           bool
	Limit             int
	Remaining         int
	ResetAt           time.Time
	RetryAfterSeconds int // only meaningful when denied
}

type counter struct {
	count   int
	resetAt time.Time
}

// Limiter is a fixed-window counter table keyed by client identifier.
// Safe for concurrent use; construct with New and inject it into the gate.
type Limiter struct {
	limit  int
	window time.Duration

	mu       sync.Mutex
	counters map[string]*counter
}

// New returns a Limiter allowing limit requests per window.
func New(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &Limiter{
		limit:    limit,
		window:   window,
		counters: make(map[string]*counter),
	}
}

// CheckAndIncrement records one request from identifier at now and reports
// whether it is allowed.  The count and lazy window reset are applied as a
// single unit under the limiter mutex.
func (l *Limiter) CheckAndIncrement(identifier string, now time.Time) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.counters[identifier]
	if !ok || !now.Before(c.resetAt) {
		// First sighting, or the previous window lapsed.
		c = &counter{count: 1, resetAt: now.Add(l.window)}
		l.counters[identifier] = c
		metrics.RateLimitActiveCounters.Set(float64(len(l.counters)))
		return Result{
			Allowed:   true,
			Limit:     l.limit,
			Remaining: l.limit - 1,
			ResetAt:   c.resetAt,
		}
	}

	c.count++
	if c.count <= l.limit {
		return Result{
			Allowed:   true,
			Limit:     l.limit,
			Remaining: l.limit - c.count,
			ResetAt:   c.resetAt,
		}
	}

	metrics.RateLimitDeniedTotal.Inc()
	return Result{
		Allowed:           false,
		Limit:             l.limit,
		Remaining:         0,
		ResetAt:           c.resetAt,
		RetryAfterSeconds: ceilSeconds(c.resetAt.Sub(now)),
	}
}

// Sweep drops counters whose window has been stale for at least one extra
// window length, bounding memory without ever touching a live window.
// Returns the count removed.
func (l *Limiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	var n int
	for id, c := range l.counters {
		if now.Sub(c.resetAt) >= l.window {
			delete(l.counters, id)
			n++
		}
	}
	metrics.RateLimitActiveCounters.Set(float64(len(l.counters)))
	return n
}

// HeadersFor writes the conventional rate-limit headers for res onto h.
// Retry-After is only set when res was denied.
func HeadersFor(h http.Header, res Result) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", res.ResetAt.UTC().Format(time.RFC3339))
	if !res.Allowed {
		h.Set("Retry-After", strconv.Itoa(res.RetryAfterSeconds))
	}
}

// WriteDenied renders the standard 429 response for res.
func WriteDenied(w http.ResponseWriter, res Result) {
	HeadersFor(w.Header(), res)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "Too many requests",
		"message": "You have sent too many messages.  Please wait before trying again.",
	})
}

// ceilSeconds rounds d up to whole seconds, never below 1.
func ceilSeconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	if s < 1 {
		s = 1
	}
	return s
}
