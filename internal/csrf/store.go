// internal/csrf/store.go
//
// Session-keyed storage for one-time CSRF tokens.
//
// Context
//   Every token the protocol issues is parked here until the browser spends
//   it on a contact-form POST.  The store holds at most one record per
//   session; issuing a replacement silently invalidates the previous token.
//   Consumption is a single lookup-and-delete under the store mutex, so a
//   replayed token can never win twice, and the token comparison itself is
//   constant time.
//
//   All methods take an explicit `now` so tests can walk the clock without
//   sleeping.  Sweep reclaims expired records; it is a memory bound, not a
//   correctness requirement, because TakeIfValid re-checks expiry itself.
//
// Style
//   Two-space sentence spacing, Oxford comma, terse inline notes.
//
//------------------------------------------------------------------------------

package csrf

import (
	"crypto/subtle"
	"sync"
	"time"

	"github.com/aburnley/portfolio-api/internal/metrics"
)

// Record is one issued, as-yet-unconsumed token bound to a session.
type Record struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Store maps session id → Record.  Safe for concurrent use.  The zero value
// is not usable; construct with NewStore and inject it into the protocol.
type Store struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewStore returns an empty token store.
func NewStore() *Store {
	return &Store{records: make(map[string]Record)}
}

// Put inserts or replaces the record for sessionID.  Overwriting an
// unconsumed token is deliberate: only the latest issuance per session is
// ever valid.
func (s *Store) Put(sessionID string, rec Record) {
	s.mu.Lock()
	s.records[sessionID] = rec
	n := len(s.records)
	s.mu.Unlock()
	metrics.TokensActive.Set(float64(n))
}

// TakeIfValid consumes the token for sessionID if, and only if, presented
// matches the stored token and the record has not expired at now.  On
// success the record is deleted before returning, so concurrent or replayed
// attempts for the same session observe exactly one winner.
func (s *Store) TakeIfValid(sessionID, presented string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[sessionID]
	if !ok {
		return false
	}
	if !now.Before(rec.ExpiresAt) {
		// Expired.  Reclaim eagerly rather than waiting for Sweep.
		delete(s.records, sessionID)
		return false
	}
	if subtle.ConstantTimeCompare([]byte(rec.Token), []byte(presented)) != 1 {
		return false
	}

	delete(s.records, sessionID)
	return true
}

// Len reports the number of live records, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Sweep removes every record expired at now and returns the count removed.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for sid, rec := range s.records {
		if !now.Before(rec.ExpiresAt) {
			delete(s.records, sid)
			n++
		}
	}
	metrics.TokensActive.Set(float64(len(s.records)))
	return n
}
