// internal/gate/errors.go
//
// Admission error taxonomy.
//
// Context
//   Every failure Admit can produce is a typed error so the handler can
//   discriminate with errors.As and map to a status code without string
//   matching: validation → 400, CSRF → 403, rate limit → 429, provider →
//   500.  No provider error text or stack detail ever crosses the HTTP
//   boundary; the handler logs the full error and writes the generic
//   mapped body.
//
//------------------------------------------------------------------------------

package gate

import (
	"fmt"

	"github.com/aburnley/portfolio-api/internal/contact"
	"github.com/aburnley/portfolio-api/internal/ratelimit"
)

// ValidationError carries field-level schema failures (HTTP 400).
type ValidationError struct {
	Fields []contact.FieldError
}

func (e *ValidationError) Error() string { return "contact validation failed" }

// CsrfError reports a failed CSRF check (HTTP 403).  Reason is one of the
// csrf.Reason* strings and is reported to the client verbatim, so a
// legitimate user knows whether to wait or re-fetch a token.
type CsrfError struct {
	Reason string
}

func (e *CsrfError) Error() string { return "csrf: " + e.Reason }

// RateLimitError reports a denied rate-limit check (HTTP 429) along with
// the window metadata needed for response headers.
type RateLimitError struct {
	Result ratelimit.Result
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %ds", e.Result.RetryAfterSeconds)
}

// TimingError reports a submission faster than a human plausibly types
// (HTTP 400).  Unlike the honeypot, this one is reported accurately.
type TimingError struct {
	ElapsedMillis int64
}

func (e *TimingError) Error() string {
	return fmt.Sprintf("form submitted after %d ms", e.ElapsedMillis)
}

// EmailSendError wraps a downstream provider failure (HTTP 500).
type EmailSendError struct {
	Err error
}

func (e *EmailSendError) Error() string { return "email send failed: " + e.Err.Error() }
func (e *EmailSendError) Unwrap() error { return e.Err }
