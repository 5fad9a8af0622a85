// internal/gate/gate.go
//
// Submission gate: the full admission decision for one contact POST.
//
// Context
//   Checks run in a fixed order and short-circuit on the first failure:
//
//      CSRF → rate limit → honeypot → timing → schema → email dispatch
//
//   CSRF and the rate limiter are independent; both own their state and
//   neither consults the other.  The honeypot is the one deliberate lie in
//   the system: a filled hidden field returns a genuine-looking success
//   without sending email, so the bot learns nothing about being caught.
//   The timing check, by contrast, fails loudly, so a fast human pasting a
//   prepared message understands what happened and can retry.
//
//   Admit takes an explicit `now` so tests can replay every window and
//   expiry boundary deterministically.
//
// Style
//   Two-space sentence spacing, Oxford comma, terse inline notes.
//
//------------------------------------------------------------------------------

package gate

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/aburnley/portfolio-api/internal/contact"
	"github.com/aburnley/portfolio-api/internal/csrf"
	"github.com/aburnley/portfolio-api/internal/message"
	"github.com/aburnley/portfolio-api/internal/metrics"
	"github.com/aburnley/portfolio-api/internal/ratelimit"
	"github.com/aburnley/portfolio-api/internal/requestinfo"
)

// Gate sequences the admission checks for the contact endpoint.  All
// collaborators are injected; Gate itself is stateless.
type Gate struct {
	csrf    *csrf.Protocol
	limiter *ratelimit.Limiter
	sender  message.Sender
	log     *zap.SugaredLogger

	minFormTime time.Duration
	mailFrom    string
	mailTo      string
}

// New wires a Gate.  mailTo must already be resolved (config or Vault);
// the gate never touches secret storage per-request.
func New(p *csrf.Protocol, l *ratelimit.Limiter, s message.Sender,
	log *zap.SugaredLogger, minFormTime time.Duration, mailFrom, mailTo string) *Gate {

	if minFormTime <= 0 {
		minFormTime = 3 * time.Second
	}
	return &Gate{
		csrf:        p,
		limiter:     l,
		sender:      s,
		log:         log,
		minFormTime: minFormTime,
		mailFrom:    mailFrom,
		mailTo:      mailTo,
	}
}

// Accepted is the success result of Admit.
type Accepted struct {
	// RotatedToken replaces the consumed CSRF token; the handler surfaces
	// it as a response header.
	RotatedToken string
	// RateLimit carries the window metadata for the response headers.
	RateLimit ratelimit.Result
	// Silent is true for the honeypot path: the response must look like
	// success, but no email was sent.
	Silent bool
}

// Admit runs the full pipeline for one submission.  A nil error means the
// response is 200, including the silent honeypot acceptance.  Non-nil
// errors are the typed taxonomy from errors.go; failures past the limiter
// still return the partially-filled Accepted so the handler can attach
// rate-limit headers.
func (g *Gate) Admit(r *http.Request, sub *contact.Submission, now time.Time) (Accepted, error) {
	// Safe methods carry no submission and bypass every check.  The router
	// only wires POST here; this guard keeps the gate honest on its own.
	if !csrf.RequiresProtection(r.Method) {
		return Accepted{}, nil
	}

	v := g.csrf.Validate(r, now)
	if !v.Valid {
		metrics.SubmissionsTotal.WithLabelValues("csrf_rejected").Inc()
		return Accepted{}, &CsrfError{Reason: v.Reason}
	}

	var acc Accepted
	if v.Rotated != nil {
		acc.RotatedToken = v.Rotated.Token
	}

	identifier := ratelimit.DeriveIdentifier(r, now)
	acc.RateLimit = g.limiter.CheckAndIncrement(identifier, now)
	if !acc.RateLimit.Allowed {
		metrics.SubmissionsTotal.WithLabelValues("rate_limited").Inc()
		g.log.Infow("submission rate limited",
			"identifier", identifier,
			"retry_after_s", acc.RateLimit.RetryAfterSeconds,
		)
		return Accepted{}, &RateLimitError{Result: acc.RateLimit}
	}

	if sub.Honeypot != "" {
		// Silent acceptance: the bot sees success, nobody gets email.
		metrics.HoneypotTripsTotal.Inc()
		metrics.SubmissionsTotal.WithLabelValues("honeypot").Inc()
		g.logAbuse(r, "honeypot tripped", identifier)
		acc.Silent = true
		return acc, nil
	}

	if loaded := sub.LoadedAt(); !loaded.IsZero() {
		if elapsed := now.Sub(loaded); elapsed < g.minFormTime {
			metrics.TimingTripsTotal.Inc()
			metrics.SubmissionsTotal.WithLabelValues("too_fast").Inc()
			g.logAbuse(r, "submission too fast", identifier)
			return acc, &TimingError{ElapsedMillis: elapsed.Milliseconds()}
		}
	}

	if fields := contact.Validate(sub); len(fields) > 0 {
		metrics.SubmissionsTotal.WithLabelValues("invalid").Inc()
		return acc, &ValidationError{Fields: fields}
	}

	msg := message.Render(sub.Sanitized(), g.mailFrom, g.mailTo)
	if err := g.sender.Send(r.Context(), msg); err != nil {
		metrics.EmailFailuresTotal.Inc()
		metrics.SubmissionsTotal.WithLabelValues("send_failed").Inc()
		return acc, &EmailSendError{Err: err}
	}

	metrics.EmailsSentTotal.Inc()
	metrics.SubmissionsTotal.WithLabelValues("accepted").Inc()
	return acc, nil
}

// logAbuse records a deterrence trip with whatever request metadata the
// Enrich middleware gathered.
func (g *Gate) logAbuse(r *http.Request, event, identifier string) {
	kv := []any{"identifier", identifier}
	if info := requestinfo.FromContext(r.Context()); info != nil {
		kv = append(kv,
			"browser", info.UA.Browser,
			"device", info.UA.Device,
			"ua_bot", info.UA.IsBot,
			"country", info.Geo.CountryISO,
		)
	}
	g.log.Infow(event, kv...)
}
