// internal/gate/handler.go
//
// HTTP handlers for the token and contact endpoints.
//
// Context
//   Two routes: GET /api/csrf issues a token (and the session cookie), and
//   POST /api/contact runs the gate.  This file owns the error-to-status
//   mapping of the taxonomy in errors.go and the JSON envelope
//   { error, code, details? }.  Rate-limit headers go on every contact
//   response that got far enough for the limiter to be consulted.
//
//------------------------------------------------------------------------------

package gate

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aburnley/portfolio-api/internal/csrf"
	"github.com/aburnley/portfolio-api/internal/ratelimit"
	"github.com/aburnley/portfolio-api/internal/session"

	"github.com/aburnley/portfolio-api/internal/contact"
)

// tokenResponse is the body of GET /api/csrf.
type tokenResponse struct {
	Token     string `json:"token"`
	SessionID string `json:"sessionId"`
	ExpiresIn int    `json:"expiresIn"` // seconds
}

// errorResponse is the uniform JSON error envelope.
type errorResponse struct {
	Error   string               `json:"error"`
	Code    string               `json:"code"`
	Details []contact.FieldError `json:"details,omitempty"`
}

// TokenHandler issues a CSRF token bound to the caller's session, creating
// the session when none is presented.
func (g *Gate) TokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()

		sid, _ := session.FromRequest(r) // empty string synthesises one
		iss, err := g.csrf.Issue(sid, now)
		if err != nil {
			g.log.Errorw("token issuance failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error: "Unable to issue token", Code: "TOKEN_ERROR",
			})
			return
		}

		session.Set(w, r, iss.SessionID, g.csrf.TTL())
		w.Header().Set(csrf.HeaderToken, iss.Token)
		writeJSON(w, http.StatusOK, tokenResponse{
			Token:     iss.Token,
			SessionID: iss.SessionID,
			ExpiresIn: int(g.csrf.TTL().Seconds()),
		})
	}
}

// ContactHandler decodes the payload, runs Admit, and maps the outcome.
func (g *Gate) ContactHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()

		var sub contact.Submission
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
		if err := dec.Decode(&sub); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error: "Malformed JSON body", Code: "BAD_REQUEST",
			})
			return
		}

		acc, err := g.Admit(r, &sub, now)
		if err == nil {
			ratelimit.HeadersFor(w.Header(), acc.RateLimit)
			if acc.RotatedToken != "" {
				w.Header().Set(csrf.HeaderToken, acc.RotatedToken)
			}
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
			return
		}

		var (
			csrfErr  *CsrfError
			rateErr  *RateLimitError
			timeErr  *TimingError
			valErr   *ValidationError
			emailErr *EmailSendError
		)
		switch {
		case errors.As(err, &csrfErr):
			writeJSON(w, http.StatusForbidden, errorResponse{
				Error: csrfErr.Reason, Code: "CSRF_ERROR",
			})

		case errors.As(err, &rateErr):
			ratelimit.WriteDenied(w, rateErr.Result)

		case errors.As(err, &timeErr):
			ratelimit.HeadersFor(w.Header(), acc.RateLimit)
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error: "That was quick!  Please take your time filling out the form.",
				Code:  "TOO_FAST",
			})

		case errors.As(err, &valErr):
			ratelimit.HeadersFor(w.Header(), acc.RateLimit)
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error:   "Validation failed",
				Code:    "VALIDATION_ERROR",
				Details: valErr.Fields,
			})

		case errors.As(err, &emailErr):
			// Full detail stays server-side; the client gets a generic 500.
			g.log.Errorw("email provider failure", "error", err)
			ratelimit.HeadersFor(w.Header(), acc.RateLimit)
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error: "Unable to send your message.  Please try again later.",
				Code:  "EMAIL_ERROR",
			})

		default:
			g.log.Errorw("unexpected admission error", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error: "Internal error", Code: "INTERNAL",
			})
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
