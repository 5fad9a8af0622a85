// internal/csrf/csrf.go
//
// CSRF protocol: issuance, session binding, and one-time validation.
//
// Context
//   The contact endpoint is the only state-changing surface on the site, so
//   the protocol is deliberately small.  A token has two dot-separated
//   parts:
//
//      base64url(nonce) "." base64url(HMAC_SHA256(secret, nonce|sessionID))
//
//   •  nonce – 32 random bytes, unique per issuance.
//   •  HMAC  – binds the nonce to the session it was issued for, so a token
//      lifted from one browser is useless from another.
//
//   Unlike a purely stateless scheme, every issued token is also parked in
//   the Store and consumed on first successful validation.  The signature
//   proves authenticity, the store enforces one-time use and the 1 h expiry
//   window, and a successful validation hands back a replacement token so a
//   single-page client can submit again without reloading.
//
// Workflow
//   •  Issue(sessionID, now)  → token for the /api/csrf handler.
//   •  Validate(r, now)       → Validation with a machine-readable reason.
//
//------------------------------------------------------------------------------

package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aburnley/portfolio-api/internal/metrics"
	"github.com/aburnley/portfolio-api/internal/session"
)

const (
	// HeaderToken carries the presented token on POST.  http.Header
	// canonicalises names, so lookups are case-insensitive regardless of
	// what the fronting CDN normalised the header to.
	HeaderToken = "X-CSRF-Token"

	nonceBytes = 32 // 256 bits of entropy per token
)

// Validation reasons returned to the gate.  These are the client-facing
// strings; the gate never invents its own.
const (
	ReasonMissingToken   = "Missing CSRF token"
	ReasonMissingSession = "Missing session ID"
	ReasonMalformed      = "Malformed token"
	ReasonBadSignature   = "Invalid token signature"
	ReasonNotFound       = "Invalid session or token expired"
)

// Methods that require CSRF protection.  Safe methods pass unconditionally.
var unsafeMethods = map[string]bool{
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// Issued is the product of one token issuance.
type Issued struct {
	Token     string
	SessionID string
	ExpiresAt time.Time
}

// Validation is the outcome of checking one request.
type Validation struct {
	Valid  bool
	Reason string // one of the Reason* constants when Valid is false
	// Rotated is a replacement token issued after a successful consume so
	// the client can submit again without a full page reload.
	Rotated *Issued
}

// Protocol issues and validates tokens.  Construct with New and share one
// instance across handlers; all state lives in the injected Store.
type Protocol struct {
	store  *Store
	secret []byte
	ttl    time.Duration
	log    *zap.SugaredLogger
}

// New builds a Protocol around store.  When secret is empty a random
// ephemeral key is generated; tokens then die with the process, which only
// costs clients a token re-fetch after a restart.
func New(store *Store, secret []byte, ttl time.Duration, log *zap.SugaredLogger) *Protocol {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		_, _ = rand.Read(secret)
		log.Warnw("csrf secret not configured, using ephemeral key")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Protocol{store: store, secret: secret, ttl: ttl, log: log}
}

// TTL reports the configured token lifetime.
func (p *Protocol) TTL() time.Duration { return p.ttl }

// RequiresProtection reports whether method is state-changing.
func RequiresProtection(method string) bool {
	return unsafeMethods[strings.ToUpper(method)]
}

// Issue creates a token bound to sessionID and stores it, invalidating any
// previously issued, unconsumed token for that session.  An empty sessionID
// synthesises a fresh one.
func (p *Protocol) Issue(sessionID string, now time.Time) (Issued, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	nonce := make([]byte, nonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return Issued{}, fmt.Errorf("csrf: read entropy: %w", err)
	}

	base := base64.RawURLEncoding.EncodeToString(nonce)
	token := base + "." + p.sign(base, sessionID)

	iss := Issued{
		Token:     token,
		SessionID: sessionID,
		ExpiresAt: now.Add(p.ttl),
	}
	p.store.Put(sessionID, Record{
		Token:     token,
		IssuedAt:  now,
		ExpiresAt: iss.ExpiresAt,
	})
	metrics.TokensIssuedTotal.Inc()
	return iss, nil
}

// Validate checks the request's token against its session.  Safe methods
// pass unconditionally.  On success the consumed token is replaced and the
// rotation is attached to the result.
func (p *Protocol) Validate(r *http.Request, now time.Time) Validation {
	if !RequiresProtection(r.Method) {
		return Validation{Valid: true}
	}

	token := r.Header.Get(HeaderToken)
	if token == "" {
		return p.reject(ReasonMissingToken)
	}

	sessionID, ok := session.FromRequest(r)
	if !ok {
		return p.reject(ReasonMissingSession)
	}

	base, sig, found := strings.Cut(token, ".")
	if !found || base == "" || sig == "" {
		return p.reject(ReasonMalformed)
	}

	// Authenticity first: a wrong signature means the token was forged or
	// issued for another session, regardless of store contents.
	if !hmac.Equal([]byte(sig), []byte(p.sign(base, sessionID))) {
		return p.reject(ReasonBadSignature)
	}

	if !p.store.TakeIfValid(sessionID, token, now) {
		return p.reject(ReasonNotFound)
	}

	v := Validation{Valid: true}
	if rotated, err := p.Issue(sessionID, now); err == nil {
		v.Rotated = &rotated
	} else {
		// The consumed token is already spent; the client just has to
		// re-fetch before its next submit.
		p.log.Errorw("csrf token rotation failed", "error", err)
	}
	metrics.TokensConsumedTotal.Inc()
	return v
}

func (p *Protocol) reject(reason string) Validation {
	metrics.TokensRejectedTotal.WithLabelValues(reason).Inc()
	return Validation{Valid: false, Reason: reason}
}

// sign computes base64url(HMAC_SHA256(secret, base|sessionID)).
func (p *Protocol) sign(base, sessionID string) string {
	mac := hmac.New(sha256.New, p.secret)
	mac.Write([]byte(base))
	mac.Write([]byte(sessionID))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
