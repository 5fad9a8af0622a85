// internal/session/session.go
//
// Browser-session identifiers for CSRF binding.
//
// Context
//   The CSRF protocol binds every token to an opaque session id.  The id
//   carries no identity and signs nothing; it only has to be unique per
//   browser.  Browser clients get it as a cookie from GET /api/csrf, and
//   API clients may echo it back in the X-Session-Id header instead.  The
//   header wins when both are present, which keeps single-page clients that
//   manage the id themselves working behind cookie-stripping proxies.
//
// Style
//   Two-space sentence spacing, Oxford comma, terse inline notes.
//
//------------------------------------------------------------------------------

package session

import (
	"net/http"
	"time"
)

const (
	cookieName = "folio_session"

	// Header is the transport used by clients that do not keep cookies.
	// http.Header lookups are canonicalised, so casing sent by the CDN
	// does not matter.
	Header = "X-Session-Id"
)

// FromRequest returns the session id presented on r, preferring the
// X-Session-Id header over the cookie.  ok == false when neither is set.
func FromRequest(r *http.Request) (id string, ok bool) {
	if h := r.Header.Get(Header); h != "" {
		return h, true
	}
	c, err := r.Cookie(cookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// Set writes the session cookie for id.  ttl should match the CSRF token
// lifetime; an expired cookie simply forces a token re-fetch.
func Set(w http.ResponseWriter, r *http.Request, id string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(ttl.Seconds()),
	})
}
