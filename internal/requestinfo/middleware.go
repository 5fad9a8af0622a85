// internal/requestinfo/middleware.go
//
// HTTP middleware that enriches each request with *Info.
//
/*
Context
--------
This handler sits high in the chain, after recovery but before the contact
handlers.  For every request it:

  1. Parses the User-Agent header.
  2. Derives the client identifier with the rate limiter's own priority
     chain, so the abuse log and the counter table always agree on who a
     request belongs to.
  3. Performs a GeoLite2 lookup when the identifier parses as an IP.
  4. Stores *Info in the request context under an unexported key.

Instrumentation
---------------
When FOLIO_LOG_LEVEL=debug, each invocation logs a DEBUG span containing
the identifier, country, browser family, bot flag, and request path.
*/
package requestinfo

import (
	"context"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/aburnley/portfolio-api/internal/ratelimit"
	"github.com/aburnley/portfolio-api/internal/ua"
)

/*──────────────────────────── middleware ───────────────────────────────────*/

// Enrich wraps an http.Handler, attaches *Info, and forwards.
func Enrich(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()
		id := ratelimit.DeriveIdentifier(r, now)

		info := &Info{
			UA:         ua.Parse(r.UserAgent()),
			Geo:        lookupGeo(net.ParseIP(id)),
			Identifier: id,
			Timestamp:  now,
		}

		zap.S().Debugw("request info",
			"identifier", info.Identifier,
			"country", info.Geo.CountryISO,
			"browser", info.UA.Browser,
			"bot", info.UA.IsBot,
			"path", r.URL.Path,
		)

		ctx := context.WithValue(r.Context(), ctxKey{}, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
