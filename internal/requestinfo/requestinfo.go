//
//  internal/requestinfo/requestinfo.go
//
//  Lightweight types and helpers that collect per-request metadata
//  (user-agent fingerprint, client IP + geolocation, and timestamp) for
//  the abuse log.  These structs are inert; they contain no handles or
//  large buffers, so they are safe to log or JSON-encode.
//
//  Dependencies
//  • internal/ua                       (uasurfer wrapper)
//  • github.com/oschwald/geoip2-golang (MaxMind lookup)
//

package requestinfo

import (
	"context"
	"net"
	"time"

	"github.com/oschwald/geoip2-golang"
	"go.uber.org/zap"

	"github.com/aburnley/portfolio-api/internal/ua"
)

// Geo holds IP-based geolocation hints.  Best-effort; empty when the DB is
// absent or has no match.
type Geo struct {
	IP         net.IP
	CountryISO string // "US", "CA", "FR", ...
	City       string
}

// Info is attached to the request context by Enrich so the gate can log
// who tripped which check without reparsing headers.
type Info struct {
	UA         ua.Info
	Geo        Geo
	Identifier string // same key the rate limiter counts under
	Timestamp  time.Time
}

// geoReader is a singleton MaxMind handle.  It is safe for concurrent
// reads, which is all we ever perform.  nil means geo lookups are skipped.
var geoReader *geoip2.Reader

// InitGeo opens the GeoLite2-City database at startup.  Failure downgrades
// to no geo enrichment; the contact pipeline does not depend on it.
func InitGeo(dbPath string) {
	if dbPath == "" {
		return
	}
	r, err := geoip2.Open(dbPath)
	if err != nil {
		zap.S().Warnw("geoip database unavailable", "path", dbPath, "err", err)
		return
	}
	geoReader = r
}

type ctxKey struct{} // unexported, collision-proof

// FromContext returns the pointer previously stored by Enrich, or nil if
// the middleware has not run.
func FromContext(ctx context.Context) *Info {
	v, _ := ctx.Value(ctxKey{}).(*Info)
	return v
}

// lookupGeo returns best-effort Geo data using the global reader.
func lookupGeo(ip net.IP) Geo {
	if geoReader == nil || ip == nil {
		return Geo{IP: ip}
	}
	rec, err := geoReader.City(ip)
	if err != nil {
		return Geo{IP: ip}
	}
	return Geo{
		IP:         ip,
		CountryISO: rec.Country.IsoCode,
		City:       rec.City.Names["en"],
	}
}
