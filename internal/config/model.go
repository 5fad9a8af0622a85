// internal/config/model.go
//
// Typed configuration model.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `conf/.env`                    – dotenv values,
//   • `conf/global.yaml`                      – primary static file,
//   • `FOLIO_`-prefixed environment overrides – highest precedence.
//
// Durations are configured as integer minutes or seconds and converted by
// the typed accessors, keeping the YAML free of unit strings.  Validation
// happens immediately after unmarshal; the process fails fast if required
// fields are missing, so a misconfigured deploy never serves a request.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`—Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
}

//
// CSRF section
//

// CSRF holds token-protocol tunables.  Secret is a base64url 32-byte key;
// when empty an ephemeral key is generated at startup.
type CSRF struct {
	Secret     string `koanf:"secret"`
	TTLMinutes int    `koanf:"ttl_minutes" validate:"gte=0"`
}

// TTL returns the token lifetime, defaulting to one hour.
func (c CSRF) TTL() time.Duration {
	if c.TTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.TTLMinutes) * time.Minute
}

//
// Rate-limit section
//

// RateLimit holds the fixed-window limiter tunables.
type RateLimit struct {
	Limit         int `koanf:"limit"          validate:"gte=0"`
	WindowMinutes int `koanf:"window_minutes" validate:"gte=0"`
}

// Window returns the window length, defaulting to 15 minutes.
func (r RateLimit) Window() time.Duration {
	if r.WindowMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(r.WindowMinutes) * time.Minute
}

//
// Gate section
//

// Gate holds the secondary bot-check tunables.
type Gate struct {
	MinFormSeconds int `koanf:"min_form_seconds" validate:"gte=0"`
}

// MinFormTime returns the minimum human-plausible fill time, default 3 s.
func (g Gate) MinFormTime() time.Duration {
	if g.MinFormSeconds <= 0 {
		return 3 * time.Second
	}
	return time.Duration(g.MinFormSeconds) * time.Second
}

//
// Mail section
//

// Mail identifies the outbound addresses and the provider.  `To` may be
// left empty when Vault is enabled; the loader then resolves the recipient
// from the configured secret path at startup.
type Mail struct {
	Provider string `koanf:"provider" validate:"required,oneof=ses log"`
	Region   string `koanf:"region"`
	From     string `koanf:"from" validate:"required,email"`
	To       string `koanf:"to"   validate:"omitempty,email"`
}

//
// Vault section
//

// Vault points at the KV-v2 secret holding the mail recipient.  The client
// itself reads VAULT_ADDR and VAULT_TOKEN from the environment.
type Vault struct {
	Enabled      bool   `koanf:"enabled"`
	SecretPath   string `koanf:"secret_path"`
	RecipientKey string `koanf:"recipient_key"`
}

//
// Geo section
//

// Geo points at an optional GeoLite2-City database used to enrich abuse
// logs.  Lookups are skipped when the path is empty.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime—never set in YAML or env.  The loader
// discovers `Root` (repo root or FOLIO_ROOT override) so later code can
// build absolute file paths.
type Paths struct {
	Root string // FOLIO_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP      HTTP      `koanf:"http"`
	CSRF      CSRF      `koanf:"csrf"`
	RateLimit RateLimit `koanf:"rate_limit"`
	Gate      Gate      `koanf:"gate"`
	Mail      Mail      `koanf:"mail"`
	Vault     Vault     `koanf:"vault"`
	Geo       Geo       `koanf:"geo"`
	Paths     Paths     `koanf:"-"` // not loaded from config files
}
