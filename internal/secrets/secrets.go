// internal/secrets/secrets.go
//
// Secret/parameter resolution for the mail pipeline.
//
// Context
// -------
//   - The contact recipient address (and nothing else, today) lives outside
//     the repo: in Vault KV-v2 when enabled, or directly in configuration
//     for simple deploys.  Resolver is the seam; the gate and main never
//     know which backing is in play.
//   - Values are resolved once at startup and cached for process lifetime.
//     A missing secret is a ConfigurationError: the process refuses to
//     start rather than failing per-request.
//
// Public workflow
// ---------------
//  1. res, err := secrets.NewVault(logFn)             // during boot.
//  2. to,  err := res.Get(ctx, "kv/portfolio#contact_recipient")
//
// Build tags: none.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
)

// Resolver fetches one named secret.  Names are backend-specific; the
// Vault form is "mount/path#key".
type Resolver interface {
	Get(ctx context.Context, name string) (string, error)
}

//
// SECTION 1.  Static resolver
//

// Static serves secrets from a fixed map.  Used when Vault is disabled and
// in tests.
type Static map[string]string

// Get implements Resolver.
func (s Static) Get(_ context.Context, name string) (string, error) {
	v, ok := s[name]
	if !ok || v == "" {
		return "", fmt.Errorf("secret %q not configured", name)
	}
	return v, nil
}

//
// SECTION 2.  Vault resolver
//

// Vault is a concurrency-safe client over the HashiCorp Vault Go SDK with
// per-key caching.  Create once at startup and inject it.
type Vault struct {
	api   *vault.Client
	logFn func(string, ...any)

	cacheMu sync.RWMutex
	cache   map[string]string // resolved values, cached for process lifetime
}

// NewVault constructs a Vault resolver from the standard environment
// (VAULT_ADDR, VAULT_TOKEN).
func NewVault(logFn func(string, ...any)) (*Vault, error) {
	if logFn == nil {
		logFn = func(string, ...any) {}
	}

	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}

	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		apiCli.SetToken(tok)
	}

	return &Vault{
		api:   apiCli,
		logFn: logFn,
		cache: make(map[string]string),
	}, nil
}

// Get implements Resolver.  name is "mount/path#key".  The first successful
// fetch is cached; the mail recipient does not rotate mid-process.
func (v *Vault) Get(ctx context.Context, name string) (string, error) {
	secretPath, key, found := strings.Cut(name, "#")
	if !found || secretPath == "" || key == "" {
		return "", errors.New("secret name must be \"mount/path#key\"")
	}

	v.cacheMu.RLock()
	if cv, ok := v.cache[name]; ok {
		v.cacheMu.RUnlock()
		return cv, nil
	}
	v.cacheMu.RUnlock()

	mount, rel := splitMount(secretPath)
	sec, err := v.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}

	raw, ok := sec.Data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
	}

	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s is not a string", name)
	}

	v.cacheMu.Lock()
	v.cache[name] = sval
	v.cacheMu.Unlock()

	v.logFn("vault: resolved %s", name)
	return sval, nil
}

//
// SECTION 3.  Helpers
//

func splitMount(p string) (mount, rel string) {
	if p == "" {
		return "", ""
	}
	parts := strings.SplitN(p, "/", 2)
	mount = parts[0]
	if len(parts) == 2 {
		rel = parts[1]
	}
	return
}

// WaitHealthy probes the Vault server until it responds or ctx expires.
// Boot calls this so a slow Vault delays startup instead of failing it.
func (v *Vault) WaitHealthy(ctx context.Context) error {
	for {
		if _, err := v.api.Sys().HealthWithContext(ctx); err == nil {
			return nil
		}
		t := time.NewTimer(2 * time.Second)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
