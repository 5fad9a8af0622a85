// cmd/web/main.go
//
// Portfolio contact API – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load configuration (conf/.env → conf/global.yaml → FOLIO_ env
//     overrides), failing fast on anything missing or malformed.
//
//  2. Start the daily rotating logger (tees to console in a TTY).
//
//  3. Open the optional GeoLite2 database for abuse-log enrichment.
//
//  4. Resolve the mail recipient: literal config value, or Vault KV-v2
//     when vault.enabled.  Either way it is fetched once, here, never
//     per-request.
//
//  5. Build the injected components: token store, CSRF protocol, rate
//     limiter, email sender, and the submission gate that sequences them.
//
//  6. Wire the chi router: security headers, request-info enrichment,
//     GET /api/csrf, POST /api/contact, /healthz, and /metrics.
//
//  7. Run the server and the store sweepers under one errgroup; SIGINT or
//     SIGTERM drains in-flight requests and stops the sweep loops.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aburnley/portfolio-api/internal/config"
	"github.com/aburnley/portfolio-api/internal/csrf"
	"github.com/aburnley/portfolio-api/internal/gate"
	"github.com/aburnley/portfolio-api/internal/logger"
	"github.com/aburnley/portfolio-api/internal/message"
	"github.com/aburnley/portfolio-api/internal/middleware"
	"github.com/aburnley/portfolio-api/internal/ratelimit"
	"github.com/aburnley/portfolio-api/internal/requestinfo"
	"github.com/aburnley/portfolio-api/internal/secrets"
	"github.com/aburnley/portfolio-api/internal/server"
)

const sweepInterval = 5 * time.Minute

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Configuration ───────────────────────────────────────────────
	//
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logOut, err := logger.New(cfg.Paths.Root, runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}
	defer func() { _ = logOut.Sync() }()

	requestinfo.InitGeo(cfg.Geo.DBPath)

	//
	// ── 2.  Mail recipient resolution (once, at boot) ──────────────────
	//
	recipient, err := resolveRecipient(ctx, cfg, logOut)
	if err != nil {
		logOut.Fatalw("mail recipient unresolved", "error", err)
	}

	//
	// ── 3.  Email sender ────────────────────────────────────────────────
	//
	var sender message.Sender
	switch cfg.Mail.Provider {
	case "ses":
		sender, err = message.NewSES(ctx, cfg.Mail.Region)
		if err != nil {
			logOut.Fatalw("ses sender init failed", "error", err)
		}
	default:
		sender = message.LogSender{Log: logOut}
	}

	//
	// ── 4.  Abuse-prevention components ────────────────────────────────
	//
	var secret []byte
	if cfg.CSRF.Secret != "" {
		secret, err = base64.RawURLEncoding.DecodeString(cfg.CSRF.Secret)
		if err != nil || len(secret) < 32 {
			logOut.Fatalw("csrf secret must be base64url of ≥32 bytes")
		}
	}

	store := csrf.NewStore()
	protocol := csrf.New(store, secret, cfg.CSRF.TTL(), logOut)
	limiter := ratelimit.New(cfg.RateLimit.Limit, cfg.RateLimit.Window())

	gt := gate.New(protocol, limiter, sender, logOut,
		cfg.Gate.MinFormTime(), cfg.Mail.From, recipient)

	//
	// ── 5.  Router ──────────────────────────────────────────────────────
	//
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.Security)
	if cfg.HTTP.ForceHTTPS {
		r.Use(middleware.ForceHTTPS)
	}
	r.Use(requestinfo.Enrich)

	r.Get("/api/csrf", gt.TokenHandler())
	r.Post("/api/contact", gt.ContactHandler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	srv := server.New(cfg.HTTP.ListenAddr, r)

	//
	// ── 6.  Run server + sweepers until shutdown ───────────────────────
	//
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logOut.Infow("listening", "addr", cfg.HTTP.ListenAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				now := time.Now().UTC()
				if n := store.Sweep(now); n > 0 {
					logOut.Debugw("token sweep", "removed", n)
				}
				if n := limiter.Sweep(now); n > 0 {
					logOut.Debugw("counter sweep", "removed", n)
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil {
		logOut.Fatalw("server exited", "error", err)
	}
	logOut.Infow("shutdown complete")
}

// resolveRecipient returns the contact recipient address from config, or
// from Vault when enabled.  Empty everywhere is a configuration error.
func resolveRecipient(ctx context.Context, cfg *config.Config, logOut *zap.SugaredLogger) (string, error) {
	if cfg.Mail.To != "" {
		return cfg.Mail.To, nil
	}
	if !cfg.Vault.Enabled {
		return "", errors.New("mail.to is empty and vault is disabled")
	}

	res, err := secrets.NewVault(logOut.Infof)
	if err != nil {
		return "", err
	}

	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := res.WaitHealthy(waitCtx); err != nil {
		return "", err
	}

	return res.Get(ctx, cfg.Vault.SecretPath+"#"+cfg.Vault.RecipientKey)
}
