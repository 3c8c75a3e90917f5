package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jfeld-dev/janus/internal/auth"
	"github.com/jfeld-dev/janus/internal/config"
	"github.com/jfeld-dev/janus/internal/msa"
	"github.com/jfeld-dev/janus/internal/store"
	"github.com/jfeld-dev/janus/internal/xbox"
)

//go:embed migrations/*.sql
var migrationsDir embed.FS

func main() {
	// Load config first so we can set log level.
	cfg, err := config.LoadConfig()
	if err != nil {
		// Fallback logger before config is available.
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}

	// Include source location in log entries at debug level only.
	addSrc := cfg.LogLevel == slog.LevelDebug

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     cfg.LogLevel,
		AddSource: addSrc,
	})))

	// Cancel ctx on SIGINT/SIGTERM; run() shuts down when ctx is done.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run() is a separate func so deferred closes always execute before os.Exit.
	if err := run(ctx, cfg, nil); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

// run holds all server logic and returns an error instead of calling
// os.Exit, so deferred resource cleanup always runs. Shuts down when ctx is
// cancelled. If ready is non-nil, the server's base URL is sent on it once
// the listener is bound.
func run(ctx context.Context, cfg *config.Config, ready chan<- string) error {
	ps, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to set up postgres store: %w", err)
	}
	defer ps.Close()

	migrationsFS, err := fs.Sub(migrationsDir, "migrations")
	if err != nil {
		return fmt.Errorf("failed to access embedded migrations: %w", err)
	}
	if err := ps.Migrate(ctx, migrationsFS); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Credential cache is optional; without REDIS_URL every exchange hits
	// the upstream endpoints.
	var cache auth.CredentialCache = store.NopCache{}
	if cfg.RedisURL != "" {
		rc, err := store.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to set up redis cache: %w", err)
		}
		defer rc.Close()
		cache = rc
	} else {
		slog.Info("REDIS_URL not set, credential caching disabled")
	}

	h := &auth.Handler{
		PS:       ps,
		RS:       cache,
		XT:       xbox.NewHTTPTransport(cfg.XboxHTTPTimeout),
		CacheTTL: cfg.CredentialCacheTTL,
	}

	// The browser flow needs a Microsoft OAuth client; without one the
	// gateway still serves callers that bring their own access token.
	if cfg.MSAClientID != "" {
		provider, err := msa.NewProvider(ctx, cfg.MSAClientID, cfg.MSAClientSecret, cfg.MSARedirectURL)
		if err != nil {
			return fmt.Errorf("failed to set up microsoft oauth provider: %w", err)
		}
		h.MSA = provider
	} else {
		slog.Info("MSA_CLIENT_ID not set, /oauth routes disabled")
	}

	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	server := &http.Server{Handler: buildRouter(h)}

	// Audit retention goroutine; prunes old exchange events, runs every 24h.
	cleanupCtx, cancelCleanup := context.WithCancel(ctx)
	defer cancelCleanup()
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n, err := ps.CleanupExchangeEvents(cleanupCtx, cfg.AuditRetention)
				if err != nil {
					slog.Warn("audit cleanup failed", "error", err)
				} else {
					slog.Info("audit cleanup complete", "deleted", n)
				}
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	// Start server in a goroutine; run() continues past this.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("janus listening", "addr", ln.Addr().String())
		// Send error only if the server stops for a reason other than
		// explicit shutdown.
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Signal readiness to caller (used by tests; nil in production).
	if ready != nil {
		ready <- "http://" + ln.Addr().String()
	}

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// buildRouter wires all routes and middleware.
// Separate from run() for smoke tests.
func buildRouter(h *auth.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", h.CheckHealth)
	r.Post("/session/{platform}", h.ExchangeToken)

	// Browser flow only exists when a Microsoft OAuth client is configured.
	if h.MSA != nil {
		r.Get("/oauth/microsoft", h.OAuthRedirect)
		r.Get("/oauth/microsoft/callback", h.OAuthCallback)
	}

	return r
}
