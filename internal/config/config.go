// config.go -- Environment variable loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config holds all env configuration for the gateway.
type Config struct {
	DatabaseURL string
	RedisURL    string // optional -- empty disables the credential cache
	Port        string
	LogLevel    slog.Level

	// Outbound HTTP timeout for the Xbox Live auth endpoints.
	// Default 10s.
	XboxHTTPTimeout time.Duration

	// TTL for cached XSTS credentials. Default 1h -- well inside the
	// token's own validity window.
	CredentialCacheTTL time.Duration

	// How long exchange audit rows are kept. Default 720h (30d).
	AuditRetention time.Duration

	// Microsoft account OAuth client. All optional, but all-or-none:
	// when unset, the /oauth routes are not registered and callers must
	// bring their own access token.
	MSAClientID     string
	MSAClientSecret string
	MSARedirectURL  string
}

// LoadConfig reads environment variables and returns a validated Config.
// Returns an error if DATABASE_URL is missing or the MSA trio is partial.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	// Optional: empty means NopCache, every lookup is a miss.
	cfg.RedisURL = os.Getenv("REDIS_URL")

	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		cfg.Port = "7865"
	}

	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		cfg.LogLevel = slog.LevelInfo
	}

	cfg.XboxHTTPTimeout = envDuration("XBOX_HTTP_TIMEOUT", 10*time.Second)
	cfg.CredentialCacheTTL = envDuration("CREDENTIAL_CACHE_TTL", 1*time.Hour)
	cfg.AuditRetention = envDuration("AUDIT_RETENTION", 720*time.Hour)

	cfg.MSAClientID = os.Getenv("MSA_CLIENT_ID")
	cfg.MSAClientSecret = os.Getenv("MSA_CLIENT_SECRET")
	cfg.MSARedirectURL = os.Getenv("MSA_REDIRECT_URL")

	// All-or-none: a partially configured OAuth client would fail at the
	// first callback, which is a much worse place to find out.
	msaSet := 0
	for _, v := range []string{cfg.MSAClientID, cfg.MSAClientSecret, cfg.MSARedirectURL} {
		if v != "" {
			msaSet++
		}
	}
	if msaSet != 0 && msaSet != 3 {
		return nil, fmt.Errorf("MSA_CLIENT_ID, MSA_CLIENT_SECRET, and MSA_REDIRECT_URL must be set together")
	}
	// Authorization codes must not travel over plain HTTP.
	if cfg.MSARedirectURL != "" && !strings.HasPrefix(cfg.MSARedirectURL, "https://") {
		return nil, fmt.Errorf("MSA_REDIRECT_URL must start with https://")
	}

	return cfg, nil
}

// envDuration reads an env var as time.Duration, returning def if missing or
// unparseable.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("invalid env var, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}
