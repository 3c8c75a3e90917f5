// handler.go -- Gateway handlers and the dependency contracts they consume.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/jfeld-dev/janus/internal/store"
	"github.com/jfeld-dev/janus/internal/xbox"
)

// Store defines the database operations needed by the gateway handlers.
// Satisfied by *store.PostgresStore -- defined here (at consumer) per Go convention.
type Store interface {
	// InsertExchangeEvent records one exchange attempt for the audit trail.
	InsertExchangeEvent(ctx context.Context, ev store.ExchangeEvent) error

	// CheckHealth pings the database.
	CheckHealth(ctx context.Context) error
}

// CredentialCache defines the cache operations needed by the gateway
// handlers. Satisfied by *store.RedisCache and store.NopCache.
type CredentialCache interface {
	// GetCredential retrieves a cached credential; any error is a miss.
	GetCredential(ctx context.Context, key string) (*store.CachedCredential, error)

	// SetCredential caches a credential with the given TTL.
	SetCredential(ctx context.Context, key string, cred store.CachedCredential, ttl time.Duration) error

	// CheckHealth pings the cache; store.ErrCacheDisabled means no cache configured.
	CheckHealth(ctx context.Context) error
}

// AccessTokenSource is the Microsoft OAuth client used by the browser flow.
// Satisfied by *msa.Provider.
type AccessTokenSource interface {
	// AuthCodeURL returns the consent page URL with state and PKCE challenge embedded.
	AuthCodeURL(state, codeChallenge string) string

	// Exchange trades an authorization code for a Microsoft access token.
	Exchange(ctx context.Context, code, codeVerifier string) (string, error)
}

// Handler holds dependencies for all gateway HTTP handlers.
type Handler struct {
	PS Store
	RS CredentialCache
	XT xbox.Transport

	// MSA is nil when the OAuth client is not configured; the /oauth
	// routes are only registered when it is present.
	MSA AccessTokenSource

	// CacheTTL bounds how long a successful exchange is reused.
	CacheTTL time.Duration
}

// parsePlatform maps the {platform} URL segment to a relying-party target.
func parsePlatform(name string) (xbox.Platform, bool) {
	switch name {
	case "java":
		return xbox.PlatformJava, true
	case "bedrock":
		return xbox.PlatformBedrock, true
	default:
		return 0, false
	}
}

// cacheKey derives the credential cache key for an access token. The token
// is hashed so it never appears in Redis keys or server logs.
func cacheKey(platformName, accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return fmt.Sprintf("xsts:%s:%s", platformName, base64.RawURLEncoding.EncodeToString(sum[:]))
}
