// models.go -- row and cache value types shared across the store package.
package store

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Exchange outcomes recorded in exchange_events.
const (
	OutcomeSuccess = "success"
	OutcomeDenied  = "denied" // classified XSTS denial
	OutcomeError   = "error"  // transport or protocol failure
)

// ExchangeEvent is one audit row per exchange attempt. Tokens are never
// stored; UserHash is the only per-account value kept, and only on success.
// Nullable columns are pointers -- nil means SQL NULL.
type ExchangeEvent struct {
	ID          uuid.UUID
	Platform    string
	Outcome     string
	FailureKind *string
	XErr        *int64
	UserHash    *string
	CreatedAt   time.Time
}

// CachedCredential is the cache value for a successful exchange. Keyed by a
// hash of the access token, never by the token itself.
type CachedCredential struct {
	UserHash string `json:"user_hash"`
	Token    string `json:"token"`
}
