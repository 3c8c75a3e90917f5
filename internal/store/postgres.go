// Package store handles all database and cache interactions.
//
// postgres.go -- pgxpool connection setup and exchange-event queries.
// One pool is created at startup and shared across all handlers. All queries
// use parameterized statements.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore wraps a pgx connection pool for audit persistence.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and verifies it with a ping.
// Call once at startup; the returned store is safe for concurrent use.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool}, nil
}

// Close shuts down the connection pool. Call via defer after creating the store.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// CheckHealth pings the database.
func (s *PostgresStore) CheckHealth(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// InsertExchangeEvent records one exchange attempt. The caller generates the
// UUIDv7 so the event can be referenced in logs before the insert happens.
func (s *PostgresStore) InsertExchangeEvent(ctx context.Context, ev ExchangeEvent) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO exchange_events (id, platform, outcome, failure_kind, xerr, user_hash)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.ID, ev.Platform, ev.Outcome, ev.FailureKind, ev.XErr, ev.UserHash)
	return err
}

// CleanupExchangeEvents deletes audit rows older than the retention window
// and returns how many were removed.
func (s *PostgresStore) CleanupExchangeEvents(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM exchange_events WHERE created_at < now() - make_interval(secs => $1)",
		retention.Seconds())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
