package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const queryTimeout = 10 * time.Second

const getSubscriptionSQL = `
	SELECT fan_id, creator_id, status, expires_at
	FROM fan_access
	WHERE fan_id = $1 AND creator_id = $2
`

const consumeFreeQuestionSQL = `
	INSERT INTO question_usage (fan_id, creator_id, used, updated_at)
	VALUES ($1, $2, 1, now())
	ON CONFLICT (fan_id, creator_id)
	DO UPDATE SET used = question_usage.used + 1, updated_at = now()
	RETURNING used
`

const grantAccessSQL = `
	INSERT INTO fan_access (fan_id, creator_id, status, expires_at, updated_at)
	VALUES ($1, $2, $3, $4, now())
	ON CONFLICT (fan_id, creator_id)
	DO UPDATE SET status = EXCLUDED.status, expires_at = EXCLUDED.expires_at, updated_at = now()
`

// PostgresStore persists subscriptions and free-question counters in
// Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// GetSubscription loads a fan's subscription for a creator.
func (s *PostgresStore) GetSubscription(ctx context.Context, fanID, creatorID string) (Subscription, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var sub Subscription
	err := s.pool.QueryRow(ctx, getSubscriptionSQL, fanID, creatorID).
		Scan(&sub.FanID, &sub.CreatorID, &sub.Status, &sub.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subscription{}, ErrNoAccess
		}
		return Subscription{}, fmt.Errorf("querying fan access: %w", err)
	}
	return sub, nil
}

// ConsumeFreeQuestion increments the fan's counter for the creator. The
// upsert makes the read-modify-write a single statement, so concurrent
// questions cannot double-spend the allowance.
func (s *PostgresStore) ConsumeFreeQuestion(ctx context.Context, fanID, creatorID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var used int
	err := s.pool.QueryRow(ctx, consumeFreeQuestionSQL, fanID, creatorID).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("updating question usage: %w", err)
	}
	return used, nil
}

// Grant upserts a fan's subscription record. Used by operational tooling;
// the chat path only reads.
func (s *PostgresStore) Grant(ctx context.Context, sub Subscription) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx, grantAccessSQL, sub.FanID, sub.CreatorID, sub.Status, sub.ExpiresAt)
	if err != nil {
		return fmt.Errorf("upserting fan access: %w", err)
	}
	return nil
}
