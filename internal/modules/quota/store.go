package quota

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"wander/internal/modules/tripgen"
)

// PostgresStore handles generation_quota persistence.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Consume atomically checks the monthly allowance and deducts one generation.
// A row whose last_reset_month is behind month is reset to allowance first.
// Returns ErrQuotaExceeded when no row is updated (quota exhausted or owner absent).
func (s *PostgresStore) Consume(ctx context.Context, owner string, allowance int, month string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE generation_quota SET
			remaining = CASE WHEN last_reset_month != $1 THEN $2 - 1 ELSE remaining - 1 END,
			last_reset_month = $1
		WHERE owner = $3 AND (last_reset_month < $1 OR remaining > 0)
	`, month, allowance, owner)
	if err != nil {
		return fmt.Errorf("%w: consume quota: %v", tripgen.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrQuotaExceeded
	}
	return nil
}

// EnsureOwner inserts a generation_quota row with the full allowance; existing rows are left alone.
func (s *PostgresStore) EnsureOwner(ctx context.Context, owner string, allowance int, month string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO generation_quota (owner, remaining, last_reset_month)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner) DO NOTHING
	`, owner, allowance, month)
	if err != nil {
		return fmt.Errorf("%w: init quota: %v", tripgen.ErrStoreUnavailable, err)
	}
	return nil
}

// Refund gives one generation back, capped at allowance.
func (s *PostgresStore) Refund(ctx context.Context, owner string, allowance int, month string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE generation_quota SET remaining = LEAST(remaining + 1, $1)
		WHERE owner = $2 AND last_reset_month = $3
	`, allowance, owner, month)
	if err != nil {
		return fmt.Errorf("%w: refund quota: %v", tripgen.ErrStoreUnavailable, err)
	}
	return nil
}
