package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fluxpay/pspcore/internal/usecase"
)

// IdempotencyRepository implements usecase.IdempotencyRepository on a
// claim table. The claim insert uses ON CONFLICT DO NOTHING: a concurrent
// claimer blocks until the first one commits or rolls back, then observes
// either the stored claim or a free key.
type IdempotencyRepository struct {
	pool *pgxpool.Pool
}

// NewIdempotencyRepository creates a new IdempotencyRepository.
func NewIdempotencyRepository(pool *pgxpool.Pool) *IdempotencyRepository {
	return &IdempotencyRepository{pool: pool}
}

const selectIdempotency = `
SELECT tenant_id, kind, key, result, created_at, completed_at
FROM idempotency_records
WHERE tenant_id = $1 AND kind = $2 AND key = $3
`

// GetTx retrieves a claim inside a transaction, or nil if the key is free.
func (r *IdempotencyRepository) GetTx(ctx context.Context, tx usecase.Transaction, tenantID, kind, key string) (*usecase.IdempotencyRecord, error) {
	var rec usecase.IdempotencyRecord

	err := pgxTxOf(tx).QueryRow(ctx, selectIdempotency, tenantID, kind, key).Scan(
		&rec.TenantID, &rec.Kind, &rec.Key, &rec.Result, &rec.CreatedAt, &rec.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return &rec, nil
}

const claimIdempotency = `
INSERT INTO idempotency_records (tenant_id, kind, key, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (tenant_id, kind, key) DO NOTHING
`

// ClaimTx inserts a pending claim. Returns false when the key is taken.
func (r *IdempotencyRepository) ClaimTx(ctx context.Context, tx usecase.Transaction, tenantID, kind, key string, now time.Time) (bool, error) {
	tag, err := pgxTxOf(tx).Exec(ctx, claimIdempotency, tenantID, kind, key, timeToPgTimestamptz(now))
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

const saveIdempotencyResult = `
UPDATE idempotency_records
SET result = $4, completed_at = $5
WHERE tenant_id = $1 AND kind = $2 AND key = $3
`

// SaveResultTx stores the operation's result against the claim.
func (r *IdempotencyRepository) SaveResultTx(ctx context.Context, tx usecase.Transaction, tenantID, kind, key string, result []byte, now time.Time) error {
	_, err := pgxTxOf(tx).Exec(ctx, saveIdempotencyResult, tenantID, kind, key, result, timeToPgTimestamptz(now))

	return err
}
