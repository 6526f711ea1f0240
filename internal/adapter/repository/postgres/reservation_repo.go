package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fluxpay/pspcore/internal/domain"
	"github.com/fluxpay/pspcore/internal/usecase"
)

// ReservationRepository implements usecase.ReservationRepository.
type ReservationRepository struct {
	pool *pgxpool.Pool
}

// NewReservationRepository creates a new ReservationRepository.
func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

const insertReservation = `
INSERT INTO reservations (
	id, tenant_id, batch_reference, funding_account_id,
	idempotency_key, status, reserved_amount, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

// Create creates a new reservation.
func (r *ReservationRepository) Create(ctx context.Context, tx usecase.Transaction, res *domain.Reservation) error {
	_, err := pgxTxOf(tx).Exec(ctx, insertReservation,
		res.ID, res.TenantID, res.BatchReference, res.FundingAccountID,
		res.IdempotencyKey, string(res.Status), decimalToNumeric(res.ReservedAmount),
		timeToPgTimestamptz(res.CreatedAt), timeToPgTimestamptz(res.UpdatedAt),
	)

	return err
}

const selectReservation = `
SELECT id, tenant_id, batch_reference, funding_account_id,
	idempotency_key, status, reserved_amount, created_at, updated_at
FROM reservations
WHERE tenant_id = $1 AND batch_reference = $2
`

// GetByBatchReference retrieves a reservation by batch reference.
func (r *ReservationRepository) GetByBatchReference(ctx context.Context, tenantID, batchRef string) (*domain.Reservation, error) {
	return scanReservation(r.pool.QueryRow(ctx, selectReservation, tenantID, batchRef))
}

// GetByBatchReferenceForUpdate retrieves a reservation with a FOR UPDATE lock.
func (r *ReservationRepository) GetByBatchReferenceForUpdate(ctx context.Context, tx usecase.Transaction, tenantID, batchRef string) (*domain.Reservation, error) {
	return scanReservation(pgxTxOf(tx).QueryRow(ctx, selectReservation+" FOR UPDATE", tenantID, batchRef))
}

const updateReservationStatus = `
UPDATE reservations
SET status = $3, updated_at = $4
WHERE tenant_id = $1 AND id = $2
`

// UpdateStatus updates the status of a reservation.
func (r *ReservationRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, tenantID, id string, status domain.ReservationStatus, updatedAt time.Time) error {
	tag, err := pgxTxOf(tx).Exec(ctx, updateReservationStatus, tenantID, id, string(status), timeToPgTimestamptz(updatedAt))
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}

	return nil
}

const sumActiveReservations = `
SELECT COALESCE(SUM(reserved_amount), 0)
FROM reservations
WHERE tenant_id = $1
	AND funding_account_id = $2
	AND status = 'active'
	AND id <> $3
`

// SumActiveExcludingTx sums active reservations on the account, excluding
// the given reservation ID (empty excludes none).
func (r *ReservationRepository) SumActiveExcludingTx(ctx context.Context, tx usecase.Transaction, tenantID, accountID, excludeID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := pgxTxOf(tx).QueryRow(ctx, sumActiveReservations, tenantID, accountID, excludeID).Scan(&sum)

	return sum, err
}

func scanReservation(row pgx.Row) (*domain.Reservation, error) {
	var (
		res    domain.Reservation
		status string
	)

	err := row.Scan(
		&res.ID, &res.TenantID, &res.BatchReference, &res.FundingAccountID,
		&res.IdempotencyKey, &status, &res.ReservedAmount,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrReservationNotFound
		}

		return nil, err
	}

	res.Status = domain.ReservationStatus(status)

	return &res, nil
}
