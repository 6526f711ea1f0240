package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fluxpay/pspcore/internal/domain"
	"github.com/fluxpay/pspcore/internal/usecase"
)

// SettlementRepository implements usecase.SettlementRepository.
type SettlementRepository struct {
	pool *pgxpool.Pool
}

// NewSettlementRepository creates a new SettlementRepository.
func NewSettlementRepository(pool *pgxpool.Pool) *SettlementRepository {
	return &SettlementRepository{pool: pool}
}

const insertSettlement = `
INSERT INTO settlement_records (
	id, tenant_id, external_reference, provider_reference,
	return_code, return_reason, status, amount,
	feed_sequence, effective_date, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

// Create creates a new settlement record.
func (r *SettlementRepository) Create(ctx context.Context, tx usecase.Transaction, rec *domain.SettlementRecord) error {
	_, err := pgxTxOf(tx).Exec(ctx, insertSettlement,
		rec.ID, rec.TenantID, rec.ExternalReference, rec.ProviderReference,
		rec.ReturnCode, rec.ReturnReason, string(rec.Status), decimalToNumeric(rec.Amount),
		rec.FeedSequence, timeToPgTimestamptz(rec.EffectiveDate), timeToPgTimestamptz(rec.CreatedAt),
	)

	return err
}

const selectSettlement = `
SELECT id, tenant_id, external_reference, provider_reference,
	return_code, return_reason, status, amount,
	feed_sequence, effective_date, created_at
FROM settlement_records
`

// GetByExternalReference retrieves a record by its feed-assigned reference.
func (r *SettlementRepository) GetByExternalReference(ctx context.Context, tenantID, externalRef string) (*domain.SettlementRecord, error) {
	return scanSettlement(r.pool.QueryRow(ctx,
		selectSettlement+" WHERE tenant_id = $1 AND external_reference = $2", tenantID, externalRef))
}

// ListUnmatched lists records with no matched instruction, oldest first.
func (r *SettlementRepository) ListUnmatched(ctx context.Context, tenantID string, limit, offset int) ([]*domain.SettlementRecord, error) {
	rows, err := r.pool.Query(ctx,
		selectSettlement+" WHERE tenant_id = $1 AND matched_instruction_id IS NULL ORDER BY created_at LIMIT $2 OFFSET $3",
		tenantID, int32(limit), int32(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.SettlementRecord

	for rows.Next() {
		rec, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}

const markMatched = `
UPDATE settlement_records
SET matched_instruction_id = $3
WHERE tenant_id = $1 AND id = $2
`

// MarkMatched links a record to the instruction it settled.
func (r *SettlementRepository) MarkMatched(ctx context.Context, tx usecase.Transaction, tenantID, id, instructionID string) error {
	_, err := pgxTxOf(tx).Exec(ctx, markMatched, tenantID, id, instructionID)

	return err
}

func scanSettlement(row pgx.Row) (*domain.SettlementRecord, error) {
	var (
		rec    domain.SettlementRecord
		status string
	)

	err := row.Scan(
		&rec.ID, &rec.TenantID, &rec.ExternalReference, &rec.ProviderReference,
		&rec.ReturnCode, &rec.ReturnReason, &status, &rec.Amount,
		&rec.FeedSequence, &rec.EffectiveDate, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSettlementNotFound
		}

		return nil, err
	}

	rec.Status = domain.SettlementStatus(status)

	return &rec, nil
}
