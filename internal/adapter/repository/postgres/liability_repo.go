package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fluxpay/pspcore/internal/domain"
	"github.com/fluxpay/pspcore/internal/usecase"
)

// LiabilityRepository implements usecase.LiabilityRepository.
type LiabilityRepository struct {
	pool *pgxpool.Pool
}

// NewLiabilityRepository creates a new LiabilityRepository.
func NewLiabilityRepository(pool *pgxpool.Pool) *LiabilityRepository {
	return &LiabilityRepository{pool: pool}
}

const insertLiability = `
INSERT INTO liability_events (
	id, tenant_id, source_type, source_id, return_code, reason,
	idempotency_key, error_origin, liability_party, recovery_path,
	recovery_status, loss_amount, created_at, resolved_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
`

// Create creates a new liability event.
func (r *LiabilityRepository) Create(ctx context.Context, tx usecase.Transaction, le *domain.LiabilityEvent) error {
	_, err := pgxTxOf(tx).Exec(ctx, insertLiability,
		le.ID, le.TenantID, le.SourceType, le.SourceID, le.ReturnCode, le.Reason,
		le.IdempotencyKey, string(le.ErrorOrigin), string(le.LiabilityParty), string(le.RecoveryPath),
		string(le.RecoveryStatus), decimalToNumeric(le.LossAmount),
		timeToPgTimestamptz(le.CreatedAt), le.ResolvedAt,
	)

	return err
}

const selectLiability = `
SELECT id, tenant_id, source_type, source_id, return_code, reason,
	idempotency_key, error_origin, liability_party, recovery_path,
	recovery_status, loss_amount, created_at, resolved_at
FROM liability_events
`

// GetByID retrieves a liability event by ID.
func (r *LiabilityRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.LiabilityEvent, error) {
	return scanLiability(r.pool.QueryRow(ctx,
		selectLiability+" WHERE tenant_id = $1 AND id = $2", tenantID, id))
}

// GetByIDForUpdate retrieves a liability event with a FOR UPDATE lock.
func (r *LiabilityRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, tenantID, id string) (*domain.LiabilityEvent, error) {
	return scanLiability(pgxTxOf(tx).QueryRow(ctx,
		selectLiability+" WHERE tenant_id = $1 AND id = $2 FOR UPDATE", tenantID, id))
}

// GetBySource retrieves the liability event classified for a source.
func (r *LiabilityRepository) GetBySource(ctx context.Context, tenantID, sourceType, sourceID string) (*domain.LiabilityEvent, error) {
	return scanLiability(r.pool.QueryRow(ctx,
		selectLiability+" WHERE tenant_id = $1 AND source_type = $2 AND source_id = $3", tenantID, sourceType, sourceID))
}

const updateLiability = `
UPDATE liability_events
SET recovery_status = $3, resolved_at = $4
WHERE tenant_id = $1 AND id = $2
`

// Update persists recovery progression.
func (r *LiabilityRepository) Update(ctx context.Context, tx usecase.Transaction, le *domain.LiabilityEvent) error {
	tag, err := pgxTxOf(tx).Exec(ctx, updateLiability,
		le.TenantID, le.ID, string(le.RecoveryStatus), le.ResolvedAt,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrLiabilityNotFound
	}

	return nil
}

// List lists liability events, optionally filtered by recovery status.
func (r *LiabilityRepository) List(ctx context.Context, tenantID string, status domain.RecoveryStatus, limit, offset int) ([]*domain.LiabilityEvent, error) {
	query := selectLiability + " WHERE tenant_id = $1"
	args := []any{tenantID}

	if status != "" {
		query += " AND recovery_status = $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4"
		args = append(args, string(status), int32(limit), int32(offset))
	} else {
		query += " ORDER BY created_at DESC LIMIT $2 OFFSET $3"
		args = append(args, int32(limit), int32(offset))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.LiabilityEvent

	for rows.Next() {
		le, err := scanLiability(rows)
		if err != nil {
			return nil, err
		}

		events = append(events, le)
	}

	return events, rows.Err()
}

func scanLiability(row pgx.Row) (*domain.LiabilityEvent, error) {
	var (
		le             domain.LiabilityEvent
		origin         string
		party          string
		recoveryPath   string
		recoveryStatus string
	)

	err := row.Scan(
		&le.ID, &le.TenantID, &le.SourceType, &le.SourceID, &le.ReturnCode, &le.Reason,
		&le.IdempotencyKey, &origin, &party, &recoveryPath,
		&recoveryStatus, &le.LossAmount, &le.CreatedAt, &le.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLiabilityNotFound
		}

		return nil, err
	}

	le.ErrorOrigin = domain.ErrorOrigin(origin)
	le.LiabilityParty = domain.LiabilityParty(party)
	le.RecoveryPath = domain.RecoveryPath(recoveryPath)
	le.RecoveryStatus = domain.RecoveryStatus(recoveryStatus)

	return &le, nil
}
