package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fluxpay/pspcore/internal/advisory"
	"github.com/fluxpay/pspcore/internal/usecase"
)

// AdvisoryRepository implements advisory.Emitter on a dedicated
// advisory_events table, kept apart from the core event log.
type AdvisoryRepository struct {
	pool  *pgxpool.Pool
	idGen usecase.IDGenerator
}

// NewAdvisoryRepository creates a new AdvisoryRepository.
func NewAdvisoryRepository(pool *pgxpool.Pool, idGen usecase.IDGenerator) *AdvisoryRepository {
	return &AdvisoryRepository{pool: pool, idGen: idGen}
}

const insertAdvisory = `
INSERT INTO advisory_events (id, tenant_id, kind, severity, detail, as_of_sequence, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// Emit stores one advisory.
func (r *AdvisoryRepository) Emit(ctx context.Context, adv *advisory.Advisory) error {
	if adv.ID == "" {
		adv.ID = r.idGen.Generate()
	}

	detail, err := json.Marshal(adv.Detail)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, insertAdvisory,
		adv.ID, adv.TenantID, string(adv.Kind), string(adv.Severity),
		detail, adv.AsOfSequence, timeToPgTimestamptz(adv.CreatedAt),
	)

	return err
}
