package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// Sums each entry's contribution per account leg, joined through accounts.
// A healthy ledger nets to zero; an entry referencing a missing account or
// a non-positive amount leaves a residue.
const consistencyQuery = `
SELECT COALESCE(SUM(
	CASE WHEN a.id = e.credit_account_id THEN e.amount ELSE -e.amount END
), 0)
FROM ledger_entries e
JOIN accounts a
	ON a.tenant_id = e.tenant_id
	AND a.id IN (e.credit_account_id, e.debit_account_id)
WHERE e.tenant_id = $1
`

// CheckConsistency returns the tenant-wide net of all entry contributions.
func (r *LedgerRepository) CheckConsistency(ctx context.Context, tenantID string) (decimal.Decimal, error) {
	var net decimal.Decimal
	if err := r.pool.QueryRow(ctx, consistencyQuery, tenantID).Scan(&net); err != nil {
		return decimal.Zero, err
	}

	return net, nil
}
