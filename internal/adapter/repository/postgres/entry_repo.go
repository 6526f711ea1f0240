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

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	pool *pgxpool.Pool
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

const insertEntry = `
INSERT INTO ledger_entries (
	id, tenant_id, debit_account_id, credit_account_id,
	entry_type, idempotency_key, reversed_entry_id, amount, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

// Create inserts a new entry. Entries are append-only; there is no update.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	_, err := pgxTxOf(tx).Exec(ctx, insertEntry,
		entry.ID, entry.TenantID, entry.DebitAccountID, entry.CreditAccountID,
		string(entry.EntryType), entry.IdempotencyKey, entry.ReversedEntryID,
		decimalToNumeric(entry.Amount), timeToPgTimestamptz(entry.CreatedAt),
	)

	return err
}

const selectEntry = `
SELECT id, tenant_id, debit_account_id, credit_account_id,
	entry_type, idempotency_key, reversed_entry_id, amount, created_at
FROM ledger_entries
WHERE tenant_id = $1 AND id = $2
`

// GetByID retrieves an entry by ID.
func (r *EntryRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.LedgerEntry, error) {
	return scanEntry(r.pool.QueryRow(ctx, selectEntry, tenantID, id))
}

// GetByIDTx retrieves an entry by ID inside a transaction.
func (r *EntryRepository) GetByIDTx(ctx context.Context, tx usecase.Transaction, tenantID, id string) (*domain.LedgerEntry, error) {
	return scanEntry(pgxTxOf(tx).QueryRow(ctx, selectEntry, tenantID, id))
}

const listEntriesByAccount = `
SELECT id, tenant_id, debit_account_id, credit_account_id,
	entry_type, idempotency_key, reversed_entry_id, amount, created_at
FROM ledger_entries
WHERE tenant_id = $1 AND (debit_account_id = $2 OR credit_account_id = $2)
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4
`

// ListByAccount lists entries touching an account, newest first.
func (r *EntryRepository) ListByAccount(ctx context.Context, tenantID, accountID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, listEntriesByAccount, tenantID, accountID, int32(limit), int32(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.LedgerEntry

	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// sumForAccount computes the signed balance: credits add, debits subtract.
const sumForAccount = `
SELECT COALESCE(SUM(
	CASE WHEN credit_account_id = $2 THEN amount ELSE -amount END
), 0)
FROM ledger_entries
WHERE tenant_id = $1
	AND (debit_account_id = $2 OR credit_account_id = $2)
	AND created_at <= $3
`

// SumForAccount returns the account balance derived from entries up to asOf.
func (r *EntryRepository) SumForAccount(ctx context.Context, tenantID, accountID string, asOf time.Time) (decimal.Decimal, error) {
	return scanSum(r.pool.QueryRow(ctx, sumForAccount, tenantID, accountID, timeToPgTimestamptz(asOf)))
}

// SumForAccountTx is SumForAccount inside a transaction.
func (r *EntryRepository) SumForAccountTx(ctx context.Context, tx usecase.Transaction, tenantID, accountID string, asOf time.Time) (decimal.Decimal, error) {
	return scanSum(pgxTxOf(tx).QueryRow(ctx, sumForAccount, tenantID, accountID, timeToPgTimestamptz(asOf)))
}

const reversalExists = `
SELECT EXISTS (
	SELECT 1 FROM ledger_entries
	WHERE tenant_id = $1 AND reversed_entry_id = $2
)
`

// ReversalOfTx reports whether a reversal already references entryID.
func (r *EntryRepository) ReversalOfTx(ctx context.Context, tx usecase.Transaction, tenantID, entryID string) (bool, error) {
	var exists bool
	err := pgxTxOf(tx).QueryRow(ctx, reversalExists, tenantID, entryID).Scan(&exists)

	return exists, err
}

func scanEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var (
		entry     domain.LedgerEntry
		entryType string
	)

	err := row.Scan(
		&entry.ID, &entry.TenantID, &entry.DebitAccountID, &entry.CreditAccountID,
		&entryType, &entry.IdempotencyKey, &entry.ReversedEntryID,
		&entry.Amount, &entry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUnknownEntry
		}

		return nil, err
	}

	entry.EntryType = domain.EntryType(entryType)

	return &entry, nil
}

func scanSum(row pgx.Row) (decimal.Decimal, error) {
	var sum decimal.Decimal
	if err := row.Scan(&sum); err != nil {
		return decimal.Zero, err
	}

	return sum, nil
}
