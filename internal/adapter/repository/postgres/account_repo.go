package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fluxpay/pspcore/internal/domain"
	"github.com/fluxpay/pspcore/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const insertAccount = `
INSERT INTO accounts (id, tenant_id, legal_entity_id, currency, created_at)
VALUES ($1, $2, $3, $4, $5)
`

// Create creates a new account.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	_, err := r.pool.Exec(ctx, insertAccount,
		account.ID, account.TenantID, account.LegalEntityID,
		account.Currency, timeToPgTimestamptz(account.CreatedAt),
	)

	return err
}

// CreateTx creates a new account inside a transaction.
func (r *AccountRepository) CreateTx(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	_, err := pgxTxOf(tx).Exec(ctx, insertAccount,
		account.ID, account.TenantID, account.LegalEntityID,
		account.Currency, timeToPgTimestamptz(account.CreatedAt),
	)

	return err
}

const selectAccount = `
SELECT id, tenant_id, legal_entity_id, currency, created_at
FROM accounts
WHERE tenant_id = $1 AND id = $2
`

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, selectAccount, tenantID, id))
}

// GetByIDForUpdate retrieves an account by ID with a FOR UPDATE lock.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, tenantID, id string) (*domain.Account, error) {
	return scanAccount(pgxTxOf(tx).QueryRow(ctx, selectAccount+" FOR UPDATE", tenantID, id))
}

const listAccounts = `
SELECT id, tenant_id, legal_entity_id, currency, created_at
FROM accounts
WHERE tenant_id = $1
ORDER BY id
LIMIT $2 OFFSET $3
`

// List lists a tenant's accounts.
func (r *AccountRepository) List(ctx context.Context, tenantID string, limit, offset int) ([]*domain.Account, error) {
	rows, err := r.pool.Query(ctx, listAccounts, tenantID, int32(limit), int32(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.Account

	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}

		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account

	err := row.Scan(
		&account.ID, &account.TenantID, &account.LegalEntityID,
		&account.Currency, &account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return &account, nil
}
