package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fluxpay/pspcore/internal/domain"
	"github.com/fluxpay/pspcore/internal/usecase"
)

// InstructionRepository implements usecase.InstructionRepository.
type InstructionRepository struct {
	pool *pgxpool.Pool
}

// NewInstructionRepository creates a new InstructionRepository.
func NewInstructionRepository(pool *pgxpool.Pool) *InstructionRepository {
	return &InstructionRepository{pool: pool}
}

const insertInstruction = `
INSERT INTO payment_instructions (
	id, tenant_id, batch_reference, payee_account_reference,
	provider_reference, ledger_entry_id, rail, status,
	amount, last_feed_sequence, status_history, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`

// Create creates a new payment instruction.
func (r *InstructionRepository) Create(ctx context.Context, tx usecase.Transaction, instr *domain.PaymentInstruction) error {
	history, err := json.Marshal(instr.StatusHistory)
	if err != nil {
		return err
	}

	_, err = pgxTxOf(tx).Exec(ctx, insertInstruction,
		instr.ID, instr.TenantID, instr.BatchReference, instr.PayeeAccountReference,
		instr.ProviderReference, instr.LedgerEntryID, string(instr.Rail), string(instr.Status),
		decimalToNumeric(instr.Amount), instr.LastFeedSequence, history,
		timeToPgTimestamptz(instr.CreatedAt), timeToPgTimestamptz(instr.UpdatedAt),
	)

	return err
}

const selectInstruction = `
SELECT id, tenant_id, batch_reference, payee_account_reference,
	provider_reference, ledger_entry_id, rail, status,
	amount, last_feed_sequence, status_history, created_at, updated_at
FROM payment_instructions
`

// GetByID retrieves an instruction by ID.
func (r *InstructionRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.PaymentInstruction, error) {
	return scanInstruction(r.pool.QueryRow(ctx,
		selectInstruction+" WHERE tenant_id = $1 AND id = $2", tenantID, id))
}

// GetByIDForUpdate retrieves an instruction with a FOR UPDATE lock.
func (r *InstructionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, tenantID, id string) (*domain.PaymentInstruction, error) {
	return scanInstruction(pgxTxOf(tx).QueryRow(ctx,
		selectInstruction+" WHERE tenant_id = $1 AND id = $2 FOR UPDATE", tenantID, id))
}

// GetByProviderReferenceForUpdate retrieves an instruction by provider
// reference with a FOR UPDATE lock.
func (r *InstructionRepository) GetByProviderReferenceForUpdate(ctx context.Context, tx usecase.Transaction, tenantID, providerRef string) (*domain.PaymentInstruction, error) {
	instr, err := scanInstruction(pgxTxOf(tx).QueryRow(ctx,
		selectInstruction+" WHERE tenant_id = $1 AND provider_reference = $2 FOR UPDATE", tenantID, providerRef))
	if err != nil {
		if errors.Is(err, domain.ErrInstructionNotFound) {
			return nil, domain.ErrUnknownProviderRef
		}

		return nil, err
	}

	return instr, nil
}

// ListByBatch lists all instructions of a batch in creation order.
func (r *InstructionRepository) ListByBatch(ctx context.Context, tenantID, batchRef string) ([]*domain.PaymentInstruction, error) {
	rows, err := r.pool.Query(ctx,
		selectInstruction+" WHERE tenant_id = $1 AND batch_reference = $2 ORDER BY id", tenantID, batchRef)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instructions []*domain.PaymentInstruction

	for rows.Next() {
		instr, err := scanInstruction(rows)
		if err != nil {
			return nil, err
		}

		instructions = append(instructions, instr)
	}

	return instructions, rows.Err()
}

const updateInstruction = `
UPDATE payment_instructions
SET provider_reference = $3, status = $4, last_feed_sequence = $5,
	status_history = $6, updated_at = $7
WHERE tenant_id = $1 AND id = $2
`

// Update persists the instruction's mutable fields.
func (r *InstructionRepository) Update(ctx context.Context, tx usecase.Transaction, instr *domain.PaymentInstruction) error {
	history, err := json.Marshal(instr.StatusHistory)
	if err != nil {
		return err
	}

	tag, err := pgxTxOf(tx).Exec(ctx, updateInstruction,
		instr.TenantID, instr.ID, instr.ProviderReference, string(instr.Status),
		instr.LastFeedSequence, history, timeToPgTimestamptz(instr.UpdatedAt),
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrInstructionNotFound
	}

	return nil
}

const setProviderRef = `
UPDATE payment_instructions
SET provider_reference = $3, updated_at = $4
WHERE tenant_id = $1 AND id = $2
`

// SetProviderReference records the provider's reference for an instruction.
func (r *InstructionRepository) SetProviderReference(ctx context.Context, tx usecase.Transaction, tenantID, id, providerRef string, updatedAt time.Time) error {
	tag, err := pgxTxOf(tx).Exec(ctx, setProviderRef, tenantID, id, providerRef, timeToPgTimestamptz(updatedAt))
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrInstructionNotFound
	}

	return nil
}

func scanInstruction(row pgx.Row) (*domain.PaymentInstruction, error) {
	var (
		instr   domain.PaymentInstruction
		rail    string
		status  string
		history []byte
	)

	err := row.Scan(
		&instr.ID, &instr.TenantID, &instr.BatchReference, &instr.PayeeAccountReference,
		&instr.ProviderReference, &instr.LedgerEntryID, &rail, &status,
		&instr.Amount, &instr.LastFeedSequence, &history,
		&instr.CreatedAt, &instr.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInstructionNotFound
		}

		return nil, err
	}

	instr.Rail = domain.Rail(rail)
	instr.Status = domain.InstructionStatus(status)

	if len(history) > 0 {
		if err := json.Unmarshal(history, &instr.StatusHistory); err != nil {
			return nil, err
		}
	}

	return &instr, nil
}
