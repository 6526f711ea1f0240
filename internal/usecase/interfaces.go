package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fluxpay/pspcore/internal/domain"
)

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	CreateTx(ctx context.Context, tx Transaction, account *domain.Account) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, tenantID, id string) (*domain.Account, error)
	List(ctx context.Context, tenantID string, limit, offset int) ([]*domain.Account, error)
}

// EntryRepository defines data access for ledger entries.
type EntryRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.LedgerEntry) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.LedgerEntry, error)
	GetByIDTx(ctx context.Context, tx Transaction, tenantID, id string) (*domain.LedgerEntry, error)
	ListByAccount(ctx context.Context, tenantID, accountID string, limit, offset int) ([]*domain.LedgerEntry, error)
	// SumForAccountTx returns the signed sum of all entries touching the
	// account with created_at <= asOf, inside the given transaction.
	SumForAccountTx(ctx context.Context, tx Transaction, tenantID, accountID string, asOf time.Time) (decimal.Decimal, error)
	SumForAccount(ctx context.Context, tenantID, accountID string, asOf time.Time) (decimal.Decimal, error)
	// ReversalOfTx reports whether a reversal already references entryID.
	ReversalOfTx(ctx context.Context, tx Transaction, tenantID, entryID string) (bool, error)
}

// LedgerRepository defines data access for ledger-wide checks.
type LedgerRepository interface {
	// CheckConsistency returns the net sum across every account in the
	// tenant. A balanced ledger nets to zero.
	CheckConsistency(ctx context.Context, tenantID string) (decimal.Decimal, error)
}

// ReservationRepository defines data access for funding reservations.
type ReservationRepository interface {
	Create(ctx context.Context, tx Transaction, res *domain.Reservation) error
	GetByBatchReference(ctx context.Context, tenantID, batchRef string) (*domain.Reservation, error)
	GetByBatchReferenceForUpdate(ctx context.Context, tx Transaction, tenantID, batchRef string) (*domain.Reservation, error)
	UpdateStatus(ctx context.Context, tx Transaction, tenantID, id string, status domain.ReservationStatus, updatedAt time.Time) error
	// SumActiveExcludingTx sums active reservations on the account,
	// excluding the reservation with the given ID (empty excludes none).
	SumActiveExcludingTx(ctx context.Context, tx Transaction, tenantID, accountID, excludeID string) (decimal.Decimal, error)
}

// InstructionRepository defines data access for payment instructions.
type InstructionRepository interface {
	Create(ctx context.Context, tx Transaction, instr *domain.PaymentInstruction) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.PaymentInstruction, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, tenantID, id string) (*domain.PaymentInstruction, error)
	GetByProviderReferenceForUpdate(ctx context.Context, tx Transaction, tenantID, providerRef string) (*domain.PaymentInstruction, error)
	ListByBatch(ctx context.Context, tenantID, batchRef string) ([]*domain.PaymentInstruction, error)
	Update(ctx context.Context, tx Transaction, instr *domain.PaymentInstruction) error
	SetProviderReference(ctx context.Context, tx Transaction, tenantID, id, providerRef string, updatedAt time.Time) error
}

// SettlementRepository defines data access for settlement records.
type SettlementRepository interface {
	Create(ctx context.Context, tx Transaction, rec *domain.SettlementRecord) error
	GetByExternalReference(ctx context.Context, tenantID, externalRef string) (*domain.SettlementRecord, error)
	ListUnmatched(ctx context.Context, tenantID string, limit, offset int) ([]*domain.SettlementRecord, error)
	MarkMatched(ctx context.Context, tx Transaction, tenantID, id, instructionID string) error
}

// LiabilityRepository defines data access for liability events.
type LiabilityRepository interface {
	Create(ctx context.Context, tx Transaction, le *domain.LiabilityEvent) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.LiabilityEvent, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, tenantID, id string) (*domain.LiabilityEvent, error)
	GetBySource(ctx context.Context, tenantID, sourceType, sourceID string) (*domain.LiabilityEvent, error)
	Update(ctx context.Context, tx Transaction, le *domain.LiabilityEvent) error
	List(ctx context.Context, tenantID string, status domain.RecoveryStatus, limit, offset int) ([]*domain.LiabilityEvent, error)
}

// EventRepository defines data access for the append-only event log.
type EventRepository interface {
	// AppendTx assigns the next per-tenant sequence and stores the event
	// in the same transaction as the state change it describes.
	AppendTx(ctx context.Context, tx Transaction, event *domain.DomainEvent) error
	ListAfter(ctx context.Context, tenantID string, afterSequence int64, limit int) ([]*domain.DomainEvent, error)
	ListByName(ctx context.Context, tenantID, name string, afterSequence int64, limit int) ([]*domain.DomainEvent, error)
}

// IdempotencyRepository defines data access for operation-level idempotency.
type IdempotencyRepository interface {
	GetTx(ctx context.Context, tx Transaction, tenantID, kind, key string) (*IdempotencyRecord, error)
	// ClaimTx inserts a pending claim row. Returns false when another
	// request already holds the claim.
	ClaimTx(ctx context.Context, tx Transaction, tenantID, kind, key string, now time.Time) (bool, error)
	SaveResultTx(ctx context.Context, tx Transaction, tenantID, kind, key string, result []byte, now time.Time) error
}

// IdempotencyRecord is a stored idempotency claim with its eventual result.
type IdempotencyRecord struct {
	CreatedAt   time.Time
	CompletedAt *time.Time
	TenantID    string
	Kind        string
	Key         string
	Result      []byte
}

// Completed reports whether the claim holds a stored result.
func (r *IdempotencyRecord) Completed() bool {
	return r.CompletedAt != nil
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles HTTP-level idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

// RailProvider submits payment instructions to an external rail.
type RailProvider interface {
	Name() string
	Rail() domain.Rail
	// Submit hands the instruction to the provider and returns the
	// provider's reference for it.
	Submit(ctx context.Context, instr *domain.PaymentInstruction) (string, error)
	PollStatus(ctx context.Context, providerRef string) (domain.InstructionStatus, error)
}
