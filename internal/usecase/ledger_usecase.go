package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fluxpay/pspcore/internal/domain"
	"github.com/fluxpay/pspcore/internal/infrastructure/metrics"
)

// LedgerUseCase handles double-entry posting, reversals and balance reads.
type LedgerUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	entryRepo   EntryRepository
	ledgerRepo  LedgerRepository
	eventRepo   EventRepository
	registry    *IdempotencyRegistry
	idGen       IDGenerator
	cache       Cache
	metrics     *metrics.Metrics
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	entryRepo EntryRepository,
	ledgerRepo LedgerRepository,
	eventRepo EventRepository,
	registry *IdempotencyRegistry,
	idGen IDGenerator,
	cache Cache,
	metrics *metrics.Metrics,
) *LedgerUseCase {
	return &LedgerUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		ledgerRepo:  ledgerRepo,
		eventRepo:   eventRepo,
		registry:    registry,
		idGen:       idGen,
		cache:       cache,
		metrics:     metrics,
	}
}

// EntryInput is one leg of a balanced posting. Currency denominates the
// movement and seeds accounts created on first reference; legs without a
// currency can only touch accounts that already exist.
type EntryInput struct {
	DebitAccountID  string
	CreditAccountID string
	EntryType       domain.EntryType
	Currency        string
	Amount          decimal.Decimal
}

// PostBalancedEntriesInput represents input for posting a balanced group.
type PostBalancedEntriesInput struct {
	TenantID       string
	IdempotencyKey string
	Entries        []EntryInput
}

type postedEntriesResult struct {
	EntryIDs []string `json:"entry_ids"`
}

// PostBalancedEntries atomically posts a balanced group of entries under an
// idempotency key. A retried key returns the originally posted entry IDs.
func (uc *LedgerUseCase) PostBalancedEntries(ctx context.Context, input PostBalancedEntriesInput) ([]string, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	var entryIDs []string

	raw, replayed, err := uc.registry.Execute(txCtx, tx, input.TenantID, "ledger.post", input.IdempotencyKey, func() ([]byte, error) {
		ids, err := uc.PostEntriesTx(txCtx, tx, input.TenantID, input.IdempotencyKey, input.Entries)
		if err != nil {
			return nil, err
		}

		entryIDs = ids

		return json.Marshal(postedEntriesResult{EntryIDs: ids})
	})
	if err != nil {
		return nil, err
	}

	if replayed {
		var stored postedEntriesResult
		if err := json.Unmarshal(raw, &stored); err != nil {
			return nil, err
		}

		return stored.EntryIDs, nil
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.EntriesPosted.Add(float64(len(entryIDs)))
	}

	touched := make([]string, 0, len(input.Entries)*2)
	for _, e := range input.Entries {
		touched = append(touched, e.DebitAccountID, e.CreditAccountID)
	}
	uc.invalidateAccounts(ctx, input.TenantID, touched...)

	return entryIDs, nil
}

// PostEntriesTx validates and persists a balanced entry group inside an
// existing transaction, emitting ledger.entries_posted. Callers own commit.
func (uc *LedgerUseCase) PostEntriesTx(
	ctx context.Context,
	tx Transaction,
	tenantID, idempotencyKey string,
	inputs []EntryInput,
) ([]string, error) {
	if len(inputs) == 0 {
		return nil, domain.ErrEmptyBatch
	}

	now := time.Now().UTC()
	total := decimal.Zero

	entries := make([]*domain.LedgerEntry, 0, len(inputs))
	for _, in := range inputs {
		entry := &domain.LedgerEntry{
			ID:              uc.idGen.Generate(),
			TenantID:        tenantID,
			DebitAccountID:  in.DebitAccountID,
			CreditAccountID: in.CreditAccountID,
			EntryType:       in.EntryType,
			IdempotencyKey:  idempotencyKey,
			Amount:          in.Amount,
			CreatedAt:       now,
		}
		entries = append(entries, entry)
		total = total.Add(in.Amount)
	}

	if err := domain.ValidateBalancedEntries(entries); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(entries))
	for i, entry := range entries {
		if err := uc.ensureAccounts(ctx, tx, tenantID, entry, inputs[i].Currency); err != nil {
			return nil, err
		}

		if err := uc.entryRepo.Create(ctx, tx, entry); err != nil {
			return nil, err
		}

		ids = append(ids, entry.ID)
	}

	event := &domain.DomainEvent{
		ID:       uc.idGen.Generate(),
		TenantID: tenantID,
		Name:     domain.EventLedgerEntriesPosted,
		Version:  1,
		Payload: domain.PayloadMap(domain.LedgerEntriesPostedPayload{
			EntryIDs:       ids,
			IdempotencyKey: idempotencyKey,
			Total:          total.String(),
		}),
		CreatedAt: now,
	}
	if err := uc.eventRepo.AppendTx(ctx, tx, event); err != nil {
		return nil, err
	}

	return ids, nil
}

// ensureAccounts locks both accounts of the entry, creating any that are
// referenced for the first time with the posting's currency. Accounts are
// never deleted, so a created row outlives the posting that introduced it.
func (uc *LedgerUseCase) ensureAccounts(ctx context.Context, tx Transaction, tenantID string, entry *domain.LedgerEntry, currency string) error {
	debit, err := uc.ensureAccount(ctx, tx, tenantID, entry.DebitAccountID, currency, entry.CreatedAt)
	if err != nil {
		return err
	}

	credit, err := uc.ensureAccount(ctx, tx, tenantID, entry.CreditAccountID, currency, entry.CreatedAt)
	if err != nil {
		return err
	}

	if debit.Currency != credit.Currency {
		return domain.ErrCurrencyMismatch
	}

	if currency != "" && debit.Currency != currency {
		return domain.ErrCurrencyMismatch
	}

	return nil
}

func (uc *LedgerUseCase) ensureAccount(ctx context.Context, tx Transaction, tenantID, accountID, currency string, now time.Time) (*domain.Account, error) {
	account, err := uc.accountRepo.GetByIDForUpdate(ctx, tx, tenantID, accountID)
	if err == nil {
		return account, nil
	}

	if !errors.Is(err, domain.ErrAccountNotFound) || currency == "" {
		return nil, err
	}

	account = &domain.Account{
		ID:        accountID,
		TenantID:  tenantID,
		Currency:  currency,
		CreatedAt: now,
	}
	if err := uc.accountRepo.CreateTx(ctx, tx, account); err != nil {
		return nil, err
	}

	return account, nil
}

// ReverseInput represents input for reversing an entry.
type ReverseInput struct {
	TenantID       string
	EntryID        string
	IdempotencyKey string
	Reason         string
}

type reversalResult struct {
	ReversalEntryID string `json:"reversal_entry_id"`
}

// Reverse posts a compensating entry for an existing one. The original is
// never mutated; at most one reversal may reference it.
func (uc *LedgerUseCase) Reverse(ctx context.Context, input ReverseInput) (string, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	var reversal *domain.LedgerEntry

	raw, replayed, err := uc.registry.Execute(txCtx, tx, input.TenantID, "ledger.reverse", input.IdempotencyKey, func() ([]byte, error) {
		entry, err := uc.ReverseTx(txCtx, tx, input.TenantID, input.EntryID, input.IdempotencyKey, input.Reason)
		if err != nil {
			return nil, err
		}

		reversal = entry

		return json.Marshal(reversalResult{ReversalEntryID: entry.ID})
	})
	if err != nil {
		return "", err
	}

	if replayed {
		var stored reversalResult
		if err := json.Unmarshal(raw, &stored); err != nil {
			return "", err
		}

		return stored.ReversalEntryID, nil
	}

	if err := tx.Commit(txCtx); err != nil {
		return "", err
	}

	if uc.metrics != nil {
		uc.metrics.EntriesReversed.Inc()
	}

	uc.invalidateAccounts(ctx, input.TenantID, reversal.DebitAccountID, reversal.CreditAccountID)

	return reversal.ID, nil
}

// ReverseTx posts a compensating entry inside an existing transaction and
// emits ledger.entry_reversed. Callers own commit and should invalidate the
// returned entry's accounts once the transaction lands.
func (uc *LedgerUseCase) ReverseTx(
	ctx context.Context,
	tx Transaction,
	tenantID, entryID, idempotencyKey, reason string,
) (*domain.LedgerEntry, error) {
	original, err := uc.entryRepo.GetByIDTx(ctx, tx, tenantID, entryID)
	if err != nil {
		return nil, err
	}

	if original.IsReversal() {
		return nil, domain.ErrReversalOfReversal
	}

	reversed, err := uc.entryRepo.ReversalOfTx(ctx, tx, tenantID, entryID)
	if err != nil {
		return nil, err
	}

	if reversed {
		return nil, domain.ErrAlreadyReversed
	}

	now := time.Now().UTC()
	reversal := &domain.LedgerEntry{
		ID:              uc.idGen.Generate(),
		TenantID:        tenantID,
		DebitAccountID:  original.CreditAccountID,
		CreditAccountID: original.DebitAccountID,
		EntryType:       domain.EntryTypeReversal,
		IdempotencyKey:  idempotencyKey,
		ReversedEntryID: &original.ID,
		Amount:          original.Amount,
		CreatedAt:       now,
	}

	if err := uc.entryRepo.Create(ctx, tx, reversal); err != nil {
		return nil, err
	}

	event := &domain.DomainEvent{
		ID:       uc.idGen.Generate(),
		TenantID: tenantID,
		Name:     domain.EventLedgerEntryReversed,
		Version:  1,
		Payload: map[string]any{
			"entry_id":          original.ID,
			"reversal_entry_id": reversal.ID,
			"amount":            reversal.Amount.String(),
			"reason":            reason,
		},
		CreatedAt: now,
	}
	if err := uc.eventRepo.AppendTx(ctx, tx, event); err != nil {
		return nil, err
	}

	return reversal, nil
}

// BalanceAsOf returns the signed sum of all entries touching the account
// with created_at at or before asOf. Current balances go through a short
// cache; historical reads always hit the database.
func (uc *LedgerUseCase) BalanceAsOf(ctx context.Context, tenantID, accountID string, asOf time.Time) (decimal.Decimal, error) {
	if _, err := uc.accountRepo.GetByID(ctx, tenantID, accountID); err != nil {
		return decimal.Zero, err
	}

	current := time.Since(asOf) < time.Second

	cacheKey := balanceCacheKey(tenantID, accountID)
	if current && uc.cache != nil {
		if raw, err := uc.cache.Get(ctx, cacheKey); err == nil && raw != nil {
			if bal, derr := decimal.NewFromString(string(raw)); derr == nil {
				return bal, nil
			}
		}
	}

	balance, err := uc.entryRepo.SumForAccount(ctx, tenantID, accountID, asOf)
	if err != nil {
		return decimal.Zero, err
	}

	if current && uc.cache != nil {
		_ = uc.cache.Set(ctx, cacheKey, []byte(balance.String()), BalanceCacheTTL)
	}

	return balance, nil
}

// BalanceTx returns the current balance of an account inside a transaction,
// with the account row locked by the caller.
func (uc *LedgerUseCase) BalanceTx(ctx context.Context, tx Transaction, tenantID, accountID string) (decimal.Decimal, error) {
	return uc.entryRepo.SumForAccountTx(ctx, tx, tenantID, accountID, time.Now().UTC())
}

// CheckConsistency verifies that the tenant's ledger nets to zero.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context, tenantID string) error {
	net, err := uc.ledgerRepo.CheckConsistency(ctx, tenantID)
	if err != nil {
		return err
	}

	if !net.IsZero() {
		return fmt.Errorf("%w: ledger nets to %s", domain.ErrUnbalancedEntry, net)
	}

	return nil
}

// ListEntriesByAccountInput represents input for listing entries.
type ListEntriesByAccountInput struct {
	TenantID  string
	AccountID string
	Limit     int
	Offset    int
}

// ListEntriesByAccount lists entries touching an account.
func (uc *LedgerUseCase) ListEntriesByAccount(ctx context.Context, input ListEntriesByAccountInput) ([]*domain.LedgerEntry, error) {
	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)

	return uc.entryRepo.ListByAccount(ctx, input.TenantID, input.AccountID, limit, offset)
}

// invalidateAccounts drops cached balances for the given accounts. Every
// committed write that moves value must call this so the next BalanceAsOf
// hits the database instead of a stale cached value.
func (uc *LedgerUseCase) invalidateAccounts(ctx context.Context, tenantID string, accountIDs ...string) {
	if uc.cache == nil {
		return
	}

	seen := make(map[string]bool, len(accountIDs))
	for _, id := range accountIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		_ = uc.cache.Delete(ctx, balanceCacheKey(tenantID, id))
	}
}

func balanceCacheKey(tenantID, accountID string) string {
	return "balance:" + tenantID + ":" + accountID
}
