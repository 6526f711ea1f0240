package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fluxpay/pspcore/internal/domain"
	"github.com/fluxpay/pspcore/internal/infrastructure/metrics"
)

// FundingGateUseCase enforces the two-phase funding gate: commit reserves
// cover for a batch, and the pay-phase recheck consumes the reservation
// immediately before instructions go out.
type FundingGateUseCase struct {
	txManager       TransactionManager
	accountRepo     AccountRepository
	entryRepo       EntryRepository
	reservationRepo ReservationRepository
	eventRepo       EventRepository
	registry        *IdempotencyRegistry
	idGen           IDGenerator
	metrics         *metrics.Metrics
}

// NewFundingGateUseCase creates a new FundingGateUseCase.
func NewFundingGateUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	entryRepo EntryRepository,
	reservationRepo ReservationRepository,
	eventRepo EventRepository,
	registry *IdempotencyRegistry,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *FundingGateUseCase {
	return &FundingGateUseCase{
		txManager:       txManager,
		accountRepo:     accountRepo,
		entryRepo:       entryRepo,
		reservationRepo: reservationRepo,
		eventRepo:       eventRepo,
		registry:        registry,
		idGen:           idGen,
		metrics:         metrics,
	}
}

type commitResult struct {
	ReservationID string `json:"reservation_id"`
	Total         string `json:"total"`
}

// Commit runs the commit phase of the gate: it locks the funding account,
// checks available cover (balance minus other active reservations) against
// the batch total, and either creates an active reservation or denies with
// ErrInsufficientFunds. The bool reports whether the reservation was created
// by this call; a replay of the same key returns the stored reservation with
// false and no second funds check. Denials are not recorded against the
// idempotency key, so topping up the account and retrying the same key works.
func (uc *FundingGateUseCase) Commit(ctx context.Context, batch *domain.PayrollBatch) (*domain.Reservation, bool, error) {
	if err := batch.Validate(); err != nil {
		return nil, false, err
	}

	start := time.Now()

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	var (
		reservation *domain.Reservation
		available   decimal.Decimal
	)

	raw, replayed, err := uc.registry.Execute(txCtx, tx, batch.TenantID, "funding.commit", batch.IdempotencyKey, func() ([]byte, error) {
		res, avail, err := uc.commitTx(txCtx, tx, batch)
		if err != nil {
			available = avail

			return nil, err
		}

		reservation = res

		return json.Marshal(commitResult{ReservationID: res.ID, Total: res.ReservedAmount.String()})
	})
	if err != nil {
		// The gate transaction rolled back with the claim row, so the same
		// key can be retried after a top-up. Record the denial on its own
		// transaction so the event survives.
		if errors.Is(err, domain.ErrInsufficientFunds) {
			_ = tx.Rollback(txCtx)
			uc.recordDenial(ctx, batch, batch.TotalAmount(), available)
		}

		return nil, false, err
	}

	if replayed {
		var stored commitResult
		if err := json.Unmarshal(raw, &stored); err != nil {
			return nil, false, err
		}

		res, err := uc.reservationRepo.GetByBatchReference(ctx, batch.TenantID, batch.BatchReference)

		return res, false, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, false, err
	}

	if uc.metrics != nil {
		uc.metrics.BatchesCommitted.Inc()
		uc.metrics.GateDuration.Observe(time.Since(start).Seconds())
	}

	return reservation, true, nil
}

func (uc *FundingGateUseCase) commitTx(ctx context.Context, tx Transaction, batch *domain.PayrollBatch) (*domain.Reservation, decimal.Decimal, error) {
	account, err := uc.accountRepo.GetByIDForUpdate(ctx, tx, batch.TenantID, batch.FundingAccountID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	if account.Currency != batch.Currency {
		return nil, decimal.Zero, domain.ErrCurrencyMismatch
	}

	total := batch.TotalAmount()
	now := time.Now().UTC()

	event := &domain.DomainEvent{
		ID:       uc.idGen.Generate(),
		TenantID: batch.TenantID,
		Name:     domain.EventFundingRequested,
		Version:  1,
		Payload: map[string]any{
			"batch_reference":    batch.BatchReference,
			"funding_account_id": batch.FundingAccountID,
			"total":              total.String(),
			"item_count":         len(batch.Items),
		},
		CreatedAt: now,
	}
	if err := uc.eventRepo.AppendTx(ctx, tx, event); err != nil {
		return nil, decimal.Zero, err
	}

	available, err := uc.availableTx(ctx, tx, batch.TenantID, batch.FundingAccountID, "")
	if err != nil {
		return nil, decimal.Zero, err
	}

	if available.LessThan(total) {
		return nil, available, domain.ErrInsufficientFunds
	}

	reservation := &domain.Reservation{
		ID:               uc.idGen.Generate(),
		TenantID:         batch.TenantID,
		BatchReference:   batch.BatchReference,
		FundingAccountID: batch.FundingAccountID,
		IdempotencyKey:   batch.IdempotencyKey,
		Status:           domain.ReservationStatusActive,
		ReservedAmount:   total,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := uc.reservationRepo.Create(ctx, tx, reservation); err != nil {
		return nil, decimal.Zero, err
	}

	approved := &domain.DomainEvent{
		ID:       uc.idGen.Generate(),
		TenantID: batch.TenantID,
		Name:     domain.EventFundingApproved,
		Version:  1,
		Payload: map[string]any{
			"batch_reference": batch.BatchReference,
			"reservation_id":  reservation.ID,
			"total":           total.String(),
		},
		CreatedAt: now,
	}
	if err := uc.eventRepo.AppendTx(ctx, tx, approved); err != nil {
		return nil, decimal.Zero, err
	}

	return reservation, available, nil
}

// recordDenial appends funding.requested and funding.insufficient_funds on
// a fresh transaction after the gate transaction rolled back. Best effort;
// a failure here never masks the denial itself.
func (uc *FundingGateUseCase) recordDenial(ctx context.Context, batch *domain.PayrollBatch, total, available decimal.Decimal) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	events := []*domain.DomainEvent{
		{
			ID:       uc.idGen.Generate(),
			TenantID: batch.TenantID,
			Name:     domain.EventFundingRequested,
			Version:  1,
			Payload: map[string]any{
				"batch_reference":    batch.BatchReference,
				"funding_account_id": batch.FundingAccountID,
				"total":              total.String(),
				"item_count":         len(batch.Items),
			},
			CreatedAt: now,
		},
		{
			ID:       uc.idGen.Generate(),
			TenantID: batch.TenantID,
			Name:     domain.EventFundingInsufficientFunds,
			Version:  1,
			Payload: map[string]any{
				"batch_reference": batch.BatchReference,
				"required":        total.String(),
				"available":       available.String(),
			},
			CreatedAt: now,
		},
	}

	for _, event := range events {
		if err := uc.eventRepo.AppendTx(ctx, tx, event); err != nil {
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return
	}

	if uc.metrics != nil {
		uc.metrics.FundingDenied.Inc()
	}
}

// PayTx runs the pay-phase recheck inside the caller's transaction: lock the
// reservation and funding account, re-verify cover with the reservation's
// own hold excluded, and consume the reservation. The caller posts the
// payout entries in the same transaction.
func (uc *FundingGateUseCase) PayTx(ctx context.Context, tx Transaction, tenantID, batchRef string) (*domain.Reservation, error) {
	reservation, err := uc.reservationRepo.GetByBatchReferenceForUpdate(ctx, tx, tenantID, batchRef)
	if err != nil {
		return nil, err
	}

	if reservation.Status != domain.ReservationStatusActive {
		return nil, domain.ErrReservationNotActive
	}

	if _, err := uc.accountRepo.GetByIDForUpdate(ctx, tx, tenantID, reservation.FundingAccountID); err != nil {
		return nil, err
	}

	available, err := uc.availableTx(ctx, tx, tenantID, reservation.FundingAccountID, reservation.ID)
	if err != nil {
		return nil, err
	}

	if available.LessThan(reservation.ReservedAmount) {
		return nil, domain.ErrInsufficientFunds
	}

	now := time.Now().UTC()
	if err := reservation.Consume(now); err != nil {
		return nil, err
	}

	if err := uc.reservationRepo.UpdateStatus(ctx, tx, tenantID, reservation.ID, domain.ReservationStatusConsumed, now); err != nil {
		return nil, err
	}

	return reservation, nil
}

// Release voids an active reservation, freeing its cover for other batches.
func (uc *FundingGateUseCase) Release(ctx context.Context, tenantID, batchRef, reason string) error {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	reservation, err := uc.reservationRepo.GetByBatchReferenceForUpdate(txCtx, tx, tenantID, batchRef)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := reservation.Release(now); err != nil {
		return err
	}

	if err := uc.reservationRepo.UpdateStatus(txCtx, tx, tenantID, reservation.ID, domain.ReservationStatusReleased, now); err != nil {
		return err
	}

	event := &domain.DomainEvent{
		ID:       uc.idGen.Generate(),
		TenantID: tenantID,
		Name:     domain.EventReservationReleased,
		Version:  1,
		Payload: map[string]any{
			"batch_reference": batchRef,
			"reservation_id":  reservation.ID,
			"amount":          reservation.ReservedAmount.String(),
			"reason":          reason,
		},
		CreatedAt: now,
	}
	if err := uc.eventRepo.AppendTx(txCtx, tx, event); err != nil {
		return err
	}

	return tx.Commit(txCtx)
}

// availableTx computes balance minus active reservations, optionally
// excluding one reservation's own hold. The funding account row must
// already be locked by the caller.
func (uc *FundingGateUseCase) availableTx(ctx context.Context, tx Transaction, tenantID, accountID, excludeReservationID string) (decimal.Decimal, error) {
	balance, err := uc.entryRepo.SumForAccountTx(ctx, tx, tenantID, accountID, time.Now().UTC())
	if err != nil {
		return decimal.Zero, err
	}

	reserved, err := uc.reservationRepo.SumActiveExcludingTx(ctx, tx, tenantID, accountID, excludeReservationID)
	if err != nil {
		return decimal.Zero, err
	}

	return balance.Sub(reserved), nil
}
