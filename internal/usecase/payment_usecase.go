package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/fluxpay/pspcore/internal/domain"
	"github.com/fluxpay/pspcore/internal/infrastructure/metrics"
	"github.com/fluxpay/pspcore/internal/provider"
)

// PaymentUseCase turns committed batches into payment instructions, submits
// them to rail providers and applies provider status changes.
type PaymentUseCase struct {
	txManager       TransactionManager
	instructionRepo InstructionRepository
	ledgerUC        *LedgerUseCase
	gateUC          *FundingGateUseCase
	liabilityUC     *LiabilityUseCase
	eventRepo       EventRepository
	registry        *IdempotencyRegistry
	idGen           IDGenerator
	providers       map[domain.Rail]RailProvider
	metrics         *metrics.Metrics
}

// NewPaymentUseCase creates a new PaymentUseCase.
func NewPaymentUseCase(
	txManager TransactionManager,
	instructionRepo InstructionRepository,
	ledgerUC *LedgerUseCase,
	gateUC *FundingGateUseCase,
	liabilityUC *LiabilityUseCase,
	eventRepo EventRepository,
	registry *IdempotencyRegistry,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *PaymentUseCase {
	return &PaymentUseCase{
		txManager:       txManager,
		instructionRepo: instructionRepo,
		ledgerUC:        ledgerUC,
		gateUC:          gateUC,
		liabilityUC:     liabilityUC,
		eventRepo:       eventRepo,
		registry:        registry,
		idGen:           idGen,
		providers:       make(map[domain.Rail]RailProvider),
		metrics:         metrics,
	}
}

// RegisterProvider makes a rail provider available for submission.
func (uc *PaymentUseCase) RegisterProvider(p RailProvider) {
	uc.providers[p.Rail()] = p
}

// ExecuteInput represents input for executing a committed batch.
type ExecuteInput struct {
	Batch             *domain.PayrollBatch
	ClearingAccountID string
	IdempotencyKey    string
}

// ExecuteResult reports per-instruction submission outcomes.
type ExecuteResult struct {
	InstructionIDs []string
	Submitted      int
	Failed         int
}

type prepareResult struct {
	InstructionIDs []string `json:"instruction_ids"`
}

// Execute runs the pay phase in two stages. Stage one is a single
// idempotency-recorded transaction: the gate recheck consumes the
// reservation, instructions are created and payout entries posted, all or
// nothing. Stage two submits each still-unsubmitted instruction to its rail
// provider; a retry with the same key skips stage one and resumes
// submission where the previous attempt stopped.
func (uc *PaymentUseCase) Execute(ctx context.Context, input ExecuteInput) (*ExecuteResult, error) {
	if _, ok := uc.providers[input.Batch.Rail]; !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownRail, input.Batch.Rail)
	}

	start := time.Now()

	ids, err := uc.prepare(ctx, input)
	if err != nil {
		return nil, err
	}

	result, err := uc.submitBatch(ctx, input.Batch.TenantID, input.Batch.BatchReference, input.Batch.Rail)
	if err != nil {
		return nil, err
	}

	result.InstructionIDs = ids

	if uc.metrics != nil {
		uc.metrics.ExecuteDuration.Observe(time.Since(start).Seconds())
	}

	return result, nil
}

func (uc *PaymentUseCase) prepare(ctx context.Context, input ExecuteInput) ([]string, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	raw, replayed, err := uc.registry.Execute(txCtx, tx, input.Batch.TenantID, "payment.execute", input.IdempotencyKey, func() ([]byte, error) {
		ids, err := uc.prepareTx(txCtx, tx, input)
		if err != nil {
			return nil, err
		}

		return json.Marshal(prepareResult{InstructionIDs: ids})
	})
	if err != nil {
		return nil, err
	}

	var stored prepareResult
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, err
	}

	if !replayed {
		if err := tx.Commit(txCtx); err != nil {
			return nil, err
		}

		if uc.metrics != nil {
			uc.metrics.InstructionsCreated.Add(float64(len(stored.InstructionIDs)))
		}

		uc.ledgerUC.invalidateAccounts(ctx, input.Batch.TenantID, input.Batch.FundingAccountID, input.ClearingAccountID)
	}

	return stored.InstructionIDs, nil
}

func (uc *PaymentUseCase) prepareTx(ctx context.Context, tx Transaction, input ExecuteInput) ([]string, error) {
	batch := input.Batch

	reservation, err := uc.gateUC.PayTx(ctx, tx, batch.TenantID, batch.BatchReference)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	entryInputs := make([]EntryInput, 0, len(batch.Items))
	for _, item := range batch.Items {
		entryInputs = append(entryInputs, EntryInput{
			DebitAccountID:  reservation.FundingAccountID,
			CreditAccountID: input.ClearingAccountID,
			EntryType:       domain.EntryTypePayout,
			Currency:        batch.Currency,
			Amount:          item.Amount,
		})
	}

	entryIDs, err := uc.ledgerUC.PostEntriesTx(ctx, tx, batch.TenantID, input.IdempotencyKey, entryInputs)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(batch.Items))

	for i, item := range batch.Items {
		instr := &domain.PaymentInstruction{
			ID:                    uc.idGen.Generate(),
			TenantID:              batch.TenantID,
			BatchReference:        batch.BatchReference,
			PayeeAccountReference: item.PayeeAccountReference,
			LedgerEntryID:         entryIDs[i],
			Rail:                  batch.Rail,
			Status:                domain.InstructionStatusCreated,
			Amount:                item.Amount,
			CreatedAt:             now,
			UpdatedAt:             now,
		}

		if err := uc.instructionRepo.Create(ctx, tx, instr); err != nil {
			return nil, err
		}

		event := &domain.DomainEvent{
			ID:       uc.idGen.Generate(),
			TenantID: batch.TenantID,
			Name:     domain.EventInstructionCreated,
			Version:  1,
			Payload: map[string]any{
				"instruction_id":  instr.ID,
				"batch_reference": batch.BatchReference,
				"payee":           item.PayeeAccountReference,
				"amount":          item.Amount.String(),
				"rail":            string(batch.Rail),
			},
			CreatedAt: now,
		}
		if err := uc.eventRepo.AppendTx(ctx, tx, event); err != nil {
			return nil, err
		}

		ids = append(ids, instr.ID)
	}

	return ids, nil
}

// submitBatch hands every still-Created instruction of the batch to the
// rail provider. Instructions already past Created are left alone, which
// makes resumed retries safe.
func (uc *PaymentUseCase) submitBatch(ctx context.Context, tenantID, batchRef string, rail domain.Rail) (*ExecuteResult, error) {
	railProvider := uc.providers[rail]

	instructions, err := uc.instructionRepo.ListByBatch(ctx, tenantID, batchRef)
	if err != nil {
		return nil, err
	}

	result := &ExecuteResult{}

	// TODO: sweep instructions stuck in Submitting after a crash back to
	// Created once they outlive the provider call timeout.
	for _, instr := range instructions {
		if instr.Status != domain.InstructionStatusCreated {
			continue
		}

		submitted, err := uc.submitInstruction(ctx, railProvider, instr)
		if err != nil {
			result.Failed++

			if ferr := uc.recordSubmitFailure(ctx, instr, err); ferr != nil {
				return result, ferr
			}

			continue
		}

		if submitted {
			result.Submitted++
		}
	}

	return result, nil
}

// submitInstruction claims the instruction, hands it to the provider with
// transient-error backoff, then records the Submitted transition. The claim
// guarantees the provider sees each instruction at most once even when two
// executors race on the same batch; a failed claim means someone else holds
// the instruction and this call walks away. Reports whether this call
// submitted the instruction.
func (uc *PaymentUseCase) submitInstruction(ctx context.Context, railProvider RailProvider, instr *domain.PaymentInstruction) (bool, error) {
	claimed, err := uc.claimForSubmit(ctx, instr)
	if err != nil {
		return false, err
	}

	if !claimed {
		return false, nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewExponentialBackOff(backoff.WithInitialInterval(SubmitBackoffInitial)),
		MaxSubmitAttempts,
	), ctx)

	var providerRef string

	operation := func() error {
		ref, err := railProvider.Submit(ctx, instr)
		if err != nil {
			var perr *provider.Error
			if errors.As(err, &perr) && !perr.Transient {
				return backoff.Permanent(err)
			}

			return err
		}

		providerRef = ref

		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		if rerr := uc.releaseSubmitClaim(ctx, instr); rerr != nil {
			return false, rerr
		}

		return false, err
	}

	if err := uc.recordSubmitted(ctx, railProvider, instr, providerRef); err != nil {
		return false, err
	}

	return true, nil
}

// claimForSubmit moves a Created instruction to Submitting before any
// provider call. Reports false when the instruction is no longer Created,
// which means another executor already claimed or submitted it.
func (uc *PaymentUseCase) claimForSubmit(ctx context.Context, instr *domain.PaymentInstruction) (bool, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	locked, err := uc.instructionRepo.GetByIDForUpdate(txCtx, tx, instr.TenantID, instr.ID)
	if err != nil {
		return false, err
	}

	if locked.Status != domain.InstructionStatusCreated {
		return false, tx.Commit(txCtx)
	}

	now := time.Now().UTC()
	if err := locked.Transition(domain.InstructionStatusSubmitting, now, "claimed for submission"); err != nil {
		return false, err
	}

	if err := uc.instructionRepo.Update(txCtx, tx, locked); err != nil {
		return false, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return false, err
	}

	instr.Status = domain.InstructionStatusSubmitting

	return true, nil
}

// releaseSubmitClaim moves a Submitting instruction back to Created after a
// failed provider call, so a later retry of the batch picks it up again.
func (uc *PaymentUseCase) releaseSubmitClaim(ctx context.Context, instr *domain.PaymentInstruction) error {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	locked, err := uc.instructionRepo.GetByIDForUpdate(txCtx, tx, instr.TenantID, instr.ID)
	if err != nil {
		return err
	}

	if locked.Status != domain.InstructionStatusSubmitting {
		return tx.Commit(txCtx)
	}

	now := time.Now().UTC()
	if err := locked.Transition(domain.InstructionStatusCreated, now, "submission failed"); err != nil {
		return err
	}

	if err := uc.instructionRepo.Update(txCtx, tx, locked); err != nil {
		return err
	}

	if err := tx.Commit(txCtx); err != nil {
		return err
	}

	instr.Status = domain.InstructionStatusCreated

	return nil
}

// recordSubmitted stores the provider's reference and moves the claimed
// instruction to Submitted, emitting payment.submitted.
func (uc *PaymentUseCase) recordSubmitted(ctx context.Context, railProvider RailProvider, instr *domain.PaymentInstruction, providerRef string) error {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	locked, err := uc.instructionRepo.GetByIDForUpdate(txCtx, tx, instr.TenantID, instr.ID)
	if err != nil {
		return err
	}

	if locked.Status != domain.InstructionStatusSubmitting {
		return tx.Commit(txCtx)
	}

	now := time.Now().UTC()

	if err := uc.instructionRepo.SetProviderReference(txCtx, tx, instr.TenantID, instr.ID, providerRef, now); err != nil {
		return err
	}

	locked.ProviderReference = providerRef

	if err := locked.Transition(domain.InstructionStatusSubmitted, now, "submitted to "+railProvider.Name()); err != nil {
		return err
	}

	if err := uc.instructionRepo.Update(txCtx, tx, locked); err != nil {
		return err
	}

	event := &domain.DomainEvent{
		ID:       uc.idGen.Generate(),
		TenantID: instr.TenantID,
		Name:     domain.EventPaymentSubmitted,
		Version:  1,
		Payload: map[string]any{
			"instruction_id":     instr.ID,
			"provider":           railProvider.Name(),
			"provider_reference": providerRef,
			"amount":             instr.Amount.String(),
		},
		CreatedAt: now,
	}
	if err := uc.eventRepo.AppendTx(txCtx, tx, event); err != nil {
		return err
	}

	if err := tx.Commit(txCtx); err != nil {
		return err
	}

	instr.Status = domain.InstructionStatusSubmitted
	instr.ProviderReference = providerRef

	if uc.metrics != nil {
		uc.metrics.InstructionsSubmitted.Inc()
	}

	return nil
}

// recordSubmitFailure emits payment.failed. The instruction stays Created
// so a later retry of the same batch picks it up again.
func (uc *PaymentUseCase) recordSubmitFailure(ctx context.Context, instr *domain.PaymentInstruction, cause error) error {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	event := &domain.DomainEvent{
		ID:       uc.idGen.Generate(),
		TenantID: instr.TenantID,
		Name:     domain.EventPaymentFailed,
		Version:  1,
		Payload: map[string]any{
			"instruction_id": instr.ID,
			"reason":         cause.Error(),
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.eventRepo.AppendTx(ctx, tx, event); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// CallbackInput represents a provider-pushed status change.
type CallbackInput struct {
	TenantID          string
	Provider          string
	ProviderReference string
	Status            domain.InstructionStatus
	ReturnCode        string
	ReturnReason      string
}

// HandleCallback applies a provider-pushed status change to the matching
// instruction. Duplicate callbacks for a status the instruction already
// reached are acknowledged without effect.
func (uc *PaymentUseCase) HandleCallback(ctx context.Context, input CallbackInput) error {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	instr, err := uc.instructionRepo.GetByProviderReferenceForUpdate(txCtx, tx, input.TenantID, input.ProviderReference)
	if err != nil {
		return err
	}

	if instr.Status == input.Status {
		return tx.Commit(txCtx)
	}

	reversal, err := uc.ApplyStatusTx(txCtx, tx, instr, input.Status, input.ReturnCode, input.ReturnReason, "callback from "+input.Provider)
	if err != nil {
		return err
	}

	if err := tx.Commit(txCtx); err != nil {
		return err
	}

	uc.invalidateReversal(ctx, input.TenantID, reversal)

	return nil
}

// ApplyStatusTx moves an already-locked instruction to a provider-reported
// status inside the caller's transaction, emitting the matching event.
// Returns also post the compensating reversal and classify liability; the
// reversal entry comes back non-nil so the caller can drop cached balances
// for its accounts once the transaction commits.
func (uc *PaymentUseCase) ApplyStatusTx(
	ctx context.Context,
	tx Transaction,
	instr *domain.PaymentInstruction,
	to domain.InstructionStatus,
	returnCode, returnReason, via string,
) (*domain.LedgerEntry, error) {
	now := time.Now().UTC()

	if to == domain.InstructionStatusSettled && instr.Status == domain.InstructionStatusSubmitted && !instr.Rail.Instant() {
		// Batch rails report acceptance before settlement. Tolerate feeds
		// that skip the acceptance record.
		if err := uc.transitionTx(ctx, tx, instr, domain.InstructionStatusAccepted, now, via); err != nil {
			return nil, err
		}
	}

	if to == domain.InstructionStatusReturned {
		if err := uc.recordTransition(ctx, tx, instr, to, now, via); err != nil {
			return nil, err
		}

		return uc.applyReturnTx(ctx, tx, instr, returnCode, returnReason, now)
	}

	if err := uc.transitionTx(ctx, tx, instr, to, now, via); err != nil {
		return nil, err
	}

	return nil, nil
}

// invalidateReversal drops cached balances for the accounts a committed
// reversal touched. A nil reversal is a no-op.
func (uc *PaymentUseCase) invalidateReversal(ctx context.Context, tenantID string, reversal *domain.LedgerEntry) {
	if reversal == nil {
		return
	}

	uc.ledgerUC.invalidateAccounts(ctx, tenantID, reversal.DebitAccountID, reversal.CreditAccountID)
}

// recordTransition applies and persists the status change without emitting
// an event; transitionTx adds the generic status event on top. Returns emit
// their own richer payload after liability classification.
func (uc *PaymentUseCase) recordTransition(
	ctx context.Context,
	tx Transaction,
	instr *domain.PaymentInstruction,
	to domain.InstructionStatus,
	now time.Time,
	reason string,
) error {
	if err := instr.Transition(to, now, reason); err != nil {
		return err
	}

	if err := uc.instructionRepo.Update(ctx, tx, instr); err != nil {
		return err
	}

	if uc.metrics != nil {
		switch to {
		case domain.InstructionStatusSettled:
			uc.metrics.InstructionsSettled.Inc()
		case domain.InstructionStatusReturned:
			uc.metrics.InstructionsReturned.Inc()
		}
	}

	return nil
}

func (uc *PaymentUseCase) transitionTx(
	ctx context.Context,
	tx Transaction,
	instr *domain.PaymentInstruction,
	to domain.InstructionStatus,
	now time.Time,
	reason string,
) error {
	if err := uc.recordTransition(ctx, tx, instr, to, now, reason); err != nil {
		return err
	}

	name := ""

	switch to {
	case domain.InstructionStatusAccepted:
		name = domain.EventPaymentAccepted
	case domain.InstructionStatusSettled:
		name = domain.EventPaymentSettled
	case domain.InstructionStatusSubmitted:
		name = domain.EventPaymentSubmitted
	case domain.InstructionStatusCreated:
		name = domain.EventInstructionCreated
	}

	event := &domain.DomainEvent{
		ID:       uc.idGen.Generate(),
		TenantID: instr.TenantID,
		Name:     name,
		Version:  1,
		Payload: map[string]any{
			"instruction_id":     instr.ID,
			"provider_reference": instr.ProviderReference,
			"amount":             instr.Amount.String(),
			"reason":             reason,
		},
		CreatedAt: now,
	}

	return uc.eventRepo.AppendTx(ctx, tx, event)
}

// applyReturnTx posts the compensating reversal for the instruction's
// payout entry, classifies liability and emits payment.returned, all in the
// caller's transaction. Returns the reversal entry, nil when the payout was
// already reversed.
func (uc *PaymentUseCase) applyReturnTx(
	ctx context.Context,
	tx Transaction,
	instr *domain.PaymentInstruction,
	returnCode, returnReason string,
	now time.Time,
) (*domain.LedgerEntry, error) {
	reversalKey := "return:" + instr.ID

	reversal, err := uc.ledgerUC.ReverseTx(ctx, tx, instr.TenantID, instr.LedgerEntryID, reversalKey, "payment returned: "+returnCode)
	if err != nil && !errors.Is(err, domain.ErrAlreadyReversed) {
		return nil, err
	}

	var reversalID string
	if reversal != nil {
		reversalID = reversal.ID
	}

	le, err := uc.liabilityUC.ClassifyReturnTx(ctx, tx, ClassifyReturnInput{
		TenantID:     instr.TenantID,
		SourceType:   "payment_instruction",
		SourceID:     instr.ID,
		Rail:         instr.Rail,
		ReturnCode:   returnCode,
		ReturnReason: returnReason,
		LossAmount:   instr.Amount,
		ReversalID:   reversalID,
		Now:          now,
	})
	if err != nil {
		return nil, err
	}

	event := &domain.DomainEvent{
		ID:       uc.idGen.Generate(),
		TenantID: instr.TenantID,
		Name:     domain.EventPaymentReturned,
		Version:  1,
		Payload: domain.PayloadMap(domain.PaymentReturnedPayload{
			InstructionID:     instr.ID,
			ExternalReference: instr.ProviderReference,
			ReturnCode:        returnCode,
			ReturnReason:      returnReason,
			Amount:            instr.Amount.String(),
			LiabilityParty:    string(le.LiabilityParty),
		}),
		CreatedAt: now,
	}
	if err := uc.eventRepo.AppendTx(ctx, tx, event); err != nil {
		return nil, err
	}

	return reversal, nil
}

// GetInstruction retrieves an instruction by ID.
func (uc *PaymentUseCase) GetInstruction(ctx context.Context, tenantID, id string) (*domain.PaymentInstruction, error) {
	return uc.instructionRepo.GetByID(ctx, tenantID, id)
}

// ListInstructionsByBatch lists all instructions of a batch.
func (uc *PaymentUseCase) ListInstructionsByBatch(ctx context.Context, tenantID, batchRef string) ([]*domain.PaymentInstruction, error) {
	return uc.instructionRepo.ListByBatch(ctx, tenantID, batchRef)
}
