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

// SettlementUseCase ingests provider settlement feeds and applies their
// status changes to the matching payment instructions.
type SettlementUseCase struct {
	txManager       TransactionManager
	settlementRepo  SettlementRepository
	instructionRepo InstructionRepository
	paymentUC       *PaymentUseCase
	eventRepo       EventRepository
	registry        *IdempotencyRegistry
	idGen           IDGenerator
	metrics         *metrics.Metrics
}

// NewSettlementUseCase creates a new SettlementUseCase.
func NewSettlementUseCase(
	txManager TransactionManager,
	settlementRepo SettlementRepository,
	instructionRepo InstructionRepository,
	paymentUC *PaymentUseCase,
	eventRepo EventRepository,
	registry *IdempotencyRegistry,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *SettlementUseCase {
	return &SettlementUseCase{
		txManager:       txManager,
		settlementRepo:  settlementRepo,
		instructionRepo: instructionRepo,
		paymentUC:       paymentUC,
		eventRepo:       eventRepo,
		registry:        registry,
		idGen:           idGen,
		metrics:         metrics,
	}
}

// FeedRecordInput is one raw record of a provider settlement feed.
type FeedRecordInput struct {
	EffectiveDate     time.Time
	ExternalReference string
	ProviderReference string
	Status            domain.SettlementStatus
	ReturnCode        string
	ReturnReason      string
	Amount            decimal.Decimal
	FeedSequence      int64
}

// IngestFeedInput represents a settlement feed to ingest.
type IngestFeedInput struct {
	TenantID string
	Provider string
	Records  []FeedRecordInput
}

// IngestFeedResult reports per-record ingestion outcomes.
type IngestFeedResult struct {
	Ingested  int
	Duplicate int
	Stale     int
	Unmatched int
}

type ingestRecordResult struct {
	Outcome string `json:"outcome"`
}

const (
	outcomeApplied   = "applied"
	outcomeStale     = "stale"
	outcomeUnmatched = "unmatched"
)

// IngestFeed processes a settlement feed record by record. Each record is
// its own idempotency scope keyed on its external reference, so a re-sent
// feed skips records already applied and a partially failed ingest can be
// resumed. Records never abort the whole feed; a failing record is counted
// and the rest still apply.
func (uc *SettlementUseCase) IngestFeed(ctx context.Context, input IngestFeedInput) (*IngestFeedResult, error) {
	result := &IngestFeedResult{}

	for _, rec := range input.Records {
		outcome, replayed, err := uc.ingestRecord(ctx, input.TenantID, input.Provider, rec)
		if err != nil {
			return result, err
		}

		if replayed {
			result.Duplicate++

			continue
		}

		switch outcome {
		case outcomeStale:
			result.Stale++
		case outcomeUnmatched:
			result.Unmatched++
		default:
			result.Ingested++
		}

		if uc.metrics != nil {
			uc.metrics.SettlementRecordsIngested.Inc()
		}
	}

	return result, nil
}

func (uc *SettlementUseCase) ingestRecord(ctx context.Context, tenantID, providerName string, rec FeedRecordInput) (string, bool, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return "", false, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	var (
		outcome  string
		reversal *domain.LedgerEntry
	)

	raw, replayed, err := uc.registry.Execute(txCtx, tx, tenantID, "settlement.record", rec.ExternalReference, func() ([]byte, error) {
		o, rev, err := uc.applyRecordTx(txCtx, tx, tenantID, providerName, rec)
		if err != nil {
			return nil, err
		}

		outcome = o
		reversal = rev

		return json.Marshal(ingestRecordResult{Outcome: o})
	})
	if err != nil {
		return "", false, err
	}

	if replayed {
		var stored ingestRecordResult
		if err := json.Unmarshal(raw, &stored); err != nil {
			return "", true, err
		}

		return stored.Outcome, true, nil
	}

	if err := tx.Commit(txCtx); err != nil {
		return "", false, err
	}

	uc.paymentUC.invalidateReversal(ctx, tenantID, reversal)

	return outcome, false, nil
}

func (uc *SettlementUseCase) applyRecordTx(ctx context.Context, tx Transaction, tenantID, providerName string, rec FeedRecordInput) (string, *domain.LedgerEntry, error) {
	now := time.Now().UTC()

	record := &domain.SettlementRecord{
		ID:                uc.idGen.Generate(),
		TenantID:          tenantID,
		ExternalReference: rec.ExternalReference,
		ProviderReference: rec.ProviderReference,
		ReturnCode:        rec.ReturnCode,
		ReturnReason:      rec.ReturnReason,
		Status:            rec.Status,
		Amount:            rec.Amount,
		FeedSequence:      rec.FeedSequence,
		EffectiveDate:     rec.EffectiveDate,
		CreatedAt:         now,
	}

	if err := uc.settlementRepo.Create(ctx, tx, record); err != nil {
		return "", nil, err
	}

	received := &domain.DomainEvent{
		ID:       uc.idGen.Generate(),
		TenantID: tenantID,
		Name:     domain.EventSettlementReceived,
		Version:  1,
		Payload: map[string]any{
			"external_reference": rec.ExternalReference,
			"provider_reference": rec.ProviderReference,
			"provider":           providerName,
			"status":             string(rec.Status),
			"amount":             rec.Amount.String(),
			"feed_sequence":      rec.FeedSequence,
		},
		CreatedAt: now,
	}
	if err := uc.eventRepo.AppendTx(ctx, tx, received); err != nil {
		return "", nil, err
	}

	instr, err := uc.instructionRepo.GetByProviderReferenceForUpdate(ctx, tx, tenantID, rec.ProviderReference)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownProviderRef) || errors.Is(err, domain.ErrInstructionNotFound) {
			return outcomeUnmatched, nil, uc.recordUnmatchedTx(ctx, tx, tenantID, record, now)
		}

		return "", nil, err
	}

	// Out-of-order feed: a record older than one already applied to this
	// instruction is dropped, not replayed backwards.
	if rec.FeedSequence <= instr.LastFeedSequence {
		return outcomeStale, nil, nil
	}

	var reversal *domain.LedgerEntry

	to := uc.targetStatus(rec)
	if instr.Status != to {
		reversal, err = uc.paymentUC.ApplyStatusTx(ctx, tx, instr, to, rec.ReturnCode, rec.ReturnReason, "settlement feed "+providerName)
		if err != nil {
			return "", nil, err
		}
	}

	instr.LastFeedSequence = rec.FeedSequence
	if err := uc.instructionRepo.Update(ctx, tx, instr); err != nil {
		return "", nil, err
	}

	if err := uc.settlementRepo.MarkMatched(ctx, tx, tenantID, record.ID, instr.ID); err != nil {
		return "", nil, err
	}

	matched := &domain.DomainEvent{
		ID:       uc.idGen.Generate(),
		TenantID: tenantID,
		Name:     domain.EventSettlementMatched,
		Version:  1,
		Payload: map[string]any{
			"external_reference": rec.ExternalReference,
			"instruction_id":     instr.ID,
			"status":             string(instr.Status),
		},
		CreatedAt: now,
	}
	if err := uc.eventRepo.AppendTx(ctx, tx, matched); err != nil {
		return "", nil, err
	}

	return outcomeApplied, reversal, nil
}

func (uc *SettlementUseCase) recordUnmatchedTx(ctx context.Context, tx Transaction, tenantID string, record *domain.SettlementRecord, now time.Time) error {
	if uc.metrics != nil {
		uc.metrics.SettlementUnmatched.Inc()
	}

	event := &domain.DomainEvent{
		ID:       uc.idGen.Generate(),
		TenantID: tenantID,
		Name:     domain.EventSettlementUnmatched,
		Version:  1,
		Payload: map[string]any{
			"external_reference": record.ExternalReference,
			"provider_reference": record.ProviderReference,
			"amount":             record.Amount.String(),
		},
		CreatedAt: now,
	}

	return uc.eventRepo.AppendTx(ctx, tx, event)
}

func (uc *SettlementUseCase) targetStatus(rec FeedRecordInput) domain.InstructionStatus {
	if rec.IsReturn() {
		return domain.InstructionStatusReturned
	}

	switch rec.Status {
	case domain.SettlementStatusSettled:
		return domain.InstructionStatusSettled
	case domain.SettlementStatusReturned:
		return domain.InstructionStatusReturned
	default:
		return domain.InstructionStatusAccepted
	}
}

// IsReturn reports whether the raw record signals a returned payment.
func (r FeedRecordInput) IsReturn() bool {
	return r.ReturnCode != "" || r.Status == domain.SettlementStatusReturned
}

// ListUnmatched lists settlement records with no matching instruction.
func (uc *SettlementUseCase) ListUnmatched(ctx context.Context, tenantID string, limit, offset int) ([]*domain.SettlementRecord, error) {
	limit, offset = domain.ValidatePagination(limit, offset)

	return uc.settlementRepo.ListUnmatched(ctx, tenantID, limit, offset)
}
