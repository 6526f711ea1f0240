package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fluxpay/pspcore/internal/domain"
	"github.com/fluxpay/pspcore/internal/infrastructure/metrics"
)

// LiabilityUseCase assigns loss-bearing parties to returned or failed
// payments and tracks recovery progress.
type LiabilityUseCase struct {
	txManager     TransactionManager
	liabilityRepo LiabilityRepository
	eventRepo     EventRepository
	idGen         IDGenerator
	metrics       *metrics.Metrics
}

// NewLiabilityUseCase creates a new LiabilityUseCase.
func NewLiabilityUseCase(
	txManager TransactionManager,
	liabilityRepo LiabilityRepository,
	eventRepo EventRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *LiabilityUseCase {
	return &LiabilityUseCase{
		txManager:     txManager,
		liabilityRepo: liabilityRepo,
		eventRepo:     eventRepo,
		idGen:         idGen,
		metrics:       metrics,
	}
}

// ClassifyReturnInput represents a return to classify.
type ClassifyReturnInput struct {
	Now          time.Time
	TenantID     string
	SourceType   string
	SourceID     string
	ReturnCode   string
	ReturnReason string
	ReversalID   string
	Rail         domain.Rail
	LossAmount   decimal.Decimal
}

// ClassifyReturnTx creates a liability event for a returned payment inside
// the caller's transaction, applying the deterministic return-code rules.
// A source that already carries a classification is returned as is.
func (uc *LiabilityUseCase) ClassifyReturnTx(ctx context.Context, tx Transaction, input ClassifyReturnInput) (*domain.LiabilityEvent, error) {
	existing, err := uc.liabilityRepo.GetBySource(ctx, input.TenantID, input.SourceType, input.SourceID)
	if err != nil && !errors.Is(err, domain.ErrLiabilityNotFound) {
		return nil, err
	}

	if existing != nil {
		return existing, nil
	}

	classification := domain.ClassifyReturnCode(input.Rail, input.ReturnCode)

	reason := classification.Reason
	if input.ReturnReason != "" {
		reason = input.ReturnReason
	}

	le := &domain.LiabilityEvent{
		ID:             uc.idGen.Generate(),
		TenantID:       input.TenantID,
		SourceType:     input.SourceType,
		SourceID:       input.SourceID,
		ReturnCode:     input.ReturnCode,
		Reason:         reason,
		IdempotencyKey: "liability:" + input.SourceType + ":" + input.SourceID,
		ErrorOrigin:    classification.ErrorOrigin,
		LiabilityParty: classification.LiabilityParty,
		RecoveryPath:   classification.RecoveryPath,
		RecoveryStatus: domain.RecoveryStatusPending,
		LossAmount:     input.LossAmount,
		CreatedAt:      input.Now,
	}

	if err := uc.liabilityRepo.Create(ctx, tx, le); err != nil {
		return nil, err
	}

	event := &domain.DomainEvent{
		ID:       uc.idGen.Generate(),
		TenantID: input.TenantID,
		Name:     domain.EventLiabilityClassified,
		Version:  1,
		Payload: domain.PayloadMap(domain.LiabilityClassifiedPayload{
			LiabilityEventID: le.ID,
			SourceType:       input.SourceType,
			SourceID:         input.SourceID,
			ErrorOrigin:      string(le.ErrorOrigin),
			LiabilityParty:   string(le.LiabilityParty),
			RecoveryPath:     string(le.RecoveryPath),
			LossAmount:       le.LossAmount.String(),
			ReturnCode:       input.ReturnCode,
			ReversalEntryID:  input.ReversalID,
		}),
		CreatedAt: input.Now,
	}
	if err := uc.eventRepo.AppendTx(ctx, tx, event); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.LiabilitiesClassified.WithLabelValues(string(le.LiabilityParty)).Inc()
	}

	return le, nil
}

// AdvanceRecovery progresses a liability event's recovery status. Only
// pending and disputed events may progress; resolved ones are final.
func (uc *LiabilityUseCase) AdvanceRecovery(ctx context.Context, tenantID, id string, to domain.RecoveryStatus) (*domain.LiabilityEvent, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	le, err := uc.liabilityRepo.GetByIDForUpdate(txCtx, tx, tenantID, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := le.AdvanceRecovery(to, now); err != nil {
		return nil, err
	}

	if err := uc.liabilityRepo.Update(txCtx, tx, le); err != nil {
		return nil, err
	}

	event := &domain.DomainEvent{
		ID:       uc.idGen.Generate(),
		TenantID: tenantID,
		Name:     domain.EventLiabilityRecoveryAdvanced,
		Version:  1,
		Payload: map[string]any{
			"liability_event_id": le.ID,
			"recovery_status":    string(to),
			"loss_amount":        le.LossAmount.String(),
		},
		CreatedAt: now,
	}
	if err := uc.eventRepo.AppendTx(txCtx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return le, nil
}

// ListLiabilitiesInput represents input for listing liability events.
type ListLiabilitiesInput struct {
	TenantID string
	Status   domain.RecoveryStatus
	Limit    int
	Offset   int
}

// ListLiabilities lists liability events, optionally filtered by status.
func (uc *LiabilityUseCase) ListLiabilities(ctx context.Context, input ListLiabilitiesInput) ([]*domain.LiabilityEvent, error) {
	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)

	return uc.liabilityRepo.List(ctx, input.TenantID, input.Status, limit, offset)
}

// GetLiability retrieves a liability event by ID.
func (uc *LiabilityUseCase) GetLiability(ctx context.Context, tenantID, id string) (*domain.LiabilityEvent, error) {
	return uc.liabilityRepo.GetByID(ctx, tenantID, id)
}
