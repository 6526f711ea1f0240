// Package psp is the service facade: one entry point per externally
// triggered operation, composed from the underlying use cases.
package psp

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fluxpay/pspcore/internal/domain"
	"github.com/fluxpay/pspcore/internal/usecase"
)

// Service wires the funding gate, ledger, payment, settlement and liability
// use cases behind a single API surface.
type Service struct {
	accountUC    *usecase.AccountUseCase
	ledgerUC     *usecase.LedgerUseCase
	gateUC       *usecase.FundingGateUseCase
	paymentUC    *usecase.PaymentUseCase
	settlementUC *usecase.SettlementUseCase
	liabilityUC  *usecase.LiabilityUseCase
	eventUC      *usecase.EventUseCase
	logger       zerolog.Logger
}

// New creates a new Service.
func New(
	accountUC *usecase.AccountUseCase,
	ledgerUC *usecase.LedgerUseCase,
	gateUC *usecase.FundingGateUseCase,
	paymentUC *usecase.PaymentUseCase,
	settlementUC *usecase.SettlementUseCase,
	liabilityUC *usecase.LiabilityUseCase,
	eventUC *usecase.EventUseCase,
	logger zerolog.Logger,
) *Service {
	return &Service{
		accountUC:    accountUC,
		ledgerUC:     ledgerUC,
		gateUC:       gateUC,
		paymentUC:    paymentUC,
		settlementUC: settlementUC,
		liabilityUC:  liabilityUC,
		eventUC:      eventUC,
		logger:       logger.With().Str("component", "psp").Logger(),
	}
}

// RegisterProvider makes a rail provider available for payment execution.
func (s *Service) RegisterProvider(p usecase.RailProvider) {
	s.paymentUC.RegisterProvider(p)
}

// CommitPayrollBatch runs the commit phase of the funding gate: verify
// cover for the batch total and reserve it, or deny with
// domain.ErrInsufficientFunds. The bool is false when the idempotency key
// replayed an earlier commit.
func (s *Service) CommitPayrollBatch(ctx context.Context, batch *domain.PayrollBatch) (*domain.Reservation, bool, error) {
	reservation, isNew, err := s.gateUC.Commit(ctx, batch)
	if err != nil {
		s.logger.Warn().
			Str("tenant_id", batch.TenantID).
			Str("batch_reference", batch.BatchReference).
			Err(err).
			Msg("batch commit denied")

		return nil, false, err
	}

	s.logger.Info().
		Str("tenant_id", batch.TenantID).
		Str("batch_reference", batch.BatchReference).
		Str("reserved", reservation.ReservedAmount.String()).
		Bool("is_new", isNew).
		Msg("batch committed")

	return reservation, isNew, nil
}

// ExecutePayments runs the pay phase: recheck cover, consume the
// reservation, post payout entries, create instructions and submit them to
// the rail provider.
func (s *Service) ExecutePayments(ctx context.Context, input usecase.ExecuteInput) (*usecase.ExecuteResult, error) {
	result, err := s.paymentUC.Execute(ctx, input)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("tenant_id", input.Batch.TenantID).
		Str("batch_reference", input.Batch.BatchReference).
		Int("submitted", result.Submitted).
		Int("failed", result.Failed).
		Msg("batch executed")

	return result, nil
}

// ReleaseReservation voids an active reservation without executing.
func (s *Service) ReleaseReservation(ctx context.Context, tenantID, batchRef, reason string) error {
	return s.gateUC.Release(ctx, tenantID, batchRef, reason)
}

// IngestSettlementFeed applies a provider settlement feed to the matching
// instructions, record by record.
func (s *Service) IngestSettlementFeed(ctx context.Context, input usecase.IngestFeedInput) (*usecase.IngestFeedResult, error) {
	result, err := s.settlementUC.IngestFeed(ctx, input)
	if err != nil {
		return result, err
	}

	s.logger.Info().
		Str("tenant_id", input.TenantID).
		Str("provider", input.Provider).
		Int("ingested", result.Ingested).
		Int("duplicate", result.Duplicate).
		Int("stale", result.Stale).
		Int("unmatched", result.Unmatched).
		Msg("settlement feed ingested")

	return result, nil
}

// ListUnmatchedSettlements lists feed records that matched no instruction.
func (s *Service) ListUnmatchedSettlements(ctx context.Context, tenantID string, limit, offset int) ([]*domain.SettlementRecord, error) {
	return s.settlementUC.ListUnmatched(ctx, tenantID, limit, offset)
}

// HandleProviderCallback applies a provider-pushed status change.
func (s *Service) HandleProviderCallback(ctx context.Context, input usecase.CallbackInput) error {
	return s.paymentUC.HandleCallback(ctx, input)
}

// AdvanceRecovery progresses a liability event's recovery status.
func (s *Service) AdvanceRecovery(ctx context.Context, tenantID, id string, to domain.RecoveryStatus) (*domain.LiabilityEvent, error) {
	return s.liabilityUC.AdvanceRecovery(ctx, tenantID, id, to)
}

// GetLiability retrieves a liability event.
func (s *Service) GetLiability(ctx context.Context, tenantID, id string) (*domain.LiabilityEvent, error) {
	return s.liabilityUC.GetLiability(ctx, tenantID, id)
}

// ListLiabilities lists liability events.
func (s *Service) ListLiabilities(ctx context.Context, input usecase.ListLiabilitiesInput) ([]*domain.LiabilityEvent, error) {
	return s.liabilityUC.ListLiabilities(ctx, input)
}

// CreateAccount creates a ledger account.
func (s *Service) CreateAccount(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error) {
	return s.accountUC.CreateAccount(ctx, input)
}

// ListAccounts lists a tenant's accounts.
func (s *Service) ListAccounts(ctx context.Context, input usecase.ListAccountsInput) ([]*domain.Account, error) {
	return s.accountUC.ListAccounts(ctx, input)
}

// GetAccount retrieves an account.
func (s *Service) GetAccount(ctx context.Context, tenantID, id string) (*domain.Account, error) {
	return s.accountUC.GetAccount(ctx, tenantID, id)
}

// BalanceAsOf returns an account balance derived from entries at or before
// the cutoff.
func (s *Service) BalanceAsOf(ctx context.Context, tenantID, accountID string, asOf time.Time) (decimal.Decimal, error) {
	return s.ledgerUC.BalanceAsOf(ctx, tenantID, accountID, asOf)
}

// PostBalancedEntries posts a balanced entry group directly, for funding
// top-ups and manual adjustments.
func (s *Service) PostBalancedEntries(ctx context.Context, input usecase.PostBalancedEntriesInput) ([]string, error) {
	return s.ledgerUC.PostBalancedEntries(ctx, input)
}

// ReverseEntry posts a compensating entry for an existing one.
func (s *Service) ReverseEntry(ctx context.Context, input usecase.ReverseInput) (string, error) {
	return s.ledgerUC.Reverse(ctx, input)
}

// ListEntriesByAccount lists the entries touching an account.
func (s *Service) ListEntriesByAccount(ctx context.Context, input usecase.ListEntriesByAccountInput) ([]*domain.LedgerEntry, error) {
	return s.ledgerUC.ListEntriesByAccount(ctx, input)
}

// CheckConsistency verifies the tenant's ledger nets to zero.
func (s *Service) CheckConsistency(ctx context.Context, tenantID string) error {
	return s.ledgerUC.CheckConsistency(ctx, tenantID)
}

// ListEvents pages the tenant's event log.
func (s *Service) ListEvents(ctx context.Context, input usecase.ListEventsInput) ([]*domain.DomainEvent, error) {
	return s.eventUC.ListEvents(ctx, input)
}

// ReplayEvents streams the tenant's history to fn in sequence order.
func (s *Service) ReplayEvents(ctx context.Context, tenantID string, fromSequence int64, fn func(*domain.DomainEvent) error) error {
	return s.eventUC.Replay(ctx, tenantID, fromSequence, fn)
}

// SubscribeEvents streams the tenant's events after fromSequence until ctx
// is cancelled.
func (s *Service) SubscribeEvents(ctx context.Context, tenantID string, fromSequence int64, pollInterval time.Duration) <-chan *domain.DomainEvent {
	return s.eventUC.Subscribe(ctx, tenantID, fromSequence, pollInterval)
}

// GetInstruction retrieves a payment instruction.
func (s *Service) GetInstruction(ctx context.Context, tenantID, id string) (*domain.PaymentInstruction, error) {
	return s.paymentUC.GetInstruction(ctx, tenantID, id)
}

// ListInstructionsByBatch lists a batch's instructions.
func (s *Service) ListInstructionsByBatch(ctx context.Context, tenantID, batchRef string) ([]*domain.PaymentInstruction, error) {
	return s.paymentUC.ListInstructionsByBatch(ctx, tenantID, batchRef)
}
