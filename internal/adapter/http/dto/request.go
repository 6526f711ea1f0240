package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fluxpay/pspcore/internal/domain"
	"github.com/fluxpay/pspcore/internal/usecase"
)

// CreateAccountRequest represents a request to create an account.
type CreateAccountRequest struct {
	LegalEntityID string `json:"legal_entity_id"`
	Currency      string `json:"currency"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput(tenantID string) usecase.CreateAccountInput {
	return usecase.CreateAccountInput{
		TenantID:      tenantID,
		LegalEntityID: r.LegalEntityID,
		Currency:      r.Currency,
	}
}

// BatchItem is a single payee line of a batch request.
type BatchItem struct {
	PayeeAccountReference string          `json:"payee_account_reference"`
	Purpose               string          `json:"purpose,omitempty"`
	Amount                decimal.Decimal `json:"amount"`
}

// CommitBatchRequest represents a request to commit a payroll batch.
type CommitBatchRequest struct {
	LegalEntityID    string      `json:"legal_entity_id"`
	BatchReference   string      `json:"batch_reference"`
	FundingAccountID string      `json:"funding_account_id"`
	Currency         string      `json:"currency"`
	Rail             string      `json:"rail"`
	IdempotencyKey   string      `json:"idempotency_key"`
	Items            []BatchItem `json:"items"`
}

// ToDomain converts to a domain batch.
func (r *CommitBatchRequest) ToDomain(tenantID string) *domain.PayrollBatch {
	items := make([]domain.PayrollItem, len(r.Items))
	for i, item := range r.Items {
		items[i] = domain.PayrollItem{
			PayeeAccountReference: item.PayeeAccountReference,
			Purpose:               item.Purpose,
			Amount:                item.Amount,
		}
	}

	return &domain.PayrollBatch{
		TenantID:         tenantID,
		LegalEntityID:    r.LegalEntityID,
		BatchReference:   r.BatchReference,
		FundingAccountID: r.FundingAccountID,
		Currency:         r.Currency,
		IdempotencyKey:   r.IdempotencyKey,
		Rail:             domain.Rail(r.Rail),
		Items:            items,
	}
}

// ExecuteBatchRequest represents a request to execute a committed batch.
type ExecuteBatchRequest struct {
	CommitBatchRequest

	ClearingAccountID string `json:"clearing_account_id"`
}

// ReleaseBatchRequest represents a request to void a reservation.
type ReleaseBatchRequest struct {
	Reason string `json:"reason,omitempty"`
}

// FeedRecord is one record of a settlement feed request.
type FeedRecord struct {
	ExternalReference string          `json:"external_reference"`
	ProviderReference string          `json:"provider_reference"`
	Status            string          `json:"status"`
	ReturnCode        string          `json:"return_code,omitempty"`
	ReturnReason      string          `json:"return_reason,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	FeedSequence      int64           `json:"feed_sequence"`
	EffectiveDate     time.Time       `json:"effective_date"`
}

// IngestFeedRequest represents a settlement feed to ingest.
type IngestFeedRequest struct {
	Provider string       `json:"provider"`
	Records  []FeedRecord `json:"records"`
}

// ToUseCaseInput converts to use case input.
func (r *IngestFeedRequest) ToUseCaseInput(tenantID string) usecase.IngestFeedInput {
	records := make([]usecase.FeedRecordInput, len(r.Records))
	for i, rec := range r.Records {
		records[i] = usecase.FeedRecordInput{
			ExternalReference: rec.ExternalReference,
			ProviderReference: rec.ProviderReference,
			Status:            domain.SettlementStatus(rec.Status),
			ReturnCode:        rec.ReturnCode,
			ReturnReason:      rec.ReturnReason,
			Amount:            rec.Amount,
			FeedSequence:      rec.FeedSequence,
			EffectiveDate:     rec.EffectiveDate,
		}
	}

	return usecase.IngestFeedInput{
		TenantID: tenantID,
		Provider: r.Provider,
		Records:  records,
	}
}

// CallbackRequest represents a provider-pushed status change.
type CallbackRequest struct {
	ProviderReference string `json:"provider_reference"`
	Status            string `json:"status"`
	ReturnCode        string `json:"return_code,omitempty"`
	ReturnReason      string `json:"return_reason,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CallbackRequest) ToUseCaseInput(tenantID, providerName string) usecase.CallbackInput {
	return usecase.CallbackInput{
		TenantID:          tenantID,
		Provider:          providerName,
		ProviderReference: r.ProviderReference,
		Status:            domain.InstructionStatus(r.Status),
		ReturnCode:        r.ReturnCode,
		ReturnReason:      r.ReturnReason,
	}
}

// EntryLeg is one leg of a balanced posting request. Currency is required
// when a leg references an account for the first time; the account is
// created with it.
type EntryLeg struct {
	DebitAccountID  string          `json:"debit_account_id"`
	CreditAccountID string          `json:"credit_account_id"`
	EntryType       string          `json:"entry_type"`
	Currency        string          `json:"currency,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
}

// PostEntriesRequest represents a request to post balanced entries.
type PostEntriesRequest struct {
	IdempotencyKey string     `json:"idempotency_key"`
	Entries        []EntryLeg `json:"entries"`
}

// ToUseCaseInput converts to use case input.
func (r *PostEntriesRequest) ToUseCaseInput(tenantID string) usecase.PostBalancedEntriesInput {
	entries := make([]usecase.EntryInput, len(r.Entries))
	for i, e := range r.Entries {
		entries[i] = usecase.EntryInput{
			DebitAccountID:  e.DebitAccountID,
			CreditAccountID: e.CreditAccountID,
			EntryType:       domain.EntryType(e.EntryType),
			Currency:        e.Currency,
			Amount:          e.Amount,
		}
	}

	return usecase.PostBalancedEntriesInput{
		TenantID:       tenantID,
		IdempotencyKey: r.IdempotencyKey,
		Entries:        entries,
	}
}

// ReverseEntryRequest represents a request to reverse an entry.
type ReverseEntryRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	Reason         string `json:"reason,omitempty"`
}

// AdvanceRecoveryRequest represents a request to progress recovery.
type AdvanceRecoveryRequest struct {
	Status string `json:"status"`
}
