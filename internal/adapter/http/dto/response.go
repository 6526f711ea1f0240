package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fluxpay/pspcore/internal/domain"
	"github.com/fluxpay/pspcore/internal/usecase"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenant_id"`
	LegalEntityID string    `json:"legal_entity_id"`
	Currency      string    `json:"currency"`
	CreatedAt     time.Time `json:"created_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:            a.ID,
		TenantID:      a.TenantID,
		LegalEntityID: a.LegalEntityID,
		Currency:      a.Currency,
		CreatedAt:     a.CreatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// BalanceResponse represents a derived balance in API responses.
type BalanceResponse struct {
	AccountID string          `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	AsOf      time.Time       `json:"as_of"`
}

// ReservationResponse represents a funding reservation. IsNew is false when
// the commit replayed an earlier idempotency key.
type ReservationResponse struct {
	ID               string          `json:"id"`
	BatchReference   string          `json:"batch_reference"`
	FundingAccountID string          `json:"funding_account_id"`
	Status           string          `json:"status"`
	ReservedAmount   decimal.Decimal `json:"reserved_amount"`
	IsNew            bool            `json:"is_new"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ReservationFromDomain converts a domain reservation to a response.
func ReservationFromDomain(res *domain.Reservation, isNew bool) *ReservationResponse {
	return &ReservationResponse{
		ID:               res.ID,
		BatchReference:   res.BatchReference,
		FundingAccountID: res.FundingAccountID,
		Status:           string(res.Status),
		ReservedAmount:   res.ReservedAmount,
		IsNew:            isNew,
		CreatedAt:        res.CreatedAt,
	}
}

// ExecuteResponse reports batch execution outcomes.
type ExecuteResponse struct {
	InstructionIDs []string `json:"instruction_ids"`
	Submitted      int      `json:"submitted"`
	Failed         int      `json:"failed"`
}

// ExecuteFromResult converts an execution result to a response.
func ExecuteFromResult(result *usecase.ExecuteResult) *ExecuteResponse {
	return &ExecuteResponse{
		InstructionIDs: result.InstructionIDs,
		Submitted:      result.Submitted,
		Failed:         result.Failed,
	}
}

// InstructionResponse represents a payment instruction.
type InstructionResponse struct {
	ID                    string                `json:"id"`
	BatchReference        string                `json:"batch_reference"`
	PayeeAccountReference string                `json:"payee_account_reference"`
	ProviderReference     string                `json:"provider_reference,omitempty"`
	LedgerEntryID         string                `json:"ledger_entry_id"`
	Rail                  string                `json:"rail"`
	Status                string                `json:"status"`
	Amount                decimal.Decimal       `json:"amount"`
	StatusHistory         []domain.StatusChange `json:"status_history,omitempty"`
	CreatedAt             time.Time             `json:"created_at"`
	UpdatedAt             time.Time             `json:"updated_at"`
}

// InstructionFromDomain converts a domain instruction to a response.
func InstructionFromDomain(pi *domain.PaymentInstruction) *InstructionResponse {
	return &InstructionResponse{
		ID:                    pi.ID,
		BatchReference:        pi.BatchReference,
		PayeeAccountReference: pi.PayeeAccountReference,
		ProviderReference:     pi.ProviderReference,
		LedgerEntryID:         pi.LedgerEntryID,
		Rail:                  string(pi.Rail),
		Status:                string(pi.Status),
		Amount:                pi.Amount,
		StatusHistory:         pi.StatusHistory,
		CreatedAt:             pi.CreatedAt,
		UpdatedAt:             pi.UpdatedAt,
	}
}

// InstructionsFromDomain converts domain instructions to responses.
func InstructionsFromDomain(instructions []*domain.PaymentInstruction) []*InstructionResponse {
	result := make([]*InstructionResponse, len(instructions))
	for i, pi := range instructions {
		result[i] = InstructionFromDomain(pi)
	}
	return result
}

// IngestResponse reports settlement feed ingestion outcomes.
type IngestResponse struct {
	Ingested  int `json:"ingested"`
	Duplicate int `json:"duplicate"`
	Stale     int `json:"stale"`
	Unmatched int `json:"unmatched"`
}

// IngestFromResult converts an ingestion result to a response.
func IngestFromResult(result *usecase.IngestFeedResult) *IngestResponse {
	return &IngestResponse{
		Ingested:  result.Ingested,
		Duplicate: result.Duplicate,
		Stale:     result.Stale,
		Unmatched: result.Unmatched,
	}
}

// SettlementRecordResponse represents a raw settlement feed record.
type SettlementRecordResponse struct {
	ID                string          `json:"id"`
	ExternalReference string          `json:"external_reference"`
	ProviderReference string          `json:"provider_reference"`
	Status            string          `json:"status"`
	ReturnCode        string          `json:"return_code,omitempty"`
	ReturnReason      string          `json:"return_reason,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	FeedSequence      int64           `json:"feed_sequence"`
	EffectiveDate     time.Time       `json:"effective_date"`
	CreatedAt         time.Time       `json:"created_at"`
}

// SettlementRecordFromDomain converts a domain settlement record to a response.
func SettlementRecordFromDomain(rec *domain.SettlementRecord) *SettlementRecordResponse {
	return &SettlementRecordResponse{
		ID:                rec.ID,
		ExternalReference: rec.ExternalReference,
		ProviderReference: rec.ProviderReference,
		Status:            string(rec.Status),
		ReturnCode:        rec.ReturnCode,
		ReturnReason:      rec.ReturnReason,
		Amount:            rec.Amount,
		FeedSequence:      rec.FeedSequence,
		EffectiveDate:     rec.EffectiveDate,
		CreatedAt:         rec.CreatedAt,
	}
}

// SettlementRecordsFromDomain converts domain settlement records to responses.
func SettlementRecordsFromDomain(records []*domain.SettlementRecord) []*SettlementRecordResponse {
	result := make([]*SettlementRecordResponse, len(records))
	for i, rec := range records {
		result[i] = SettlementRecordFromDomain(rec)
	}
	return result
}

// EntryResponse represents a ledger entry in API responses.
type EntryResponse struct {
	ID              string          `json:"id"`
	DebitAccountID  string          `json:"debit_account_id"`
	CreditAccountID string          `json:"credit_account_id"`
	EntryType       string          `json:"entry_type"`
	ReversedEntryID *string         `json:"reversed_entry_id,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	CreatedAt       time.Time       `json:"created_at"`
}

// EntryFromDomain converts a domain entry to a response.
func EntryFromDomain(e *domain.LedgerEntry) *EntryResponse {
	return &EntryResponse{
		ID:              e.ID,
		DebitAccountID:  e.DebitAccountID,
		CreditAccountID: e.CreditAccountID,
		EntryType:       string(e.EntryType),
		ReversedEntryID: e.ReversedEntryID,
		Amount:          e.Amount,
		CreatedAt:       e.CreatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.LedgerEntry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// LiabilityResponse represents a liability event in API responses.
type LiabilityResponse struct {
	ID             string          `json:"id"`
	SourceType     string          `json:"source_type"`
	SourceID       string          `json:"source_id"`
	ReturnCode     string          `json:"return_code,omitempty"`
	Reason         string          `json:"reason"`
	ErrorOrigin    string          `json:"error_origin"`
	LiabilityParty string          `json:"liability_party"`
	RecoveryPath   string          `json:"recovery_path"`
	RecoveryStatus string          `json:"recovery_status"`
	LossAmount     decimal.Decimal `json:"loss_amount"`
	CreatedAt      time.Time       `json:"created_at"`
	ResolvedAt     *time.Time      `json:"resolved_at,omitempty"`
}

// LiabilityFromDomain converts a domain liability event to a response.
func LiabilityFromDomain(le *domain.LiabilityEvent) *LiabilityResponse {
	return &LiabilityResponse{
		ID:             le.ID,
		SourceType:     le.SourceType,
		SourceID:       le.SourceID,
		ReturnCode:     le.ReturnCode,
		Reason:         le.Reason,
		ErrorOrigin:    string(le.ErrorOrigin),
		LiabilityParty: string(le.LiabilityParty),
		RecoveryPath:   string(le.RecoveryPath),
		RecoveryStatus: string(le.RecoveryStatus),
		LossAmount:     le.LossAmount,
		CreatedAt:      le.CreatedAt,
		ResolvedAt:     le.ResolvedAt,
	}
}

// LiabilitiesFromDomain converts domain liability events to responses.
func LiabilitiesFromDomain(events []*domain.LiabilityEvent) []*LiabilityResponse {
	result := make([]*LiabilityResponse, len(events))
	for i, le := range events {
		result[i] = LiabilityFromDomain(le)
	}
	return result
}

// EventResponse represents a domain event in API responses.
type EventResponse struct {
	ID        string         `json:"id"`
	Sequence  int64          `json:"sequence"`
	Name      string         `json:"name"`
	Version   int            `json:"version"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// EventFromDomain converts a domain event to a response.
func EventFromDomain(e *domain.DomainEvent) *EventResponse {
	return &EventResponse{
		ID:        e.ID,
		Sequence:  e.Sequence,
		Name:      e.Name,
		Version:   e.Version,
		Payload:   e.Payload,
		CreatedAt: e.CreatedAt,
	}
}

// EventsFromDomain converts domain events to responses.
func EventsFromDomain(events []*domain.DomainEvent) []*EventResponse {
	result := make([]*EventResponse, len(events))
	for i, e := range events {
		result[i] = EventFromDomain(e)
	}
	return result
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
