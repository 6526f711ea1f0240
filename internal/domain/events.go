package domain

import (
	"encoding/json"
	"time"
)

// Event names. Payloads are additive-only: a breaking change gets a new
// name or a bumped Version, never a changed meaning.
const (
	EventLedgerEntriesPosted = "ledger.entries_posted"
	EventLedgerEntryReversed = "ledger.entry_reversed"

	EventFundingRequested         = "funding.requested"
	EventFundingApproved          = "funding.approved"
	EventFundingInsufficientFunds = "funding.insufficient_funds"
	EventReservationReleased      = "funding.reservation_released"

	EventInstructionCreated = "payment.instruction_created"
	EventPaymentSubmitted   = "payment.submitted"
	EventPaymentAccepted    = "payment.accepted"
	EventPaymentSettled     = "payment.settled"
	EventPaymentReturned    = "payment.returned"
	EventPaymentFailed      = "payment.failed"

	EventSettlementReceived  = "settlement.received"
	EventSettlementMatched   = "settlement.matched"
	EventSettlementUnmatched = "settlement.unmatched"

	EventLiabilityClassified       = "liability.classified"
	EventLiabilityRecoveryAdvanced = "liability.recovery_advanced"
)

// DomainEvent is an immutable, tenant-scoped record of a state change.
// Sequence is a per-tenant monotonic counter allocated in the same
// transaction as the mutation the event describes.
type DomainEvent struct {
	CreatedAt time.Time
	Payload   map[string]any
	ID        string
	TenantID  string
	Name      string
	Sequence  int64
	Version   int
}

// PayloadMap converts a typed payload struct to the generic map form
// DomainEvent stores, keyed by the struct's JSON field names.
func PayloadMap(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}

	return m
}

// LedgerEntriesPostedPayload is the payload of ledger.entries_posted.
type LedgerEntriesPostedPayload struct {
	EntryIDs       []string `json:"entry_ids"`
	IdempotencyKey string   `json:"idempotency_key"`
	Total          string   `json:"total"`
}

// PaymentReturnedPayload is the payload of payment.returned.
type PaymentReturnedPayload struct {
	InstructionID     string `json:"instruction_id"`
	ExternalReference string `json:"external_reference"`
	ReturnCode        string `json:"return_code"`
	ReturnReason      string `json:"return_reason,omitempty"`
	Amount            string `json:"amount"`
	LiabilityParty    string `json:"liability_party"`
}

// LiabilityClassifiedPayload is the payload of liability.classified.
type LiabilityClassifiedPayload struct {
	LiabilityEventID string `json:"liability_event_id"`
	SourceType       string `json:"source_type"`
	SourceID         string `json:"source_id"`
	ErrorOrigin      string `json:"error_origin"`
	LiabilityParty   string `json:"liability_party"`
	RecoveryPath     string `json:"recovery_path"`
	LossAmount       string `json:"loss_amount"`
	ReturnCode       string `json:"return_code"`
	ReversalEntryID  string `json:"reversal_entry_id,omitempty"`
}
