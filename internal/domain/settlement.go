package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type SettlementStatus string

const (
	SettlementStatusAccepted SettlementStatus = "accepted"
	SettlementStatusSettled  SettlementStatus = "settled"
	SettlementStatusReturned SettlementStatus = "returned"
)

// SettlementRecord is one raw entry of a provider settlement feed.
// Ingestion is idempotent on (TenantID, ExternalReference); FeedSequence
// orders records within a provider feed so stale records can be dropped.
type SettlementRecord struct {
	EffectiveDate     time.Time
	CreatedAt         time.Time
	ID                string
	TenantID          string
	ExternalReference string
	ProviderReference string
	ReturnCode        string
	ReturnReason      string
	Status            SettlementStatus
	Amount            decimal.Decimal
	FeedSequence      int64
}

// IsReturn reports whether the record signals a returned payment.
func (r *SettlementRecord) IsReturn() bool {
	return r.ReturnCode != "" || r.Status == SettlementStatusReturned
}
