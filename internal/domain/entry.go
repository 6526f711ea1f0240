package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType categorizes what a ledger entry records.
type EntryType string

const (
	EntryTypeFunding    EntryType = "funding"
	EntryTypePayout     EntryType = "payout"
	EntryTypeReversal   EntryType = "reversal"
	EntryTypeAdjustment EntryType = "adjustment"
)

// LedgerEntry is one immutable double-entry record: it debits one account
// and credits another by a strictly positive amount. Entries are never
// updated or deleted; corrections are new entries referencing the original
// via ReversedEntryID.
type LedgerEntry struct {
	CreatedAt       time.Time
	ReversedEntryID *string
	ID              string
	TenantID        string
	DebitAccountID  string
	CreditAccountID string
	EntryType       EntryType
	IdempotencyKey  string
	Amount          decimal.Decimal
}

// Validate checks the per-entry invariants.
func (e *LedgerEntry) Validate() error {
	if e.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrNonPositiveAmount
	}

	if e.DebitAccountID == e.CreditAccountID {
		return ErrSelfTransfer
	}

	return nil
}

// IsReversal reports whether this entry compensates another entry.
func (e *LedgerEntry) IsReversal() bool {
	return e.ReversedEntryID != nil
}

// Contribution returns the signed balance effect of this entry on accountID:
// positive for the credited account, negative for the debited one, zero for
// accounts the entry does not touch.
func (e *LedgerEntry) Contribution(accountID string) decimal.Decimal {
	switch accountID {
	case e.CreditAccountID:
		return e.Amount
	case e.DebitAccountID:
		return e.Amount.Neg()
	default:
		return decimal.Zero
	}
}
