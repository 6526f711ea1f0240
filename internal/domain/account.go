package domain

import "time"

// Account is a tenant-scoped ledger account. Its balance is never stored:
// it is always the signed sum of entries referencing it (see LedgerEntry).
// Accounts are created on first reference and never deleted.
type Account struct {
	ID            string
	TenantID      string
	LegalEntityID string
	Currency      string
	CreatedAt     time.Time
}
