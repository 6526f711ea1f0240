package domain

import "github.com/shopspring/decimal"

// PayrollItem is a single payee leg of a batch.
type PayrollItem struct {
	PayeeAccountReference string
	Purpose               string
	Amount                decimal.Decimal
}

// PayrollBatch is what a host application asks the gate to fund and the
// payment machinery to execute. BatchReference doubles as the natural
// idempotency scope for both gate phases.
type PayrollBatch struct {
	TenantID         string
	LegalEntityID    string
	BatchReference   string
	FundingAccountID string
	Currency         string
	IdempotencyKey   string
	Rail             Rail
	Items            []PayrollItem
}

// TotalAmount sums the batch's payment amounts.
func (b *PayrollBatch) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range b.Items {
		total = total.Add(item.Amount)
	}

	return total
}

// Validate checks batch-level invariants before any transaction starts.
func (b *PayrollBatch) Validate() error {
	if len(b.Items) == 0 {
		return ErrEmptyBatch
	}

	for _, item := range b.Items {
		if err := ValidateAmount(item.Amount); err != nil {
			return err
		}
	}

	return ValidateCurrency(b.Currency)
}
