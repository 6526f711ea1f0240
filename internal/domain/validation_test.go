package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateBalancedEntries(t *testing.T) {
	tests := []struct {
		name        string
		entries     []*LedgerEntry
		expectError error
	}{
		{
			name: "single balanced entry",
			entries: []*LedgerEntry{
				{DebitAccountID: "a", CreditAccountID: "b", Amount: decimal.NewFromInt(100)},
			},
		},
		{
			name: "multiple balanced entries",
			entries: []*LedgerEntry{
				{DebitAccountID: "a", CreditAccountID: "b", Amount: decimal.NewFromInt(60)},
				{DebitAccountID: "a", CreditAccountID: "c", Amount: decimal.NewFromInt(40)},
			},
		},
		{
			name:        "empty group",
			entries:     nil,
			expectError: ErrUnbalancedEntry,
		},
		{
			name: "non-positive amount",
			entries: []*LedgerEntry{
				{DebitAccountID: "a", CreditAccountID: "b", Amount: decimal.Zero},
			},
			expectError: ErrNonPositiveAmount,
		},
		{
			name: "self transfer",
			entries: []*LedgerEntry{
				{DebitAccountID: "a", CreditAccountID: "a", Amount: decimal.NewFromInt(10)},
			},
			expectError: ErrSelfTransfer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBalancedEntries(tt.entries)
			if tt.expectError == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.expectError) {
				t.Errorf("expected %v, got %v", tt.expectError, err)
			}
		})
	}
}

func TestLedgerEntry_Contribution(t *testing.T) {
	e := &LedgerEntry{
		DebitAccountID:  "funding",
		CreditAccountID: "clearing",
		Amount:          decimal.NewFromInt(250),
	}

	if got := e.Contribution("clearing"); !got.Equal(decimal.NewFromInt(250)) {
		t.Errorf("credited contribution = %s, want 250", got)
	}
	if got := e.Contribution("funding"); !got.Equal(decimal.NewFromInt(-250)) {
		t.Errorf("debited contribution = %s, want -250", got)
	}
	if got := e.Contribution("other"); !got.IsZero() {
		t.Errorf("untouched contribution = %s, want 0", got)
	}
}

func TestValidateAmount(t *testing.T) {
	if err := ValidateAmount(decimal.NewFromInt(100)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateAmount(decimal.Zero); !errors.Is(err, ErrNonPositiveAmount) {
		t.Errorf("expected ErrNonPositiveAmount for zero, got %v", err)
	}
	if err := ValidateAmount(decimal.NewFromFloat(0.001)); err == nil {
		t.Error("expected error for sub-minimum amount")
	}
	big, _ := decimal.NewFromString("1000000001")
	if err := ValidateAmount(big); err == nil {
		t.Error("expected error for amount above maximum")
	}
}

func TestValidateCurrency(t *testing.T) {
	if err := ValidateCurrency("USD"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateCurrency(" usd "); err != nil {
		t.Errorf("currency should be normalized, got %v", err)
	}
	if err := ValidateCurrency("XXX"); err == nil {
		t.Error("expected error for unsupported currency")
	}
}

func TestValidatePagination(t *testing.T) {
	limit, offset := ValidatePagination(0, -5)
	if limit != 50 || offset != 0 {
		t.Errorf("defaults = (%d, %d), want (50, 0)", limit, offset)
	}

	limit, _ = ValidatePagination(5000, 0)
	if limit != 1000 {
		t.Errorf("limit = %d, want capped at 1000", limit)
	}
}

func TestPayrollBatch_Validate(t *testing.T) {
	batch := &PayrollBatch{
		Currency: "USD",
		Items: []PayrollItem{
			{PayeeAccountReference: "p-1", Amount: decimal.NewFromInt(100)},
			{PayeeAccountReference: "p-2", Amount: decimal.NewFromInt(50)},
		},
	}

	if err := batch.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if got := batch.TotalAmount(); !got.Equal(decimal.NewFromInt(150)) {
		t.Errorf("total = %s, want 150", got)
	}

	empty := &PayrollBatch{Currency: "USD"}
	if err := empty.Validate(); !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("expected ErrEmptyBatch, got %v", err)
	}
}
