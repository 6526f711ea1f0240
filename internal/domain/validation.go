package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation constants
const (
	MaxPaymentAmount = "1000000000" // 1 billion per instruction
	MinPaymentAmount = "0.01"
	MaxBatchItems    = 10000
)

// Valid currency codes (ISO 4217)
var validCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true,
	"CNY": true, "AUD": true, "CAD": true, "CHF": true,
	"SEK": true, "NZD": true, "KRW": true, "SGD": true,
	"NOK": true, "MXN": true, "INR": true, "BRL": true,
}

// ValidateCurrency validates a currency code.
func ValidateCurrency(currency string) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))

	if !validCurrencies[currency] {
		return fmt.Errorf("%w: %s is not a supported ISO 4217 currency code", ErrCurrencyMismatch, currency)
	}

	return nil
}

// ValidateAmount validates a payment or entry amount against system bounds.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrNonPositiveAmount
	}

	minAmount, _ := decimal.NewFromString(MinPaymentAmount)
	if amount.LessThan(minAmount) {
		return fmt.Errorf("%w: minimum amount is %s", ErrNonPositiveAmount, MinPaymentAmount)
	}

	maxAmount, _ := decimal.NewFromString(MaxPaymentAmount)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrNonPositiveAmount, MaxPaymentAmount)
	}

	return nil
}

// ValidateBalancedEntries checks every per-entry invariant plus the group
// invariant: the signed sum of all contributions across touched accounts must
// be zero. These checks run inside the same transaction as the insert and do
// not rely on database constraints.
func ValidateBalancedEntries(entries []*LedgerEntry) error {
	if len(entries) == 0 {
		return fmt.Errorf("%w: no entries", ErrUnbalancedEntry)
	}

	net := make(map[string]decimal.Decimal)

	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}

		net[e.DebitAccountID] = net[e.DebitAccountID].Sub(e.Amount)
		net[e.CreditAccountID] = net[e.CreditAccountID].Add(e.Amount)
	}

	total := decimal.Zero
	for _, v := range net {
		total = total.Add(v)
	}

	if !total.IsZero() {
		return fmt.Errorf("%w: net %s", ErrUnbalancedEntry, total.String())
	}

	return nil
}

// ValidatePagination validates and limits pagination parameters.
func ValidatePagination(limit, offset int) (int, int) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
