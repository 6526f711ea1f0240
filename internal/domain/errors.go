package domain

import "errors"

var (
	// Ledger errors
	ErrUnbalancedEntry    = errors.New("entries do not sum to zero across touched accounts")
	ErrNonPositiveAmount  = errors.New("amount must be positive")
	ErrSelfTransfer       = errors.New("debit and credit account must differ")
	ErrUnknownEntry       = errors.New("ledger entry not found")
	ErrAlreadyReversed    = errors.New("ledger entry already reversed")
	ErrReversalOfReversal = errors.New("cannot reverse a reversal entry")
	ErrCurrencyMismatch   = errors.New("cannot post entries across different currencies")
	ErrAccountNotFound    = errors.New("account not found")

	// Funding gate errors
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrReservationNotActive = errors.New("reservation is not active")
	ErrEmptyBatch           = errors.New("batch has no items")

	// Payment errors
	ErrInvalidTransition   = errors.New("invalid instruction status transition")
	ErrInstructionNotFound = errors.New("payment instruction not found")
	ErrUnknownProviderRef  = errors.New("no instruction matches provider reference")
	ErrUnknownRail         = errors.New("no provider registered for rail")

	// Settlement errors
	ErrSettlementNotFound = errors.New("settlement record not found")

	// Liability errors
	ErrLiabilityNotFound = errors.New("liability event not found")
	ErrRecoveryTerminal  = errors.New("liability recovery already resolved")
	ErrInvalidRecovery   = errors.New("invalid recovery status")

	// Idempotency errors
	ErrConcurrentRetry = errors.New("operation with this idempotency key is in flight")
)

// ErrorKind classifies errors for callers deciding whether to retry.
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindInsufficientFunds ErrorKind = "insufficient_funds"
	KindNotFound          ErrorKind = "not_found"
	KindConflict          ErrorKind = "conflict"
	KindFatal             ErrorKind = "fatal"
	KindInternal          ErrorKind = "internal"
)

// Kind maps an error to its taxonomy bucket. Unrecognized errors are internal.
func Kind(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrUnbalancedEntry),
		errors.Is(err, ErrNonPositiveAmount),
		errors.Is(err, ErrSelfTransfer),
		errors.Is(err, ErrCurrencyMismatch),
		errors.Is(err, ErrEmptyBatch),
		errors.Is(err, ErrInvalidRecovery):
		return KindValidation
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrUnknownEntry),
		errors.Is(err, ErrReservationNotFound),
		errors.Is(err, ErrInstructionNotFound),
		errors.Is(err, ErrUnknownProviderRef),
		errors.Is(err, ErrSettlementNotFound),
		errors.Is(err, ErrLiabilityNotFound):
		return KindNotFound
	case errors.Is(err, ErrConcurrentRetry):
		return KindConflict
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrReversalOfReversal),
		errors.Is(err, ErrAlreadyReversed),
		errors.Is(err, ErrReservationNotActive),
		errors.Is(err, ErrRecoveryTerminal):
		return KindFatal
	default:
		return KindInternal
	}
}

// Retryable reports whether retrying the same call can ever succeed.
// Validation and fatal invariant errors never become valid on retry.
func Retryable(err error) bool {
	switch Kind(err) {
	case KindInsufficientFunds, KindConflict, KindInternal:
		return true
	default:
		return false
	}
}
