package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long HTTP idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// BalanceCacheTTL is how long cached balance reads stay valid
	BalanceCacheTTL = 5 * time.Second

	// MaxSubmitAttempts bounds retries against a flapping provider
	MaxSubmitAttempts = 5

	// SubmitBackoffInitial is the first retry delay for provider submission
	SubmitBackoffInitial = 100 * time.Millisecond
)
