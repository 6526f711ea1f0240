// Package provider contains rail provider integrations. The simulators in
// this package stand in for real ACH and FedNow gateways in development and
// tests; they honor the same contract real integrations would.
package provider

import "fmt"

// Error is a provider-originated failure. Transient errors may be retried
// with the same instruction; permanent ones never succeed on retry.
type Error struct {
	Provider  string
	Code      string
	Message   string
	Transient bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %s (%s)", e.Provider, e.Message, e.Code)
}

// NewTransientError creates a retryable provider error.
func NewTransientError(providerName, code, message string) *Error {
	return &Error{Provider: providerName, Code: code, Message: message, Transient: true}
}

// NewPermanentError creates a non-retryable provider error.
func NewPermanentError(providerName, code, message string) *Error {
	return &Error{Provider: providerName, Code: code, Message: message, Transient: false}
}
