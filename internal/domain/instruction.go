package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Rail identifies the payment rail an instruction travels on.
type Rail string

const (
	RailACH        Rail = "ach"
	RailSameDayACH Rail = "sameday_ach"
	RailFedNow     Rail = "fednow"
	RailWire       Rail = "wire"
)

// Instant reports whether settlement confirmations on this rail may jump
// straight from Submitted to Settled without an Accepted step.
func (r Rail) Instant() bool {
	return r == RailFedNow || r == RailWire
}

type InstructionStatus string

const (
	InstructionStatusCreated    InstructionStatus = "created"
	InstructionStatusSubmitting InstructionStatus = "submitting"
	InstructionStatusSubmitted  InstructionStatus = "submitted"
	InstructionStatusAccepted   InstructionStatus = "accepted"
	InstructionStatusSettled    InstructionStatus = "settled"
	InstructionStatusReturned   InstructionStatus = "returned"
)

// instructionTransitions is the allow-list. Anything not listed here is a
// caller or provider bug, not a retryable condition. Submitting is the
// claim held while the provider call is in flight; it is the one status
// allowed to step back to Created, when that call fails.
var instructionTransitions = map[InstructionStatus][]InstructionStatus{
	InstructionStatusCreated:    {InstructionStatusSubmitting},
	InstructionStatusSubmitting: {InstructionStatusSubmitted, InstructionStatusCreated},
	InstructionStatusSubmitted:  {InstructionStatusAccepted, InstructionStatusSettled, InstructionStatusReturned},
	InstructionStatusAccepted:   {InstructionStatusSettled, InstructionStatusReturned},
	InstructionStatusSettled:    {},
	InstructionStatusReturned:   {},
}

// CanTransition reports whether from -> to is on the allow-list.
func CanTransition(from, to InstructionStatus) bool {
	for _, allowed := range instructionTransitions[from] {
		if allowed == to {
			return true
		}
	}

	return false
}

// Terminal reports whether the status admits no further transitions.
func (s InstructionStatus) Terminal() bool {
	return len(instructionTransitions[s]) == 0
}

// StatusChange is one element of an instruction's append-only status history.
type StatusChange struct {
	At     time.Time         `json:"at"`
	From   InstructionStatus `json:"from"`
	To     InstructionStatus `json:"to"`
	Reason string            `json:"reason,omitempty"`
}

// PaymentInstruction is one payee leg of an executed batch. All fields are
// immutable after creation except Status (forward-only), ProviderReference
// (set on submission), LastFeedSequence and the status history.
type PaymentInstruction struct {
	CreatedAt             time.Time
	UpdatedAt             time.Time
	StatusHistory         []StatusChange
	ID                    string
	TenantID              string
	BatchReference        string
	PayeeAccountReference string
	ProviderReference     string
	LedgerEntryID         string
	Rail                  Rail
	Status                InstructionStatus
	Amount                decimal.Decimal
	LastFeedSequence      int64
}

// Transition moves the instruction to a new status, enforcing the allow-list
// and recording the change in the history. Status never regresses past a
// released submission claim.
func (pi *PaymentInstruction) Transition(to InstructionStatus, at time.Time, reason string) error {
	if !CanTransition(pi.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, pi.Status, to)
	}

	pi.StatusHistory = append(pi.StatusHistory, StatusChange{
		From:   pi.Status,
		To:     to,
		At:     at,
		Reason: reason,
	})
	pi.Status = to
	pi.UpdatedAt = at

	return nil
}
