// Package advisory derives operational advisories from the event log. It is
// strictly read-only against core state: the consumer holds an event reader
// and an advisory sink, and nothing else.
package advisory

import (
	"context"
	"time"

	"github.com/fluxpay/pspcore/internal/domain"
)

// Kind identifies a class of advisory.
type Kind string

const (
	// KindFundingRisk flags tenants whose batch commits are being denied
	// for insufficient funds at an elevated rate.
	KindFundingRisk Kind = "funding_risk"
	// KindReturnRate flags tenants whose submitted payments are being
	// returned at an elevated rate.
	KindReturnRate Kind = "return_rate"
)

// Severity grades an advisory.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Advisory is one derived observation. Advisories live in their own stream
// and never feed back into ledger, gate or payment state.
type Advisory struct {
	CreatedAt    time.Time
	Detail       map[string]any
	ID           string
	TenantID     string
	Kind         Kind
	Severity     Severity
	AsOfSequence int64
}

// EventReader is the only read capability the consumer holds.
type EventReader interface {
	ListAfter(ctx context.Context, tenantID string, afterSequence int64, limit int) ([]*domain.DomainEvent, error)
}

// Emitter is the only write capability the consumer holds, and it writes to
// the advisory stream, not to core state.
type Emitter interface {
	Emit(ctx context.Context, adv *Advisory) error
}
