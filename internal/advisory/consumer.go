package advisory

import (
	"context"
	"log/slog"
	"time"

	"github.com/fluxpay/pspcore/internal/domain"
)

const (
	pollBatchSize = 200

	// Denial and return rates below these counts are noise, not signal.
	minCommitSample = 5
	minSubmitSample = 10

	fundingDenialThreshold = 0.2
	returnRateThreshold    = 0.05
)

// Consumer tails a tenant's event log and emits advisories when funding
// denials or payment returns cross their thresholds. State is a cursor plus
// running counters, rebuilt from the log on restart.
type Consumer struct {
	reader  EventReader
	emitter Emitter
	logger  *slog.Logger

	tenantID string
	cursor   int64

	commits   int
	denials   int
	submitted int
	returned  int

	lastKind map[Kind]Severity
}

// NewConsumer creates a consumer for one tenant, starting at fromSequence.
func NewConsumer(reader EventReader, emitter Emitter, logger *slog.Logger, tenantID string, fromSequence int64) *Consumer {
	return &Consumer{
		reader:   reader,
		emitter:  emitter,
		logger:   logger.With("component", "advisory", "tenant_id", tenantID),
		tenantID: tenantID,
		cursor:   fromSequence,
		lastKind: make(map[Kind]Severity),
	}
}

// Run polls the event log until ctx is done.
func (c *Consumer) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.Poll(ctx); err != nil {
				c.logger.ErrorContext(ctx, "advisory poll failed", "error", err)
			}
		}
	}
}

// Poll consumes all events past the cursor and evaluates advisories once per
// batch. Exported for tests and for one-shot evaluation.
func (c *Consumer) Poll(ctx context.Context) error {
	for {
		events, err := c.reader.ListAfter(ctx, c.tenantID, c.cursor, pollBatchSize)
		if err != nil {
			return err
		}

		if len(events) == 0 {
			return nil
		}

		for _, event := range events {
			c.observe(event)
			c.cursor = event.Sequence
		}

		if err := c.evaluate(ctx); err != nil {
			return err
		}

		if len(events) < pollBatchSize {
			return nil
		}
	}
}

func (c *Consumer) observe(event *domain.DomainEvent) {
	switch event.Name {
	case domain.EventFundingRequested:
		c.commits++
	case domain.EventFundingInsufficientFunds:
		c.denials++
	case domain.EventPaymentSubmitted:
		c.submitted++
	case domain.EventPaymentReturned:
		c.returned++
	}
}

func (c *Consumer) evaluate(ctx context.Context) error {
	if c.commits >= minCommitSample {
		rate := float64(c.denials) / float64(c.commits)
		if rate >= fundingDenialThreshold {
			if err := c.emit(ctx, KindFundingRisk, SeverityWarning, map[string]any{
				"commits":     c.commits,
				"denials":     c.denials,
				"denial_rate": rate,
			}); err != nil {
				return err
			}
		}
	}

	if c.submitted >= minSubmitSample {
		rate := float64(c.returned) / float64(c.submitted)
		if rate >= returnRateThreshold {
			if err := c.emit(ctx, KindReturnRate, SeverityWarning, map[string]any{
				"submitted":   c.submitted,
				"returned":    c.returned,
				"return_rate": rate,
			}); err != nil {
				return err
			}
		}
	}

	return nil
}

// emit writes one advisory per kind per severity level; repeated evaluation
// at the same severity stays quiet.
func (c *Consumer) emit(ctx context.Context, kind Kind, severity Severity, detail map[string]any) error {
	if c.lastKind[kind] == severity {
		return nil
	}

	adv := &Advisory{
		TenantID:     c.tenantID,
		Kind:         kind,
		Severity:     severity,
		Detail:       detail,
		AsOfSequence: c.cursor,
		CreatedAt:    time.Now().UTC(),
	}

	if err := c.emitter.Emit(ctx, adv); err != nil {
		return err
	}

	c.lastKind[kind] = severity
	c.logger.InfoContext(ctx, "advisory emitted",
		"kind", string(kind),
		"severity", string(severity),
		"as_of_sequence", c.cursor,
	)

	return nil
}
