package advisory

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/fluxpay/pspcore/internal/domain"
)

type fakeReader struct {
	events []*domain.DomainEvent
}

func (r *fakeReader) append(name string) {
	r.events = append(r.events, &domain.DomainEvent{
		TenantID: "tenant-1",
		Name:     name,
		Sequence: int64(len(r.events) + 1),
	})
}

func (r *fakeReader) ListAfter(ctx context.Context, tenantID string, afterSequence int64, limit int) ([]*domain.DomainEvent, error) {
	var out []*domain.DomainEvent
	for _, event := range r.events {
		if event.Sequence > afterSequence {
			out = append(out, event)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeEmitter struct {
	emitted []*Advisory
}

func (e *fakeEmitter) Emit(ctx context.Context, adv *Advisory) error {
	e.emitted = append(e.emitted, adv)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConsumer_Poll_FundingRisk(t *testing.T) {
	reader := &fakeReader{}
	emitter := &fakeEmitter{}

	// 5 commits, 2 denied: denial rate 0.4.
	for i := 0; i < 5; i++ {
		reader.append(domain.EventFundingRequested)
	}
	reader.append(domain.EventFundingInsufficientFunds)
	reader.append(domain.EventFundingInsufficientFunds)

	c := NewConsumer(reader, emitter, discardLogger(), "tenant-1", 0)
	if err := c.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(emitter.emitted) != 1 {
		t.Fatalf("got %d advisories, want 1", len(emitter.emitted))
	}

	adv := emitter.emitted[0]
	if adv.Kind != KindFundingRisk || adv.Severity != SeverityWarning {
		t.Errorf("advisory = %s/%s", adv.Kind, adv.Severity)
	}
	if adv.AsOfSequence != 7 {
		t.Errorf("as_of_sequence = %d, want 7", adv.AsOfSequence)
	}
}

func TestConsumer_Poll_BelowSampleStaysQuiet(t *testing.T) {
	reader := &fakeReader{}
	emitter := &fakeEmitter{}

	// 100% denial rate but only 2 commits: too small a sample.
	reader.append(domain.EventFundingRequested)
	reader.append(domain.EventFundingInsufficientFunds)
	reader.append(domain.EventFundingRequested)
	reader.append(domain.EventFundingInsufficientFunds)

	c := NewConsumer(reader, emitter, discardLogger(), "tenant-1", 0)
	if err := c.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(emitter.emitted) != 0 {
		t.Errorf("got %d advisories, want none", len(emitter.emitted))
	}
}

func TestConsumer_Poll_ReturnRate(t *testing.T) {
	reader := &fakeReader{}
	emitter := &fakeEmitter{}

	for i := 0; i < 20; i++ {
		reader.append(domain.EventPaymentSubmitted)
	}
	reader.append(domain.EventPaymentReturned)
	reader.append(domain.EventPaymentReturned)

	c := NewConsumer(reader, emitter, discardLogger(), "tenant-1", 0)
	if err := c.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(emitter.emitted) != 1 {
		t.Fatalf("got %d advisories, want 1", len(emitter.emitted))
	}
	if emitter.emitted[0].Kind != KindReturnRate {
		t.Errorf("kind = %s, want return_rate", emitter.emitted[0].Kind)
	}
}

func TestConsumer_Poll_EmitsOncePerSeverity(t *testing.T) {
	reader := &fakeReader{}
	emitter := &fakeEmitter{}

	for i := 0; i < 5; i++ {
		reader.append(domain.EventFundingRequested)
	}
	reader.append(domain.EventFundingInsufficientFunds)
	reader.append(domain.EventFundingInsufficientFunds)

	c := NewConsumer(reader, emitter, discardLogger(), "tenant-1", 0)
	if err := c.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// More denials arrive; the condition still holds but was already flagged.
	reader.append(domain.EventFundingInsufficientFunds)
	if err := c.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(emitter.emitted) != 1 {
		t.Errorf("got %d advisories, want 1", len(emitter.emitted))
	}
}

func TestConsumer_Poll_AdvancesCursor(t *testing.T) {
	reader := &fakeReader{}
	emitter := &fakeEmitter{}
	reader.append(domain.EventFundingRequested)
	reader.append(domain.EventFundingRequested)

	c := NewConsumer(reader, emitter, discardLogger(), "tenant-1", 0)
	if err := c.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.cursor != 2 {
		t.Errorf("cursor = %d, want 2", c.cursor)
	}
	if c.commits != 2 {
		t.Errorf("commits = %d, want 2", c.commits)
	}

	// A second poll with nothing new observes nothing twice.
	if err := c.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.commits != 2 {
		t.Errorf("commits double counted: %d", c.commits)
	}
}
