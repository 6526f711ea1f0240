package usecase

import (
	"context"
	"time"

	"github.com/fluxpay/pspcore/internal/domain"
)

// EventUseCase reads the append-only event log. Events are never mutated;
// readers page forward by sequence.
type EventUseCase struct {
	eventRepo EventRepository
}

// NewEventUseCase creates a new EventUseCase.
func NewEventUseCase(eventRepo EventRepository) *EventUseCase {
	return &EventUseCase{eventRepo: eventRepo}
}

// ListEventsInput represents input for paging the event log.
type ListEventsInput struct {
	TenantID      string
	Name          string
	AfterSequence int64
	Limit         int
}

// ListEvents pages the tenant's event log in sequence order, optionally
// filtered to one event name.
func (uc *EventUseCase) ListEvents(ctx context.Context, input ListEventsInput) ([]*domain.DomainEvent, error) {
	limit, _ := domain.ValidatePagination(input.Limit, 0)

	if input.Name != "" {
		return uc.eventRepo.ListByName(ctx, input.TenantID, input.Name, input.AfterSequence, limit)
	}

	return uc.eventRepo.ListAfter(ctx, input.TenantID, input.AfterSequence, limit)
}

// Replay streams the tenant's full history in sequence order to fn,
// stopping on the first error. Consumers rebuild projections with it.
func (uc *EventUseCase) Replay(ctx context.Context, tenantID string, fromSequence int64, fn func(*domain.DomainEvent) error) error {
	const pageSize = 500

	after := fromSequence

	for {
		events, err := uc.eventRepo.ListAfter(ctx, tenantID, after, pageSize)
		if err != nil {
			return err
		}

		if len(events) == 0 {
			return nil
		}

		for _, event := range events {
			if err := fn(event); err != nil {
				return err
			}

			after = event.Sequence
		}
	}
}

// Subscribe streams events after fromSequence onto the returned channel,
// polling for new ones until ctx is cancelled. The cursor is the last
// delivered sequence, so a consumer can resume by resubscribing from it.
func (uc *EventUseCase) Subscribe(ctx context.Context, tenantID string, fromSequence int64, pollInterval time.Duration) <-chan *domain.DomainEvent {
	const pageSize = 200

	out := make(chan *domain.DomainEvent)

	go func() {
		defer close(out)

		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		after := fromSequence

		for {
			events, err := uc.eventRepo.ListAfter(ctx, tenantID, after, pageSize)
			if err == nil {
				for _, event := range events {
					select {
					case out <- event:
						after = event.Sequence
					case <-ctx.Done():
						return
					}
				}
			}

			if err != nil || len(events) < pageSize {
				select {
				case <-ticker.C:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
