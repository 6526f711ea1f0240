package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fluxpay/pspcore/internal/domain"
	"github.com/fluxpay/pspcore/internal/usecase"
)

// EventRepository implements usecase.EventRepository on an append-only
// domain_events table with a per-tenant sequence row.
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// nextSequence bumps and returns the tenant's sequence counter. The upsert
// row is locked until the enclosing transaction ends, which is what makes
// sequences gapless and totally ordered per tenant.
const nextSequence = `
INSERT INTO event_sequences (tenant_id, last_sequence)
VALUES ($1, 1)
ON CONFLICT (tenant_id)
DO UPDATE SET last_sequence = event_sequences.last_sequence + 1
RETURNING last_sequence
`

const insertEvent = `
INSERT INTO domain_events (id, tenant_id, sequence, name, version, payload, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// AppendTx assigns the next per-tenant sequence and stores the event inside
// the caller's transaction.
func (r *EventRepository) AppendTx(ctx context.Context, tx usecase.Transaction, event *domain.DomainEvent) error {
	pgxTx := pgxTxOf(tx)

	var seq int64
	if err := pgxTx.QueryRow(ctx, nextSequence, event.TenantID).Scan(&seq); err != nil {
		return err
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	_, err = pgxTx.Exec(ctx, insertEvent,
		event.ID, event.TenantID, seq, event.Name, event.Version,
		payload, timeToPgTimestamptz(event.CreatedAt),
	)
	if err != nil {
		return err
	}

	event.Sequence = seq

	return nil
}

const selectEvents = `
SELECT id, tenant_id, sequence, name, version, payload, created_at
FROM domain_events
`

// ListAfter pages events in sequence order, strictly after afterSequence.
func (r *EventRepository) ListAfter(ctx context.Context, tenantID string, afterSequence int64, limit int) ([]*domain.DomainEvent, error) {
	rows, err := r.pool.Query(ctx,
		selectEvents+" WHERE tenant_id = $1 AND sequence > $2 ORDER BY sequence LIMIT $3",
		tenantID, afterSequence, int32(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEvents(rows)
}

// ListByName pages events of one name in sequence order.
func (r *EventRepository) ListByName(ctx context.Context, tenantID, name string, afterSequence int64, limit int) ([]*domain.DomainEvent, error) {
	rows, err := r.pool.Query(ctx,
		selectEvents+" WHERE tenant_id = $1 AND name = $2 AND sequence > $3 ORDER BY sequence LIMIT $4",
		tenantID, name, afterSequence, int32(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEvents(rows)
}

func collectEvents(rows pgx.Rows) ([]*domain.DomainEvent, error) {
	var events []*domain.DomainEvent

	for rows.Next() {
		var (
			event   domain.DomainEvent
			payload []byte
		)

		err := rows.Scan(
			&event.ID, &event.TenantID, &event.Sequence, &event.Name,
			&event.Version, &payload, &event.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &event.Payload); err != nil {
				return nil, err
			}
		}

		events = append(events, &event)
	}

	return events, rows.Err()
}
