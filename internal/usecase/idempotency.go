package usecase

import (
	"context"
	"time"

	"github.com/fluxpay/pspcore/internal/domain"
)

// IdempotencyRegistry wraps state-changing operations so that a retried
// request with the same (tenant, kind, key) observes the stored outcome of
// the first attempt instead of re-executing it.
type IdempotencyRegistry struct {
	repo IdempotencyRepository
}

// NewIdempotencyRegistry creates a new IdempotencyRegistry.
func NewIdempotencyRegistry(repo IdempotencyRepository) *IdempotencyRegistry {
	return &IdempotencyRegistry{repo: repo}
}

// Execute runs compute under the idempotency claim inside the given
// transaction. The first caller claims the key, runs compute and stores its
// result; any later caller gets the stored result back without running
// compute. Two concurrent first attempts race on the claim row: the loser
// gets ErrConcurrentRetry and should retry after the winner commits.
//
// compute failures are NOT recorded. The claim row rolls back with the
// enclosing transaction, so a failed attempt can be retried with the same
// key.
func (r *IdempotencyRegistry) Execute(
	ctx context.Context,
	tx Transaction,
	tenantID, kind, key string,
	compute func() ([]byte, error),
) ([]byte, bool, error) {
	rec, err := r.repo.GetTx(ctx, tx, tenantID, kind, key)
	if err != nil {
		return nil, false, err
	}

	if rec != nil {
		if rec.Completed() {
			return rec.Result, true, nil
		}
		// Claimed but not completed: a concurrent attempt committed its
		// claim and died, or is still in flight on another connection.
		return nil, false, domain.ErrConcurrentRetry
	}

	now := time.Now().UTC()

	claimed, err := r.repo.ClaimTx(ctx, tx, tenantID, kind, key, now)
	if err != nil {
		return nil, false, err
	}

	if !claimed {
		// Lost the race. The winner's result becomes visible after it
		// commits; look again before giving up.
		rec, err = r.repo.GetTx(ctx, tx, tenantID, kind, key)
		if err != nil {
			return nil, false, err
		}

		if rec != nil && rec.Completed() {
			return rec.Result, true, nil
		}

		return nil, false, domain.ErrConcurrentRetry
	}

	result, err := compute()
	if err != nil {
		return nil, false, err
	}

	if err := r.repo.SaveResultTx(ctx, tx, tenantID, kind, key, result, time.Now().UTC()); err != nil {
		return nil, false, err
	}

	return result, false, nil
}
