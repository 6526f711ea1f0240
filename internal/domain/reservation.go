package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReservationStatus string

const (
	ReservationStatusActive   ReservationStatus = "active"
	ReservationStatusReleased ReservationStatus = "released"
	ReservationStatusConsumed ReservationStatus = "consumed"
)

// Reservation is the result of a successful commit-phase funding check.
// It earmarks funds on the funding account until the batch executes
// (consumed) or is abandoned (released).
type Reservation struct {
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ID               string
	TenantID         string
	BatchReference   string
	FundingAccountID string
	IdempotencyKey   string
	Status           ReservationStatus
	ReservedAmount   decimal.Decimal
}

// Consume marks the reservation consumed by payment execution.
func (r *Reservation) Consume(at time.Time) error {
	if r.Status != ReservationStatusActive {
		return ErrReservationNotActive
	}

	r.Status = ReservationStatusConsumed
	r.UpdatedAt = at

	return nil
}

// Release marks an abandoned reservation released.
func (r *Reservation) Release(at time.Time) error {
	if r.Status != ReservationStatusActive {
		return ErrReservationNotActive
	}

	r.Status = ReservationStatusReleased
	r.UpdatedAt = at

	return nil
}
