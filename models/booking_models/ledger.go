package booking_models

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Ledger is the authoritative store of bookings. Implementations enforce the
// non-overlap invariant and the status transitions themselves; callers never
// re-check and then write.
type Ledger interface {
	// Admit persists a new hold. Expired holds overlapping it on the same room
	// are released in the same unit of work. Returns ErrOverlapRejected when
	// another active booking holds any of the nights.
	Admit(ctx context.Context, b *Booking) error

	// Overlapping returns bookings on roomID that block [checkIn, checkOut) at now.
	Overlapping(ctx context.Context, roomID string, checkIn, checkOut, now time.Time) ([]Booking, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	GetByOrderID(ctx context.Context, orderID string) (*Booking, error)

	// Confirm moves the booking for orderID from pending_payment to
	// confirmed/paid. transitioned is true only for the call that performed
	// the move; a replay with the same paymentID returns the booking with
	// transitioned=false.
	Confirm(ctx context.Context, orderID, paymentID string, at time.Time) (b *Booking, transitioned bool, err error)

	// Cancel moves a pending or confirmed booking to cancelled.
	Cancel(ctx context.Context, id uuid.UUID, reason string, at time.Time) (*Booking, error)

	// ExpireHolds cancels every pending hold whose expiry is at or before now.
	ExpireHolds(ctx context.Context, now time.Time) (int, error)

	// List returns bookings newest-first by creation order.
	List(ctx context.Context, f Filter) ([]Booking, error)

	// Stats aggregates the whole ledger; Today counts bookings created in [dayStart, dayEnd).
	Stats(ctx context.Context, dayStart, dayEnd time.Time) (Stats, error)
}

var (
	_ Ledger = (*PgLedger)(nil)
	_ Ledger = (*MemoryLedger)(nil)
)
