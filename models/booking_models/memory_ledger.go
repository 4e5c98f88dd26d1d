package booking_models

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLedger is an in-process Ledger. Admission is serialized per room so
// check and insert form one unit; other rooms proceed in parallel.
type MemoryLedger struct {
	mu        sync.RWMutex
	bookings  map[uuid.UUID]*Booking
	byOrder   map[string]uuid.UUID
	byPayment map[string]uuid.UUID
	seq       []uuid.UUID // creation order
	roomLocks sync.Map    // room id -> *sync.Mutex
}

// NewMemoryLedger returns an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		bookings:  make(map[uuid.UUID]*Booking),
		byOrder:   make(map[string]uuid.UUID),
		byPayment: make(map[string]uuid.UUID),
	}
}

func (l *MemoryLedger) roomLock(roomID string) *sync.Mutex {
	m, _ := l.roomLocks.LoadOrStore(roomID, &sync.Mutex{})
	return m.(*sync.Mutex)
}

func (l *MemoryLedger) Admit(ctx context.Context, b *Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !b.CheckIn.Before(b.CheckOut) {
		return ErrInvalidRange
	}

	lock := l.roomLock(b.RoomID)
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, dup := l.byOrder[b.PaymentOrderID]; dup {
		return ErrDuplicateOrder
	}

	now := b.CreatedAt
	var expired []*Booking
	for _, existing := range l.bookings {
		if existing.RoomID != b.RoomID || !existing.Active() {
			continue
		}
		if !Overlaps(existing.CheckIn, existing.CheckOut, b.CheckIn, b.CheckOut) {
			continue
		}
		if existing.HoldExpired(now) {
			expired = append(expired, existing)
			continue
		}
		return ErrOverlapRejected
	}

	for _, e := range expired {
		cancelInPlace(e, ReasonHoldExpired, now)
	}

	stored := b.clone()
	l.bookings[stored.ID] = stored
	l.byOrder[stored.PaymentOrderID] = stored.ID
	l.seq = append(l.seq, stored.ID)
	return nil
}

func (l *MemoryLedger) Overlapping(ctx context.Context, roomID string, checkIn, checkOut, now time.Time) ([]Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Booking
	for _, id := range l.seq {
		b := l.bookings[id]
		if b.RoomID == roomID && b.Blocks(now) && Overlaps(b.CheckIn, b.CheckOut, checkIn, checkOut) {
			out = append(out, *b.clone())
		}
	}
	return out, nil
}

func (l *MemoryLedger) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	b, ok := l.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return b.clone(), nil
}

func (l *MemoryLedger) GetByOrderID(ctx context.Context, orderID string) (*Booking, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	id, ok := l.byOrder[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return l.bookings[id].clone(), nil
}

func (l *MemoryLedger) Confirm(ctx context.Context, orderID, paymentID string, at time.Time) (*Booking, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	id, ok := l.byOrder[orderID]
	if !ok {
		return nil, false, ErrOrderNotFound
	}
	b := l.bookings[id]

	switch b.BookingStatus {
	case BookingStatusPendingPayment:
		if owner, taken := l.byPayment[paymentID]; taken && owner != b.ID {
			return b.clone(), false, ErrPaymentConflict
		}
		pid := paymentID
		confirmedAt := at
		b.BookingStatus = BookingStatusConfirmed
		b.PaymentStatus = PaymentStatusPaid
		b.PaymentID = &pid
		b.ConfirmedAt = &confirmedAt
		b.UpdatedAt = at
		l.byPayment[paymentID] = b.ID
		return b.clone(), true, nil
	case BookingStatusConfirmed:
		if b.PaymentID != nil && *b.PaymentID == paymentID {
			return b.clone(), false, nil
		}
		return b.clone(), false, ErrPaymentConflict
	default:
		return b.clone(), false, ErrBookingCancelled
	}
}

func (l *MemoryLedger) Cancel(ctx context.Context, id uuid.UUID, reason string, at time.Time) (*Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	if b.BookingStatus == BookingStatusCancelled {
		return b.clone(), ErrAlreadyCancelled
	}
	cancelInPlace(b, reason, at)
	return b.clone(), nil
}

func (l *MemoryLedger) ExpireHolds(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, b := range l.bookings {
		if b.HoldExpired(now) {
			cancelInPlace(b, ReasonHoldExpired, now)
			n++
		}
	}
	return n, nil
}

func (l *MemoryLedger) List(ctx context.Context, f Filter) ([]Booking, error) {
	f = f.Normalize()

	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Booking, 0, f.Limit)
	skipped := 0
	for i := len(l.seq) - 1; i >= 0 && len(out) < f.Limit; i-- {
		b := l.bookings[l.seq[i]]
		if !f.Matches(b) {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		out = append(out, *b.clone())
	}
	return out, nil
}

func (l *MemoryLedger) Stats(ctx context.Context, dayStart, dayEnd time.Time) (Stats, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var s Stats
	for _, b := range l.bookings {
		s.Total++
		if !b.CreatedAt.Before(dayStart) && b.CreatedAt.Before(dayEnd) {
			s.Today++
		}
		if b.BookingStatus == BookingStatusConfirmed {
			s.Confirmed++
			s.Revenue += b.Amount
		}
	}
	return s, nil
}

func cancelInPlace(b *Booking, reason string, at time.Time) {
	r := reason
	cancelledAt := at
	b.BookingStatus = BookingStatusCancelled
	b.CancelledAt = &cancelledAt
	b.CancellationReason = &r
	b.UpdatedAt = at
}
