package booking_models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joy095/reservation/logger"
)

// Postgres error codes the ledger translates.
const (
	pgExclusionViolation = "23P01"
	pgUniqueViolation    = "23505"

	constraintOrderUnique   = "bookings_payment_order_id_key"
	constraintPaymentUnique = "bookings_payment_id_key"
)

const bookingColumns = `
	id, full_name, email, phone, room_id, check_in, check_out, guests, special_requests,
	room_charges, tax, amount, currency, booking_status, payment_status, payment_order_id,
	payment_id, hold_expires_at, confirmed_at, cancelled_at, cancellation_reason, created_at, updated_at`

// PgLedger keeps bookings in Postgres. The bookings_no_overlap exclusion
// constraint is the admission guarantee; status moves are conditional updates.
type PgLedger struct {
	DB *pgxpool.Pool
}

// NewPgLedger wraps an open pool.
func NewPgLedger(db *pgxpool.Pool) *PgLedger {
	return &PgLedger{DB: db}
}

func (l *PgLedger) Admit(ctx context.Context, b *Booking) error {
	logger.InfoLogger.Infof("Admitting hold for room %s [%s, %s) order %s",
		b.RoomID, b.CheckIn.Format(DateLayout), b.CheckOut.Format(DateLayout), b.PaymentOrderID)

	tx, err := l.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin admission: %w", err)
	}
	defer tx.Rollback(ctx)

	released, err := tx.Exec(ctx, `
		UPDATE bookings
		SET booking_status = 'cancelled', cancelled_at = $4, cancellation_reason = $5, updated_at = $4
		WHERE room_id = $1
		  AND booking_status = 'pending_payment'
		  AND hold_expires_at <= $4
		  AND check_in < $3 AND check_out > $2`,
		b.RoomID, b.CheckIn, b.CheckOut, b.CreatedAt, ReasonHoldExpired)
	if err != nil {
		return fmt.Errorf("failed to release expired holds: %w", err)
	}
	if n := released.RowsAffected(); n > 0 {
		logger.InfoLogger.Infof("Released %d expired hold(s) on room %s during admission", n, b.RoomID)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO bookings (
			id, full_name, email, phone, room_id, check_in, check_out, guests, special_requests,
			room_charges, tax, amount, currency, booking_status, payment_status, payment_order_id,
			hold_expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		b.ID, b.FullName, b.Email, b.Phone, b.RoomID, b.CheckIn, b.CheckOut, b.Guests, b.SpecialRequests,
		b.RoomCharges, b.Tax, b.Amount, b.Currency, string(b.BookingStatus), string(b.PaymentStatus), b.PaymentOrderID,
		b.HoldExpiresAt, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return translate(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return translate(err)
	}
	logger.InfoLogger.Infof("Booking %s admitted for room %s", b.ID, b.RoomID)
	return nil
}

func (l *PgLedger) Overlapping(ctx context.Context, roomID string, checkIn, checkOut, now time.Time) ([]Booking, error) {
	rows, err := l.DB.Query(ctx, `
		SELECT`+bookingColumns+`
		FROM bookings
		WHERE room_id = $1
		  AND check_in < $3 AND check_out > $2
		  AND (booking_status = 'confirmed'
		       OR (booking_status = 'pending_payment' AND hold_expires_at > $4))
		ORDER BY check_in`,
		roomID, checkIn, checkOut, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query overlapping bookings: %w", err)
	}
	return collect(rows)
}

func (l *PgLedger) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, err := scanBooking(l.DB.QueryRow(ctx, `SELECT`+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database error fetching booking %s: %w", id, err)
	}
	return b, nil
}

func (l *PgLedger) GetByOrderID(ctx context.Context, orderID string) (*Booking, error) {
	b, err := scanBooking(l.DB.QueryRow(ctx, `SELECT`+bookingColumns+` FROM bookings WHERE payment_order_id = $1`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database error fetching order %s: %w", orderID, err)
	}
	return b, nil
}

func (l *PgLedger) Confirm(ctx context.Context, orderID, paymentID string, at time.Time) (*Booking, bool, error) {
	b, err := scanBooking(l.DB.QueryRow(ctx, `
		UPDATE bookings
		SET booking_status = 'confirmed', payment_status = 'paid', payment_id = $2,
		    confirmed_at = $3, updated_at = $3
		WHERE payment_order_id = $1 AND booking_status = 'pending_payment'
		RETURNING`+bookingColumns,
		orderID, paymentID, at))
	if err == nil {
		logger.InfoLogger.Infof("Order %s confirmed with payment %s", orderID, paymentID)
		return b, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, translate(err)
	}

	// Nothing moved: classify the replay against the current row.
	current, err := l.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	switch current.BookingStatus {
	case BookingStatusConfirmed:
		if current.PaymentID != nil && *current.PaymentID == paymentID {
			return current, false, nil
		}
		return current, false, ErrPaymentConflict
	case BookingStatusCancelled:
		return current, false, ErrBookingCancelled
	default:
		return nil, false, fmt.Errorf("order %s in unexpected state %s after confirm", orderID, current.BookingStatus)
	}
}

func (l *PgLedger) Cancel(ctx context.Context, id uuid.UUID, reason string, at time.Time) (*Booking, error) {
	b, err := scanBooking(l.DB.QueryRow(ctx, `
		UPDATE bookings
		SET booking_status = 'cancelled', cancelled_at = $3, cancellation_reason = $2, updated_at = $3
		WHERE id = $1 AND booking_status <> 'cancelled'
		RETURNING`+bookingColumns,
		id, reason, at))
	if err == nil {
		logger.InfoLogger.Infof("Booking %s cancelled (%s)", id, reason)
		return b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to cancel booking %s: %w", id, err)
	}

	current, err := l.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return current, ErrAlreadyCancelled
}

func (l *PgLedger) ExpireHolds(ctx context.Context, now time.Time) (int, error) {
	tag, err := l.DB.Exec(ctx, `
		UPDATE bookings
		SET booking_status = 'cancelled', cancelled_at = $1, cancellation_reason = $2, updated_at = $1
		WHERE booking_status = 'pending_payment' AND hold_expires_at <= $1`,
		now, ReasonHoldExpired)
	if err != nil {
		return 0, fmt.Errorf("failed to expire holds: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (l *PgLedger) List(ctx context.Context, f Filter) ([]Booking, error) {
	f = f.Normalize()

	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("booking_status = $%d", string(f.Status))
	}
	if f.RoomID != "" {
		add("room_id = $%d", f.RoomID)
	}
	if f.Email != "" {
		add("LOWER(email) = $%d", f.Email)
	}

	query := `SELECT` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := l.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return collect(rows)
}

func (l *PgLedger) Stats(ctx context.Context, dayStart, dayEnd time.Time) (Stats, error) {
	var s Stats
	err := l.DB.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE created_at >= $1 AND created_at < $2),
			COUNT(*) FILTER (WHERE booking_status = 'confirmed'),
			COALESCE(SUM(amount) FILTER (WHERE booking_status = 'confirmed'), 0)
		FROM bookings`,
		dayStart, dayEnd).Scan(&s.Total, &s.Today, &s.Confirmed, &s.Revenue)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to compute booking stats: %w", err)
	}
	return s, nil
}

// translate maps constraint violations onto the ledger's sentinel errors.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgExclusionViolation:
		return ErrOverlapRejected
	case pgUniqueViolation:
		switch pgErr.ConstraintName {
		case constraintOrderUnique:
			return ErrDuplicateOrder
		case constraintPaymentUnique:
			return ErrPaymentConflict
		}
	}
	return fmt.Errorf("booking store error: %w", err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*Booking, error) {
	var (
		b             Booking
		bookingStatus string
		paymentStatus string
	)
	err := row.Scan(
		&b.ID, &b.FullName, &b.Email, &b.Phone, &b.RoomID, &b.CheckIn, &b.CheckOut, &b.Guests, &b.SpecialRequests,
		&b.RoomCharges, &b.Tax, &b.Amount, &b.Currency, &bookingStatus, &paymentStatus, &b.PaymentOrderID,
		&b.PaymentID, &b.HoldExpiresAt, &b.ConfirmedAt, &b.CancelledAt, &b.CancellationReason, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.BookingStatus = BookingStatus(bookingStatus)
	b.PaymentStatus = PaymentStatus(paymentStatus)
	return &b, nil
}

func collect(rows pgx.Rows) ([]Booking, error) {
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}
	return out, nil
}
