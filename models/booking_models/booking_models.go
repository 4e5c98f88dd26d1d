package booking_models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the lifecycle state owned by the ledger.
type BookingStatus string

const (
	BookingStatusPendingPayment BookingStatus = "pending_payment"
	BookingStatusConfirmed      BookingStatus = "confirmed"
	BookingStatusCancelled      BookingStatus = "cancelled"
)

// PaymentStatus tracks whether the gateway has settled the order.
type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

// Cancellation reasons recorded on the row.
const (
	ReasonHoldExpired = "hold_expired"
	ReasonStaffCancel = "cancelled_by_staff"
)

// DateLayout is the wire form of check-in and check-out dates.
const DateLayout = "2006-01-02"

// DefaultMaxStayNights caps a single stay when no limit is configured.
const DefaultMaxStayNights = 365

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Booking is a reservation of one room for the nights [CheckIn, CheckOut).
// Amounts are in the smallest currency unit.
type Booking struct {
	ID                 uuid.UUID     `json:"id"`
	FullName           string        `json:"full_name"`
	Email              string        `json:"email"`
	Phone              string        `json:"phone"`
	RoomID             string        `json:"room_id"`
	CheckIn            time.Time     `json:"check_in"`
	CheckOut           time.Time     `json:"check_out"`
	Guests             int           `json:"guests"`
	SpecialRequests    string        `json:"special_requests,omitempty"`
	RoomCharges        int64         `json:"room_charges"`
	Tax                int64         `json:"tax"`
	Amount             int64         `json:"amount"`
	Currency           string        `json:"currency"`
	BookingStatus      BookingStatus `json:"booking_status"`
	PaymentStatus      PaymentStatus `json:"payment_status"`
	PaymentOrderID     string        `json:"payment_order_id"`
	PaymentID          *string       `json:"payment_id,omitempty"`
	HoldExpiresAt      time.Time     `json:"hold_expires_at"`
	ConfirmedAt        *time.Time    `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty"`
	CancellationReason *string       `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// Guest holds the contact fields captured on the booking form.
type Guest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// NewHold builds a pending_payment booking. PaymentOrderID is attached once the
// gateway has minted the order. The hold stops blocking its dates once holdTTL
// has elapsed without payment.
func NewHold(guest Guest, roomID string, checkIn, checkOut time.Time, guests int, charges Charges, currency string, now time.Time, holdTTL time.Duration) (*Booking, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID for booking: %w", err)
	}
	return &Booking{
		ID:            id,
		FullName:      strings.TrimSpace(guest.FullName),
		Email:         strings.TrimSpace(guest.Email),
		Phone:         strings.TrimSpace(guest.Phone),
		RoomID:        roomID,
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		Guests:        guests,
		RoomCharges:   charges.RoomCharges,
		Tax:           charges.Tax,
		Amount:        charges.Total,
		Currency:      currency,
		BookingStatus: BookingStatusPendingPayment,
		PaymentStatus: PaymentStatusUnpaid,
		HoldExpiresAt: now.Add(holdTTL),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Overlaps is the strict half-open interval test used for admission.
func Overlaps(aIn, aOut, bIn, bOut time.Time) bool {
	return aIn.Before(bOut) && aOut.After(bIn)
}

// Active reports whether the booking is part of the overlap universe.
func (b *Booking) Active() bool {
	return b.BookingStatus == BookingStatusPendingPayment || b.BookingStatus == BookingStatusConfirmed
}

// Blocks reports whether the booking still holds its dates at now. An unpaid
// hold past its expiry no longer blocks, even before the sweeper releases it.
func (b *Booking) Blocks(now time.Time) bool {
	switch b.BookingStatus {
	case BookingStatusConfirmed:
		return true
	case BookingStatusPendingPayment:
		return b.HoldExpiresAt.After(now)
	default:
		return false
	}
}

// HoldExpired reports whether a pending hold may be released at now.
func (b *Booking) HoldExpired(now time.Time) bool {
	return b.BookingStatus == BookingStatusPendingPayment && !b.HoldExpiresAt.After(now)
}

// Nights returns the number of nights in the stay.
func (b *Booking) Nights() int {
	return NightsBetween(b.CheckIn, b.CheckOut)
}

// NightsBetween counts calendar nights between two dates. It works on Unix
// seconds so ranges longer than a time.Duration still count correctly.
func NightsBetween(checkIn, checkOut time.Time) int {
	return int((checkOut.Unix() - checkIn.Unix()) / 86400)
}

// ParseDate parses a YYYY-MM-DD calendar date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a YYYY-MM-DD date", ErrInvalidRange, s)
	}
	return d, nil
}

// DateOf returns the calendar date of t in loc, as UTC midnight.
func DateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ValidateRange enforces check_in < check_out, no stay starting before today
// and at most maxNights nights. maxNights <= 0 means DefaultMaxStayNights.
func ValidateRange(checkIn, checkOut, today time.Time, maxNights int) error {
	if !checkIn.Before(checkOut) {
		return fmt.Errorf("%w: check-out must be after check-in", ErrInvalidRange)
	}
	if checkIn.Before(today) {
		return fmt.Errorf("%w: check-in %s is in the past", ErrInvalidRange, checkIn.Format(DateLayout))
	}
	if maxNights <= 0 {
		maxNights = DefaultMaxStayNights
	}
	if nights := NightsBetween(checkIn, checkOut); nights > maxNights {
		return fmt.Errorf("%w: stay of %d nights exceeds the %d night limit", ErrInvalidRange, nights, maxNights)
	}
	return nil
}

// Charges is the priced breakdown of a stay.
type Charges struct {
	Nights       int   `json:"nights"`
	NightlyPrice int64 `json:"nightly_price"`
	RoomCharges  int64 `json:"room_charges"`
	Tax          int64 `json:"tax"`
	Total        int64 `json:"total"`
}

// ComputeCharges prices nights at nightlyPrice plus tax given in basis points.
// Tax is rounded half-up to the smallest currency unit.
func ComputeCharges(nights int, nightlyPrice, taxRateBps int64) Charges {
	roomCharges := int64(nights) * nightlyPrice
	tax := (roomCharges*taxRateBps + 5000) / 10000
	return Charges{
		Nights:       nights,
		NightlyPrice: nightlyPrice,
		RoomCharges:  roomCharges,
		Tax:          tax,
		Total:        roomCharges + tax,
	}
}

// Filter narrows ListBookings. Zero values mean "any".
type Filter struct {
	Status BookingStatus
	RoomID string
	Email  string
	Limit  int
	Offset int
}

// Normalize clamps paging to sane bounds.
func (f Filter) Normalize() Filter {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	return f
}

// Matches applies the filter to a single booking.
func (f Filter) Matches(b *Booking) bool {
	if f.Status != "" && b.BookingStatus != f.Status {
		return false
	}
	if f.RoomID != "" && b.RoomID != f.RoomID {
		return false
	}
	if f.Email != "" && strings.ToLower(b.Email) != f.Email {
		return false
	}
	return true
}

// ParseStatus accepts the wire form of a booking status.
func ParseStatus(s string) (BookingStatus, error) {
	switch BookingStatus(s) {
	case BookingStatusPendingPayment, BookingStatusConfirmed, BookingStatusCancelled:
		return BookingStatus(s), nil
	case "":
		return "", nil
	}
	return "", fmt.Errorf("unknown booking status %q", s)
}

// Stats is the staff dashboard aggregate, recomputed on every read.
// Revenue sums the amount of confirmed bookings.
type Stats struct {
	Total     int64 `json:"total"`
	Today     int64 `json:"today"`
	Confirmed int64 `json:"confirmed"`
	Revenue   int64 `json:"revenue"`
}

func (b *Booking) clone() *Booking {
	c := *b
	if b.PaymentID != nil {
		v := *b.PaymentID
		c.PaymentID = &v
	}
	if b.ConfirmedAt != nil {
		v := *b.ConfirmedAt
		c.ConfirmedAt = &v
	}
	if b.CancelledAt != nil {
		v := *b.CancelledAt
		c.CancelledAt = &v
	}
	if b.CancellationReason != nil {
		v := *b.CancellationReason
		c.CancellationReason = &v
	}
	return &c
}
