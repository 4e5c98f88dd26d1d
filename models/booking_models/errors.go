package booking_models

import "errors"

var (
	ErrInvalidRange      = errors.New("invalid date range")
	ErrInvalidGuestCount = errors.New("invalid guest count")
	ErrOverlapRejected   = errors.New("room unavailable for the requested dates")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrAlreadyCancelled  = errors.New("booking is already cancelled")
	ErrOrderNotFound     = errors.New("no booking matches the payment order")
	ErrPaymentConflict   = errors.New("order already settled by a different payment")
	ErrBookingCancelled  = errors.New("booking was cancelled before payment was recorded")
	ErrDuplicateOrder    = errors.New("payment order is already attached to a booking")
)
