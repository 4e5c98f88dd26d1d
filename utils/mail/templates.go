package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/joy095/reservation/models/booking_models"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Notification kinds, also used as routing keys on the queue.
const (
	KindBookingPending   = "booking.pending"
	KindBookingConfirmed = "booking.confirmed"
	KindOperatorNotice   = "booking.confirmed.operator"
	KindBookingCancelled = "booking.cancelled"
	KindContact          = "contact.message"
)

type bookingView struct {
	BookingID       string
	GuestName       string
	GuestEmail      string
	GuestPhone      string
	RoomID          string
	CheckIn         string
	CheckOut        string
	Nights          int
	Guests          int
	Amount          string
	OrderID         string
	PaymentID       string
	SpecialRequests string
	HoldExpiresAt   string
}

func viewOf(b *booking_models.Booking) bookingView {
	v := bookingView{
		BookingID:       b.ID.String(),
		GuestName:       b.FullName,
		GuestEmail:      b.Email,
		GuestPhone:      b.Phone,
		RoomID:          b.RoomID,
		CheckIn:         b.CheckIn.Format(booking_models.DateLayout),
		CheckOut:        b.CheckOut.Format(booking_models.DateLayout),
		Nights:          b.Nights(),
		Guests:          b.Guests,
		Amount:          FormatAmount(b.Amount, b.Currency),
		OrderID:         b.PaymentOrderID,
		SpecialRequests: b.SpecialRequests,
		HoldExpiresAt:   b.HoldExpiresAt.Format("2006-01-02 15:04 MST"),
	}
	if b.PaymentID != nil {
		v.PaymentID = *b.PaymentID
	}
	return v
}

// FormatAmount renders an amount in the smallest currency unit as major units.
func FormatAmount(amount int64, currency string) string {
	sign := ""
	if amount < 0 {
		sign, amount = "-", -amount
	}
	return fmt.Sprintf("%s %s%d.%02d", currency, sign, amount/100, amount%100)
}

func render(name string, data any) (string, error) {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, name, data); err != nil {
		return "", fmt.Errorf("failed to execute email template %s: %w", name, err)
	}
	return body.String(), nil
}

func bookingMessage(kind, to, subject, tmpl string, b *booking_models.Booking) (Message, error) {
	body, err := render(tmpl, viewOf(b))
	if err != nil {
		return Message{}, err
	}
	return Message{Kind: kind, To: to, Subject: subject, Body: body}, nil
}

// PendingPayment is sent to the guest when a hold is created.
func PendingPayment(b *booking_models.Booking) (Message, error) {
	return bookingMessage(KindBookingPending, b.Email, "Booking Created - Payment Pending", "booking_pending.html", b)
}

// Confirmed is sent to the guest once payment is reconciled.
func Confirmed(b *booking_models.Booking) (Message, error) {
	return bookingMessage(KindBookingConfirmed, b.Email, "Booking Confirmed", "booking_confirmed.html", b)
}

// OperatorNotice tells the property about a confirmed booking.
func OperatorNotice(b *booking_models.Booking, operatorEmail string) (Message, error) {
	subject := fmt.Sprintf("New booking %s for room %s", b.ID, b.RoomID)
	return bookingMessage(KindOperatorNotice, operatorEmail, subject, "booking_confirmed_operator.html", b)
}

// Cancelled is sent to the guest after a staff cancellation.
func Cancelled(b *booking_models.Booking) (Message, error) {
	return bookingMessage(KindBookingCancelled, b.Email, "Booking Cancelled", "booking_cancelled.html", b)
}

// Contact relays a contact form submission to the operator.
func Contact(operatorEmail, name, email, message string) (Message, error) {
	body, err := render("contact.html", struct{ Name, Email, Message string }{name, email, message})
	if err != nil {
		return Message{}, err
	}
	return Message{
		Kind:    KindContact,
		To:      operatorEmail,
		Subject: "Contact form: " + name,
		Body:    body,
	}, nil
}
