package order_controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/reservation/badwords"
	"github.com/joy095/reservation/clients"
	"github.com/joy095/reservation/controllers/availability_controller"
	"github.com/joy095/reservation/logger"
	"github.com/joy095/reservation/models/booking_models"
	"github.com/joy095/reservation/utils"
	"github.com/joy095/reservation/utils/mail"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const defaultAdmitTimeout = 10 * time.Second

var tracer = otel.Tracer("reservation/order")

// Config holds the pricing and hold policy.
type Config struct {
	TaxRateBps   int64
	Currency     string
	HoldTTL      time.Duration
	AdmitTimeout time.Duration
}

// Service opens gateway orders and admits the matching holds.
type Service struct {
	Availability *availability_controller.Service
	Ledger       booking_models.Ledger
	Gateway      clients.Gateway
	Notifier     mail.Dispatcher
	BadWords     *badwords.List
	Config       Config
}

func NewService(availability *availability_controller.Service, ledger booking_models.Ledger, gateway clients.Gateway,
	notifier mail.Dispatcher, words *badwords.List, cfg Config) *Service {
	if cfg.AdmitTimeout <= 0 {
		cfg.AdmitTimeout = defaultAdmitTimeout
	}
	return &Service{
		Availability: availability,
		Ledger:       ledger,
		Gateway:      gateway,
		Notifier:     notifier,
		BadWords:     words,
		Config:       cfg,
	}
}

// Request is a booking form submission.
type Request struct {
	Guest           booking_models.Guest
	RoomID          string
	CheckIn         time.Time
	CheckOut        time.Time
	Guests          int
	SpecialRequests string
}

// Result is what the client needs to open the gateway checkout.
type Result struct {
	BookingID      uuid.UUID              `json:"booking_id"`
	GatewayOrderID string                 `json:"gateway_order_id"`
	Amount         int64                  `json:"amount"`
	Currency       string                 `json:"currency"`
	KeyID          string                 `json:"key_id"`
	Charges        booking_models.Charges `json:"charges"`
	HoldExpiresAt  time.Time              `json:"hold_expires_at"`
}

// Quote prices a stay without reserving anything.
func (s *Service) Quote(ctx context.Context, roomID string, checkIn, checkOut time.Time) (booking_models.Charges, error) {
	room, err := s.Availability.ValidateStay(ctx, roomID, checkIn, checkOut)
	if err != nil {
		return booking_models.Charges{}, err
	}
	nights := booking_models.NightsBetween(checkIn, checkOut)
	return booking_models.ComputeCharges(nights, room.NightlyPrice, s.Config.TaxRateBps), nil
}

func (s *Service) validate(req *Request) error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"full_name", req.Guest.FullName},
		{"email", req.Guest.Email},
		{"phone", req.Guest.Phone},
		{"room_id", req.RoomID},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if req.CheckIn.IsZero() {
		missing = append(missing, "check_in")
	}
	if req.CheckOut.IsZero() {
		missing = append(missing, "check_out")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", utils.ErrMissingField, strings.Join(missing, ", "))
	}
	if s.BadWords.ContainsBadWords(req.Guest.FullName) || s.BadWords.ContainsBadWords(req.SpecialRequests) {
		return utils.ErrInappropriateContent
	}
	return nil
}

// CreateProvisionalBooking prices the stay, mints a gateway order and admits a
// pending_payment hold for it. A gateway failure leaves no booking behind.
func (s *Service) CreateProvisionalBooking(ctx context.Context, req Request) (*Result, error) {
	ctx, span := tracer.Start(ctx, "CreateProvisionalBooking")
	defer span.End()
	span.SetAttributes(attribute.String("room.id", req.RoomID))

	logger.InfoLogger.Infof("CreateProvisionalBooking called for room %s [%s, %s) guests=%d",
		req.RoomID, req.CheckIn.Format(booking_models.DateLayout), req.CheckOut.Format(booking_models.DateLayout), req.Guests)

	fail := func(err error) (*Result, error) {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.validate(&req); err != nil {
		return fail(err)
	}

	room, err := s.Availability.ValidateStay(ctx, req.RoomID, req.CheckIn, req.CheckOut)
	if err != nil {
		return fail(err)
	}
	if req.Guests < 1 || req.Guests > room.Capacity {
		return fail(fmt.Errorf("%w: room %s takes 1 to %d guests, got %d",
			booking_models.ErrInvalidGuestCount, room.ID, room.Capacity, req.Guests))
	}

	// Cheap early rejection so an obviously taken range never mints a gateway
	// order. Ledger admission below is still the deciding check.
	available, err := s.Availability.CheckAvailability(ctx, req.RoomID, req.CheckIn, req.CheckOut)
	if err != nil {
		return fail(err)
	}
	if !available {
		logger.WarnLogger.Warnf("Room %s unavailable for [%s, %s), rejecting before gateway order",
			req.RoomID, req.CheckIn.Format(booking_models.DateLayout), req.CheckOut.Format(booking_models.DateLayout))
		return fail(booking_models.ErrOverlapRejected)
	}

	charges := booking_models.ComputeCharges(booking_models.NightsBetween(req.CheckIn, req.CheckOut), room.NightlyPrice, s.Config.TaxRateBps)
	now := s.Availability.Now()
	hold, err := booking_models.NewHold(req.Guest, room.ID, req.CheckIn, req.CheckOut, req.Guests, charges, s.Config.Currency, now, s.Config.HoldTTL)
	if err != nil {
		return fail(err)
	}
	hold.SpecialRequests = strings.TrimSpace(req.SpecialRequests)

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	receipt := "rcpt_" + strings.ReplaceAll(hold.ID.String(), "-", "")
	orderID, err := s.Gateway.OpenOrder(ctx, charges.Total, s.Config.Currency, receipt)
	if err != nil {
		return fail(err)
	}
	hold.PaymentOrderID = orderID
	span.SetAttributes(attribute.String("gateway.order_id", orderID))

	// The gateway order exists now; a client that goes away must not strand it without its hold.
	admitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.Config.AdmitTimeout)
	defer cancel()
	if err := s.Ledger.Admit(admitCtx, hold); err != nil {
		if errors.Is(err, booking_models.ErrOverlapRejected) {
			logger.WarnLogger.Warnf("Admission rejected for room %s, gateway order %s left unused", room.ID, orderID)
		} else {
			logger.ErrorLogger.Errorf("Failed to admit hold for gateway order %s: %v", orderID, err)
		}
		return fail(err)
	}

	s.notify(hold)

	return &Result{
		BookingID:      hold.ID,
		GatewayOrderID: orderID,
		Amount:         charges.Total,
		Currency:       s.Config.Currency,
		KeyID:          s.Gateway.KeyID(),
		Charges:        charges,
		HoldExpiresAt:  hold.HoldExpiresAt,
	}, nil
}

func (s *Service) notify(b *booking_models.Booking) {
	if s.Notifier == nil {
		return
	}
	msg, err := mail.PendingPayment(b)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to render pending notification for booking %s: %v", b.ID, err)
		return
	}
	s.Notifier.Dispatch(msg)
}

// OrderController serves booking creation over HTTP.
type OrderController struct {
	Service *Service
}

func NewOrderController(s *Service) *OrderController {
	return &OrderController{Service: s}
}

type CreateBookingRequest struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email" binding:"omitempty,email"`
	Phone           string `json:"phone"`
	RoomID          string `json:"room_id"`
	CheckIn         string `json:"check_in"`
	CheckOut        string `json:"check_out"`
	Guests          int    `json:"guests"`
	SpecialRequests string `json:"special_requests" binding:"max=1000"`
}

func parseOptionalDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	return booking_models.ParseDate(s)
}

// CreateBooking handles POST /api/bookings.
func (oc *OrderController) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.ErrorLogger.Errorf("Invalid booking request: %v", err)
		utils.BadRequest(c, "invalid request body")
		return
	}

	checkIn, err := parseOptionalDate(req.CheckIn)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	checkOut, err := parseOptionalDate(req.CheckOut)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	result, err := oc.Service.CreateProvisionalBooking(c.Request.Context(), Request{
		Guest:           booking_models.Guest{FullName: req.FullName, Email: req.Email, Phone: req.Phone},
		RoomID:          req.RoomID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Guests:          req.Guests,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"booking": result,
	})
}
