package availability_controller

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joy095/reservation/logger"
	"github.com/joy095/reservation/models/booking_models"
	"github.com/joy095/reservation/models/room_models"
	"github.com/joy095/reservation/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("reservation/availability")

// Service answers whether a room is free for a stay.
type Service struct {
	Rooms    room_models.Catalog
	Ledger   booking_models.Ledger
	Location *time.Location
	Now      func() time.Time
	// MaxStayNights caps a single stay; zero means booking_models.DefaultMaxStayNights.
	MaxStayNights int
}

// NewService reads "today" in loc, the property's time zone.
func NewService(rooms room_models.Catalog, ledger booking_models.Ledger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{Rooms: rooms, Ledger: ledger, Location: loc, Now: time.Now}
}

// Today is the current calendar date at the property.
func (s *Service) Today() time.Time {
	return booking_models.DateOf(s.Now(), s.Location)
}

// ValidateStay checks the range and that the room exists.
func (s *Service) ValidateStay(ctx context.Context, roomID string, checkIn, checkOut time.Time) (*room_models.Room, error) {
	if err := booking_models.ValidateRange(checkIn, checkOut, s.Today(), s.MaxStayNights); err != nil {
		return nil, err
	}
	return s.Rooms.Get(ctx, roomID)
}

// CheckAvailability reports whether no blocking booking overlaps
// [checkIn, checkOut) on roomID. It is advisory: admission itself is decided
// by the ledger.
func (s *Service) CheckAvailability(ctx context.Context, roomID string, checkIn, checkOut time.Time) (bool, error) {
	ctx, span := tracer.Start(ctx, "CheckAvailability")
	defer span.End()
	span.SetAttributes(
		attribute.String("room.id", roomID),
		attribute.String("stay.check_in", checkIn.Format(booking_models.DateLayout)),
		attribute.String("stay.check_out", checkOut.Format(booking_models.DateLayout)),
	)

	logger.InfoLogger.Infof("CheckAvailability called for room %s [%s, %s)",
		roomID, checkIn.Format(booking_models.DateLayout), checkOut.Format(booking_models.DateLayout))

	if _, err := s.ValidateStay(ctx, roomID, checkIn, checkOut); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	blocking, err := s.Ledger.Overlapping(ctx, roomID, checkIn, checkOut, s.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ledger query failed")
		logger.ErrorLogger.Errorf("Availability query for room %s failed: %v", roomID, err)
		return false, fmt.Errorf("failed to check availability: %w", err)
	}

	available := len(blocking) == 0
	span.SetAttributes(attribute.Bool("stay.available", available))
	return available, nil
}

// AvailabilityController serves availability over HTTP.
type AvailabilityController struct {
	Service *Service
}

func NewAvailabilityController(s *Service) *AvailabilityController {
	return &AvailabilityController{Service: s}
}

type availabilityQuery struct {
	RoomID   string `form:"room_id" binding:"required"`
	CheckIn  string `form:"check_in" binding:"required"`
	CheckOut string `form:"check_out" binding:"required"`
}

// ParseStay parses a pair of YYYY-MM-DD dates.
func ParseStay(checkIn, checkOut string) (time.Time, time.Time, error) {
	in, err := booking_models.ParseDate(checkIn)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	out, err := booking_models.ParseDate(checkOut)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return in, out, nil
}

// CheckAvailability handles GET /api/availability.
func (ac *AvailabilityController) CheckAvailability(c *gin.Context) {
	var q availabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.BadRequest(c, "room_id, check_in and check_out are required")
		return
	}
	checkIn, checkOut, err := ParseStay(q.CheckIn, q.CheckOut)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	available, err := ac.Service.CheckAvailability(c.Request.Context(), q.RoomID, checkIn, checkOut)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"room_id":   q.RoomID,
		"check_in":  q.CheckIn,
		"check_out": q.CheckOut,
		"available": available,
	})
}
