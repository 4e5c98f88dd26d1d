package admin_controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/reservation/logger"
	"github.com/joy095/reservation/models/admin_models"
	"github.com/joy095/reservation/models/booking_models"
	"github.com/joy095/reservation/utils"
	"github.com/joy095/reservation/utils/jwt_parse"
	"github.com/joy095/reservation/utils/mail"
)

// Service is the staff console's view of the ledger.
type Service struct {
	Ledger   booking_models.Ledger
	Notifier mail.Dispatcher
	Location *time.Location
	Now      func() time.Time
}

func NewService(ledger booking_models.Ledger, notifier mail.Dispatcher, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{Ledger: ledger, Notifier: notifier, Location: loc, Now: time.Now}
}

// CancelBooking cancels a pending or confirmed booking. No refund is issued;
// a paid booking needs a manual refund through the gateway dashboard.
func (s *Service) CancelBooking(ctx context.Context, id uuid.UUID, staff string) (*booking_models.Booking, error) {
	logger.InfoLogger.Infof("CancelBooking called for %s by %s", id, staff)

	b, err := s.Ledger.Cancel(ctx, id, booking_models.ReasonStaffCancel, s.Now())
	if err != nil {
		if errors.Is(err, booking_models.ErrAlreadyCancelled) {
			logger.WarnLogger.Warnf("Booking %s already cancelled", id)
		}
		return b, err
	}
	if b.PaymentStatus == booking_models.PaymentStatusPaid && b.PaymentID != nil {
		logger.WarnLogger.Warnf("Cancelled paid booking %s (payment %s), refund must be issued manually", b.ID, *b.PaymentID)
	}

	if s.Notifier != nil {
		if msg, err := mail.Cancelled(b); err != nil {
			logger.ErrorLogger.Errorf("Failed to render cancellation for booking %s: %v", b.ID, err)
		} else {
			s.Notifier.Dispatch(msg)
		}
	}
	return b, nil
}

// ListBookings returns bookings newest first.
func (s *Service) ListBookings(ctx context.Context, f booking_models.Filter) ([]booking_models.Booking, error) {
	return s.Ledger.List(ctx, f)
}

// GetStats aggregates the ledger. "Today" is the property's current calendar day.
func (s *Service) GetStats(ctx context.Context) (booking_models.Stats, error) {
	now := s.Now().In(s.Location)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.Location)
	return s.Ledger.Stats(ctx, start, start.AddDate(0, 0, 1))
}

// AdminController serves the staff console.
type AdminController struct {
	Service     *Service
	Credentials admin_models.CredentialChecker
	JWTSecret   []byte
	TokenTTL    time.Duration
}

func NewAdminController(s *Service, credentials admin_models.CredentialChecker, jwtSecret []byte, tokenTTL time.Duration) *AdminController {
	return &AdminController{Service: s, Credentials: credentials, JWTSecret: jwtSecret, TokenTTL: tokenTTL}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/admin/login.
func (ac *AdminController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "username and password are required")
		return
	}

	if err := ac.Credentials.Verify(c.Request.Context(), req.Username, req.Password); err != nil {
		if errors.Is(err, admin_models.ErrInvalidCredentials) {
			logger.WarnLogger.Warnf("Failed staff login for %q from %s", req.Username, c.ClientIP())
		}
		utils.RespondError(c, err)
		return
	}

	token, expires, err := jwt_parse.IssueStaffToken(ac.JWTSecret, req.Username, ac.TokenTTL, ac.Service.Now())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	logger.InfoLogger.Infof("Staff %s logged in", req.Username)
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"token":      token,
		"expires_at": expires,
	})
}

func filterFromQuery(c *gin.Context) (booking_models.Filter, error) {
	var f booking_models.Filter
	status, err := booking_models.ParseStatus(c.Query("status"))
	if err != nil {
		return f, err
	}
	f.Status = status
	f.RoomID = c.Query("room_id")
	f.Email = c.Query("email")
	if v := c.Query("limit"); v != "" {
		if f.Limit, err = strconv.Atoi(v); err != nil {
			return f, fmt.Errorf("invalid limit %q", v)
		}
	}
	if v := c.Query("offset"); v != "" {
		if f.Offset, err = strconv.Atoi(v); err != nil {
			return f, fmt.Errorf("invalid offset %q", v)
		}
	}
	return f.Normalize(), nil
}

// ListBookings handles GET /api/admin/bookings.
func (ac *AdminController) ListBookings(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	bookings, err := ac.Service.ListBookings(c.Request.Context(), f)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if bookings == nil {
		bookings = []booking_models.Booking{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"bookings": bookings,
		"limit":    f.Limit,
		"offset":   f.Offset,
	})
}

// Stats handles GET /api/admin/bookings/stats.
func (ac *AdminController) Stats(c *gin.Context) {
	stats, err := ac.Service.GetStats(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

// CancelBooking handles POST /api/admin/bookings/:id/cancel.
func (ac *AdminController) CancelBooking(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "invalid booking id")
		return
	}
	staff, err := utils.GetStaffFromContext(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	b, err := ac.Service.CancelBooking(c.Request.Context(), id, staff)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "booking": b})
}

// ExportBookings handles GET /api/admin/bookings/export.
func (ac *AdminController) ExportBookings(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	data, err := ac.Service.ExportBookings(c.Request.Context(), f)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	filename := fmt.Sprintf("bookings_%s.xlsx", ac.Service.Now().In(ac.Service.Location).Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
