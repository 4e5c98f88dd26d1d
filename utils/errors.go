package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joy095/reservation/clients"
	"github.com/joy095/reservation/logger"
	"github.com/joy095/reservation/models/admin_models"
	"github.com/joy095/reservation/models/booking_models"
	"github.com/joy095/reservation/models/room_models"
)

var (
	ErrStaffNotFound = errors.New("authentication required: staff identity not found")
	ErrUnauthorized  = errors.New("unauthorized access")

	// ErrMissingField is a required request field left blank.
	ErrMissingField = errors.New("missing required field")
	// ErrSignatureInvalid is a payment callback whose signature does not verify.
	ErrSignatureInvalid = errors.New("payment signature invalid")
	// ErrInappropriateContent is free text rejected by the profanity screen.
	ErrInappropriateContent = errors.New("text contains inappropriate language")
)

// APIError is the wire classification of an error.
type APIError struct {
	Status    int
	Code      string
	Retryable bool
}

var classes = []struct {
	err error
	APIError
}{
	{booking_models.ErrInvalidRange, APIError{http.StatusBadRequest, "INVALID_RANGE", false}},
	{booking_models.ErrInvalidGuestCount, APIError{http.StatusBadRequest, "INVALID_GUEST_COUNT", false}},
	{ErrMissingField, APIError{http.StatusBadRequest, "MISSING_FIELD", false}},
	{ErrInappropriateContent, APIError{http.StatusBadRequest, "INAPPROPRIATE_CONTENT", false}},
	{ErrSignatureInvalid, APIError{http.StatusBadRequest, "SIGNATURE_INVALID", false}},
	{room_models.ErrInvalidRoom, APIError{http.StatusBadRequest, "INVALID_ROOM", false}},
	{room_models.ErrRoomNotFound, APIError{http.StatusNotFound, "ROOM_NOT_FOUND", false}},
	{booking_models.ErrOrderNotFound, APIError{http.StatusNotFound, "ORDER_NOT_FOUND", false}},
	{booking_models.ErrBookingNotFound, APIError{http.StatusNotFound, "BOOKING_NOT_FOUND", false}},
	{booking_models.ErrOverlapRejected, APIError{http.StatusConflict, "ROOM_UNAVAILABLE", false}},
	{booking_models.ErrAlreadyCancelled, APIError{http.StatusConflict, "ALREADY_CANCELLED", false}},
	{booking_models.ErrPaymentConflict, APIError{http.StatusConflict, "PAYMENT_CONFLICT", false}},
	{booking_models.ErrBookingCancelled, APIError{http.StatusConflict, "BOOKING_CANCELLED", false}},
	{booking_models.ErrDuplicateOrder, APIError{http.StatusConflict, "DUPLICATE_ORDER", true}},
	{room_models.ErrRoomExists, APIError{http.StatusConflict, "ROOM_EXISTS", false}},
	{admin_models.ErrInvalidCredentials, APIError{http.StatusUnauthorized, "INVALID_CREDENTIALS", false}},
	{ErrUnauthorized, APIError{http.StatusUnauthorized, "UNAUTHORIZED", false}},
	{ErrStaffNotFound, APIError{http.StatusUnauthorized, "UNAUTHORIZED", false}},
	{clients.ErrGatewayUnavailable, APIError{http.StatusServiceUnavailable, "GATEWAY_UNAVAILABLE", true}},
}

// Classify maps err onto its HTTP status and code. Unknown errors are store or
// internal faults and are reported as retryable 500s.
func Classify(err error) APIError {
	for _, c := range classes {
		if errors.Is(err, c.err) {
			return c.APIError
		}
	}
	return APIError{http.StatusInternalServerError, "INTERNAL_ERROR", true}
}

// RespondError writes the standard error body for err and aborts the request.
func RespondError(c *gin.Context, err error) {
	RespondErrorWith(c, err, nil)
}

// RespondErrorWith is RespondError with extra fields merged into the body.
// The standard fields win over extra.
func RespondErrorWith(c *gin.Context, err error, extra gin.H) {
	apiErr := Classify(err)
	message := err.Error()
	if apiErr.Status == http.StatusInternalServerError {
		logger.ErrorLogger.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		message = "internal server error, please retry"
	}
	body := gin.H{}
	for k, v := range extra {
		body[k] = v
	}
	body["success"] = false
	body["error"] = apiErr.Code
	body["message"] = message
	body["retryable"] = apiErr.Retryable
	c.AbortWithStatusJSON(apiErr.Status, body)
}

// BadRequest reports a malformed request body.
func BadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"success":   false,
		"error":     "INVALID_REQUEST",
		"message":   message,
		"retryable": false,
	})
}
