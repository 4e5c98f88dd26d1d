package payment_controller

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joy095/reservation/clients"
	"github.com/joy095/reservation/logger"
	"github.com/joy095/reservation/models/booking_models"
	"github.com/joy095/reservation/utils"
	"github.com/joy095/reservation/utils/mail"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const maxWebhookBody = 1 << 20

var tracer = otel.Tracer("reservation/payment")

// Outcome of a reconciliation attempt.
const (
	StatusConfirmed = "confirmed"
	StatusRejected  = "rejected"
	StatusIgnored   = "ignored"
)

// Sign computes the callback signature for an order and payment pair.
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares signature against the expected HMAC in constant time.
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	expected := Sign(secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

// Service reconciles gateway payments with pending holds.
type Service struct {
	Ledger        booking_models.Ledger
	Gateway       clients.Gateway
	Notifier      mail.Dispatcher
	Secret        string
	OperatorEmail string
	Now           func() time.Time
}

func NewService(ledger booking_models.Ledger, gateway clients.Gateway, notifier mail.Dispatcher, secret, operatorEmail string) *Service {
	return &Service{
		Ledger:        ledger,
		Gateway:       gateway,
		Notifier:      notifier,
		Secret:        secret,
		OperatorEmail: operatorEmail,
		Now:           time.Now,
	}
}

// VerifyAndConfirm authenticates a signed callback and confirms the booking
// for orderID. Replays with the same payment succeed without a second
// transition or notification.
func (s *Service) VerifyAndConfirm(ctx context.Context, orderID, paymentID, signature string) (*booking_models.Booking, error) {
	ctx, span := tracer.Start(ctx, "VerifyAndConfirm")
	defer span.End()
	span.SetAttributes(attribute.String("gateway.order_id", orderID), attribute.String("gateway.payment_id", paymentID))

	logger.InfoLogger.Infof("VerifyAndConfirm called for order %s payment %s", orderID, paymentID)

	if strings.TrimSpace(orderID) == "" || strings.TrimSpace(paymentID) == "" || strings.TrimSpace(signature) == "" {
		span.SetStatus(codes.Error, "missing field")
		return nil, fmt.Errorf("%w: order_id, payment_id and signature are required", utils.ErrMissingField)
	}

	if !VerifySignature(s.Secret, orderID, paymentID, signature) {
		logger.WarnLogger.WithFields(logrus.Fields{
			"order_id":            orderID,
			"payment_id":          paymentID,
			"potential_tampering": true,
		}).Warn("Payment callback signature mismatch")
		span.SetStatus(codes.Error, "signature invalid")
		return nil, utils.ErrSignatureInvalid
	}

	return s.confirm(ctx, orderID, paymentID)
}

func (s *Service) confirm(ctx context.Context, orderID, paymentID string) (*booking_models.Booking, error) {
	b, transitioned, err := s.Ledger.Confirm(ctx, orderID, paymentID, s.Now())
	if err != nil {
		switch {
		case errors.Is(err, booking_models.ErrPaymentConflict):
			logger.ErrorLogger.WithFields(logrus.Fields{
				"order_id":   orderID,
				"payment_id": paymentID,
			}).Error("Payment conflict: order already settled by a different payment, needs manual investigation")
		case errors.Is(err, booking_models.ErrBookingCancelled):
			logger.ErrorLogger.WithFields(logrus.Fields{
				"order_id":   orderID,
				"payment_id": paymentID,
			}).Error("Payment received for a cancelled booking, refund required")
		case errors.Is(err, booking_models.ErrOrderNotFound):
			logger.WarnLogger.Warnf("Payment callback for unknown order %s", orderID)
		default:
			logger.ErrorLogger.Errorf("Failed to confirm order %s: %v", orderID, err)
		}
		return b, err
	}

	if transitioned {
		logger.InfoLogger.Infof("Booking %s confirmed by payment %s", b.ID, paymentID)
		s.notifyConfirmed(b)
	} else {
		logger.InfoLogger.Infof("Duplicate callback for order %s ignored, booking %s already confirmed", orderID, b.ID)
	}
	return b, nil
}

func (s *Service) notifyConfirmed(b *booking_models.Booking) {
	if s.Notifier == nil {
		return
	}
	if msg, err := mail.Confirmed(b); err != nil {
		logger.ErrorLogger.Errorf("Failed to render confirmation for booking %s: %v", b.ID, err)
	} else {
		s.Notifier.Dispatch(msg)
	}
	if s.OperatorEmail == "" {
		return
	}
	if msg, err := mail.OperatorNotice(b, s.OperatorEmail); err != nil {
		logger.ErrorLogger.Errorf("Failed to render operator notice for booking %s: %v", b.ID, err)
	} else {
		s.Notifier.Dispatch(msg)
	}
}

// webhookEvent is the subset of a Razorpay webhook the reconciler reads.
type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// ConfirmFromWebhook handles a gateway webhook body. Events other than a
// captured payment are acknowledged and ignored.
func (s *Service) ConfirmFromWebhook(ctx context.Context, body []byte, signature string) (string, *booking_models.Booking, error) {
	ctx, span := tracer.Start(ctx, "ConfirmFromWebhook")
	defer span.End()

	if !s.Gateway.VerifyWebhookSignature(string(body), signature) {
		logger.WarnLogger.WithFields(logrus.Fields{"potential_tampering": true}).Warn("Webhook signature mismatch")
		span.SetStatus(codes.Error, "signature invalid")
		return StatusRejected, nil, utils.ErrSignatureInvalid
	}

	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return StatusRejected, nil, fmt.Errorf("%w: undecodable webhook body", utils.ErrMissingField)
	}
	span.SetAttributes(attribute.String("webhook.event", ev.Event))

	switch ev.Event {
	case "payment.captured", "order.paid":
	default:
		logger.InfoLogger.Infof("Ignoring webhook event %s", ev.Event)
		return StatusIgnored, nil, nil
	}

	entity := ev.Payload.Payment.Entity
	if entity.ID == "" || entity.OrderID == "" {
		return StatusRejected, nil, fmt.Errorf("%w: webhook payment entity lacks id or order_id", utils.ErrMissingField)
	}

	b, err := s.confirm(ctx, entity.OrderID, entity.ID)
	if err != nil {
		return StatusRejected, b, err
	}
	return StatusConfirmed, b, nil
}

// PaymentController serves the gateway callbacks over HTTP.
type PaymentController struct {
	Service *Service
}

func NewPaymentController(s *Service) *PaymentController {
	return &PaymentController{Service: s}
}

type VerifyRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// respondReconcileError marks terminal failures as rejected. Retryable
// failures carry no status since the outcome is still undecided.
func respondReconcileError(c *gin.Context, err error) {
	if utils.Classify(err).Retryable {
		utils.RespondError(c, err)
		return
	}
	utils.RespondErrorWith(c, err, gin.H{"status": StatusRejected})
}

// Verify handles POST /api/payment/verify.
func (pc *PaymentController) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "invalid request body")
		return
	}

	b, err := pc.Service.VerifyAndConfirm(c.Request.Context(), req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		respondReconcileError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"status":     StatusConfirmed,
		"booking_id": b.ID,
		"booking":    b,
	})
}

// Webhook handles POST /api/payment/webhook.
func (pc *PaymentController) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		utils.BadRequest(c, "unreadable body")
		return
	}

	status, b, err := pc.Service.ConfirmFromWebhook(c.Request.Context(), body, c.GetHeader("X-Razorpay-Signature"))
	if err != nil {
		respondReconcileError(c, err)
		return
	}

	resp := gin.H{"success": true, "status": status}
	if b != nil {
		resp["booking_id"] = b.ID
	}
	c.JSON(http.StatusOK, resp)
}
