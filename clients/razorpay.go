package clients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joy095/reservation/logger"
	"github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

// ErrGatewayUnavailable covers network faults, gateway errors and timeouts.
// The whole order step is safe to retry from scratch.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// Gateway is the payment gateway capability the booking core depends on.
type Gateway interface {
	// OpenOrder mints a gateway order for amount (smallest currency unit).
	OpenOrder(ctx context.Context, amount int64, currency, receipt string) (string, error)
	// VerifyWebhookSignature authenticates a raw webhook body.
	VerifyWebhookSignature(body, signature string) bool
	// KeyID is the public key the checkout widget is opened with.
	KeyID() string
}

// orderCreator is the slice of the razorpay SDK the gateway uses.
type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayGateway implements Gateway with the razorpay-go SDK.
type RazorpayGateway struct {
	orders        orderCreator
	keyID         string
	webhookSecret string
	timeout       time.Duration
}

// NewRazorpayGateway builds a gateway client. timeout bounds every OpenOrder call.
func NewRazorpayGateway(keyID, keySecret, webhookSecret string, timeout time.Duration) *RazorpayGateway {
	client := razorpay.NewClient(keyID, keySecret)
	return &RazorpayGateway{
		orders:        client.Order,
		keyID:         keyID,
		webhookSecret: webhookSecret,
		timeout:       timeout,
	}
}

type orderResult struct {
	body map[string]interface{}
	err  error
}

// OpenOrder creates a Razorpay order. The SDK call takes no context, so it runs
// in its own goroutine and is abandoned when ctx or the timeout fires.
func (g *RazorpayGateway) OpenOrder(ctx context.Context, amount int64, currency, receipt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}

	done := make(chan orderResult, 1)
	go func() {
		body, err := g.orders.Create(data, nil)
		done <- orderResult{body: body, err: err}
	}()

	select {
	case <-ctx.Done():
		logger.ErrorLogger.Errorf("Razorpay order for receipt %s abandoned: %v", receipt, ctx.Err())
		return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, ctx.Err())
	case res := <-done:
		if res.err != nil {
			logger.ErrorLogger.Errorf("Razorpay order for receipt %s failed: %v", receipt, res.err)
			return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, res.err)
		}
		id, ok := res.body["id"].(string)
		if !ok || id == "" {
			logger.ErrorLogger.Errorf("Razorpay order for receipt %s returned no id: %v", receipt, res.body)
			return "", fmt.Errorf("%w: order response missing id", ErrGatewayUnavailable)
		}
		logger.InfoLogger.Infof("Razorpay order %s opened for receipt %s", id, receipt)
		return id, nil
	}
}

func (g *RazorpayGateway) VerifyWebhookSignature(body, signature string) bool {
	if g.webhookSecret == "" || signature == "" {
		return false
	}
	return utils.VerifyWebhookSignature(body, signature, g.webhookSecret)
}

func (g *RazorpayGateway) KeyID() string {
	return g.keyID
}

var _ Gateway = (*RazorpayGateway)(nil)
