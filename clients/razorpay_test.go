package clients

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrders struct {
	body  map[string]interface{}
	err   error
	delay time.Duration
	got   map[string]interface{}
}

func (f *fakeOrders) Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error) {
	f.got = data
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.body, f.err
}

func gatewayWith(orders orderCreator, timeout time.Duration) *RazorpayGateway {
	return &RazorpayGateway{orders: orders, keyID: "rzp_test_key", webhookSecret: "hook-secret", timeout: timeout}
}

func TestOpenOrder(t *testing.T) {
	orders := &fakeOrders{body: map[string]interface{}{"id": "order_abc", "status": "created"}}
	g := gatewayWith(orders, time.Second)

	id, err := g.OpenOrder(context.Background(), 4480, "INR", "rcpt_1")
	require.NoError(t, err)
	assert.Equal(t, "order_abc", id)
	assert.Equal(t, int64(4480), orders.got["amount"])
	assert.Equal(t, "INR", orders.got["currency"])
	assert.Equal(t, "rcpt_1", orders.got["receipt"])
}

func TestOpenOrderFailures(t *testing.T) {
	tests := []struct {
		name    string
		orders  *fakeOrders
		timeout time.Duration
	}{
		{"sdk error", &fakeOrders{err: errors.New("BAD_REQUEST_ERROR")}, time.Second},
		{"missing id", &fakeOrders{body: map[string]interface{}{"status": "created"}}, time.Second},
		{"timeout", &fakeOrders{body: map[string]interface{}{"id": "order_late"}, delay: 200 * time.Millisecond}, 20 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gatewayWith(tt.orders, tt.timeout).OpenOrder(context.Background(), 4480, "INR", "rcpt_1")
			assert.ErrorIs(t, err, ErrGatewayUnavailable)
		})
	}
}

func TestOpenOrderCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := gatewayWith(&fakeOrders{body: map[string]interface{}{"id": "order_abc"}, delay: 50 * time.Millisecond}, 0)

	_, err := g.OpenOrder(ctx, 4480, "INR", "rcpt_1")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestVerifyWebhookSignature(t *testing.T) {
	g := gatewayWith(&fakeOrders{}, 0)
	body := `{"event":"payment.captured"}`
	mac := hmac.New(sha256.New, []byte("hook-secret"))
	mac.Write([]byte(body))
	sig := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, g.VerifyWebhookSignature(body, sig))
	assert.False(t, g.VerifyWebhookSignature(body+" ", sig))
	assert.False(t, g.VerifyWebhookSignature(body, ""))

	g.webhookSecret = ""
	assert.False(t, g.VerifyWebhookSignature(body, sig))
	assert.Equal(t, "rzp_test_key", g.KeyID())
}
