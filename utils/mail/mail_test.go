package mail

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joy095/reservation/models/booking_models"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (s *recordingSender) Send(to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, Message{To: to, Subject: subject, Body: body})
	return s.err
}

type capturePublisher struct {
	mu       sync.Mutex
	exchange string
	key      string
	pub      amqp.Publishing
	err      error
	hits     int
	block    chan struct{}
}

func (p *capturePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hits++
	p.exchange = exchange
	p.key = key
	p.pub = msg
	return p.err
}

func (p *capturePublisher) Qos(int, int, bool) error { return nil }

func (p *capturePublisher) ConsumeWithContext(context.Context, string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return nil, errors.New("not consuming")
}

type ackRecorder struct {
	acks    int
	nacks   int
	requeue bool
}

func (a *ackRecorder) Ack(uint64, bool) error { a.acks++; return nil }

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacks++
	a.requeue = requeue
	return nil
}

func (a *ackRecorder) Reject(_ uint64, requeue bool) error { return a.Nack(0, false, requeue) }

func sampleBooking() *booking_models.Booking {
	paymentID := "pay_123"
	return &booking_models.Booking{
		ID:             uuid.MustParse("0190a8b2-7c1e-7000-8000-000000000001"),
		FullName:       "Asha Rao",
		Email:          "asha@example.com",
		Phone:          "+919800000000",
		RoomID:         "R1",
		CheckIn:        time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC),
		CheckOut:       time.Date(2024, 7, 12, 0, 0, 0, 0, time.UTC),
		Guests:         2,
		Amount:         448000,
		Currency:       "INR",
		PaymentOrderID: "order_abc",
		PaymentID:      &paymentID,
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "INR 44.80", FormatAmount(4480, "INR"))
	assert.Equal(t, "INR 0.05", FormatAmount(5, "INR"))
	assert.Equal(t, "INR -1.50", FormatAmount(-150, "INR"))
}

func TestBookingMessages(t *testing.T) {
	b := sampleBooking()

	t.Run("Pending", func(t *testing.T) {
		msg, err := PendingPayment(b)
		require.NoError(t, err)
		assert.Equal(t, KindBookingPending, msg.Kind)
		assert.Equal(t, "asha@example.com", msg.To)
		assert.Equal(t, "Booking Created - Payment Pending", msg.Subject)
		assert.Contains(t, msg.Body, "2024-07-10")
		assert.Contains(t, msg.Body, "INR 4480.00")
	})

	t.Run("ConfirmedCarriesPaymentReference", func(t *testing.T) {
		msg, err := Confirmed(b)
		require.NoError(t, err)
		assert.Contains(t, msg.Body, "pay_123")
	})

	t.Run("OperatorNotice", func(t *testing.T) {
		msg, err := OperatorNotice(b, "desk@example.com")
		require.NoError(t, err)
		assert.Equal(t, "desk@example.com", msg.To)
		assert.Contains(t, msg.Subject, "R1")
		assert.Contains(t, msg.Body, "order_abc")
	})

	t.Run("ContactEscapesHTML", func(t *testing.T) {
		msg, err := Contact("desk@example.com", "Ravi", "ravi@example.com", "<script>x</script>")
		require.NoError(t, err)
		assert.NotContains(t, msg.Body, "<script>")
	})
}

func TestAsyncDispatcher(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	d := NewAsyncDispatcher(sender)

	d.Dispatch(Message{Kind: KindContact, To: "a@example.com", Subject: "s", Body: "b"})
	d.Dispatch(Message{Kind: KindContact})
	d.Wait()

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "a@example.com", sender.sent[0].To)
}

func TestQueueDispatcherPublishesJSON(t *testing.T) {
	pub := &capturePublisher{}
	d := newQueueDispatcher(nil, pub, "reservation.notifications")

	d.Dispatch(Message{Kind: KindBookingConfirmed, To: "a@example.com", Subject: "s", Body: "b"})
	d.Dispatch(Message{Kind: KindBookingConfirmed})
	require.NoError(t, d.Close())

	require.Equal(t, 1, pub.hits)
	assert.Equal(t, KindBookingConfirmed, pub.key)
	assert.Equal(t, amqp.Persistent, pub.pub.DeliveryMode)

	var decoded Message
	require.NoError(t, json.Unmarshal(pub.pub.Body, &decoded))
	assert.Equal(t, "a@example.com", decoded.To)

	assert.NotPanics(t, func() {
		d.Dispatch(Message{Kind: KindBookingConfirmed, To: "a@example.com"})
	}, "dispatch after close is dropped")
	assert.NoError(t, d.Close(), "close is idempotent")
}

func TestQueueDispatcherDoesNotBlockOnSlowBroker(t *testing.T) {
	pub := &capturePublisher{block: make(chan struct{}), err: errors.New("channel closed")}
	d := newQueueDispatcher(nil, pub, "reservation.notifications")

	returned := make(chan struct{})
	go func() {
		for i := 0; i < 3; i++ {
			d.Dispatch(Message{Kind: KindBookingPending, To: "a@example.com"})
		}
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Dispatch waited on the broker")
	}

	close(pub.block)
	require.NoError(t, d.Close())
	assert.Equal(t, 3, pub.hits, "close drains what was dispatched")
}

func TestRetryBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, RetryBackoff(1))
	assert.Equal(t, 4*time.Second, RetryBackoff(2))
	assert.Equal(t, 16*time.Second, RetryBackoff(4))
	assert.Equal(t, time.Minute, RetryBackoff(30))
}

func TestWorkerHandle(t *testing.T) {
	body, _ := json.Marshal(Message{Kind: KindContact, To: "a@example.com", Subject: "s", Body: "b"})
	delivery := func(ack *ackRecorder, headers amqp.Table, payload []byte) amqp.Delivery {
		return amqp.Delivery{
			Acknowledger: ack,
			DeliveryTag:  1,
			Exchange:     "reservation.notifications",
			RoutingKey:   KindContact,
			Headers:      headers,
			Body:         payload,
		}
	}
	newWorker := func(sender Sender) (*Worker, *capturePublisher) {
		pub := &capturePublisher{}
		return &Worker{ch: pub, queue: "reservation.mail", sender: sender}, pub
	}

	t.Run("Delivered", func(t *testing.T) {
		w, pub := newWorker(&recordingSender{})
		ack := &ackRecorder{}
		w.Handle(context.Background(), delivery(ack, nil, body))
		assert.Equal(t, 1, ack.acks)
		assert.Zero(t, ack.nacks)
		assert.Zero(t, pub.hits)
	})

	t.Run("RetryRepublishesWithAttempt", func(t *testing.T) {
		w, pub := newWorker(&recordingSender{err: errors.New("smtp busy")})
		ack := &ackRecorder{}
		w.Handle(context.Background(), delivery(ack, amqp.Table{AttemptsHeader: int32(2)}, body))

		assert.Equal(t, 1, ack.acks, "original is settled once the retry is queued")
		require.Equal(t, 1, pub.hits)
		assert.Equal(t, "reservation.notifications", pub.exchange)
		assert.Equal(t, KindContact, pub.key)
		assert.Equal(t, 3, Attempts(pub.pub.Headers))
		assert.Equal(t, body, pub.pub.Body)
	})

	t.Run("DeadLetteredWhenOutOfAttempts", func(t *testing.T) {
		w, pub := newWorker(&recordingSender{err: errors.New("550 mailbox unavailable")})
		ack := &ackRecorder{}
		w.Handle(context.Background(), delivery(ack, amqp.Table{AttemptsHeader: int32(MaxDeliveryAttempts - 1)}, body))

		assert.Equal(t, 1, ack.nacks)
		assert.False(t, ack.requeue)
		assert.Zero(t, pub.hits)
	})

	t.Run("UndecodableDeadLettered", func(t *testing.T) {
		w, pub := newWorker(&recordingSender{})
		ack := &ackRecorder{}
		w.Handle(context.Background(), delivery(ack, nil, []byte("not json")))

		assert.Equal(t, 1, ack.nacks)
		assert.False(t, ack.requeue)
		assert.Zero(t, pub.hits)
	})

	t.Run("RepublishFailureRequeues", func(t *testing.T) {
		w, pub := newWorker(&recordingSender{err: errors.New("smtp busy")})
		pub.err = errors.New("channel closed")
		ack := &ackRecorder{}
		w.Handle(context.Background(), delivery(ack, nil, body))

		assert.Equal(t, 1, ack.nacks)
		assert.True(t, ack.requeue)
		assert.Zero(t, ack.acks)
	})

	t.Run("ShutdownDuringBackoffRequeues", func(t *testing.T) {
		w, pub := newWorker(&recordingSender{err: errors.New("smtp busy")})
		w.Backoff = func(int) time.Duration { return time.Hour }
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		ack := &ackRecorder{}
		w.Handle(ctx, delivery(ack, nil, body))

		assert.Equal(t, 1, ack.nacks)
		assert.True(t, ack.requeue)
		assert.Zero(t, pub.hits)
	})
}

func TestDeliver(t *testing.T) {
	sender := &recordingSender{}

	requeue, err := Deliver([]byte("not json"), sender)
	assert.Error(t, err)
	assert.False(t, requeue)

	requeue, err = Deliver([]byte(`{"kind":"x","subject":"s"}`), sender)
	assert.Error(t, err)
	assert.False(t, requeue)

	body, _ := json.Marshal(Message{Kind: "x", To: "a@example.com", Subject: "s", Body: "b"})
	requeue, err = Deliver(body, sender)
	require.NoError(t, err)
	assert.False(t, requeue)
	require.Len(t, sender.sent, 1)

	sender.err = errors.New("smtp busy")
	requeue, err = Deliver(body, sender)
	assert.Error(t, err)
	assert.True(t, requeue)
}
