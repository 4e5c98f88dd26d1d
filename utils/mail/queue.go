package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/joy095/reservation/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	publishTimeout = 5 * time.Second
	publishBuffer  = 256

	// AttemptsHeader counts how many times the notifier has tried a message.
	AttemptsHeader = "x-attempts"
	// MaxDeliveryAttempts is the number of sends tried before a message is
	// dead-lettered.
	MaxDeliveryAttempts = 5

	retryBackoffBase = 2 * time.Second
	retryBackoffMax  = time.Minute
)

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// DeadLetterName is the exchange and queue that collect undeliverable
// notifications for name.
func DeadLetterName(name string) string {
	return name + ".dead"
}

// QueueDispatcher publishes messages to RabbitMQ for the notifier process.
// Publishing runs on a background goroutine so a slow broker never holds up
// the caller.
type QueueDispatcher struct {
	conn     *amqp.Connection
	ch       publisher
	exchange string

	mu      sync.Mutex
	closed  bool
	pending chan Message
	done    chan struct{}
}

// DialQueue connects to RabbitMQ and declares the notification exchange and
// queue, plus the dead-letter pair that failed deliveries end up in.
func DialQueue(url, exchange, queue string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	fail := func(step string, err error) (*amqp.Connection, *amqp.Channel, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("%s: %w", step, err)
	}

	dead := DeadLetterName(exchange)
	if err := ch.ExchangeDeclare(dead, "fanout", true, false, false, false, nil); err != nil {
		return fail("declare dead-letter exchange", err)
	}
	dq, err := ch.QueueDeclare(DeadLetterName(queue), true, false, false, false, nil)
	if err != nil {
		return fail("declare dead-letter queue", err)
	}
	if err := ch.QueueBind(dq.Name, "", dead, false, nil); err != nil {
		return fail("bind dead-letter queue", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fail("declare exchange", err)
	}
	q, err := ch.QueueDeclare(queue, true, false, false, false, amqp.Table{"x-dead-letter-exchange": dead})
	if err != nil {
		return fail("declare queue", err)
	}
	if err := ch.QueueBind(q.Name, "#", exchange, false, nil); err != nil {
		return fail("bind queue", err)
	}
	return conn, ch, nil
}

func NewQueueDispatcher(url, exchange, queue string) (*QueueDispatcher, error) {
	conn, ch, err := DialQueue(url, exchange, queue)
	if err != nil {
		return nil, err
	}
	return newQueueDispatcher(conn, ch, exchange), nil
}

func newQueueDispatcher(conn *amqp.Connection, ch publisher, exchange string) *QueueDispatcher {
	d := &QueueDispatcher{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
		pending:  make(chan Message, publishBuffer),
		done:     make(chan struct{}),
	}
	go d.loop()
	return d
}

// Dispatch enqueues msg for publishing and returns immediately. Messages are
// dropped with an error log when the buffer is full or the dispatcher is closed.
func (d *QueueDispatcher) Dispatch(msg Message) {
	if msg.To == "" {
		logger.WarnLogger.Warnf("Dropping %s notification with no recipient", msg.Kind)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		logger.ErrorLogger.Errorf("Dropping %s notification to %s: dispatcher closed", msg.Kind, msg.To)
		return
	}
	select {
	case d.pending <- msg:
	default:
		logger.ErrorLogger.Errorf("Dropping %s notification to %s: publish buffer full", msg.Kind, msg.To)
	}
}

func (d *QueueDispatcher) loop() {
	defer close(d.done)
	for msg := range d.pending {
		d.publish(msg)
	}
}

func (d *QueueDispatcher) publish(msg Message) {
	body, err := json.Marshal(msg)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to encode %s notification: %v", msg.Kind, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	err = d.ch.PublishWithContext(ctx, d.exchange, msg.Kind, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to publish %s notification to %s: %v", msg.Kind, msg.To, err)
		return
	}
	logger.InfoLogger.Infof("Queued %s notification to %s", msg.Kind, msg.To)
}

// Close publishes everything already dispatched, then closes the channel and
// connection.
func (d *QueueDispatcher) Close() error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.pending)
	}
	d.mu.Unlock()
	<-d.done

	if c, ok := d.ch.(*amqp.Channel); ok && c != nil {
		_ = c.Close()
	}
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}

type consumer interface {
	publisher
	Qos(prefetchCount, prefetchSize int, global bool) error
	ConsumeWithContext(ctx context.Context, queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Worker drains the notification queue into a Sender.
type Worker struct {
	ch     consumer
	queue  string
	sender Sender
	// Backoff is the wait before retry number attempt.
	Backoff func(attempt int) time.Duration
}

func NewWorker(ch *amqp.Channel, queue string, sender Sender) *Worker {
	return &Worker{ch: ch, queue: queue, sender: sender, Backoff: RetryBackoff}
}

// RetryBackoff doubles from two seconds up to a minute.
func RetryBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := retryBackoffBase
	for i := 1; i < attempt && d < retryBackoffMax; i++ {
		d *= 2
	}
	if d > retryBackoffMax {
		d = retryBackoffMax
	}
	return d
}

// Run consumes until ctx is done or the channel closes.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.ch.Qos(8, 0, false); err != nil {
		return fmt.Errorf("set qos failed: %w", err)
	}
	msgs, err := w.ch.ConsumeWithContext(ctx, w.queue, "reservation-notifier", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume failed: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			w.Handle(ctx, d)
		}
	}
}

// Handle delivers one message. A retryable failure is republished with its
// attempt count bumped after a backoff, so the broker never spins on it.
// Undecodable messages and messages out of attempts are dead-lettered.
func (w *Worker) Handle(ctx context.Context, d amqp.Delivery) {
	requeue, err := Deliver(d.Body, w.sender)
	if err == nil {
		_ = d.Ack(false)
		return
	}

	attempt := Attempts(d.Headers) + 1
	if !requeue || attempt >= MaxDeliveryAttempts {
		logger.ErrorLogger.Errorf("Notification %s dead-lettered after %d attempt(s): %v", d.RoutingKey, attempt, err)
		_ = d.Nack(false, false)
		return
	}

	logger.WarnLogger.Warnf("Notification %s attempt %d failed, retrying: %v", d.RoutingKey, attempt, err)
	backoff := time.Duration(0)
	if w.Backoff != nil {
		backoff = w.Backoff(attempt)
	}
	if backoff > 0 {
		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			_ = d.Nack(false, true)
			return
		case <-t.C:
		}
	}

	headers := amqp.Table{}
	for k, v := range d.Headers {
		headers[k] = v
	}
	headers[AttemptsHeader] = int32(attempt)

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	err = w.ch.PublishWithContext(pubCtx, d.Exchange, d.RoutingKey, false, false, amqp.Publishing{
		Headers:      headers,
		ContentType:  d.ContentType,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         d.Body,
	})
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to republish notification %s: %v", d.RoutingKey, err)
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

// Attempts reads the attempt count carried in headers.
func Attempts(headers amqp.Table) int {
	switch v := headers[AttemptsHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	case int16:
		return int(v)
	case int8:
		return int(v)
	}
	return 0
}

// Deliver decodes one queued message and sends it. requeue reports whether a
// failure is worth retrying.
func Deliver(body []byte, sender Sender) (requeue bool, err error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return false, fmt.Errorf("undecodable notification: %w", err)
	}
	if msg.To == "" {
		return false, fmt.Errorf("notification %s has no recipient", msg.Kind)
	}
	if err := sender.Send(msg.To, msg.Subject, msg.Body); err != nil {
		return true, err
	}
	return false, nil
}

var _ Dispatcher = (*QueueDispatcher)(nil)
