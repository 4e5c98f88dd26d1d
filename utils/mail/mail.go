package mail

import (
	"crypto/tls"
	"errors"
	"fmt"
	"sync"

	"github.com/joy095/reservation/logger"
	gomail "gopkg.in/gomail.v2"
)

// ErrDelivery wraps every failure to hand a message to the mail server.
var ErrDelivery = errors.New("mail delivery failed")

// Message is a rendered notification ready for delivery.
type Message struct {
	Kind    string `json:"kind"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Sender delivers one message synchronously.
type Sender interface {
	Send(to, subject, body string) error
}

// Dispatcher hands messages off without blocking the caller. Failures are
// logged by the dispatcher and never returned.
type Dispatcher interface {
	Dispatch(msg Message)
}

// SMTPConfig is the outbound mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends HTML mail with gomail.
type SMTPMailer struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.TLSConfig = &tls.Config{
		InsecureSkipVerify: false,
		ServerName:         cfg.Host,
	}
	return &SMTPMailer{cfg: cfg, dialer: dialer}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	if m.cfg.Host == "" {
		return fmt.Errorf("%w: SMTP host not configured", ErrDelivery)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	logger.InfoLogger.Infof("Attempting to connect to SMTP server: %s:%d", m.cfg.Host, m.cfg.Port)
	if err := m.dialer.DialAndSend(msg); err != nil {
		logger.ErrorLogger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	logger.InfoLogger.Infof("Sent %q to %s", subject, to)
	return nil
}

// AsyncDispatcher sends each message on its own goroutine.
type AsyncDispatcher struct {
	sender Sender
	wg     sync.WaitGroup
}

func NewAsyncDispatcher(sender Sender) *AsyncDispatcher {
	return &AsyncDispatcher{sender: sender}
}

func (d *AsyncDispatcher) Dispatch(msg Message) {
	if msg.To == "" {
		logger.WarnLogger.Warnf("Dropping %s notification with no recipient", msg.Kind)
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.sender.Send(msg.To, msg.Subject, msg.Body); err != nil {
			logger.ErrorLogger.Errorf("Notification %s to %s not delivered: %v", msg.Kind, msg.To, err)
		}
	}()
}

// Wait blocks until every dispatched message has been attempted.
func (d *AsyncDispatcher) Wait() {
	d.wg.Wait()
}

var (
	_ Sender     = (*SMTPMailer)(nil)
	_ Dispatcher = (*AsyncDispatcher)(nil)
)
