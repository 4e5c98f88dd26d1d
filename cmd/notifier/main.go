package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joy095/reservation/config"
	"github.com/joy095/reservation/logger"
	"github.com/joy095/reservation/utils/mail"
)

func init() {
	logger.InitLoggers()
	config.LoadEnv()
}

// The notifier drains the notification queue and delivers each message over
// SMTP, keeping mail latency off the booking path.
func main() {
	cfg, err := config.LoadNotifier()
	if err != nil {
		logger.ErrorLogger.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, ch, err := mail.DialQueue(cfg.RabbitURL, cfg.NotifyExchange, cfg.NotifyQueue)
	if err != nil {
		logger.ErrorLogger.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer conn.Close()
	defer ch.Close()

	sender := mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.FromEmail,
	})

	logger.InfoLogger.Infof("Notifier consuming %s", cfg.NotifyQueue)
	if err := mail.NewWorker(ch, cfg.NotifyQueue, sender).Run(ctx); err != nil {
		logger.ErrorLogger.Fatalf("Notifier stopped: %v", err)
	}
	logger.InfoLogger.Info("Notifier exited gracefully.")
}
