package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// App is the process configuration. Empty optional URLs switch the matching
// component to its in-process fallback (memory store, direct mail, no tracing).
type App struct {
	Port string `envconfig:"PORT" default:"8081"`

	DatabaseURL string `envconfig:"DATABASE_URL"`
	RedisURL    string `envconfig:"REDIS_URL"`

	RazorpayKeyID         string        `envconfig:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret     string        `envconfig:"RAZORPAY_KEY_SECRET"`
	RazorpayWebhookSecret string        `envconfig:"RAZORPAY_WEBHOOK_SECRET"`
	PaymentCurrency       string        `envconfig:"PAYMENT_CURRENCY" default:"INR"`
	GatewayTimeout        time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"10s"`

	TaxRateBps        int64         `envconfig:"TAX_RATE_BPS" default:"1200"`
	HoldTTL           time.Duration `envconfig:"HOLD_TTL" default:"15m"`
	HoldSweepInterval time.Duration `envconfig:"HOLD_SWEEP_INTERVAL" default:"1m"`
	MaxStayNights     int           `envconfig:"MAX_STAY_NIGHTS" default:"365"`
	PropertyTimezone  string        `envconfig:"PROPERTY_TIMEZONE" default:"Asia/Kolkata"`

	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	FromEmail    string `envconfig:"FROM_EMAIL" default:"bookings@localhost"`
	AdminEmail   string `envconfig:"ADMIN_EMAIL"`

	RabbitURL      string `envconfig:"RABBIT_URL"`
	NotifyExchange string `envconfig:"NOTIFY_EXCHANGE" default:"reservation.notifications"`
	NotifyQueue    string `envconfig:"NOTIFY_QUEUE" default:"reservation.mail"`

	JWTSecret     string        `envconfig:"JWT_SECRET"`
	StaffTokenTTL time.Duration `envconfig:"STAFF_TOKEN_TTL" default:"12h"`
	StaffUsername string        `envconfig:"STAFF_USERNAME"`
	StaffPassword string        `envconfig:"STAFF_PASSWORD"`

	CORSOrigins  []string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"`
	OTLPEndpoint string   `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	BadWordsFile string   `envconfig:"BADWORDS_FILE" default:"badwords/en.txt"`
}

// LoadEnv loads variables from a .env file when one is present.
func LoadEnv() {
	_ = godotenv.Load()
}

// Load reads the environment into App and checks the values that have no safe default.
func Load() (App, error) {
	var c App
	if err := envconfig.Process("", &c); err != nil {
		return c, fmt.Errorf("failed to process environment: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Validate rejects configurations the core cannot run with.
func (c App) Validate() error {
	var missing []string
	if c.RazorpayKeySecret == "" {
		missing = append(missing, "RAZORPAY_KEY_SECRET")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	if c.TaxRateBps < 0 {
		return fmt.Errorf("TAX_RATE_BPS must not be negative, got %d", c.TaxRateBps)
	}
	if c.HoldTTL <= 0 {
		return fmt.Errorf("HOLD_TTL must be positive, got %s", c.HoldTTL)
	}
	if c.MaxStayNights <= 0 {
		return fmt.Errorf("MAX_STAY_NIGHTS must be positive, got %d", c.MaxStayNights)
	}
	if _, err := time.LoadLocation(c.PropertyTimezone); err != nil {
		return fmt.Errorf("invalid PROPERTY_TIMEZONE %q: %w", c.PropertyTimezone, err)
	}
	return nil
}

// Location returns the property's time zone, used to decide what "today" is.
func (c App) Location() *time.Location {
	loc, err := time.LoadLocation(c.PropertyTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Notifier is the configuration of the queue-draining mail process.
type Notifier struct {
	RabbitURL      string `envconfig:"RABBIT_URL"`
	NotifyExchange string `envconfig:"NOTIFY_EXCHANGE" default:"reservation.notifications"`
	NotifyQueue    string `envconfig:"NOTIFY_QUEUE" default:"reservation.mail"`

	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	FromEmail    string `envconfig:"FROM_EMAIL" default:"bookings@localhost"`
}

// LoadNotifier reads the notifier's environment.
func LoadNotifier() (Notifier, error) {
	var n Notifier
	if err := envconfig.Process("", &n); err != nil {
		return n, fmt.Errorf("failed to process environment: %w", err)
	}
	if n.RabbitURL == "" || n.SMTPHost == "" {
		return n, fmt.Errorf("required environment variables not set: RABBIT_URL, SMTP_HOST")
	}
	return n, nil
}
