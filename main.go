package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joy095/reservation/badwords"
	"github.com/joy095/reservation/clients"
	"github.com/joy095/reservation/config"
	"github.com/joy095/reservation/config/db"
	"github.com/joy095/reservation/config/redis"
	"github.com/joy095/reservation/controllers/admin_controller"
	"github.com/joy095/reservation/controllers/availability_controller"
	"github.com/joy095/reservation/controllers/contact_controller"
	"github.com/joy095/reservation/controllers/order_controller"
	"github.com/joy095/reservation/controllers/payment_controller"
	"github.com/joy095/reservation/controllers/room_controller"
	"github.com/joy095/reservation/logger"
	middleware "github.com/joy095/reservation/middlewares"
	"github.com/joy095/reservation/middlewares/cors"
	logger_middleware "github.com/joy095/reservation/middlewares/logger"
	"github.com/joy095/reservation/models/admin_models"
	"github.com/joy095/reservation/models/booking_models"
	"github.com/joy095/reservation/models/room_models"
	"github.com/joy095/reservation/obs"
	"github.com/joy095/reservation/routes"
	"github.com/joy095/reservation/utils/mail"
	"github.com/joy095/reservation/workers"
)

func init() {
	logger.InitLoggers()
	config.LoadEnv()
}

// staffStore verifies staff logins and accepts the seed record.
type staffStore interface {
	admin_models.CredentialChecker
	Seed(ctx context.Context, username, password string) error
}

type stores struct {
	rooms  room_models.Catalog
	ledger booking_models.Ledger
	staff  staffStore
	close  func()
}

// devRooms stock the in-memory catalog when no database is configured.
var devRooms = []room_models.Room{
	{ID: "101", Name: "Deluxe Room", Type: "Deluxe", NightlyPrice: 250000, Capacity: 2, Size: "320 sq ft",
		Amenities: []string{"Wi-Fi", "Air conditioning", "TV"}},
	{ID: "102", Name: "Deluxe Room", Type: "Deluxe", NightlyPrice: 250000, Capacity: 2, Size: "320 sq ft",
		Amenities: []string{"Wi-Fi", "Air conditioning", "TV"}},
	{ID: "201", Name: "Family Suite", Type: "Suite", NightlyPrice: 420000, Capacity: 4, Size: "540 sq ft",
		Amenities: []string{"Wi-Fi", "Air conditioning", "TV", "Balcony"}},
}

func openStores(ctx context.Context, cfg config.App) (stores, error) {
	if cfg.DatabaseURL == "" {
		logger.WarnLogger.Warn("DATABASE_URL not set, using in-memory stores; data is lost on restart")
		return stores{
			rooms:  room_models.NewMemoryCatalog(devRooms...),
			ledger: booking_models.NewMemoryLedger(),
			staff:  admin_models.NewMemoryAdminStore(),
			close:  func() {},
		}, nil
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return stores{}, err
	}
	if err := db.Migrate(ctx, pool); err != nil {
		db.Close(pool)
		return stores{}, err
	}
	return stores{
		rooms:  room_models.NewPgCatalog(pool),
		ledger: booking_models.NewPgLedger(pool),
		staff:  admin_models.NewPgAdminStore(pool),
		close:  func() { db.Close(pool) },
	}, nil
}

// openDispatcher prefers the broker so the notifier process does the SMTP
// work; without one mail is sent from this process.
func openDispatcher(cfg config.App) (mail.Dispatcher, func()) {
	if cfg.RabbitURL != "" {
		q, err := mail.NewQueueDispatcher(cfg.RabbitURL, cfg.NotifyExchange, cfg.NotifyQueue)
		if err == nil {
			logger.InfoLogger.Infof("Notifications queued on exchange %s", cfg.NotifyExchange)
			return q, func() { _ = q.Close() }
		}
		logger.ErrorLogger.Errorf("RabbitMQ unavailable, sending mail directly: %v", err)
	}

	d := mail.NewAsyncDispatcher(mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.FromEmail,
	}))
	return d, d.Wait
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.ErrorLogger.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, "reservation", cfg.OTLPEndpoint)
	if err != nil {
		logger.ErrorLogger.Fatalf("Failed to initialise tracing: %v", err)
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		logger.ErrorLogger.Fatalf("Failed to open stores: %v", err)
	}
	defer st.close()

	if cfg.StaffUsername != "" && cfg.StaffPassword != "" {
		if err := st.staff.Seed(ctx, cfg.StaffUsername, cfg.StaffPassword); err != nil {
			logger.ErrorLogger.Fatalf("Failed to seed staff record: %v", err)
		}
	}

	rdb, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.WarnLogger.Warnf("Rate limits are per process: %v", err)
		rdb = nil
	}
	defer redis.Close(rdb)

	words, err := badwords.LoadBadWords(cfg.BadWordsFile)
	if err != nil {
		logger.WarnLogger.Warnf("Profanity screen disabled: %v", err)
		words = badwords.New()
	}

	notifier, drainNotifier := openDispatcher(cfg)
	defer drainNotifier()

	gateway := clients.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayWebhookSecret, cfg.GatewayTimeout)

	availability := availability_controller.NewService(st.rooms, st.ledger, cfg.Location())
	availability.MaxStayNights = cfg.MaxStayNights
	orders := order_controller.NewService(availability, st.ledger, gateway, notifier, words, order_controller.Config{
		TaxRateBps: cfg.TaxRateBps,
		Currency:   cfg.PaymentCurrency,
		HoldTTL:    cfg.HoldTTL,
	})
	payments := payment_controller.NewService(st.ledger, gateway, notifier, cfg.RazorpayKeySecret, cfg.AdminEmail)
	admin := admin_controller.NewService(st.ledger, notifier, cfg.Location())

	sweeper := workers.NewHoldSweeper(st.ledger, cfg.HoldSweepInterval)
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		sweeper.Run(ctx)
	}()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.CorsMiddleware(cfg.CORSOrigins))
	r.Use(logger_middleware.GinLogger())

	jwtSecret := []byte(cfg.JWTSecret)
	routes.Register(r, routes.Controllers{
		Rooms:        room_controller.NewRoomController(st.rooms, orders),
		Availability: availability_controller.NewAvailabilityController(availability),
		Orders:       order_controller.NewOrderController(orders),
		Payments:     payment_controller.NewPaymentController(payments),
		Contact:      contact_controller.NewContactController(notifier, words, cfg.AdminEmail),
		Admin:        admin_controller.NewAdminController(admin, st.staff, jwtSecret, cfg.StaffTokenTTL),
	}, middleware.NewRateLimiters(rdb), jwtSecret)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.InfoLogger.Infof("Reservation service listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorLogger.Errorf("Server failed to listen: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.InfoLogger.Info("Shutting down reservation service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorLogger.Errorf("Server forced to shutdown: %v", err)
	}
	<-sweeperDone
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.ErrorLogger.Errorf("Tracer shutdown failed: %v", err)
	}
	logger.InfoLogger.Info("Reservation service exited gracefully.")
}
