package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"hotel-booking/config"
	"hotel-booking/controllers"
	"hotel-booking/payment"
	"hotel-booking/repository"
	"hotel-booking/routes"
	"hotel-booking/services"
)

// writeTimeout covers a create request that waits on the gateway and then on
// the confirmation email.
func writeTimeout(cfg *config.Config) time.Duration {
	return cfg.PaymentTimeout + services.NotifyTimeout + 10*time.Second
}

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	log, closer := config.NewLogger(cfg)
	defer closer.Close()
	if envErr != nil {
		log.Debug(".env not found; continuing with environment variables")
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	var store repository.Store
	switch cfg.DBDriver {
	case "memory":
		store = repository.NewMemoryStore()
		log.Warn("using in-memory store, data is lost on restart")
	default:
		db, err := config.ConnectDatabase(cfg, log)
		if err != nil {
			log.WithError(err).Fatal("database connect failed")
		}
		store = repository.NewGormStore(db)
	}

	if cfg.SeedDatabase {
		if err := config.SeedDatabase(context.Background(), store, log.WithField("component", "seed")); err != nil {
			log.WithError(err).Fatal("seed database failed")
		}
	}

	var gateway payment.Gateway
	if cfg.StripeSecretKey != "" {
		gateway = payment.NewBreakerGateway(payment.NewStripeGateway(payment.StripeConfig{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			Currency:      cfg.PaymentCurrency,
			BaseURL:       cfg.BaseURL,
		}), log)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, card payments are disabled")
	}

	notifier := services.NewNotifier(services.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}, log)

	bookingService := services.NewBookingService(store, gateway, notifier, log, services.BookingOptions{
		PaymentTimeout: cfg.PaymentTimeout,
		GraceWindow:    cfg.SweepGraceWindow,
	})
	paymentService := services.NewPaymentService(store, gateway, notifier, log, cfg.PaymentTimeout)
	availabilityService := services.NewAvailabilityService(store)

	var locker services.Locker
	redisLock, redisClient := config.ConnectRedis(cfg, log)
	if redisLock != nil {
		locker = redisLock
		defer redisClient.Close()
	}
	sweeper := services.NewSweeper(store, gateway, locker, log, services.SweeperOptions{
		Interval:    cfg.SweepInterval,
		GraceWindow: cfg.SweepGraceWindow,
		BatchSize:   cfg.SweepBatchSize,
		Purge:       cfg.IsProduction(),
	})

	router, err := routes.SetupRouter(routes.Deps{
		Store:       store,
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		Log:         log,
		Bookings:    controllers.NewBookingController(bookingService, availabilityService, log),
		Payments:    controllers.NewPaymentController(paymentService, log),
		Auth:        controllers.NewAuthController(store, cfg.JWTSecret, cfg.JWTExpiresIn, log),
		Rooms:       controllers.NewRoomController(services.NewRoomService(store), log),
	})
	if err != nil {
		log.WithError(err).Fatal("router setup failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		sweeper.Run(ctx)
	}()

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      writeTimeout(cfg),
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	<-sweeperDone

	log.Info("server stopped gracefully")
}
