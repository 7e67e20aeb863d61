package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/vetline/clinic-portal/internal/accounts"
	"github.com/vetline/clinic-portal/internal/api/router"
	"github.com/vetline/clinic-portal/internal/appointments"
	"github.com/vetline/clinic-portal/internal/audit"
	"github.com/vetline/clinic-portal/internal/availability"
	"github.com/vetline/clinic-portal/internal/booking"
	appconfig "github.com/vetline/clinic-portal/internal/config"
	"github.com/vetline/clinic-portal/internal/mobileservice"
	"github.com/vetline/clinic-portal/internal/notify"
	"github.com/vetline/clinic-portal/internal/observability/metrics"
	"github.com/vetline/clinic-portal/internal/pets"
	"github.com/vetline/clinic-portal/internal/slots"
	"github.com/vetline/clinic-portal/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-portal API server", "env", cfg.Env, "port", cfg.Port)

	ctx := context.Background()
	schedMetrics := metrics.NewSchedulingMetrics(prometheus.DefaultRegisterer)

	// Persistence. Without DATABASE_URL everything runs in memory, which is
	// enough for local development of the wizard and staff screens.
	var (
		slotRepo   slots.Repository
		apptRepo   appointments.Repository
		mobileRepo mobileservice.Repository
		acctReader accounts.Reader
		petReader  pets.Reader
		upcoming   slots.UpcomingChecker
		occupancy  availability.Occupancy
		slotSource appointments.SlotSource
		outbox     *notify.Outbox
		auditor    audit.Recorder = audit.NopRecorder{}
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pgSlots := slots.NewPostgresRepository(pool)
		pgAppts := appointments.NewPostgresRepository(pool)
		slotRepo, apptRepo = pgSlots, pgAppts
		mobileRepo = mobileservice.NewPostgresRepository(pool)
		acctReader = accounts.NewPostgresReader(pool)
		petReader = pets.NewPostgresReader(pool)
		upcoming, occupancy, slotSource = pgAppts, pgAppts, pgSlots
		outbox = notify.NewOutbox(pool)

		auditDB, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open audit connection", "error", err)
			os.Exit(1)
		}
		defer func() { _ = auditDB.Close() }()
		auditor = audit.NewService(auditDB)
	} else {
		logger.Info("DATABASE_URL not set, using in-memory repositories")
		memSlots := slots.NewInMemoryRepository()
		memAppts := appointments.NewInMemoryRepository()
		slotRepo, apptRepo = memSlots, memAppts
		mobileRepo = mobileservice.NewInMemoryRepository()
		acctReader = accounts.NewInMemoryReader()
		petReader = pets.NewInMemoryReader()
		upcoming, occupancy, slotSource = memAppts, memAppts, memSlots
	}

	// Notification delivery.
	var sender notify.EmailSender
	switch cfg.EmailProvider {
	case "sendgrid":
		sender = notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		sender = notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
	default:
		logger.Info("no email provider configured, notification intents will be logged only")
	}
	notifier := notify.NewService(sender, outbox, schedMetrics, logger)

	dispatchCtx, stopDispatcher := context.WithCancel(ctx)
	defer stopDispatcher()
	if outbox != nil {
		dispatcher := notify.NewDispatcher(outbox, sender, cfg.OutboxPollInterval, cfg.OutboxBatchSize, logger)
		go dispatcher.Run(dispatchCtx)
	}

	// Wizard session store.
	var sessionStore booking.SessionStore
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		sessionStore = booking.NewRedisStore(redis.NewClient(opts), cfg.BookingSessionTTL)
	} else {
		logger.Info("REDIS_ADDR not set, using in-memory booking sessions")
		sessionStore = booking.NewMemoryStore()
	}

	// Services and handlers.
	registry := slots.NewRegistry(slotRepo, upcoming, auditor, logger)
	apptService := appointments.NewService(apptRepo, slotSource, acctReader, notifier, auditor, schedMetrics, logger)
	mobileService := mobileservice.NewService(mobileRepo, acctReader, notifier, auditor, schedMetrics, logger)
	checker := availability.NewChecker(slotSource, occupancy, schedMetrics)
	workflow := booking.NewWorkflow(sessionStore, petReader, checker, apptService, mobileService, logger)

	r := router.New(&router.Config{
		Logger:              logger,
		SlotsHandler:        slots.NewHandler(registry, logger),
		AvailabilityHandler: availability.NewHandler(checker, logger),
		AppointmentsHandler: appointments.NewHandler(apptService, logger),
		MobileHandler:       mobileservice.NewHandler(mobileService, logger),
		BookingHandler:      booking.NewHandler(workflow, logger),
		MetricsHandler:      promhttp.Handler(),
		StaffJWTSecret:      cfg.StaffJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitPerSecond:  cfg.RateLimitPerSecond,
		RateLimitBurst:      cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stopDispatcher()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
