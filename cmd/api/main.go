package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/anestconsulta/booking-api/internal/config"
	"github.com/anestconsulta/booking-api/internal/email"
	adminhandler "github.com/anestconsulta/booking-api/internal/handler/admin"
	authhandler "github.com/anestconsulta/booking-api/internal/handler/auth"
	bookinghandler "github.com/anestconsulta/booking-api/internal/handler/booking"
	healthhandler "github.com/anestconsulta/booking-api/internal/handler/health"
	panelhandler "github.com/anestconsulta/booking-api/internal/handler/panel"
	"github.com/anestconsulta/booking-api/internal/middleware"
	"github.com/anestconsulta/booking-api/internal/repository/postgres"
	"github.com/anestconsulta/booking-api/internal/router"
	accountService "github.com/anestconsulta/booking-api/internal/service/account"
	adminService "github.com/anestconsulta/booking-api/internal/service/admin"
	bookingService "github.com/anestconsulta/booking-api/internal/service/booking"
	doctorService "github.com/anestconsulta/booking-api/internal/service/doctor"
	notificationService "github.com/anestconsulta/booking-api/internal/service/notification"
	ratelimitService "github.com/anestconsulta/booking-api/internal/service/ratelimit"
	"github.com/anestconsulta/booking-api/migrations"
	"github.com/anestconsulta/booking-api/pkg/auth"
	"github.com/anestconsulta/booking-api/pkg/logger"
	"github.com/anestconsulta/booking-api/pkg/messaging"
	redisbroker "github.com/anestconsulta/booking-api/pkg/messaging/redis"
	"github.com/anestconsulta/booking-api/pkg/metrics"
	"github.com/anestconsulta/booking-api/pkg/security"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = *logger.NewLogger(&logger.Config{Level: level, TimeFormat: time.RFC3339}).Zerolog()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Timezone).Msg("failed to load timezone")
	}

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := runMigrations(db.DB); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Initialize Redis message broker. The API stays up without it;
	// booking events are simply not published.
	var broker messaging.Broker
	if cfg.Redis.URL != "" {
		broker, err = redisbroker.NewRedisBroker(cfg.Redis.ToBrokerConfig(), &log.Logger)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, booking events disabled")
			broker = nil
		} else {
			defer broker.Close()
		}
	}

	// Initialize repositories
	appointmentRepo := postgres.NewAppointmentRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)
	rateLimitRepo := postgres.NewRateLimitRepository(db)
	emailLogRepo := postgres.NewEmailLogRepository(db)
	staffRepo := postgres.NewStaffRepository(db)

	// Initialize services
	m := metrics.NewMetrics("booking", "api")
	hasher := security.NewBcryptHasher(accountService.BcryptCost)
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	sender := email.NewSMTPService(cfg.SMTP, cfg.Clinic.BaseURL)

	notificationSvc := notificationService.NewService(sender, appointmentRepo, emailLogRepo, broker, m, log.Logger)
	rateLimitSvc := ratelimitService.NewService(rateLimitRepo, cfg.RateLimit.WindowMinutes, cfg.RateLimit.MaxAttempts)
	bookingSvc := bookingService.NewService(appointmentRepo, doctorRepo, rateLimitSvc, notificationSvc, m, loc)
	accountSvc := accountService.NewService(patientRepo, sessionRepo, appointmentRepo, hasher, notificationSvc, loc, log.Logger)
	adminSvc := adminService.NewService(appointmentRepo, staffRepo, bookingSvc, hasher, jwtSvc)
	doctorSvc := doctorService.NewService(doctorRepo, cfg.Clinic.DoctorCacheTTL)

	// Initialize handlers
	bookingHandler := bookinghandler.NewHandler(bookingSvc, doctorSvc)
	authHandler := authhandler.NewHandler(accountSvc)
	panelHandler := panelhandler.NewHandler(bookingSvc, accountSvc)
	adminHandler := adminhandler.NewHandler(adminSvc)
	healthHandler := healthhandler.NewHandler(db)

	// Setup router
	r := router.NewRouter(
		bookingHandler,
		authHandler,
		panelHandler,
		adminHandler,
		healthHandler,
		accountSvc,
		jwtSvc,
		router.Config{
			RateLimit:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:  cfg.RateLimit.Burst,
			CORSConfig: middleware.DefaultCORSConfig(),
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

func runMigrations(db *sql.DB) error {
	srcDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	dbDriver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	mig, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("migrator: %w", err)
	}

	if err := mig.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
