package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/anestconsulta/booking-api/internal/config"
	"github.com/anestconsulta/booking-api/internal/email"
	"github.com/anestconsulta/booking-api/internal/repository"
	"github.com/anestconsulta/booking-api/internal/repository/postgres"
	notificationService "github.com/anestconsulta/booking-api/internal/service/notification"
	applogger "github.com/anestconsulta/booking-api/pkg/logger"
	"github.com/anestconsulta/booking-api/pkg/messaging"
	redisbroker "github.com/anestconsulta/booking-api/pkg/messaging/redis"
	"github.com/anestconsulta/booking-api/pkg/metrics"
)

var (
	retriesAttempted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "email_retries_attempted_total",
		Help: "The total number of confirmation redeliveries attempted",
	})
	retriesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "email_retries_failed_total",
		Help: "The total number of confirmation redeliveries that failed",
	})
	sessionsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessions_swept_total",
		Help: "The total number of expired patient sessions removed",
	})
	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "retry_sweep_duration_seconds",
		Help:    "Time spent per retry sweep",
		Buckets: prometheus.DefBuckets,
	})
)

// RetryWorker periodically redelivers failed confirmation emails and
// removes expired panel sessions.
type RetryWorker struct {
	appts       repository.AppointmentRepository
	logs        repository.EmailLogRepository
	sessions    repository.SessionRepository
	notifier    *notificationService.Service
	interval    time.Duration
	maxAttempts int
	batchSize   int
	logger      zerolog.Logger
}

func NewRetryWorker(
	appts repository.AppointmentRepository,
	logs repository.EmailLogRepository,
	sessions repository.SessionRepository,
	notifier *notificationService.Service,
	cfg config.WorkerConfig,
	logger zerolog.Logger,
) *RetryWorker {
	return &RetryWorker{
		appts:       appts,
		logs:        logs,
		sessions:    sessions,
		notifier:    notifier,
		interval:    cfg.RetryInterval,
		maxAttempts: cfg.MaxEmailAttempts,
		batchSize:   cfg.BatchSize,
		logger:      logger,
	}
}

func (w *RetryWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info().Dur("interval", w.interval).Msg("worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("worker shutting down")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *RetryWorker) sweep(ctx context.Context) {
	timer := prometheus.NewTimer(sweepDuration)
	defer timer.ObserveDuration()

	if err := w.retryConfirmations(ctx); err != nil {
		w.logger.Error().Err(err).Msg("confirmation retry sweep failed")
	}

	removed, err := w.sessions.DeleteExpired(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("session sweep failed")
		return
	}
	if removed > 0 {
		sessionsSwept.Add(float64(removed))
		w.logger.Info().Int64("removed", removed).Msg("expired sessions removed")
	}
}

func (w *RetryWorker) retryConfirmations(ctx context.Context) error {
	entries, err := w.logs.ListFailedConfirmations(ctx, w.maxAttempts, w.batchSize)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.AppointmentID == nil {
			continue
		}

		appt, err := w.appts.GetByID(ctx, *entry.AppointmentID)
		if err != nil {
			w.logger.Warn().Err(err).Int64("appointment_id", *entry.AppointmentID).
				Msg("failed to load appointment for retry")
			continue
		}

		retriesAttempted.Inc()
		if err := w.notifier.RetryConfirmation(ctx, appt); err != nil {
			retriesFailed.Inc()
			w.logger.Warn().Err(err).Int64("appointment_id", appt.ID).
				Msg("confirmation redelivery failed")
		}
	}
	return nil
}

func setupHealthCheck(db interface{ Ping() error }, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			logger.Error().Err(err).Msg("health check server failed")
			os.Exit(1)
		}
	}()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = *applogger.NewLogger(&applogger.Config{Level: level, TimeFormat: time.RFC3339}).Zerolog()

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

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

	appointmentRepo := postgres.NewAppointmentRepository(db)
	emailLogRepo := postgres.NewEmailLogRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)

	m := metrics.NewMetrics("booking", "worker")
	sender := email.NewSMTPService(cfg.SMTP, cfg.Clinic.BaseURL)
	notifier := notificationService.NewService(sender, appointmentRepo, emailLogRepo, broker, m, log.Logger)

	worker := NewRetryWorker(appointmentRepo, emailLogRepo, sessionRepo, notifier, cfg.Worker, log.Logger)

	setupHealthCheck(db, log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("shutting down...")
		cancel()
	}()

	worker.Start(ctx)
}
