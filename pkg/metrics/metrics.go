package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Booking metrics
	BookingsCreated   prometheus.Counter
	BookingConflicts  prometheus.Counter
	BookingsCancelled *prometheus.CounterVec
	BookingsRejected  *prometheus.CounterVec

	// Email delivery metrics
	EmailsSent    *prometheus.CounterVec
	EmailsFailed  *prometheus.CounterVec
	EmailLatency  prometheus.Histogram
	EmailRetries  prometheus.Counter

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
	DatabaseLatency    *prometheus.HistogramVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		BookingsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "bookings_created_total",
			Help:      "Total number of appointments booked",
		}),
		BookingConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "booking_conflicts_total",
			Help:      "Total number of bookings rejected because the slot was taken",
		}),
		BookingsCancelled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "bookings_cancelled_total",
			Help:      "Total number of cancellations by origin",
		}, []string{"origin"}),
		BookingsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "bookings_rejected_total",
			Help:      "Total number of booking submissions rejected before persistence",
		}, []string{"reason"}),
		EmailsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "emails_sent_total",
			Help:      "Total number of emails delivered by kind",
		}, []string{"kind"}),
		EmailsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "emails_failed_total",
			Help:      "Total number of email deliveries that failed by kind",
		}, []string{"kind"}),
		EmailLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "email_delivery_duration_seconds",
			Help:      "Time spent delivering a single email",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 15},
		}),
		EmailRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "email_retry_attempts_total",
			Help:      "Total number of redelivery attempts made by the worker",
		}),
		DatabaseOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "database_operations_total",
			Help:      "Total number of database operations by type and status",
		}, []string{"operation", "status"}),
		DatabaseLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "database_operation_duration_seconds",
			Help:      "Time spent on database operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
	}
}
