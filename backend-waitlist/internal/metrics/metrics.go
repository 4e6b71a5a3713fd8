package metrics

import (
	"net/http"
	"time"

	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels
const (
	OutcomeOK       = "ok"
	OutcomeConflict = "conflict"
	OutcomeNotFound = "not_found"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

var (
	operations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_operations_total",
			Help: "Queue operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waitlist_operation_duration_seconds",
			Help:    "Duration of queue operations including conflict retries",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation"},
	)

	versionConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_version_conflicts_total",
			Help: "Optimistic concurrency conflicts seen on save",
		},
		[]string{"operation"},
	)

	notificationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_notifications_published_total",
			Help: "Notifications handed to the delivery channels",
		},
		[]string{"kind"},
	)

	publishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "waitlist_notification_publish_failures_total",
			Help: "Notification batches that failed on at least one channel",
		},
	)

	noShowsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "waitlist_sweeper_no_shows_total",
			Help: "Called customers expired to no-show by the sweeper",
		},
	)

	sweepFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "waitlist_sweeper_failures_total",
			Help: "Per-customer sweeper failures",
		},
	)
)

// Outcome classifies an operation error for the outcome label
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case domain.IsConflictError(err):
		return OutcomeConflict
	case domain.IsNotFoundError(err):
		return OutcomeNotFound
	case domain.IsValidationError(err), domain.IsBusinessRuleError(err), domain.IsTransitionError(err):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}

// ObserveOperation records one operation's outcome and latency
func ObserveOperation(operation string, start time.Time, err error) {
	operations.WithLabelValues(operation, Outcome(err)).Inc()
	operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// VersionConflict counts a conflicting save
func VersionConflict(operation string) {
	versionConflicts.WithLabelValues(operation).Inc()
}

// NotificationsPublished counts delivered notifications by kind
func NotificationsPublished(notifications []domain.Notification) {
	for _, n := range notifications {
		notificationsPublished.WithLabelValues(string(n.Kind)).Inc()
	}
}

// PublishFailed counts a failed batch
func PublishFailed() {
	publishFailures.Inc()
}

// NoShowExpired counts a sweeper expiry
func NoShowExpired() {
	noShowsExpired.Inc()
}

// SweepFailed counts a per-customer sweeper failure
func SweepFailed() {
	sweepFailures.Inc()
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
