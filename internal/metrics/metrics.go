// Package metrics defines the Prometheus collectors for the progress engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Completions counts recorded completions by context kind.
	Completions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "readup_completions_total",
		Help: "Segment completions recorded in the ledger by context",
	}, []string{"context"})

	// PersistenceErrors counts failed ledger and state store operations.
	PersistenceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "readup_persistence_errors_total",
		Help: "Failed persistence operations by tier and operation",
	}, []string{"tier", "operation"})

	// Reconciliations counts boot corrections of session state from the ledger.
	Reconciliations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "readup_reconciliation_corrections_total",
		Help: "Session state entries corrected from the ledger by kind",
	}, []string{"kind"})

	// CurrentStreak is the stored current streak after the last update.
	CurrentStreak = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "readup_current_streak_days",
		Help: "Current reading streak in days",
	})

	// AchievementsUnlocked counts false to true achievement transitions.
	AchievementsUnlocked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "readup_achievements_unlocked_total",
		Help: "Achievements reached for the first time",
	})

	// StreamClients is the number of connected event stream clients.
	StreamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "readup_stream_clients",
		Help: "Connected server-sent event clients",
	})

	// StreamDropped counts events not delivered because a client buffer was full.
	StreamDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "readup_stream_dropped_events_total",
		Help: "Events dropped for slow stream clients",
	})

	// OperationDuration tracks progress operation latency.
	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "readup_operation_duration_seconds",
		Help:    "Progress operation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
	}, []string{"operation"})
)

// Persistence tiers.
const (
	TierLedger = "ledger"
	TierState  = "state"
)

// PersistenceError records a failed operation.
func PersistenceError(tier, op string) {
	PersistenceErrors.WithLabelValues(tier, op).Inc()
}
