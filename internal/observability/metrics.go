// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Sync metrics
	TransfersApplied        *prometheus.CounterVec
	TransfersSkipped        prometheus.Counter
	SyncCyclesTotal         *prometheus.CounterVec
	SyncCycleDuration       *prometheus.HistogramVec
	CursorSlot              *prometheus.GaugeVec
	WSPokesReceived         prometheus.Counter
	ProviderErrors          *prometheus.CounterVec

	// Snapshot metrics
	SnapshotsWritten     prometheus.Counter
	SnapshotsArchived    prometheus.Counter
	SnapshotsCleaned     prometheus.Counter
	SnapshotHolderCount  prometheus.Gauge
	TokenPriceUSD        prometheus.Gauge

	// Eligibility metrics
	EligibleHolders   prometheus.Gauge
	EligibilityRevoked prometheus.Counter

	// Winner metrics
	WinnersSelected prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulSync     *prometheus.GaugeVec
	LastSuccessfulSnapshot prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "holder_rewards"
	}

	return &Metrics{
		// Sync metrics
		TransfersApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "transfers_applied_total",
			Help:      "Total number of transfers applied by result",
		}, []string{"result"}),
		TransfersSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "transfers_skipped_total",
			Help:      "Total number of transfers skipped as inconsistent",
		}),
		SyncCyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "cycles_total",
			Help:      "Total number of sync cycles by task and status",
		}, []string{"task", "status"}),
		SyncCycleDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "cycle_duration_seconds",
			Help:      "Sync cycle duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"task"}),
		CursorSlot: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "cursor_slot",
			Help:      "Last committed sync cursor by provider",
		}, []string{"provider"}),
		WSPokesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "ws_pokes_received_total",
			Help:      "Total number of WebSocket wake-up pokes received",
		}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "provider_errors_total",
			Help:      "Total number of provider errors by provider",
		}, []string{"provider"}),

		// Snapshot metrics
		SnapshotsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "rows_written_total",
			Help:      "Total number of snapshot rows written",
		}),
		SnapshotsArchived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "rows_archived_total",
			Help:      "Total number of snapshot rows archived to ClickHouse",
		}),
		SnapshotsCleaned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "rows_cleaned_total",
			Help:      "Total number of expired snapshot rows deleted",
		}),
		SnapshotHolderCount: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "holder_count",
			Help:      "Number of holders seen by the last snapshot cycle",
		}),
		TokenPriceUSD: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "token_price_usd",
			Help:      "Token USD price used by the last snapshot cycle",
		}),

		// Eligibility metrics
		EligibleHolders: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "eligibility",
			Name:      "eligible_holders",
			Help:      "Number of currently eligible holders",
		}),
		EligibilityRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "eligibility",
			Name:      "revocations_total",
			Help:      "Total number of eligibility revocations from sells",
		}),

		// Winner metrics
		WinnersSelected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reward",
			Name:      "winners_selected_total",
			Help:      "Total number of monthly winners selected",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulSync: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_sync_timestamp",
			Help:      "Unix timestamp of last successful sync by task",
		}, []string{"task"}),
		LastSuccessfulSnapshot: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_snapshot_timestamp",
			Help:      "Unix timestamp of last successful snapshot cycle",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTransferApplied increments the transfer counter for a result.
func RecordTransferApplied(result string) {
	DefaultMetrics.TransfersApplied.WithLabelValues(result).Inc()
	if result == "skipped" {
		DefaultMetrics.TransfersSkipped.Inc()
	}
}

// RecordSyncCycle records one completed sync cycle.
func RecordSyncCycle(task, status string, durationSeconds float64) {
	DefaultMetrics.SyncCyclesTotal.WithLabelValues(task, status).Inc()
	DefaultMetrics.SyncCycleDuration.WithLabelValues(task).Observe(durationSeconds)
}

// UpdateCursor updates the committed cursor gauge for a provider.
func UpdateCursor(provider string, slot int64) {
	DefaultMetrics.CursorSlot.WithLabelValues(provider).Set(float64(slot))
}

// RecordWSPoke increments the WebSocket poke counter.
func RecordWSPoke() {
	DefaultMetrics.WSPokesReceived.Inc()
}

// RecordProviderError increments the provider error counter.
func RecordProviderError(provider string) {
	DefaultMetrics.ProviderErrors.WithLabelValues(provider).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordWinnerSelected increments the winner counter.
func RecordWinnerSelected() {
	DefaultMetrics.WinnersSelected.Inc()
}
