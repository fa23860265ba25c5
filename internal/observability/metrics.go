package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for TourneyLedger.
type Metrics struct {
	// --- Engine ---
	OpsApplied   *prometheus.CounterVec
	OpsRejected  *prometheus.CounterVec
	OpDuration   *prometheus.HistogramVec
	Journals     *prometheus.CounterVec
	Tournaments  *prometheus.GaugeVec
	EngineSequence prometheus.Gauge

	// --- Value flow ---
	FeesCollected   prometheus.Counter
	PrizesEscrowed  prometheus.Counter
	PlatformFees    prometheus.Counter
	AmountsClaimed  *prometheus.CounterVec
	UnallocatedHeld prometheus.Counter

	// --- Channel & Backpressure ---
	ChannelSize         *prometheus.GaugeVec
	ChannelCapacity     *prometheus.GaugeVec
	ChannelUtilization  *prometheus.GaugeVec
	NotifyDrops         prometheus.Counter
	PersistBackpressure prometheus.Counter

	// --- Persistence ---
	PersistEventsWritten   prometheus.Counter
	PersistJournalsWritten prometheus.Counter
	PersistBatchSize       prometheus.Histogram
	PersistBatchDur        prometheus.Histogram
	PersistErrors          *prometheus.CounterVec
	PersistRetry           prometheus.Counter
	PersistLastSequence    prometheus.Gauge

	// --- Sweep ---
	SweepRuns      prometheus.Counter
	SweepStarted   prometheus.Counter
	SweepCanceled  prometheus.Counter
	SweepDuration  prometheus.Histogram

	// --- HTTP API ---
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	latencyBuckets := []float64{
		0.000001, 0.000005, 0.00001, 0.000025, 0.00005,
		0.0001, 0.00025, 0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	return &Metrics{
		// Engine
		OpsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tourney_ops_applied_total",
			Help: "Operations successfully applied",
		}, []string{"operation"}),

		OpsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tourney_ops_rejected_total",
			Help: "Operations rejected, labeled by taxonomy kind",
		}, []string{"operation", "kind"}),

		OpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tourney_op_duration_seconds",
			Help:    "Time to apply a single operation under the instance lock",
			Buckets: latencyBuckets,
		}, []string{"operation"}),

		Journals: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tourney_journals_generated_total",
			Help: "Journal entries generated",
		}, []string{"journal_type"}),

		Tournaments: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tourney_instances",
			Help: "Registered tournament instances by status",
		}, []string{"status"}),

		EngineSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "tourney_engine_sequence",
			Help: "Last emitted event sequence number",
		}),

		// Value flow
		FeesCollected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tourney_fees_collected_total",
			Help: "Entry fees collected (minor units)",
		}),

		PrizesEscrowed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tourney_prizes_escrowed_total",
			Help: "Creator prize pools escrowed (minor units)",
		}),

		PlatformFees: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tourney_platform_fees_total",
			Help: "Platform fees accrued at distribution (minor units)",
		}),

		AmountsClaimed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tourney_claimed_total",
			Help: "Value claimed by players (minor units)",
		}, []string{"kind"}),

		UnallocatedHeld: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tourney_unallocated_total",
			Help: "Flooring residue retained in escrow (minor units)",
		}),

		// Channel & Backpressure
		ChannelSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tourney_channel_size",
			Help: "Current items in channel",
		}, []string{"name"}),

		ChannelCapacity: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tourney_channel_capacity",
			Help: "Channel capacity (constant)",
		}, []string{"name"}),

		ChannelUtilization: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tourney_channel_utilization",
			Help: "Channel size / capacity (0.0-1.0)",
		}, []string{"name"}),

		NotifyDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tourney_notify_drops_total",
			Help: "Envelopes dropped due to full notify channel",
		}),

		PersistBackpressure: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tourney_persist_backpressure_total",
			Help: "Times the engine blocked on the persist channel",
		}),

		// Persistence
		PersistEventsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tourney_persist_events_written_total",
			Help: "Event envelopes written to Postgres",
		}),

		PersistJournalsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tourney_persist_journals_written_total",
			Help: "Journal entries written to Postgres",
		}),

		PersistBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tourney_persist_batch_size",
			Help:    "Envelopes per write batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),

		PersistBatchDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tourney_persist_batch_duration_seconds",
			Help:    "Postgres batch write duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tourney_persist_errors_total",
			Help: "Persistence errors",
		}, []string{"error_type"}),

		PersistRetry: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tourney_persist_retry_total",
			Help: "Persistence retries",
		}),

		PersistLastSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "tourney_persist_last_sequence",
			Help: "Last persisted envelope sequence",
		}),

		// Sweep
		SweepRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tourney_sweep_runs_total",
			Help: "Deadline sweep executions",
		}),

		SweepStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tourney_sweep_started_total",
			Help: "Tournaments auto-started by the sweep",
		}),

		SweepCanceled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tourney_sweep_canceled_total",
			Help: "Tournaments auto-canceled below minimum players",
		}),

		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tourney_sweep_duration_seconds",
			Help:    "Wall time of one sweep pass",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1.0},
		}),

		// HTTP API
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tourney_http_requests_total",
			Help: "HTTP API requests",
		}, []string{"route", "status"}),

		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tourney_http_request_duration_seconds",
			Help:    "HTTP API request latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"route"}),
	}
}

// SetChannelMetrics updates channel utilization metrics.
func (m *Metrics) SetChannelMetrics(name string, size, capacity int) {
	m.ChannelSize.WithLabelValues(name).Set(float64(size))
	m.ChannelCapacity.WithLabelValues(name).Set(float64(capacity))
	if capacity > 0 {
		m.ChannelUtilization.WithLabelValues(name).Set(float64(size) / float64(capacity))
	}
}
