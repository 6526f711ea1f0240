package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger metrics
	EntriesPosted   prometheus.Counter
	EntriesReversed prometheus.Counter

	// Funding gate metrics
	BatchesCommitted prometheus.Counter
	FundingDenied    prometheus.Counter
	GateDuration     prometheus.Histogram

	// Payment metrics
	InstructionsCreated   prometheus.Counter
	InstructionsSubmitted prometheus.Counter
	InstructionsSettled   prometheus.Counter
	InstructionsReturned  prometheus.Counter
	ExecuteDuration       prometheus.Histogram

	// Settlement metrics
	SettlementRecordsIngested prometheus.Counter
	SettlementUnmatched       prometheus.Counter

	// Liability metrics
	LiabilitiesClassified *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Database metrics
	DBErrors      *prometheus.CounterVec
	DBConnections prometheus.Gauge

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		EntriesPosted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pspcore_ledger_entries_posted_total",
			Help: "Total number of ledger entries posted",
		}),
		EntriesReversed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pspcore_ledger_entries_reversed_total",
			Help: "Total number of ledger entries reversed",
		}),

		BatchesCommitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pspcore_batches_committed_total",
			Help: "Total number of payroll batches committed through the funding gate",
		}),
		FundingDenied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pspcore_funding_denied_total",
			Help: "Total number of funding gate denials",
		}),
		GateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pspcore_gate_duration_seconds",
			Help:    "Duration of funding gate commits",
			Buckets: prometheus.DefBuckets,
		}),

		InstructionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pspcore_instructions_created_total",
			Help: "Total number of payment instructions created",
		}),
		InstructionsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pspcore_instructions_submitted_total",
			Help: "Total number of payment instructions submitted to providers",
		}),
		InstructionsSettled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pspcore_instructions_settled_total",
			Help: "Total number of payment instructions settled",
		}),
		InstructionsReturned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pspcore_instructions_returned_total",
			Help: "Total number of payment instructions returned",
		}),
		ExecuteDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pspcore_execute_duration_seconds",
			Help:    "Duration of batch execution",
			Buckets: prometheus.DefBuckets,
		}),

		SettlementRecordsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pspcore_settlement_records_ingested_total",
			Help: "Total number of settlement feed records ingested",
		}),
		SettlementUnmatched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pspcore_settlement_unmatched_total",
			Help: "Total number of settlement records with no matching instruction",
		}),

		LiabilitiesClassified: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pspcore_liabilities_classified_total",
				Help: "Total liability events classified, by loss-bearing party",
			},
			[]string{"party"},
		),

		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pspcore_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pspcore_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		DBErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pspcore_db_errors_total",
				Help: "Total database errors",
			},
			[]string{"operation"},
		),
		DBConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pspcore_db_connections",
			Help: "Current number of database connections",
		}),

		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pspcore_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"ip"},
		),
	}
}
