package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for transaction evaluation.
type Metrics struct {
	// Evaluation outcomes by result ("approved", "review", "rejected") and transaction type
	Outcomes *prometheus.CounterVec

	// Rules that fired, by rule name
	RulesApplied *prometheus.CounterVec

	// Engine evaluation latency
	EvaluateLatency prometheus.Histogram

	// Batch sizes accepted by the batch endpoint
	BatchSize prometheus.Histogram

	// References served by the UUID fallback when the sequence store is down
	ReferenceFallbacks prometheus.Counter
}

// New registers all evaluation metrics on reg. Tests pass a fresh
// prometheus.NewRegistry() so suites do not collide.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "txguard_evaluation_outcomes_total",
			Help: "Total transaction evaluations by outcome and transaction type",
		}, []string{"outcome", "transaction_type"}),

		RulesApplied: f.NewCounterVec(prometheus.CounterOpts{
			Name: "txguard_evaluation_rules_applied_total",
			Help: "Total rule firings by rule name",
		}, []string{"rule"}),

		EvaluateLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "txguard_evaluation_duration_seconds",
			Help:    "Duration of a single transaction evaluation",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),

		BatchSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "txguard_evaluation_batch_size",
			Help:    "Number of transactions per batch evaluation",
			Buckets: []float64{1, 5, 10, 25, 50, 100},
		}),

		ReferenceFallbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "txguard_reference_fallbacks_total",
			Help: "References generated by the UUID fallback because the sequence store failed",
		}),
	}
}

// IncrementOutcome records an evaluation outcome.
func (m *Metrics) IncrementOutcome(outcome, transactionType string) {
	if m != nil {
		m.Outcomes.WithLabelValues(outcome, transactionType).Inc()
	}
}

// IncrementRule records that a rule fired.
func (m *Metrics) IncrementRule(rule string) {
	if m != nil {
		m.RulesApplied.WithLabelValues(rule).Inc()
	}
}

// ObserveEvaluateLatency records one evaluation's duration.
func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}

// ObserveBatchSize records the size of an accepted batch.
func (m *Metrics) ObserveBatchSize(n int) {
	if m != nil {
		m.BatchSize.Observe(float64(n))
	}
}
