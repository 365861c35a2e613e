package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the verification pipeline.
type Metrics struct {
	RunsCompleted    *prometheus.CounterVec
	SignalFailures   *prometheus.CounterVec
	QRShortCircuits  prometheus.Counter
	DuplicatesFlagged *prometheus.CounterVec

	ConfidenceScore prometheus.Histogram
	RunLatency      prometheus.Histogram
}

// New registers and returns verification metrics collectors.
func New() *Metrics {
	return &Metrics{
		RunsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_verification_runs_total",
			Help: "Total number of completed verification runs, labeled by decision",
		}, []string{"decision"}),
		SignalFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_verification_signal_failures_total",
			Help: "Total number of signal extractor failures, labeled by signal",
		}, []string{"signal"}),
		QRShortCircuits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veritas_verification_qr_short_circuits_total",
			Help: "Total number of runs decided by QR verification alone",
		}),
		DuplicatesFlagged: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_verification_duplicates_flagged_total",
			Help: "Total number of documents flagged as duplicates, labeled by basis",
		}, []string{"basis"}),
		ConfidenceScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "veritas_verification_confidence_score",
			Help:    "Distribution of aggregate confidence scores",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1},
		}),
		RunLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "veritas_verification_run_latency_seconds",
			Help:    "Latency of full verification runs in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementRunsCompleted(decision string) {
	if m == nil {
		return
	}
	m.RunsCompleted.WithLabelValues(decision).Inc()
}

func (m *Metrics) IncrementSignalFailure(signal string) {
	if m == nil {
		return
	}
	m.SignalFailures.WithLabelValues(signal).Inc()
}

func (m *Metrics) IncrementQRShortCircuits() {
	if m == nil {
		return
	}
	m.QRShortCircuits.Inc()
}

func (m *Metrics) IncrementDuplicatesFlagged(basis string) {
	if m == nil {
		return
	}
	m.DuplicatesFlagged.WithLabelValues(basis).Inc()
}

func (m *Metrics) ObserveConfidenceScore(score float64) {
	if m == nil {
		return
	}
	m.ConfidenceScore.Observe(score)
}

// ObserveRunLatency records the duration of one verification run.
func (m *Metrics) ObserveRunLatency(durationSeconds float64) {
	if m == nil {
		return
	}
	m.RunLatency.Observe(durationSeconds)
}
