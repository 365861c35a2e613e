package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for credential issuance and
// verification.
type Metrics struct {
	CredentialsIssued  *prometheus.CounterVec
	IssuanceRejections *prometheus.CounterVec
	IssuanceLatency    prometheus.Histogram

	Verifications        *prometheus.CounterVec
	VerificationFailures *prometheus.CounterVec
}

// New registers and returns credential metrics collectors.
func New() *Metrics {
	return &Metrics{
		CredentialsIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_credentials_issued_total",
			Help: "Total number of credentials issued, labeled by credential type",
		}, []string{"credential_type"}),
		IssuanceRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_issuance_rejections_total",
			Help: "Total number of issuance requests rejected, labeled by reason",
		}, []string{"reason"}),
		IssuanceLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "veritas_issuance_latency_seconds",
			Help:    "Latency of credential issuance in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_credential_verifications_total",
			Help: "Total number of credential verifications, labeled by outcome",
		}, []string{"outcome"}),
		VerificationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_credential_verification_failures_total",
			Help: "Total number of failed verification checks, labeled by check",
		}, []string{"check"}),
	}
}

func (m *Metrics) IncrementCredentialsIssued(credentialType string) {
	if m == nil {
		return
	}
	m.CredentialsIssued.WithLabelValues(credentialType).Inc()
}

func (m *Metrics) IncrementIssuanceRejections(reason string) {
	if m == nil {
		return
	}
	m.IssuanceRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveIssuanceLatency(durationSeconds float64) {
	if m == nil {
		return
	}
	m.IssuanceLatency.Observe(durationSeconds)
}

func (m *Metrics) IncrementVerifications(outcome string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementVerificationFailures(check string) {
	if m == nil {
		return
	}
	m.VerificationFailures.WithLabelValues(check).Inc()
}
