package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for revocation operations.
type Metrics struct {
	Revocations   *prometheus.CounterVec
	Suspensions   *prometheus.CounterVec
	Restorations  prometheus.Counter
	RecordsPurged prometheus.Counter
	StatusChecks  *prometheus.CounterVec
	ListVersion   *prometheus.GaugeVec
}

// New registers and returns revocation metrics collectors.
func New() *Metrics {
	return &Metrics{
		Revocations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_revocations_total",
			Help: "Total number of credentials revoked, labeled by reason",
		}, []string{"reason"}),
		Suspensions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_suspensions_total",
			Help: "Total number of credentials suspended, labeled by reason",
		}, []string{"reason"}),
		Restorations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veritas_restorations_total",
			Help: "Total number of suspended credentials restored",
		}),
		RecordsPurged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veritas_revocation_records_purged_total",
			Help: "Total number of stale revocation records removed by cleanup",
		}),
		StatusChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_revocation_status_checks_total",
			Help: "Total number of revocation status checks, labeled by status",
		}, []string{"status"}),
		ListVersion: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "veritas_revocation_list_version",
			Help: "Current revocation list version per issuer",
		}, []string{"issuer"}),
	}
}

func (m *Metrics) IncrementRevocations(reason string) {
	if m == nil {
		return
	}
	m.Revocations.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementSuspensions(reason string) {
	if m == nil {
		return
	}
	m.Suspensions.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementRestorations() {
	if m == nil {
		return
	}
	m.Restorations.Inc()
}

func (m *Metrics) AddRecordsPurged(count int) {
	if m == nil {
		return
	}
	m.RecordsPurged.Add(float64(count))
}

func (m *Metrics) IncrementStatusChecks(status string) {
	if m == nil {
		return
	}
	m.StatusChecks.WithLabelValues(status).Inc()
}

func (m *Metrics) SetListVersion(issuer string, version int64) {
	if m == nil {
		return
	}
	m.ListVersion.WithLabelValues(issuer).Set(float64(version))
}
