package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers license issuance, revocation and artifact downloads.
type Metrics struct {
	// outcome: "created", "existing", "not_eligible", "error"
	Issuance *prometheus.CounterVec

	NumberCollisions prometheus.Counter
	Revocations      prometheus.Counter

	Downloads *prometheus.CounterVec

	IssueLatency prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		Issuance: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "licensing_license_issuance_total",
			Help: "License issuance requests by outcome",
		}, []string{"outcome"}),
		NumberCollisions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "licensing_license_number_collisions_total",
			Help: "Generated license numbers rejected by the unique index",
		}),
		Revocations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "licensing_license_revocations_total",
			Help: "Licenses revoked",
		}),
		Downloads: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "licensing_license_downloads_total",
			Help: "Rendered license documents by photo fallback",
		}, []string{"placeholder"}),
		IssueLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "licensing_license_issue_duration_seconds",
			Help:    "Duration of license issuance",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

func (m *Metrics) IncrementIssuance(outcome string) {
	if m != nil {
		m.Issuance.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementNumberCollision() {
	if m != nil {
		m.NumberCollisions.Inc()
	}
}

func (m *Metrics) IncrementRevocation() {
	if m != nil {
		m.Revocations.Inc()
	}
}

func (m *Metrics) IncrementDownload(placeholder bool) {
	if m != nil {
		m.Downloads.WithLabelValues(strconv.FormatBool(placeholder)).Inc()
	}
}

func (m *Metrics) ObserveIssueLatency(d time.Duration) {
	if m != nil {
		m.IssueLatency.Observe(d.Seconds())
	}
}
