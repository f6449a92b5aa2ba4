package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for eligibility evaluation.
type Metrics struct {
	// Evidence gathering latencies by source
	EvidenceLatency *prometheus.HistogramVec

	Verdicts *prometheus.CounterVec

	EvaluateLatency prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		EvidenceLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "licensing_eligibility_evidence_duration_seconds",
			Help:    "Duration of evidence lookups by source",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"source"}), // source: "theory", "practical", "payment"

		Verdicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "licensing_eligibility_verdicts_total",
			Help: "Eligibility verdicts by outcome",
		}, []string{"eligible"}),

		EvaluateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "licensing_eligibility_evaluate_duration_seconds",
			Help:    "Duration of a full eligibility evaluation",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

func (m *Metrics) ObserveEvidenceLatency(source string, d time.Duration) {
	if m != nil {
		m.EvidenceLatency.WithLabelValues(source).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementVerdict(eligible bool) {
	if m != nil {
		m.Verdicts.WithLabelValues(strconv.FormatBool(eligible)).Inc()
	}
}

func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}
