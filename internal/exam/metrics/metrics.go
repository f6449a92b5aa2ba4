package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts schedule transitions and recorded results.
type Metrics struct {
	Transitions *prometheus.CounterVec
	Results     *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "licensing_exam_schedule_transitions_total",
			Help: "Exam schedule transitions by resulting status",
		}, []string{"status"}),
		Results: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "licensing_exam_results_total",
			Help: "Exam results recorded by kind and outcome",
		}, []string{"kind", "passed"}),
	}
}

func (m *Metrics) IncrementTransition(status string) {
	if m != nil {
		m.Transitions.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) IncrementResult(kind string, passed bool) {
	if m == nil {
		return
	}
	outcome := "false"
	if passed {
		outcome = "true"
	}
	m.Results.WithLabelValues(kind, outcome).Inc()
}
