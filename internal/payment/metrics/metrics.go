package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts payment submissions and review outcomes.
type Metrics struct {
	Payments       *prometheus.CounterVec
	GatewayFailure prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Payments: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "licensing_payments_total",
			Help: "Payments by resulting status",
		}, []string{"status"}),
		GatewayFailure: promauto.NewCounter(prometheus.CounterOpts{
			Name: "licensing_payment_gateway_failures_total",
			Help: "Failed payment gateway charge requests",
		}),
	}
}

func (m *Metrics) IncrementStatus(status string) {
	if m != nil {
		m.Payments.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) IncrementGatewayFailure() {
	if m != nil {
		m.GatewayFailure.Inc()
	}
}
