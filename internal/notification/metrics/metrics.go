package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks outbox draining.
type Metrics struct {
	Published     *prometheus.CounterVec
	PublishErrors prometheus.Counter
	Backlog       prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		Published: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "licensing_notifications_published_total",
			Help: "Outbox events published by event type",
		}, []string{"event_type"}),
		PublishErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "licensing_notifications_publish_errors_total",
			Help: "Failed outbox publish attempts",
		}),
		Backlog: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "licensing_notifications_last_batch_size",
			Help: "Size of the most recent outbox batch",
		}),
	}
}

func (m *Metrics) IncrementPublished(eventType string) {
	if m != nil {
		m.Published.WithLabelValues(eventType).Inc()
	}
}

func (m *Metrics) IncrementPublishErrors() {
	if m != nil {
		m.PublishErrors.Inc()
	}
}

func (m *Metrics) SetBatchSize(n int) {
	if m != nil {
		m.Backlog.Set(float64(n))
	}
}
