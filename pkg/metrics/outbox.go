package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outbox dispatch outcomes.
const (
	OutboxPublished    = "published"
	OutboxRetried      = "retried"
	OutboxDeadLettered = "dead_lettered"
)

// OutboxMetrics counts order and account events leaving the outbox.
type OutboxMetrics struct {
	dispatched *prometheus.CounterVec
	backlog    prometheus.Gauge
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	dispatched := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_events_total",
		Help:      "Outbox rows handled by the publisher, by event type and outcome.",
	}, []string{"event_type", "outcome"})
	backlog := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "outbox_batch_size",
		Help:      "Rows claimed by the most recent publisher batch.",
	})
	reg.MustRegister(dispatched, backlog)
	return &OutboxMetrics{dispatched: dispatched, backlog: backlog}
}

// Observe records one dispatched row.
func (o *OutboxMetrics) Observe(eventType, outcome string) {
	if o == nil || o.dispatched == nil {
		return
	}
	o.dispatched.WithLabelValues(normalizeLabel(eventType), outcome).Inc()
}

// SetBatch records how many rows the last batch claimed.
func (o *OutboxMetrics) SetBatch(n int) {
	if o == nil || o.backlog == nil {
		return
	}
	o.backlog.Set(float64(n))
}
