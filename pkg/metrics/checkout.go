package metrics

import "github.com/prometheus/client_golang/prometheus"

// Payment verification outcomes.
const (
	OutcomeVerified         = "verified"
	OutcomeBadSignature     = "bad_signature"
	OutcomeDuplicate        = "duplicate"
	OutcomeCouponRejected   = "coupon_rejected"
	OutcomeValidationFailed = "validation_failed"
	OutcomeError            = "error"
)

// CheckoutMetrics counts payment intents and verification outcomes.
type CheckoutMetrics struct {
	intents       *prometheus.CounterVec
	verifications *prometheus.CounterVec
	cancellations prometheus.Counter
	deliveries    prometheus.Counter
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	intents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_intents_total",
		Help:      "Gateway orders created, by result.",
	}, []string{"result"})
	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_verifications_total",
		Help:      "Payment verification attempts, by outcome.",
	}, []string{"outcome"})
	cancellations := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_cancellations_total",
		Help:      "Orders cancelled by customers.",
	})
	deliveries := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_deliveries_total",
		Help:      "Orders marked delivered by admins.",
	})
	reg.MustRegister(intents, verifications, cancellations, deliveries)
	return &CheckoutMetrics{
		intents:       intents,
		verifications: verifications,
		cancellations: cancellations,
		deliveries:    deliveries,
	}
}

func (c *CheckoutMetrics) IncIntent(ok bool) {
	if c == nil || c.intents == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	c.intents.WithLabelValues(result).Inc()
}

func (c *CheckoutMetrics) IncVerification(outcome string) {
	if c == nil || c.verifications == nil {
		return
	}
	c.verifications.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (c *CheckoutMetrics) IncCancellation() {
	if c == nil || c.cancellations == nil {
		return
	}
	c.cancellations.Inc()
}

func (c *CheckoutMetrics) IncDelivery() {
	if c == nil || c.deliveries == nil {
		return
	}
	c.deliveries.Inc()
}
