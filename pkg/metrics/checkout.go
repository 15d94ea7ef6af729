package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout outcomes used as label values.
const (
	OutcomeSuccess      = "success"
	OutcomeInsufficient = "insufficient_stock"
	OutcomeInvalid      = "invalid"
	OutcomeError        = "error"
)

// CheckoutMetrics tracks the checkout saga. A nil receiver is a no-op.
type CheckoutMetrics struct {
	attempts      *prometheus.CounterVec
	reservations  *prometheus.CounterVec
	compensations prometheus.Counter
	duration      prometheus.Histogram
}

// NewCheckoutMetrics registers the checkout collectors on reg.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return nil
	}
	m := &CheckoutMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_attempts_total",
			Help: "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stock_reservations_total",
			Help: "Per-line stock reservations by outcome.",
		}, []string{"outcome"}),
		compensations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checkout_compensations_total",
			Help: "Reserved lines returned to stock after a failed checkout.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "checkout_duration_seconds",
			Help:    "Wall time of the checkout saga.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.attempts, m.reservations, m.compensations, m.duration)
	return m
}

// ObserveAttempt records one finished checkout.
func (m *CheckoutMetrics) ObserveAttempt(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(normalizeLabel(outcome)).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// IncReservation counts one line reservation.
func (m *CheckoutMetrics) IncReservation(outcome string) {
	if m == nil {
		return
	}
	m.reservations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncCompensation counts one released line.
func (m *CheckoutMetrics) IncCompensation() {
	if m == nil {
		return
	}
	m.compensations.Inc()
}
