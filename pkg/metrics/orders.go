package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics counts checkout and fulfilment activity.
type OrderMetrics struct {
	created              *prometheus.CounterVec
	transitions          *prometheus.CounterVec
	notificationFailures prometheus.Counter
}

// NewOrderMetrics registers the order metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_orders_created_total",
		Help: "Orders created, by payment method.",
	}, []string{"payment_method"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_order_status_transitions_total",
		Help: "Committed order status transitions.",
	}, []string{"from", "to"})
	notificationFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_notification_failures_total",
		Help: "Customer notifications that could not be delivered.",
	})
	reg.MustRegister(created, transitions, notificationFailures)
	return &OrderMetrics{
		created:              created,
		transitions:          transitions,
		notificationFailures: notificationFailures,
	}
}

func (m *OrderMetrics) IncCreated(paymentMethod string) {
	if m == nil || m.created == nil {
		return
	}
	m.created.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

func (m *OrderMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (m *OrderMetrics) IncNotificationFailure() {
	if m == nil || m.notificationFailures == nil {
		return
	}
	m.notificationFailures.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
