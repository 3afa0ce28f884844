package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
)

// Metrics holds the payment-core prometheus collectors.
type Metrics struct {
	NotificationsTotal *prometheus.CounterVec
	OrdersCreatedTotal *prometheus.CounterVec
	CreditedAmount     *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		NotificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "platform",
			Subsystem: "payment",
			Name:      "notifications_total",
			Help:      "Payment notifications processed, by provider and result.",
		}, []string{"provider", "result"}),
		OrdersCreatedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "platform",
			Subsystem: "payment",
			Name:      "charge_orders_created_total",
			Help:      "Charge orders created, by channel.",
		}, []string{"channel"}),
		CreditedAmount: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "platform",
			Subsystem: "payment",
			Name:      "credited_amount_total",
			Help:      "Total amount credited to account balances, by currency (minor units).",
		}, []string{"currency"}),
	}
}

func (m *Metrics) RecordNotification(provider string, result string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(provider, result).Inc()
}

func (m *Metrics) RecordOrderCreated(channel string) {
	if m == nil {
		return
	}
	m.OrdersCreatedTotal.WithLabelValues(channel).Inc()
}

func (m *Metrics) RecordCredit(currency string, amount int64) {
	if m == nil {
		return
	}
	m.CreditedAmount.WithLabelValues(currency).Add(float64(amount))
}

var Module = fx.Module("metrics",
	fx.Provide(New),
)
