// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreDurable is 1 while the durable store answers and 0 while requests
	// are served from the in-process mirror.
	StoreDurable = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "hotel",
		Name:      "store_durable",
		Help:      "1 when the durable store is serving requests, 0 in fallback mode.",
	})

	StoreFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hotel",
		Name:      "store_fallbacks_total",
		Help:      "Operations re-executed against the mirror after a durable store error.",
	}, []string{"collection", "op"})

	OrderTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hotel",
		Name:      "order_transitions_total",
		Help:      "Guest order status transitions.",
	}, []string{"from", "to"})

	OrdersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hotel",
		Name:      "orders_created_total",
		Help:      "Guest orders created, by order type.",
	}, []string{"order_type"})

	EventPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hotel",
		Name:      "order_event_publish_failures_total",
		Help:      "Order events that could not be handed to the broker.",
	})
)
