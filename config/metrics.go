package config

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "selecta_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	MovementsConfirmed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "selecta_inventory_movements_confirmed_total",
		Help: "Inventory movements confirmed, by movement type.",
	}, []string{"type"})

	PurchaseOrderTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "selecta_purchase_order_transitions_total",
		Help: "Purchase order state transitions, by target state.",
	}, []string{"to"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "selecta_cache_lookups_total",
		Help: "Tagged cache lookups, by tag and result (hit|miss).",
	}, []string{"tag", "result"})
)
