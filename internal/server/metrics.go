package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	settingsWrites  *prometheus.CounterVec
	settingsVersion *prometheus.GaugeVec
	allocations     prometheus.Counter
	chatReplies     *prometheus.CounterVec
}

// NewMetrics registers the server collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paysplit_http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "paysplit_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		settingsWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paysplit_settings_writes_total",
				Help: "Settings writes by result (stored, stale, invalid, error)",
			},
			[]string{"result"},
		),
		settingsVersion: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "paysplit_settings_version",
				Help: "Latest stored settings version per profile",
			},
			[]string{"profile"},
		),
		allocations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "paysplit_budget_allocations_total",
				Help: "Budget allocation plans computed",
			},
		),
		chatReplies: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paysplit_chat_replies_total",
				Help: "Chat replies by source (assistant, fallback, error)",
			},
			[]string{"source"},
		),
	}
}

// Registry exposes the registry for scraping.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
