package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of the web surface.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	GateDecisions   *prometheus.CounterVec
	SessionActive   prometheus.Gauge
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "trackify",
				Subsystem: "web",
				Name:      "requests_total",
				Help:      "Total number of web surface requests",
			},
			[]string{"method", "area", "status"}, // status=2xx/3xx/4xx/5xx
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "trackify",
				Subsystem: "web",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"area"},
		),
		GateDecisions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "trackify",
				Subsystem: "gate",
				Name:      "decisions_total",
				Help:      "Route gate decisions by area and outcome",
			},
			[]string{"area", "decision"}, // decision=render/redirect/not_found/unavailable
		),
		SessionActive: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "trackify",
				Name:      "session_active",
				Help:      "1 while a session is cached",
			},
		),
	}
}
