package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service collectors. They are registered on their own
// registry so several servers can coexist in one process
type Metrics struct {
	registry *prometheus.Registry

	RequestCount       *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	Conversions        *prometheus.CounterVec
	ConversionDuration prometheus.Histogram
}

// NewMetrics creates and registers the collectors
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestCount: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mdinliner_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "mdinliner_request_duration_seconds",
				Help: "HTTP request duration in seconds",
			},
			[]string{"method", "endpoint"},
		),
		Conversions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mdinliner_conversions_total",
				Help: "Total number of conversions by outcome",
			},
			[]string{"outcome"},
		),
		ConversionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name: "mdinliner_conversion_duration_seconds",
				Help: "Conversion latency in seconds",
			},
		),
	}
}
