// Package metrics defines the Prometheus instrumentation for the service.
// promauto registers everything against the default registry, which the
// server exposes on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts processed requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vectorwise_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures server response time per endpoint.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vectorwise_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	// VectorsTotal tracks the number of vectors in the currently loaded index.
	VectorsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vectorwise_vectors_total",
			Help: "Number of vectors in the loaded index",
		},
	)

	// SearchesTotal counts executed k-NN searches by outcome.
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vectorwise_searches_total",
			Help: "Total number of k-NN searches executed",
		},
		[]string{"outcome"},
	)

	// IndexLoadsTotal counts artifact load attempts by outcome.
	IndexLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vectorwise_index_loads_total",
			Help: "Total number of index artifact load attempts",
		},
		[]string{"outcome"},
	)
)
