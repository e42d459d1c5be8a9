package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsService owns the prometheus registry and the collectors exposed on
// the /metrics endpoint.
type MetricsService struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	reviewDecisions *prometheus.CounterVec
	cacheOperations *prometheus.CounterVec
	exportsRendered *prometheus.CounterVec
}

func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	s := &MetricsService{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tvet_reg",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tvet_reg",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		reviewDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tvet_reg",
			Name:      "application_decisions_total",
			Help:      "Application review decisions by outcome.",
		}, []string{"decision"}),
		cacheOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tvet_reg",
			Name:      "cache_operations_total",
			Help:      "Cache operations by type and result.",
		}, []string{"operation", "result"}),
		exportsRendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tvet_reg",
			Name:      "exports_rendered_total",
			Help:      "Rendered exports by dataset and format.",
		}, []string{"dataset", "format"}),
	}

	registry.MustRegister(
		s.httpRequests,
		s.httpDuration,
		s.reviewDecisions,
		s.cacheOperations,
		s.exportsRendered,
	)
	return s
}

// Registry exposes the registry for the metrics handler.
func (s *MetricsService) Registry() *prometheus.Registry {
	return s.registry
}

// ObserveHTTPRequest records one completed HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	s.httpRequests.WithLabelValues(method, route, status).Inc()
	s.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordDecision counts an application review outcome ("approved"/"rejected").
func (s *MetricsService) RecordDecision(decision string) {
	s.reviewDecisions.WithLabelValues(decision).Inc()
}

// RecordCacheOperation counts a cache hit, miss or error.
func (s *MetricsService) RecordCacheOperation(operation, result string) {
	s.cacheOperations.WithLabelValues(operation, result).Inc()
}

// RecordExport counts a rendered export.
func (s *MetricsService) RecordExport(dataset, format string) {
	s.exportsRendered.WithLabelValues(dataset, format).Inc()
}
