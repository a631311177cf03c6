// Package metrics provides Prometheus metrics for the fern service.
package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BulkMatchRequests tracks bulk match requests by outcome
	BulkMatchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "matching",
			Name:      "bulk_requests_total",
			Help:      "Total number of bulk match requests by status",
		},
		[]string{"status"},
	)

	// BulkMatchDuration tracks bulk match latency in seconds
	BulkMatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "matching",
			Name:      "bulk_duration_seconds",
			Help:      "Duration of bulk match requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	// PoolSize tracks how many pool rows each matching operation scored against
	PoolSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "matching",
			Name:      "pool_size",
			Help:      "Number of candidate rows in a matching pool",
			Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000, 2000, 5000, 20000},
		},
		[]string{"operation"},
	)

	// PoolCacheLookups tracks bulk pool cache hits and misses
	PoolCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "matching",
			Name:      "pool_cache_lookups_total",
			Help:      "Bulk pool cache lookups by result",
		},
		[]string{"result"},
	)

	// HistoryComputations tracks single-record history computations by trigger
	HistoryComputations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "history",
			Name:      "computations_total",
			Help:      "Total number of candidate history computations",
		},
		[]string{"trigger", "status"},
	)

	// RecomputeRuns tracks full history recomputes by status
	RecomputeRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "history",
			Name:      "recompute_runs_total",
			Help:      "Total number of full history recomputes by status",
		},
		[]string{"status"},
	)

	// RecomputeDuration tracks full recompute duration in seconds
	RecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "history",
			Name:      "recompute_duration_seconds",
			Help:      "Duration of full history recomputes in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
	)

	// EventsPublished tracks outbound notification events
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of events published by type and status",
		},
		[]string{"event_type", "status"},
	)
)

// RecordBulkMatch records a bulk match request
func RecordBulkMatch(status string, durationSeconds float64, sampled int) {
	BulkMatchRequests.WithLabelValues(status).Inc()
	BulkMatchDuration.Observe(durationSeconds)
	if status == "success" {
		PoolSize.WithLabelValues("bulk").Observe(float64(sampled))
	}
}

// RecordPoolCache records a pool cache lookup
func RecordPoolCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	PoolCacheLookups.WithLabelValues(result).Inc()
}

// RecordHistory records a history computation
func RecordHistory(trigger, status string) {
	HistoryComputations.WithLabelValues(trigger, status).Inc()
}

// RecordRecompute records a full recompute
func RecordRecompute(status string, durationSeconds float64) {
	RecomputeRuns.WithLabelValues(status).Inc()
	RecomputeDuration.Observe(durationSeconds)
}

// RecordEvent records a publish attempt
func RecordEvent(eventType, status string) {
	EventsPublished.WithLabelValues(eventType, status).Inc()
}

// Handler exposes the default registry on an echo route
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
