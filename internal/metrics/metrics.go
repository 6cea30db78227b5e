// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wellnessgrid"

var (
	// HTTPRequests counts requests by route, method and status
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status"})

	// HTTPDuration tracks request latency
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	// CacheLookups counts analytics cache lookups by backend and result (hit/miss/error)
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Analytics cache lookups by backend and result",
	}, []string{"backend", "result"})

	// ScoresComputed counts wellness score calculations
	ScoresComputed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scores_computed_total",
		Help:      "Wellness score calculations",
	})

	// OverallScore records the distribution of computed overall scores
	OverallScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "overall_score",
		Help:      "Distribution of computed overall wellness scores",
		Buckets:   prometheus.LinearBuckets(0, 10, 11),
	})

	// AlertsRaised counts persisted alerts by type and severity
	AlertsRaised = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_raised_total",
		Help:      "Alerts persisted by type and severity",
	}, []string{"type", "severity"})

	// AlertsSuppressed counts alerts dropped by the 24h dedup window
	AlertsSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_suppressed_total",
		Help:      "Alerts dropped as duplicates of a recent alert",
	})

	// TextGenRequests counts text generation calls by provider and status
	TextGenRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "textgen_requests_total",
		Help:      "Text generation calls by provider and status",
	}, []string{"provider", "status"})

	// TextGenDuration tracks text generation latency
	TextGenDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "textgen_duration_seconds",
		Help:      "Text generation latency in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~50s
	}, []string{"provider"})

	// InsightsGenerated counts insights by type and whether the fallback was used
	InsightsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "insights_generated_total",
		Help:      "Insights generated by type and fallback usage",
	}, []string{"type", "fallback"})

	// PersistenceFailures counts best-effort writes that failed, by entity
	PersistenceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "persistence_failures_total",
		Help:      "Best-effort writes that failed, by entity",
	}, []string{"entity"})
)
