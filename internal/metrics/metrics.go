// Package metrics defines Prometheus metrics for the CMR client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cmr"

// Request metrics, labeled by operation (token, search, concept, validate,
// ingest, delete).
var (
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "request_duration_seconds",
		Help:      "Duration of CMR HTTP requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})

	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_total",
		Help:      "Total number of CMR HTTP requests.",
	}, []string{"operation", "status"})

	ErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "errors_total",
		Help:      "Total number of failed CMR operations by error kind.",
	}, []string{"operation", "kind"})
)

// Search queue metrics.
var (
	QueuePagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queue_pages_fetched_total",
		Help:      "Total number of search pages fetched by concept queues.",
	})

	QueueItemsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queue_items_total",
		Help:      "Total number of items handed out by concept queues.",
	})

	QueueLimitReachedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queue_limit_reached_total",
		Help:      "Total number of queues that stopped at their record limit with hits remaining.",
	})
)

// Write path metrics.
var (
	IngestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingests_total",
		Help:      "Total number of concepts ingested.",
	}, []string{"concept_type"})

	DeletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deletes_total",
		Help:      "Total number of delete calls by outcome.",
	}, []string{"concept_type", "outcome"})
)

// Client-side throttling and auth metrics.
var (
	RateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rate_limit_wait_seconds",
		Help:      "Time spent waiting on the client-side rate limiter.",
		Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})

	TokenFetchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_fetches_total",
		Help:      "Total number of tokens fetched from the CMR token endpoint.",
	})
)

// HTTP server metrics for the endpoints cmrctl and the mock CMR serve.
var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "server",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of served HTTP requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "server",
		Name:      "http_requests_total",
		Help:      "Total number of served HTTP requests.",
	}, []string{"method", "path", "status"})
)
