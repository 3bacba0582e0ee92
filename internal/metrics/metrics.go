// Package metrics exposes Prometheus collectors for the scraper.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for fetch attempts and URLs.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	fetchAttemptsTotal         *prometheus.CounterVec
	urlsTotal                  *prometheus.CounterVec
	chunksPersistedTotal       prometheus.Counter
	fieldsMissingTotal         *prometheus.CounterVec
	fetchDurationSeconds       prometheus.Histogram
	activeWorkers              prometheus.Gauge
	rateLimitDelaySeconds      *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mbfc_fetch_attempts_total",
				Help: "Total number of fetch attempts, labeled by result.",
			},
			[]string{"result"},
		)

		urlsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mbfc_urls_total",
				Help: "Total number of URLs processed, labeled by terminal outcome.",
			},
			[]string{"outcome"},
		)

		chunksPersistedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mbfc_chunks_persisted_total",
				Help: "Total number of chunks merged into the checkpoint table.",
			},
		)

		fieldsMissingTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mbfc_fields_missing_total",
				Help: "Total number of rating fields not found in fetched reports, labeled by field.",
			},
			[]string{"field"},
		)

		fetchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mbfc_fetch_duration_seconds",
				Help:    "Histogram of single fetch attempt latencies.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20},
			},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "mbfc_active_workers",
				Help: "Number of workers currently processing a URL.",
			},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mbfc_rate_limit_delay_seconds",
				Help:    "Histogram of time spent waiting on per-host pacing, labeled by host.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"host"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetchAttempt records one fetch attempt and its latency.
func ObserveFetchAttempt(err error, duration time.Duration) {
	Init()
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	fetchAttemptsTotal.WithLabelValues(result).Inc()
	fetchDurationSeconds.Observe(duration.Seconds())
}

// ObserveURL records a URL's terminal outcome.
func ObserveURL(success bool) {
	Init()
	outcome := ResultSuccess
	if !success {
		outcome = ResultFailure
	}
	urlsTotal.WithLabelValues(outcome).Inc()
}

// ObserveMissingField records a rating field absent from a fetched report.
func ObserveMissingField(field string) {
	Init()
	fieldsMissingTotal.WithLabelValues(field).Inc()
}

// ObserveChunkPersisted increments the persisted chunk counter.
func ObserveChunkPersisted() {
	Init()
	chunksPersistedTotal.Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	activeWorkers.Dec()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records time spent waiting for a host's pacing budget.
func ObserveRateLimitDelay(host string, d time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(host).Observe(d.Seconds())
}
