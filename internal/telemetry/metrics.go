// Package telemetry exposes Prometheus collectors for the enrichment
// service.
package telemetry

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	upstreamFetchesTotal    *prometheus.CounterVec
	upstreamFetchBytesTotal *prometheus.CounterVec
	httpRequestsTotal       *prometheus.CounterVec
	httpRequestDurationSecs *prometheus.HistogramVec
	rateLimitDelaySeconds   *prometheus.HistogramVec
	streamUnitsTotal        *prometheus.CounterVec
	enrichmentBatchesTotal  *prometheus.CounterVec
	persistedRowsTotal      *prometheus.CounterVec
	activeEnrichmentStreams prometheus.Gauge

	once sync.Once
)

// Init registers the collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		upstreamFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "critic_upstream_fetches_total",
				Help: "Total upstream requests, labeled by upstream and status class.",
			},
			[]string{"upstream", "status"},
		)

		upstreamFetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "critic_upstream_fetch_bytes_total",
				Help: "Total bytes fetched, labeled by upstream.",
			},
			[]string{"upstream"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSecs = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "critic_rate_limit_delay_seconds",
				Help:    "Histogram of admission-control wait durations per upstream.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"upstream"},
		)

		streamUnitsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "critic_stream_units_total",
				Help: "Stream units emitted, labeled by outcome (enriched or empty).",
			},
			[]string{"outcome"},
		)

		enrichmentBatchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "critic_enrichment_batches_total",
				Help: "Enrichment batches drained, labeled by final status.",
			},
			[]string{"status"},
		)

		persistedRowsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "critic_persisted_rows_total",
				Help: "Rows handed to the persistence gateway, labeled by entity kind.",
			},
			[]string{"kind"},
		)

		activeEnrichmentStreams = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "critic_active_streams",
				Help: "Number of enrichment streams currently being drained.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware is a chi middleware that records HTTP request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		ObserveHTTPRequest(r.Method, route, ww.statusCode, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.statusCode = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// ObserveUpstreamFetch increments the upstream fetch counters.
func ObserveUpstreamFetch(upstream string, statusCode int, bytesFetched int) {
	if upstreamFetchesTotal == nil {
		return
	}
	upstreamFetchesTotal.WithLabelValues(upstream, classifyStatus(statusCode)).Inc()
	if bytesFetched > 0 {
		upstreamFetchBytesTotal.WithLabelValues(upstream).Add(float64(bytesFetched))
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSecs.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records the duration of an admission wait.
func ObserveRateLimitDelay(upstream string, duration time.Duration) {
	if rateLimitDelaySeconds == nil {
		return
	}
	rateLimitDelaySeconds.WithLabelValues(upstream).Observe(duration.Seconds())
}

// ObserveStreamUnit increments the stream unit counter.
func ObserveStreamUnit(outcome string) {
	if streamUnitsTotal == nil {
		return
	}
	streamUnitsTotal.WithLabelValues(outcome).Inc()
}

// ObserveBatch increments the batch counter for the given final status.
func ObserveBatch(status string) {
	if enrichmentBatchesTotal == nil {
		return
	}
	enrichmentBatchesTotal.WithLabelValues(status).Inc()
}

// ObservePersistedRows adds to the persisted row counter for one entity kind.
func ObservePersistedRows(kind string, count int) {
	if persistedRowsTotal == nil || count == 0 {
		return
	}
	persistedRowsTotal.WithLabelValues(kind).Add(float64(count))
}

// IncActiveStreams increments the active stream gauge.
func IncActiveStreams() {
	if activeEnrichmentStreams != nil {
		activeEnrichmentStreams.Inc()
	}
}

// DecActiveStreams decrements the active stream gauge.
func DecActiveStreams() {
	if activeEnrichmentStreams != nil {
		activeEnrichmentStreams.Dec()
	}
}

func classifyStatus(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "other"
	}
}
