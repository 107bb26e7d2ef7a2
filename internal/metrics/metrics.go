package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Counter: how many times we served a payload from the entry cache.
	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "counts_cache_hits_total",
			Help: "Total number of count payloads served from cache.",
		},
	)

	// Counter: upstream counts API calls by outcome.
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "counts_upstream_requests_total",
			Help: "Upstream counts API calls by outcome.",
		},
		[]string{"outcome"}, // success | rate_limited | upstream_error | transport_error
	)

	// Counter: rate locks applied after an upstream 429.
	RateLocksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "counts_rate_locks_total",
			Help: "Total number of per-query rate locks applied.",
		},
	)

	// Counter: degraded serves by kind.
	FallbackServesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "counts_fallback_serves_total",
			Help: "Responses served from a fallback instead of a fresh upstream result.",
		},
		[]string{"kind"}, // stale | stub
	)

	// Histogram: gateway HTTP latency in seconds.
	GatewayLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_latency_seconds",
			Help:    "HTTP request latency for the gateway in seconds.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"path", "method", "status_code"},
	)
)

// Register is called once in main() to register metrics.
func Register() {
	prometheus.MustRegister(
		CacheHitsTotal,
		UpstreamRequestsTotal,
		RateLocksTotal,
		FallbackServesTotal,
		GatewayLatencySeconds,
	)
}

// Handler exposes the /metrics endpoint for Prometheus to scrape.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware measures gateway latency for each HTTP request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// capture status code
		rec := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rec, r)

		duration := time.Since(start).Seconds()

		GatewayLatencySeconds.
			WithLabelValues(r.URL.Path, r.Method, strconv.Itoa(rec.statusCode)).
			Observe(duration)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}
