package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics owns the service registry: generic HTTP counters
// plus the ask-pipeline observations the retrieval core emits.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	askRequestsTotal    *prometheus.CounterVec
	askDuration         *prometheus.HistogramVec
	askResultsRetrieved *prometheus.HistogramVec
	sourceFailuresTotal *prometheus.CounterVec
	noContextTotal      *prometheus.CounterVec
	cacheLookupsTotal   *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scout",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scout",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "scout",
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	askRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scout",
			Subsystem: "ask",
			Name:      "requests_total",
			Help:      "Completed ask requests by outcome.",
		},
		[]string{"service", "outcome"},
	)
	askDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scout",
			Subsystem: "ask",
			Name:      "duration_seconds",
			Help:      "Ask pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	askResultsRetrieved := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scout",
			Subsystem: "ask",
			Name:      "results_retrieved",
			Help:      "Distribution of cited results per answered question.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10},
		},
		[]string{"service"},
	)
	sourceFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scout",
			Subsystem: "retrieval",
			Name:      "source_failures_total",
			Help:      "Retrieval source failures absorbed by degradation.",
		},
		[]string{"service", "source"},
	)
	noContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scout",
			Subsystem: "retrieval",
			Name:      "no_context_total",
			Help:      "Ask requests that ended with no usable context.",
		},
		[]string{"service", "reason"},
	)
	cacheLookupsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scout",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Result cache lookups by outcome.",
		},
		[]string{"service", "outcome"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		askRequestsTotal,
		askDuration,
		askResultsRetrieved,
		sourceFailuresTotal,
		noContextTotal,
		cacheLookupsTotal,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		askRequestsTotal:    askRequestsTotal,
		askDuration:         askDuration,
		askResultsRetrieved: askResultsRetrieved,
		sourceFailuresTotal: sourceFailuresTotal,
		noContextTotal:      noContextTotal,
		cacheLookupsTotal:   cacheLookupsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// RecordAsk observes one completed ask request. Outcome is one of
// "answered", "no_content", "insufficient_context", or "error".
func (m *HTTPServerMetrics) RecordAsk(service, outcome string, resultCount int, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.askRequestsTotal.WithLabelValues(service, outcome).Inc()
	m.askDuration.WithLabelValues(service).Observe(duration.Seconds())
	m.askResultsRetrieved.WithLabelValues(service).Observe(float64(resultCount))

	switch outcome {
	case "no_content", "insufficient_context":
		m.noContextTotal.WithLabelValues(service, outcome).Inc()
	}
}

func (m *HTTPServerMetrics) RecordSourceFailure(service, source string) {
	if source == "" {
		source = "unknown"
	}
	m.sourceFailuresTotal.WithLabelValues(service, source).Inc()
}

func (m *HTTPServerMetrics) RecordCacheLookup(service string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheLookupsTotal.WithLabelValues(service, outcome).Inc()
}
