package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rag"

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	answersTotal          *prometheus.CounterVec
	retrievalFallback     *prometheus.CounterVec
	rerankDegradedTotal   *prometheus.CounterVec
	citationsPerAnswer    *prometheus.HistogramVec
	queryDuration         *prometheus.HistogramVec
	rejectedRequestsTotal *prometheus.CounterVec
}

// QueryObservation is the outcome of one query as seen by the transport.
type QueryObservation struct {
	Endpoint       string
	State          string
	Agent          string
	Citations      int
	FallbackUsed   bool
	RerankDegraded bool
	Duration       time.Duration
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	answersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Total completed queries by result state and agent.",
		},
		[]string{"service", "endpoint", "state", "agent"},
	)
	retrievalFallback := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "fallback_total",
			Help:      "Total queries answered by the unfiltered retrieval fallback.",
		},
		[]string{"service", "endpoint"},
	)
	rerankDegradedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rerank",
			Name:      "degraded_total",
			Help:      "Total queries where reranking failed and similarity order was kept.",
		},
		[]string{"service", "endpoint"},
	)
	citationsPerAnswer := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "citations",
			Help:      "Distribution of citations per answered query.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		},
		[]string{"service", "endpoint"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "duration_seconds",
			Help:      "Query pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint", "state"},
	)
	rejectedRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rejected_requests_total",
			Help:      "Total requests rejected by traffic control.",
		},
		[]string{"service", "reason"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		answersTotal,
		retrievalFallback,
		rerankDegradedTotal,
		citationsPerAnswer,
		queryDuration,
		rejectedRequestsTotal,
	)

	return &HTTPServerMetrics{
		registry:              registry,
		requestTotal:          requestTotal,
		requestDuration:       requestDuration,
		requestInFlight:       requestInFlight,
		answersTotal:          answersTotal,
		retrievalFallback:     retrievalFallback,
		rerankDegradedTotal:   rerankDegradedTotal,
		citationsPerAnswer:    citationsPerAnswer,
		queryDuration:         queryDuration,
		rejectedRequestsTotal: rejectedRequestsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *HTTPServerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath keeps label cardinality bounded for unknown paths.
func normalizePath(path string) string {
	switch {
	case path == "/api/query", path == "/v1/rag/query", path == "/healthz", path == "/metrics":
		return path
	case strings.HasPrefix(path, "/api/"):
		return "/api/{other}"
	default:
		return "other"
	}
}

func (m *HTTPServerMetrics) RecordQuery(service string, obs QueryObservation) {
	state := labelOrUnknown(obs.State)
	agent := labelOrUnknown(obs.Agent)

	m.answersTotal.WithLabelValues(service, obs.Endpoint, state, agent).Inc()
	m.queryDuration.WithLabelValues(service, obs.Endpoint, state).Observe(obs.Duration.Seconds())
	if obs.State == "answer" {
		m.citationsPerAnswer.WithLabelValues(service, obs.Endpoint).Observe(float64(obs.Citations))
	}
	if obs.FallbackUsed {
		m.retrievalFallback.WithLabelValues(service, obs.Endpoint).Inc()
	}
	if obs.RerankDegraded {
		m.rerankDegradedTotal.WithLabelValues(service, obs.Endpoint).Inc()
	}
}

func (m *HTTPServerMetrics) RecordRejected(service, reason string) {
	m.rejectedRequestsTotal.WithLabelValues(service, labelOrUnknown(reason)).Inc()
}

func labelOrUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
