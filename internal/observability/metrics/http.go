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

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	selectionTotal     *prometheus.CounterVec
	selectedChunks     *prometheus.HistogramVec
	generationDuration *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	m := &HTTPServerMetrics{
		registry: prometheus.NewRegistry(),
		requestTotal: newCounterVec("http", "requests_total",
			"Total HTTP requests processed.", "service", "method", "path", "status"),
		requestDuration: newHistogramVec("http", "request_duration_seconds",
			"HTTP request duration in seconds.", nil, "service", "method", "path"),
		requestInFlight: newServiceGauge("http", "in_flight_requests",
			"Number of in-flight HTTP requests.", service),
		selectionTotal: newCounterVec("selection", "requests_total",
			"Context selections by operation and selection strategy.", "service", "operation", "strategy"),
		selectedChunks: newHistogramVec("selection", "selected_chunks",
			"Distribution of chunks selected per request.",
			[]float64{0, 1, 2, 3, 5, 8, 13, 21, 34}, "service", "operation"),
		generationDuration: newHistogramVec("llm", "generation_duration_seconds",
			"Duration of study operations that call the language model.",
			[]float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80, 160}, "service", "operation", "status"),
	}
	m.registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.requestInFlight,
		m.selectionTotal,
		m.selectedChunks,
		m.generationDuration,
	)
	return m
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
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

// normalizePath replaces the document id so label cardinality stays bounded.
func normalizePath(path string) string {
	const prefix = "/v1/documents/"
	if !strings.HasPrefix(path, prefix) {
		return path
	}
	rest := strings.TrimPrefix(path, prefix)
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return prefix + "{document_id}" + rest[i:]
	}
	return prefix + "{document_id}"
}

// RecordSelection counts one context selection and the number of chunks it
// kept.
func (m *HTTPServerMetrics) RecordSelection(service, operation, strategy string, selected int) {
	if strategy == "" {
		strategy = "unknown"
	}
	m.selectionTotal.WithLabelValues(service, operation, strategy).Inc()
	m.selectedChunks.WithLabelValues(service, operation).Observe(float64(selected))
}

func (m *HTTPServerMetrics) ObserveGeneration(service, operation string, duration time.Duration, err error) {
	m.generationDuration.WithLabelValues(service, operation, statusLabel(err)).Observe(duration.Seconds())
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

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
