package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	queueLag        *prometheus.HistogramVec
	chunkCount      *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	m := &WorkerMetrics{
		registry: prometheus.NewRegistry(),
		processTotal: newCounterVec("worker", "document_process_total",
			"Total processed documents by status.", "service", "status"),
		processDuration: newHistogramVec("worker", "document_process_duration_seconds",
			"Document processing duration in seconds by status.", nil, "service", "status"),
		processInFlight: newServiceGauge("worker", "document_process_in_flight",
			"Number of in-flight document processing tasks.", service),
		queueLag: newHistogramVec("worker", "queue_lag_seconds",
			"Delay between document upload and processing start.",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600}, "service"),
		chunkCount: newHistogramVec("worker", "document_chunks",
			"Number of chunks produced per processed document.",
			[]float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}, "service"),
	}
	m.registry.MustRegister(m.processTotal, m.processDuration, m.processInFlight, m.queueLag, m.chunkCount)
	return m
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartDocument() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishDocument(service string, duration time.Duration, err error) {
	m.processInFlight.Dec()
	status := statusLabel(err)
	m.processTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

// ObserveQueueLag ignores negative lags caused by clock skew between hosts.
func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) ObserveChunkCount(service string, chunks int) {
	if chunks < 0 {
		return
	}
	m.chunkCount.WithLabelValues(service).Observe(float64(chunks))
}
