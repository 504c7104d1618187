package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	sessionTotal    *prometheus.CounterVec
	sessionDuration *prometheus.HistogramVec
	sessionInFlight prometheus.Gauge
	queueLag        *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	sessionTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caseflow",
			Subsystem: "worker",
			Name:      "ocr_session_total",
			Help:      "Total processed OCR sessions by status.",
		},
		[]string{"service", "status"},
	)
	sessionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "caseflow",
			Subsystem: "worker",
			Name:      "ocr_session_duration_seconds",
			Help:      "OCR session processing duration in seconds by status.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 180, 240},
		},
		[]string{"service", "status"},
	)
	sessionInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "caseflow",
			Subsystem: "worker",
			Name:      "ocr_session_in_flight",
			Help:      "Number of in-flight OCR sessions.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "caseflow",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between session creation and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(sessionTotal, sessionDuration, sessionInFlight, queueLag)

	return &WorkerMetrics{
		registry:        registry,
		sessionTotal:    sessionTotal,
		sessionDuration: sessionDuration,
		sessionInFlight: sessionInFlight,
		queueLag:        queueLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartSession() {
	m.sessionInFlight.Inc()
}

func (m *WorkerMetrics) FinishSession(service string, duration time.Duration, err error) {
	m.sessionInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.sessionTotal.WithLabelValues(service, status).Inc()
	m.sessionDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}
