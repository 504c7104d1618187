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

	transitionsTotal *prometheus.CounterVec
	gateBlockedTotal *prometheus.CounterVec
	ocrSubmitsTotal  *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caseflow",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "caseflow",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "caseflow",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	transitionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caseflow",
			Subsystem: "workflow",
			Name:      "transitions_total",
			Help:      "Total workflow transition operations by outcome.",
		},
		[]string{"service", "operation", "outcome"},
	)
	gateBlockedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caseflow",
			Subsystem: "workflow",
			Name:      "gate_blocked_total",
			Help:      "Total status updates rejected by the temporal gate.",
		},
		[]string{"service"},
	)
	ocrSubmitsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caseflow",
			Subsystem: "ocr",
			Name:      "submits_total",
			Help:      "Total OCR submissions accepted by the API.",
		},
		[]string{"service", "outcome"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		transitionsTotal,
		gateBlockedTotal,
		ocrSubmitsTotal,
	)

	return &HTTPServerMetrics{
		registry:         registry,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		requestInFlight:  requestInFlight,
		transitionsTotal: transitionsTotal,
		gateBlockedTotal: gateBlockedTotal,
		ocrSubmitsTotal:  ocrSubmitsTotal,
	}
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

// normalizePath keeps metric label cardinality bounded by collapsing IDs.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/applications/"):
		rest := strings.TrimPrefix(path, "/v1/applications/")
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			return "/v1/applications/{id}" + rest[idx:]
		}
		return "/v1/applications/{id}"
	case strings.HasPrefix(path, "/v1/ocr/sessions/"):
		return "/v1/ocr/sessions/{session_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordTransition(service, operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.transitionsTotal.WithLabelValues(service, operation, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordGateBlocked(service string) {
	m.gateBlockedTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordOcrSubmit(service string, err error) {
	outcome := "accepted"
	if err != nil {
		outcome = "rejected"
	}
	m.ocrSubmitsTotal.WithLabelValues(service, outcome).Inc()
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
