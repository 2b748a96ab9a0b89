package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the notification pipeline.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	notificationTotal *prometheus.CounterVec
	ordersCreated     prometheus.Counter
	uploadsAccepted   prometheus.Counter
	uploadsRejected   prometheus.Counter
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	notificationTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Telegram notification deliveries by audience and outcome",
	}, []string{"kind", "outcome"})

	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total orders created",
	})

	uploadsAccepted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "uploads_accepted_total",
		Help: "Total accepted file uploads",
	})

	uploadsRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "uploads_rejected_total",
		Help: "Total rejected file uploads",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, notificationTotal, ordersCreated, uploadsAccepted, uploadsRejected, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		notificationTotal: notificationTotal,
		ordersCreated:     ordersCreated,
		uploadsAccepted:   uploadsAccepted,
		uploadsRejected:   uploadsRejected,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveNotification records a delivery attempt outcome. Implements the
// dispatcher's observer contract.
func (m *MetricsService) ObserveNotification(kind string, delivered bool) {
	if m == nil {
		return
	}
	outcome := "delivered"
	if !delivered {
		outcome = "failed"
	}
	m.notificationTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveOrderCreated counts a successfully inserted order.
func (m *MetricsService) ObserveOrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

// ObserveUploads counts accepted and rejected files from one attach call.
func (m *MetricsService) ObserveUploads(accepted, rejected int) {
	if m == nil {
		return
	}
	m.uploadsAccepted.Add(float64(accepted))
	m.uploadsRejected.Add(float64(rejected))
}
