package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors exported on /metrics.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Session guard rejections by reason (missing, invalid, stale).
	SessionRejectionsTotal *prometheus.CounterVec

	// Warnings raised by the bot deletion orchestrator after its first committed delete.
	DeletionWarningsTotal *prometheus.CounterVec

	ImageBytesUploaded prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cordfriend_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cordfriend_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		SessionRejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cordfriend_session_rejections_total",
				Help: "Requests rejected by the session guard",
			},
			[]string{"reason"},
		),
		DeletionWarningsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cordfriend_bot_deletion_warnings_total",
				Help: "Non-fatal failures during bot deletion",
			},
			[]string{"step"},
		),
		ImageBytesUploaded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cordfriend_image_upload_bytes_total",
				Help: "Bytes of bot images written to blob storage",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SessionRejectionsTotal,
		m.DeletionWarningsTotal,
		m.ImageBytesUploaded,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SessionRejected is nil-safe so components can run without metrics in tests.
func (m *Metrics) SessionRejected(reason string) {
	if m == nil {
		return
	}
	m.SessionRejectionsTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) DeletionWarning(step string) {
	if m == nil {
		return
	}
	m.DeletionWarningsTotal.WithLabelValues(step).Inc()
}

func (m *Metrics) ImageUploaded(n int64) {
	if m == nil {
		return
	}
	m.ImageBytesUploaded.Add(float64(n))
}
