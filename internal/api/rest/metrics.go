package rest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/invoicekit/invoice-studio/internal/service/invoicing"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoice_studio",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "invoice_studio",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	invoiceUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoice_studio",
			Subsystem: "invoice",
			Name:      "updates_total",
			Help:      "Invoice mutations by operation.",
		},
		[]string{"operation"},
	)

	documentsRenderedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "invoice_studio",
			Subsystem: "invoice",
			Name:      "documents_rendered_total",
			Help:      "PDF documents rendered.",
		},
	)

	previewClientsConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "invoice_studio",
			Subsystem: "preview",
			Name:      "clients_connected",
			Help:      "Currently connected live-preview websocket clients.",
		},
	)
)

func registerSessionGauge(sessions *invoicing.Service) {
	promauto.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "invoice_studio",
			Subsystem: "invoice",
			Name:      "sessions_active",
			Help:      "Invoice sessions currently held in memory.",
		},
		func() float64 { return float64(sessions.ActiveSessions()) },
	)
}
