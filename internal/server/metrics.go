package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formpilot_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "formpilot_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Document pipeline metrics
	documentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formpilot_documents_total",
			Help: "Total number of processed documents",
		},
		[]string{"mode", "status"}, // mode: analyze, fill
	)

	processingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "formpilot_processing_duration_seconds",
			Help:    "Document processing duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 25, 50, 100},
		},
		[]string{"mode"},
	)

	formFieldsDetected = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "formpilot_form_fields",
			Help:    "Number of structural form fields per document",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
		[]string{"mode"},
	)

	fieldsAutoFilled = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "formpilot_fields_auto_filled",
			Help:    "Number of auto-filled fields per document",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
	)

	fieldsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formpilot_fields_skipped_total",
			Help: "Total number of assignments skipped at commit",
		},
		[]string{"reason"},
	)

	labelsTranslatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "formpilot_labels_translated_total",
			Help: "Total number of field names translated through the API",
		},
	)

	// File upload metrics
	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "formpilot_upload_size_bytes",
			Help:    "Size of uploaded documents in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)
)
