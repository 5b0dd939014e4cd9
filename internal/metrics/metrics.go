package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Committed status transitions.
	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_transitions_total",
			Help: "Committed status transitions by entity and target status",
		},
		[]string{"entity", "status"}, // entity: project, work
	)

	OperationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_operation_failures_total",
			Help: "Rejected or failed workflow operations by error kind",
		},
		[]string{"op", "kind"},
	)

	UploadBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_upload_bytes_total",
			Help: "Bytes stored for workflow artifacts",
		},
		[]string{"kind"}, // completion, qr_code, payment_proof
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

func RecordTransition(entity, status string) {
	Transitions.WithLabelValues(entity, status).Inc()
}

func RecordFailure(op, kind string) {
	OperationFailures.WithLabelValues(op, kind).Inc()
}

func RecordUpload(kind string, n int64) {
	UploadBytes.WithLabelValues(kind).Add(float64(n))
}

func RecordHTTPRequestDuration(method, path, status string, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(d.Seconds())
}
