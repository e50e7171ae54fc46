package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devmon_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devmon_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)

	// Ingest metrics
	IngestConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devmon_ingest_connections_total",
			Help: "Total number of ingest connections handled",
		},
		[]string{"status"}, // status: processed, decode_error, read_error
	)

	IngestPayloadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "devmon_ingest_payload_bytes",
			Help:    "Size of ingested payloads in bytes",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		},
	)

	IngestInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "devmon_ingest_in_flight",
			Help: "Connections currently being processed",
		},
	)

	// Alerting metrics
	AlertsTriggeredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devmon_alerts_triggered_total",
			Help: "Total number of alert events produced by rule evaluation",
		},
		[]string{"rule"},
	)

	// Notification metrics
	NotifySentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "devmon_notify_sent_total",
			Help: "Total number of notifications delivered",
		},
	)

	NotifyFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "devmon_notify_failed_total",
			Help: "Total number of notification deliveries that failed",
		},
	)

	NotifyDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "devmon_notify_dropped_total",
			Help: "Total number of alerts dropped because the notify queue was full",
		},
	)

	NotifyQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "devmon_notify_queue_size",
			Help: "Current size of the notification queue",
		},
	)

	// Panic recovery
	PanicsRecovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devmon_panics_recovered_total",
			Help: "Total number of panics recovered",
		},
		[]string{"component"},
	)
)
