// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intake_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	UploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intake_upload_bytes_total",
		Help: "Bytes accepted by the ingestion gateway.",
	})

	UploadRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_upload_rejections_total",
			Help: "Uploads rejected by the ingestion gateway, by error code.",
		},
		[]string{"code"},
	)

	PipelineStagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_pipeline_stages_total",
			Help: "Finished enrichment stages by stage, outcome and mode.",
		},
		[]string{"stage", "outcome", "mode"},
	)

	PipelineRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "intake_pipeline_run_duration_seconds",
		Help:    "Wall time of a complete enrichment run.",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
	})

	PipelineInflight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "intake_pipeline_inflight_runs",
		Help: "Enrichment runs currently executing.",
	})
)
