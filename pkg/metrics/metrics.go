package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NodeOperations counts folder/pictogram mutations by operation
	// (create|delete|update) and result (ok|error|partial).
	NodeOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pictobank_node_operations_total",
			Help: "Total folder and pictogram store operations",
		},
		[]string{"operation", "result"},
	)

	// ArtifactSaves counts tree/list upserts by kind and result (ok|rejected|error).
	ArtifactSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pictobank_artifact_saves_total",
			Help: "Total composite artifact upserts",
		},
		[]string{"kind", "result"},
	)

	// MirrorRepairs counts directories re-materialized by the maintenance job.
	MirrorRepairs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pictobank_mirror_repairs_total",
			Help: "Physical directories re-created from metadata",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pictobank_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
