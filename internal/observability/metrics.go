// Package observability exposes the Prometheus metrics of the worker, the
// server and the CLI.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scholargraph_llm_requests_total",
		Help: "The total number of structured LLM requests",
	}, []string{"operation", "outcome"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scholargraph_llm_request_duration_seconds",
		Help:    "Duration of structured LLM requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	LLMTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scholargraph_llm_tokens_total",
		Help: "Tokens reported by the model provider",
	}, []string{"direction"})

	LabelsValidated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scholargraph_labels_validated_total",
		Help: "Labels processed by the batch validator",
	}, []string{"status"})

	ProposalsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scholargraph_proposals_dropped_total",
		Help: "Model proposals rejected by validation",
	}, []string{"kind"})

	TopicsMerged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scholargraph_topics_merged_total",
		Help: "Duplicate topic nodes handled by the merge pass",
	}, []string{"status"})

	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scholargraph_jobs_processed_total",
		Help: "Jobs handled by the worker",
	}, []string{"kind", "status"})

	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scholargraph_job_duration_seconds",
		Help:    "Duration of worker jobs",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
	}, []string{"kind"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveLLM records one structured model call.
func ObserveLLM(operation string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	LLMRequests.WithLabelValues(operation, outcome).Inc()
	LLMRequestDuration.WithLabelValues(operation).Observe(d.Seconds())
}
