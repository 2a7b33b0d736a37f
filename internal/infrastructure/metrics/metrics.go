package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Runs
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "text2model_runs_total",
			Help: "Pipeline runs by outcome",
		},
		[]string{"result"}, // result: success|failed
	)
	ActiveRuns = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "text2model_runs_active",
			Help: "Pipeline runs currently in progress",
		},
	)
	RunDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "text2model_run_duration_seconds",
			Help:    "Histogram of pipeline run durations in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 9), // 1s..256s
		},
	)
	StageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "text2model_stage_duration_seconds",
			Help:    "Duration of pipeline stages",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
	StageFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "text2model_stage_failures_total",
			Help: "Terminal failures by the stage they happened in",
		},
		[]string{"stage"},
	)

	// Resilience
	Retries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "text2model_retries_total",
			Help: "Retried attempts by operation",
		},
		[]string{"op"},
	)
	Fallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "text2model_fallbacks_total",
			Help: "Fallbacks taken after exhausted retries",
		},
		[]string{"stage", "kind"}, // kind: original_prompt|secondary_service
	)

	// External calls
	LLMRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "text2model_llm_requests_total",
			Help: "Number of LLM requests by model",
		},
		[]string{"model"},
	)
	ServiceRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "text2model_service_requests_total",
			Help: "Number of generation service calls by capability",
		},
		[]string{"capability"}, // capability: text_to_image|image_to_3d
	)

	// Jobs
	JobsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "text2model_jobs_created_total",
			Help: "Total number of jobs created",
		},
	)
	JobStatusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "text2model_job_status_changes_total",
			Help: "Number of job status transitions",
		},
		[]string{"from", "to"},
	)

	// Storage
	ArtifactsSaved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "text2model_artifacts_saved_total",
			Help: "Artifacts written to local storage",
		},
		[]string{"kind"},
	)
	DBOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "text2model_db_ops_total",
			Help: "Database operations performed",
		},
		[]string{"op"}, // op: get|put|delete|list|count
	)

	// HTTP
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "path"},
	)
	HTTPErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of HTTP request errors.",
		},
		[]string{"method", "path", "status"},
	)

	// Errors
	Errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "text2model_errors_total",
			Help: "Errors encountered in components",
		},
		[]string{"component", "type"},
	)
)

func init() {
	prometheus.MustRegister(
		// Runs
		RunsTotal,
		ActiveRuns,
		RunDurationSeconds,
		StageDurationSeconds,
		StageFailures,
		// Resilience
		Retries,
		Fallbacks,
		// External
		LLMRequests,
		ServiceRequests,
		// Jobs
		JobsCreated,
		JobStatusChanges,
		// Storage
		ArtifactsSaved,
		DBOps,
		// HTTP
		HTTPRequestDuration,
		HTTPRequests,
		HTTPErrors,
		// Errors
		Errors,
	)
}

// Runs
func IncRun(result string) {
	RunsTotal.WithLabelValues(result).Inc()
}

func IncActiveRuns() {
	ActiveRuns.Inc()
}

func DecActiveRuns() {
	ActiveRuns.Dec()
}

func ObserveRunDuration(d time.Duration) {
	RunDurationSeconds.Observe(d.Seconds())
}

func ObserveStageDuration(stage string, d time.Duration) {
	StageDurationSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

func IncStageFailure(stage string) {
	StageFailures.WithLabelValues(stage).Inc()
}

// Resilience
func IncRetry(op string) {
	Retries.WithLabelValues(op).Inc()
}

func IncFallback(stage, kind string) {
	Fallbacks.WithLabelValues(stage, kind).Inc()
}

// External
func IncLLMRequest(model string) {
	LLMRequests.WithLabelValues(model).Inc()
}

func IncServiceRequest(capability string) {
	ServiceRequests.WithLabelValues(capability).Inc()
}

// Jobs
func IncJobsCreated() {
	JobsCreated.Inc()
}

func IncJobStatusChange(from, to string) {
	JobStatusChanges.WithLabelValues(from, to).Inc()
}

// Storage
func IncArtifactSaved(kind string) {
	ArtifactsSaved.WithLabelValues(kind).Inc()
}

func IncDBOp(op string) {
	DBOps.WithLabelValues(op).Inc()
}

// HTTP
func ObserveHTTPRequest(method, path string, status int, d time.Duration) {
	statusStr := strconv.Itoa(status)
	HTTPRequests.WithLabelValues(method, path).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, statusStr).Observe(d.Seconds())
	if status >= 400 {
		HTTPErrors.WithLabelValues(method, path, statusStr).Inc()
	}
}

// Errors
func IncError(component, typ string) {
	Errors.WithLabelValues(component, typ).Inc()
}
