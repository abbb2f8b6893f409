package sqlgen

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Candidate failure stages.
const (
	stageCompletion  = "completion"
	stageExtraction  = "extraction"
	stageNormalize   = "normalize"
	stageValidation  = "validation"
	stageFingerprint = "fingerprint"
)

var (
	pipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unity_ai",
			Subsystem: "sqlgen",
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		},
		[]string{"outcome"},
	)
	candidateFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unity_ai",
			Subsystem: "sqlgen",
			Name:      "candidate_failures_total",
			Help:      "Candidates dropped, by stage.",
		},
		[]string{"stage"},
	)
	survivingCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "unity_ai",
			Subsystem: "sqlgen",
			Name:      "surviving_candidates",
			Help:      "Candidates left for voting per run.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6, 7, 10},
		},
	)
	pipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "unity_ai",
			Subsystem: "sqlgen",
			Name:      "stage_duration_seconds",
			Help:      "Time spent per pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"stage"},
	)
	completionTokens = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "unity_ai",
			Subsystem: "sqlgen",
			Name:      "completion_tokens_total",
			Help:      "Total tokens reported by successful completions.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		pipelineRuns,
		candidateFailures,
		survivingCandidates,
		pipelineDuration,
		completionTokens,
	)
}
