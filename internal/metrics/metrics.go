package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage labels used across the workflow metrics.
const (
	StageSummarize  = "summarize"
	StagePlan       = "plan"
	StageKnowledge  = "knowledge"
	StageSearch     = "search"
	StageFetch      = "fetch"
	StageAnswer     = "answer"
	StageSynthesize = "synthesize"
	StageEvaluate   = "evaluate"
)

var (
	// StageDuration tracks wall time per workflow stage.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evidentia_stage_duration_seconds",
			Help:    "Duration of each research workflow stage",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	// StageErrors counts stage failures by stage and disposition
	// (fatal aborts the run, absorbed degrades to a fallback).
	StageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evidentia_stage_errors_total",
			Help: "Stage failures by stage and disposition",
		},
		[]string{"stage", "disposition"},
	)

	// FetchOutcomes counts evidence fetch results by the origin of the
	// synopsis that ended up in the evidence record.
	FetchOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evidentia_fetch_outcomes_total",
			Help: "Evidence fetches by synopsis origin",
		},
		[]string{"origin"},
	)

	// FetchFailures counts page fetch failures by failure kind before
	// falling back to the search snippet.
	FetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evidentia_fetch_failures_total",
			Help: "Page fetch failures by kind",
		},
		[]string{"kind"},
	)

	// IterationsPerRun records how many plan-gather-synthesize passes a
	// run needed before finishing.
	IterationsPerRun = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "evidentia_iterations_per_run",
			Help:    "Refinement iterations consumed per research run",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
	)

	// EvaluatorScore records the rubric dimensions of each evaluation.
	EvaluatorScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evidentia_evaluator_score",
			Help:    "Evaluator rubric scores by dimension",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
		[]string{"dimension"},
	)

	// RunsCompleted counts finished runs by how they ended.
	RunsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evidentia_runs_completed_total",
			Help: "Research runs by outcome (accepted, budget_exhausted, failed)",
		},
		[]string{"outcome"},
	)

	// CacheHits counts cache lookups by backend keyspace and result.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evidentia_cache_lookups_total",
			Help: "Cache lookups by keyspace and result",
		},
		[]string{"keyspace", "result"},
	)

	// GenerationTokens counts tokens reported by the generation service.
	GenerationTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evidentia_generation_tokens_total",
			Help: "Tokens consumed by generation calls, per stage",
		},
		[]string{"stage"},
	)
)

// ObserveRubric records all dimensions of one evaluation.
func ObserveRubric(coverage, grounding, coherence, overall float64) {
	EvaluatorScore.WithLabelValues("coverage").Observe(coverage)
	EvaluatorScore.WithLabelValues("grounding").Observe(grounding)
	EvaluatorScore.WithLabelValues("coherence").Observe(coherence)
	EvaluatorScore.WithLabelValues("overall").Observe(overall)
}
