package workflows

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/evidentia-ai/evidentia/internal/activities"
	"github.com/evidentia-ai/evidentia/internal/citations"
	"github.com/evidentia-ai/evidentia/internal/config"
	"github.com/evidentia-ai/evidentia/internal/models"
)

// Activity method names as registered on the Activities struct.
const (
	activitySummarize  = "SummarizeQuestion"
	activityPlan       = "PlanSubquestions"
	activityKnowledge  = "QueryKnowledge"
	activitySearch     = "SearchSubquestion"
	activityFetch      = "FetchEvidence"
	activityAnswer     = "AnswerSubquestion"
	activitySynthesize = "SynthesizeAnswer"
	activityEvaluate   = "EvaluateAnswer"
)

// DeepAnswerWorkflow runs the full research loop for one question:
// summarize once, then up to Loop.MaxIterations passes of plan, gather,
// answer, synthesize, evaluate. The loop exits early when the rubric's
// overall score clears the quality threshold; otherwise the evaluator's
// critique and the already-tried subquestions feed the next plan. The
// draft from the final pass is always the returned answer.
func DeepAnswerWorkflow(ctx workflow.Context, in ResearchInput) (ResearchResult, error) {
	logger := workflow.GetLogger(ctx)

	question := strings.TrimSpace(in.Question)
	if question == "" {
		return ResearchResult{}, fmt.Errorf("empty question")
	}
	loop := withLoopDefaults(in.Loop)
	logger.Info("Research run starting",
		"run_id", in.RunID,
		"max_iterations", loop.MaxIterations,
		"quality_threshold", loop.QualityThreshold)

	genCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 3 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 2 * time.Second,
			MaximumInterval: 30 * time.Second,
			MaximumAttempts: 2,
		},
	})
	fetchCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	var summary models.QuerySummary
	if err := workflow.ExecuteActivity(genCtx, activitySummarize, activities.SummarizeInput{
		Question: question,
	}).Get(genCtx, &summary); err != nil {
		return ResearchResult{}, fmt.Errorf("summarize stage: %w", err)
	}

	// Curated retrieval depends only on the original question, so it
	// runs once and is shared by every iteration.
	var knowledgeRes activities.KnowledgeResult
	knowledgeFut := workflow.ExecuteActivity(fetchCtx, activityKnowledge, activities.KnowledgeInput{
		Question: question,
	})

	result := ResearchResult{
		Question:   question,
		SubAnswers: map[string]string{},
		Evidence:   map[string][]models.Evidence{},
	}
	var avoid []string
	var critique string

	for iter := 1; iter <= loop.MaxIterations; iter++ {
		result.Iterations = iter

		var plan activities.PlanResult
		if err := workflow.ExecuteActivity(genCtx, activityPlan, activities.PlanInput{
			Question: question,
			Summary:  summary,
			Avoid:    avoid,
			Critique: critique,
			Count:    defaultPlanCount,
		}).Get(genCtx, &plan); err != nil {
			return ResearchResult{}, fmt.Errorf("plan stage (iteration %d): %w", iter, err)
		}

		// Gather builds a fresh evidence map each iteration. Each
		// subquestion's partition holds only evidence found for it.
		evidence := make(map[string][]models.Evidence, len(plan.Subquestions))
		for _, subq := range plan.Subquestions {
			evidence[subq] = gatherForSubquestion(fetchCtx, subq, loop)
		}

		if err := knowledgeFut.Get(ctx, &knowledgeRes); err != nil {
			// QueryKnowledge absorbs its own failures; reaching here
			// means worker-level trouble. Proceed without background.
			logger.Warn("knowledge activity did not complete", "error", err)
			knowledgeRes = activities.KnowledgeResult{}
		}

		subAnswers := make(map[string]string, len(plan.Subquestions))
		ordered := make([]activities.SubAnswer, 0, len(plan.Subquestions))
		for _, subq := range plan.Subquestions {
			var ans activities.AnswerResult
			err := workflow.ExecuteActivity(genCtx, activityAnswer, activities.AnswerInput{
				Question:        question,
				Subquestion:     subq,
				Evidence:        evidence[subq],
				KnowledgeAnswer: knowledgeRes.Answer,
			}).Get(genCtx, &ans)
			if err != nil {
				logger.Warn("subquestion answer failed", "subquestion", subq, "error", err)
				ans.Answer = answerFailedMarker
			}
			subAnswers[subq] = ans.Answer
			ordered = append(ordered, activities.SubAnswer{Subquestion: subq, Answer: ans.Answer})
		}

		// Promotion deduplicates across partitions (first writer wins,
		// in subquestion order) and assigns citation numbers from 1.
		sources := citations.Promote(plan.Subquestions, evidence, loop.MaxSourcesForCitations)

		var synth activities.SynthesizeResult
		if err := workflow.ExecuteActivity(genCtx, activitySynthesize, activities.SynthesizeInput{
			Question:        question,
			KnowledgeAnswer: knowledgeRes.Answer,
			SubAnswers:      ordered,
			Sources:         sources,
			MaxSnippets:     loop.MaxEvidenceSnippets,
		}).Get(genCtx, &synth); err != nil {
			return ResearchResult{}, fmt.Errorf("synthesize stage (iteration %d): %w", iter, err)
		}

		var rubric models.EvalRubric
		if err := workflow.ExecuteActivity(genCtx, activityEvaluate, activities.EvaluateInput{
			Question:    question,
			Answer:      synth.Answer,
			SourceCount: len(sources),
		}).Get(genCtx, &rubric); err != nil {
			return ResearchResult{}, fmt.Errorf("evaluate stage (iteration %d): %w", iter, err)
		}

		// Last pass wins: the result always reflects the newest draft.
		result.FinalAnswer = synth.Answer
		result.Citations = synth.Citations
		result.Sources = sources
		result.SubAnswers = subAnswers
		result.Evidence = evidence
		result.Rubric = rubric
		result.IterationTrail = append(result.IterationTrail, IterationRecord{
			Subquestions: plan.Subquestions,
			Rubric:       rubric,
		})

		if rubric.Overall >= loop.QualityThreshold {
			result.Accepted = true
			logger.Info("Answer accepted", "iteration", iter, "overall", rubric.Overall)
			break
		}
		if iter == loop.MaxIterations {
			logger.Info("Iteration budget exhausted, returning last draft",
				"iterations", iter, "overall", rubric.Overall)
			break
		}

		avoid = append(avoid, plan.Subquestions...)
		critique = rubric.Critique
		logger.Info("Replanning", "iteration", iter, "overall", rubric.Overall)
	}

	return result, nil
}

const defaultPlanCount = 4

func withLoopDefaults(loop config.LoopSnapshot) config.LoopSnapshot {
	if loop.MaxIterations <= 0 {
		loop.MaxIterations = config.DefaultMaxIterations
	}
	if loop.QualityThreshold <= 0 {
		loop.QualityThreshold = config.DefaultQualityThreshold
	}
	if loop.SubquestionSearchCount <= 0 {
		loop.SubquestionSearchCount = config.DefaultSubquestionSearchCount
	}
	if loop.MaxConcurrentFetches <= 0 {
		loop.MaxConcurrentFetches = config.DefaultMaxConcurrentFetches
	}
	if loop.MaxSourcesForCitations <= 0 {
		loop.MaxSourcesForCitations = config.DefaultMaxSourcesForCitations
	}
	if loop.MaxEvidenceSnippets <= 0 {
		loop.MaxEvidenceSnippets = config.DefaultMaxEvidenceSnippets
	}
	return loop
}
