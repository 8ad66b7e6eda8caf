package activities

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/evidentia-ai/evidentia/internal/llm"
	"github.com/evidentia-ai/evidentia/internal/metrics"
)

const (
	minSubquestions = 3
	maxSubquestions = 5
)

// PlanSubquestions decomposes the question into searchable
// subquestions for one iteration. On a replan pass it receives the
// evaluator's critique and the subquestions already tried, so the new
// decomposition explores territory the last one missed. A plan that
// cannot be produced is fatal: there is nothing to research without
// one.
func (a *Activities) PlanSubquestions(ctx context.Context, in PlanInput) (PlanResult, error) {
	logger := activity.GetLogger(ctx)
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(metrics.StagePlan).Observe(time.Since(start).Seconds())
	}()

	if in.Count < minSubquestions {
		in.Count = minSubquestions
	}
	if in.Count > maxSubquestions {
		in.Count = maxSubquestions
	}

	res, err := a.gen.GenerateWithRetry(ctx, llm.Request{
		Prompt:      planPrompt(in),
		Temperature: 0.3,
	})
	if err != nil {
		metrics.StageErrors.WithLabelValues(metrics.StagePlan, "fatal").Inc()
		return PlanResult{}, fmt.Errorf("plan subquestions: %w", err)
	}
	metrics.GenerationTokens.WithLabelValues(metrics.StagePlan).Add(float64(res.TokensUsed))

	subqs := parseNumberedList(res.Text)
	if len(subqs) == 0 {
		metrics.StageErrors.WithLabelValues(metrics.StagePlan, "fatal").Inc()
		return PlanResult{}, fmt.Errorf("planner returned no parseable subquestions")
	}
	if len(subqs) > maxSubquestions {
		subqs = subqs[:maxSubquestions]
	}

	logger.Info("Question decomposed",
		"subquestions", len(subqs),
		"replan", in.Critique != "")
	return PlanResult{Subquestions: subqs}, nil
}
