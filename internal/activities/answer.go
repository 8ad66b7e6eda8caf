package activities

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/evidentia-ai/evidentia/internal/llm"
	"github.com/evidentia-ai/evidentia/internal/metrics"
)

// AnswerSubquestion answers one subquestion from its own evidence
// partition only. Evidence gathered for sibling subquestions is never
// visible here. The error return is real: the workflow records a
// failure marker for this subquestion and moves on.
func (a *Activities) AnswerSubquestion(ctx context.Context, in AnswerInput) (AnswerResult, error) {
	logger := activity.GetLogger(ctx)
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(metrics.StageAnswer).Observe(time.Since(start).Seconds())
	}()

	res, err := a.gen.GenerateWithRetry(ctx, llm.Request{
		Prompt:      answerPrompt(in),
		Temperature: 0.2,
	})
	if err != nil {
		metrics.StageErrors.WithLabelValues(metrics.StageAnswer, "recorded").Inc()
		return AnswerResult{}, fmt.Errorf("answer subquestion %q: %w", in.Subquestion, err)
	}
	metrics.GenerationTokens.WithLabelValues(metrics.StageAnswer).Add(float64(res.TokensUsed))

	logger.Info("Subquestion answered",
		"subquestion", in.Subquestion,
		"evidence", len(in.Evidence))
	return AnswerResult{Answer: res.Text}, nil
}
