package activities

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/activity"
	"go.uber.org/zap"

	"github.com/evidentia-ai/evidentia/internal/llm"
	"github.com/evidentia-ai/evidentia/internal/metrics"
	"github.com/evidentia-ai/evidentia/internal/models"
)

// SummarizeQuestion distills the raw question into the structured
// summary the planner works from. Generation failure here is fatal for
// the run: every later stage depends on this output.
func (a *Activities) SummarizeQuestion(ctx context.Context, in SummarizeInput) (models.QuerySummary, error) {
	logger := activity.GetLogger(ctx)
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(metrics.StageSummarize).Observe(time.Since(start).Seconds())
	}()

	question := strings.TrimSpace(in.Question)
	if question == "" {
		return models.QuerySummary{}, fmt.Errorf("empty question")
	}

	res, err := a.gen.GenerateWithRetry(ctx, llm.Request{
		Prompt:      fmt.Sprintf(summarizePrompt, question),
		Temperature: 0.1,
		JSONOnly:    true,
	})
	if err != nil {
		metrics.StageErrors.WithLabelValues(metrics.StageSummarize, "fatal").Inc()
		return models.QuerySummary{}, fmt.Errorf("summarize question: %w", err)
	}
	metrics.GenerationTokens.WithLabelValues(metrics.StageSummarize).Add(float64(res.TokensUsed))

	var summary models.QuerySummary
	if err := decodeLooseJSON(res.Text, &summary); err != nil {
		// A malformed summary is survivable: the planner receives the
		// raw question either way.
		a.logger.Warn("summary JSON unparseable, using raw text",
			zap.String("question", question),
			zap.Error(err))
		summary = models.QuerySummary{}
	}
	summary.Raw = question

	logger.Info("Question summarized",
		"condition", summary.Condition,
		"focus", summary.Focus)
	return summary, nil
}
