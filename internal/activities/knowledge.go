package activities

import (
	"context"
	"time"

	"go.temporal.io/sdk/activity"
	"go.uber.org/zap"

	"github.com/evidentia-ai/evidentia/internal/llm"
	"github.com/evidentia-ai/evidentia/internal/metrics"
)

// knowledgeUnavailable is what downstream prompts see when the curated
// retrieval service produced nothing.
const knowledgeUnavailable = ""

// QueryKnowledge asks the curated retrieval service for background on
// the original question and condenses long answers into a synopsis.
// The service is an enrichment, not a requirement, so this activity
// never fails the run: any error degrades to an empty answer.
func (a *Activities) QueryKnowledge(ctx context.Context, in KnowledgeInput) (KnowledgeResult, error) {
	logger := activity.GetLogger(ctx)
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(metrics.StageKnowledge).Observe(time.Since(start).Seconds())
	}()

	if a.knowledge == nil {
		return KnowledgeResult{Answer: knowledgeUnavailable}, nil
	}

	answer, err := a.knowledge.Query(ctx, in.Question)
	if err != nil {
		metrics.StageErrors.WithLabelValues(metrics.StageKnowledge, "absorbed").Inc()
		a.logger.Warn("knowledge query failed, continuing without it",
			zap.Error(err))
		return KnowledgeResult{Answer: knowledgeUnavailable}, nil
	}
	if answer == "" {
		return KnowledgeResult{Answer: knowledgeUnavailable}, nil
	}

	if len(answer) > a.cfg.MaxSynopsisChars {
		answer = a.condenseKnowledge(ctx, in.Question, answer)
	}

	logger.Info("Knowledge answer retrieved", "chars", len(answer))
	return KnowledgeResult{Answer: answer, Available: true}, nil
}

// condenseKnowledge shortens an oversized retrieval answer, falling
// back to plain truncation when generation is unavailable.
func (a *Activities) condenseKnowledge(ctx context.Context, question, answer string) string {
	condenseCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	res, err := a.gen.Generate(condenseCtx, llm.Request{
		Prompt:      condensePrompt(question, truncate(answer, a.cfg.MaxContentChars)),
		Temperature: 0.1,
	})
	if err != nil || res.Text == "" {
		return truncate(answer, a.cfg.MaxSynopsisChars)
	}
	metrics.GenerationTokens.WithLabelValues(metrics.StageKnowledge).Add(float64(res.TokensUsed))
	return res.Text
}
