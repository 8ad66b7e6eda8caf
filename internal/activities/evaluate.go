package activities

import (
	"context"
	"time"

	"go.temporal.io/sdk/activity"
	"go.uber.org/zap"

	"github.com/evidentia-ai/evidentia/internal/llm"
	"github.com/evidentia-ai/evidentia/internal/metrics"
	"github.com/evidentia-ai/evidentia/internal/models"
)

// evaluatorResponse is the raw rubric shape the model returns. The
// overall score is computed here, not trusted from the model.
type evaluatorResponse struct {
	Coverage     float64 `json:"coverage"`
	Grounding    float64 `json:"grounding"`
	Coherence    float64 `json:"coherence"`
	ReplanNeeded bool    `json:"replan_needed"`
	Critique     string  `json:"critique"`
}

// EvaluateAnswer scores the draft answer on the fixed rubric. The
// dimension scores come from the model; clamping and the overall
// combination are done here so an inflated or malformed rubric cannot
// skip the quality gate. Evaluation never fails the run: an unusable
// response scores zero and forces a replan decision.
func (a *Activities) EvaluateAnswer(ctx context.Context, in EvaluateInput) (models.EvalRubric, error) {
	logger := activity.GetLogger(ctx)
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(metrics.StageEvaluate).Observe(time.Since(start).Seconds())
	}()

	res, err := a.gen.GenerateWithRetry(ctx, llm.Request{
		Prompt:      evaluatePrompt(in),
		Temperature: 0.0,
		JSONOnly:    true,
	})
	if err != nil {
		metrics.StageErrors.WithLabelValues(metrics.StageEvaluate, "absorbed").Inc()
		a.logger.Warn("evaluation generation failed, scoring zero",
			zap.Error(err))
		return zeroRubric("evaluation service unavailable"), nil
	}
	metrics.GenerationTokens.WithLabelValues(metrics.StageEvaluate).Add(float64(res.TokensUsed))

	var raw evaluatorResponse
	if err := decodeLooseJSON(res.Text, &raw); err != nil {
		raw, err = a.repairRubric(ctx, res.Text)
		if err != nil {
			metrics.StageErrors.WithLabelValues(metrics.StageEvaluate, "absorbed").Inc()
			a.logger.Warn("evaluation rubric unparseable, scoring zero",
				zap.Error(err))
			return zeroRubric("evaluator returned an unparseable rubric"), nil
		}
	}

	rubric := models.EvalRubric{
		Coverage:     models.Clamp01(raw.Coverage),
		Grounding:    models.Clamp01(raw.Grounding),
		Coherence:    models.Clamp01(raw.Coherence),
		ReplanNeeded: raw.ReplanNeeded,
		Critique:     raw.Critique,
	}
	rubric.Overall = models.CombineScores(rubric.Coverage, rubric.Grounding, rubric.Coherence)

	metrics.ObserveRubric(rubric.Coverage, rubric.Grounding, rubric.Coherence, rubric.Overall)
	logger.Info("Answer evaluated",
		"overall", rubric.Overall,
		"replan_needed", rubric.ReplanNeeded)
	return rubric, nil
}

// repairRubric makes one attempt to have the model restate an
// unparseable rubric as strict JSON.
func (a *Activities) repairRubric(ctx context.Context, text string) (evaluatorResponse, error) {
	res, err := a.gen.Generate(ctx, llm.Request{
		Prompt:      repairRubricPrompt(text),
		Temperature: 0.0,
		JSONOnly:    true,
	})
	if err != nil {
		return evaluatorResponse{}, err
	}
	var raw evaluatorResponse
	if err := decodeLooseJSON(res.Text, &raw); err != nil {
		return evaluatorResponse{}, err
	}
	a.logger.Info("evaluation rubric recovered by repair pass")
	return raw, nil
}

func zeroRubric(critique string) models.EvalRubric {
	return models.EvalRubric{ReplanNeeded: true, Critique: critique}
}
