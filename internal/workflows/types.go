package workflows

import (
	"github.com/evidentia-ai/evidentia/internal/config"
	"github.com/evidentia-ai/evidentia/internal/models"
)

// ResearchInput starts one research run. Loop carries the control
// knobs frozen at start time so a config reload mid-run cannot change
// the behavior of replay.
type ResearchInput struct {
	Question string              `json:"question"`
	RunID    string              `json:"run_id"`
	Loop     config.LoopSnapshot `json:"loop"`
}

// IterationRecord captures what one plan-gather-synthesize-evaluate
// pass produced, for the run history returned to the caller.
type IterationRecord struct {
	Subquestions []string          `json:"subquestions"`
	Rubric       models.EvalRubric `json:"rubric"`
}

// ResearchResult is the terminal output of a run. FinalAnswer is
// always the draft from the last completed iteration, whether the run
// ended by passing the quality gate or by exhausting the iteration
// budget.
type ResearchResult struct {
	Question       string                       `json:"question"`
	FinalAnswer    string                       `json:"final_answer"`
	Citations      string                       `json:"citations"`
	Sources        []models.Evidence            `json:"sources"`
	SubAnswers     map[string]string            `json:"sub_answers"`
	Evidence       map[string][]models.Evidence `json:"evidence"`
	Rubric         models.EvalRubric            `json:"rubric"`
	Iterations     int                          `json:"iterations"`
	Accepted       bool                         `json:"accepted"`
	IterationTrail []IterationRecord            `json:"iteration_trail"`
}

// answerFailedMarker stands in for a subquestion whose answer
// generation failed. Synthesis still sees the subquestion, with this
// text, so the final answer can acknowledge the gap.
const answerFailedMarker = "No answer could be produced for this subquestion."
