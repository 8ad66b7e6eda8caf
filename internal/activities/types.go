package activities

import "github.com/evidentia-ai/evidentia/internal/models"

// SummarizeInput carries the raw user question into SummarizeQuestion.
type SummarizeInput struct {
	Question string `json:"question"`
}

// PlanInput carries the question, its structured summary, and replan
// context into PlanSubquestions. Avoid lists subquestions already
// explored in earlier iterations; Critique is the evaluator's feedback
// from the previous pass, empty on the first.
type PlanInput struct {
	Question string              `json:"question"`
	Summary  models.QuerySummary `json:"summary"`
	Avoid    []string            `json:"avoid,omitempty"`
	Critique string              `json:"critique,omitempty"`
	Count    int                 `json:"count"`
}

// PlanResult is the ordered subquestion list for one iteration.
type PlanResult struct {
	Subquestions []string `json:"subquestions"`
}

// KnowledgeInput carries the original question into QueryKnowledge.
type KnowledgeInput struct {
	Question string `json:"question"`
}

// KnowledgeResult holds the curated retrieval answer, or a stand-in
// note when the service was unavailable.
type KnowledgeResult struct {
	Answer    string `json:"answer"`
	Available bool   `json:"available"`
}

// SearchInput requests web results for one subquestion.
type SearchInput struct {
	Subquestion string `json:"subquestion"`
	Count       int    `json:"count"`
}

// SearchOutput is the admissible, deduplicated result list for one
// subquestion, in engine rank order.
type SearchOutput struct {
	Results []models.SearchResult `json:"results"`
}

// FetchInput asks for an Evidence record for one search result. Rank
// is the result's position within its subquestion's search results.
type FetchInput struct {
	Subquestion string              `json:"subquestion"`
	Result      models.SearchResult `json:"result"`
	Rank        int                 `json:"rank"`
}

// AnswerInput carries one subquestion and only its own evidence
// partition into AnswerSubquestion.
type AnswerInput struct {
	Question        string            `json:"question"`
	Subquestion     string            `json:"subquestion"`
	Evidence        []models.Evidence `json:"evidence"`
	KnowledgeAnswer string            `json:"knowledge_answer,omitempty"`
}

// AnswerResult is the evidence-grounded answer to one subquestion.
type AnswerResult struct {
	Answer string `json:"answer"`
}

// SubAnswer pairs a subquestion with its answer for synthesis.
type SubAnswer struct {
	Subquestion string `json:"subquestion"`
	Answer      string `json:"answer"`
}

// SynthesizeInput carries everything the final answer is composed
// from. Sources already carry their citation indexes.
type SynthesizeInput struct {
	Question        string            `json:"question"`
	KnowledgeAnswer string            `json:"knowledge_answer,omitempty"`
	SubAnswers      []SubAnswer       `json:"sub_answers"`
	Sources         []models.Evidence `json:"sources"`
	MaxSnippets     int               `json:"max_snippets"`
}

// SynthesizeResult is the cited draft answer plus its source list.
type SynthesizeResult struct {
	Answer    string `json:"answer"`
	Citations string `json:"citations"`
	Fallback  bool   `json:"fallback"`
}

// EvaluateInput carries the draft answer and its context into
// EvaluateAnswer.
type EvaluateInput struct {
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	SourceCount int    `json:"source_count"`
}
