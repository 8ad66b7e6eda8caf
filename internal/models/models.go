package models

// Evidence origin values identify which resolution strategy produced an item.
const (
	OriginMetadataAPI   = "metadata-api"
	OriginFullFetch     = "full-fetch"
	OriginSearchSnippet = "search-snippet"
)

// Evidence is one citable unit of supporting text derived from a single source.
// Instances are immutable once produced by the fetch activity; the workflow only
// copies them between per-subquestion slots and the global citation list.
type Evidence struct {
	// SourceID is the canonical URL (normalized scheme/host/path, tracking
	// parameters stripped) and doubles as the deduplication key.
	SourceID string `json:"source_id"`
	URL      string `json:"url"`
	Title    string `json:"title"`
	Synopsis string `json:"synopsis"`
	Origin   string `json:"origin"`
	// CitationIndex is zero until the item is promoted into the numbered
	// source list at synthesis time.
	CitationIndex int `json:"citation_index,omitempty"`
}

// SearchResult is one candidate link returned by the search provider.
type SearchResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// QuerySummary holds the structured condition/context fields extracted from the
// original question by the summarize stage.
type QuerySummary struct {
	Condition string `json:"condition"`
	Context   string `json:"context"`
	Focus     string `json:"focus"`
	Goal      string `json:"goal"`
	// Raw keeps the original question text verbatim.
	Raw string `json:"raw"`
}

// EvalRubric carries the evaluator's quality signal for one iteration.
// Overall is computed engine-side as 0.4*coverage + 0.4*grounding +
// 0.2*coherence (each clamped to [0,1]); the model's own overall is ignored
// so the replan decision stays deterministic for a given score triple.
type EvalRubric struct {
	Coverage     float64 `json:"coverage"`
	Grounding    float64 `json:"grounding"`
	Coherence    float64 `json:"coherence"`
	Overall      float64 `json:"overall"`
	ReplanNeeded bool    `json:"replan_needed"`
	Critique     string  `json:"critique"`
}

// Clamp01 bounds a score into [0,1]. Model output occasionally drifts outside
// the rubric range and the transition rule assumes bounded inputs.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// CombineScores applies the fixed weighting used for the replan decision.
func CombineScores(coverage, grounding, coherence float64) float64 {
	return 0.4*Clamp01(coverage) + 0.4*Clamp01(grounding) + 0.2*Clamp01(coherence)
}
