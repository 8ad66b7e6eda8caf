package activities

import (
	"fmt"
	"strings"

	"github.com/evidentia-ai/evidentia/internal/citations"
)

// snippetCharCap bounds each excerpt fed into the synthesis prompt.
const snippetCharCap = 600

const summarizePrompt = `Analyze the research question below and return a JSON object with exactly these string fields:
- "condition": the central subject or entity the question is about
- "context": situational details that constrain the answer (population, setting, timeframe)
- "focus": the specific aspect being asked about
- "goal": what a complete answer must establish

Return only the JSON object, no prose.

Question: %s`

func planPrompt(in PlanInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Decompose the research question into %d focused subquestions that together cover what a complete answer needs. Each subquestion must be independently searchable on the web.

Question: %s
`, in.Count, in.Question)

	if s := in.Summary; s.Condition != "" || s.Focus != "" {
		fmt.Fprintf(&b, "\nSubject: %s\nContext: %s\nFocus: %s\nGoal: %s\n",
			s.Condition, s.Context, s.Focus, s.Goal)
	}
	if in.Critique != "" {
		fmt.Fprintf(&b, "\nA previous answer built from a different decomposition was judged insufficient. Reviewer critique:\n%s\n\nPlan subquestions that close these gaps.\n", in.Critique)
	}
	if len(in.Avoid) > 0 {
		b.WriteString("\nDo not repeat these already-explored subquestions:\n")
		for _, q := range in.Avoid {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}
	b.WriteString("\nReturn the subquestions as a numbered list, one per line, nothing else.")
	return b.String()
}

func condensePrompt(subquestion, text string) string {
	return fmt.Sprintf(`Condense the page content below into a factual synopsis of at most 5 sentences, keeping only material relevant to the question. Preserve concrete findings, numbers, and caveats. If nothing is relevant, say so in one sentence.

Question: %s

Page content:
%s`, subquestion, text)
}

func answerPrompt(in AnswerInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Answer the subquestion using only the evidence below. State what the evidence supports and note where it is thin or conflicting. Do not introduce facts that are not in the evidence.

Overall research question: %s
Subquestion: %s
`, in.Question, in.Subquestion)

	if in.KnowledgeAnswer != "" {
		fmt.Fprintf(&b, "\nBackground from curated retrieval:\n%s\n", in.KnowledgeAnswer)
	}
	if len(in.Evidence) == 0 {
		b.WriteString("\nNo web evidence was found for this subquestion. Answer from the background above if possible, otherwise state that no evidence is available.\n")
	} else {
		b.WriteString("\nEvidence:\n")
		for i, ev := range in.Evidence {
			fmt.Fprintf(&b, "[E%d] %s (%s)\n%s\n\n", i+1, ev.Title, ev.URL, ev.Synopsis)
		}
	}
	return b.String()
}

func synthesizePrompt(in SynthesizeInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Write the final answer to the research question by synthesizing the per-subquestion findings below. Cite sources inline as [n] using the numbered source list. Every factual claim must carry at least one citation. Be direct about uncertainty and disagreement between sources.

Question: %s
`, in.Question)

	if in.KnowledgeAnswer != "" {
		fmt.Fprintf(&b, "\nBackground from curated retrieval:\n%s\n", in.KnowledgeAnswer)
	}
	b.WriteString("\nFindings:\n")
	for _, sa := range in.SubAnswers {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n\n", sa.Subquestion, sa.Answer)
	}
	b.WriteString("Sources:\n")
	b.WriteString(citations.FormatSources(in.Sources))
	b.WriteString("\n\nSupporting excerpts:\n")
	b.WriteString(citations.FormatSnippets(in.Sources, in.MaxSnippets, snippetCharCap))
	b.WriteString("\n\nReturn only the answer text with its inline [n] citations.")
	return b.String()
}

func evaluatePrompt(in EvaluateInput) string {
	return fmt.Sprintf(`Score the answer below against the research question on three dimensions, each from 0.0 to 1.0:
- "coverage": does it address every part of the question
- "grounding": are its claims tied to the %d cited sources rather than asserted
- "coherence": is it organized, consistent, and readable

Also return:
- "replan_needed": true if a different decomposition of the question would materially improve the answer
- "critique": one short paragraph naming the most important gaps

Return only a JSON object with those five fields.

Question: %s

Answer:
%s`, in.SourceCount, in.Question, in.Answer)
}

func repairRubricPrompt(text string) string {
	return fmt.Sprintf(`The text below was meant to be a JSON object with the fields "coverage", "grounding", "coherence" (numbers), "replan_needed" (boolean), and "critique" (string), but it does not parse. Restate it as exactly that JSON object, inventing nothing. Return only the JSON object.

%s`, text)
}

// fallbackSynthesis composes a readable answer directly from the
// sub-answers when the generation service cannot. The run still ends
// with a cited result instead of an error.
func fallbackSynthesis(in SynthesizeInput) string {
	var b strings.Builder
	b.WriteString("A synthesized narrative could not be generated; the per-subquestion findings are reported directly.\n")
	for _, sa := range in.SubAnswers {
		fmt.Fprintf(&b, "\n%s\n%s\n", sa.Subquestion, sa.Answer)
	}
	if src := citations.FormatSources(in.Sources); src != "" {
		b.WriteString("\nSources:\n")
		b.WriteString(src)
	}
	return b.String()
}
