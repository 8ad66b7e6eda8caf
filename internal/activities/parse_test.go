package activities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumberedList(t *testing.T) {
	text := `Here are the subquestions:

1. What is the mechanism of action?
2) What does the trial evidence show?
- Are there known interactions?
* What do guidelines recommend?

Let me know if you need more.`

	got := parseNumberedList(text)
	require.Len(t, got, 4)
	assert.Equal(t, "What is the mechanism of action?", got[0])
	assert.Equal(t, "What does the trial evidence show?", got[1])
	assert.Equal(t, "Are there known interactions?", got[2])
	assert.Equal(t, "What do guidelines recommend?", got[3])
}

func TestParseNumberedListEmpty(t *testing.T) {
	assert.Empty(t, parseNumberedList("No list here, just prose."))
	assert.Empty(t, parseNumberedList(""))
}

func TestDecodeLooseJSON(t *testing.T) {
	type rubric struct {
		Coverage float64 `json:"coverage"`
		Critique string  `json:"critique"`
	}

	tests := []struct {
		name string
		in   string
	}{
		{"clean object", `{"coverage": 0.8, "critique": "ok"}`},
		{"fenced", "```json\n{\"coverage\": 0.8, \"critique\": \"ok\"}\n```"},
		{"surrounded by prose", `Sure! Here is the rubric: {"coverage": 0.8, "critique": "ok"} Hope that helps.`},
		{"trailing comma", `{"coverage": 0.8, "critique": "ok",}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r rubric
			require.NoError(t, decodeLooseJSON(tt.in, &r))
			assert.Equal(t, 0.8, r.Coverage)
			assert.Equal(t, "ok", r.Critique)
		})
	}

	var r rubric
	assert.Error(t, decodeLooseJSON("not json at all", &r))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 100))
	assert.Equal(t, "short", truncate("short", 0))

	got := truncate("the quick brown fox jumps over the lazy dog", 20)
	assert.LessOrEqual(t, len(got), 24)
	assert.Contains(t, got, "…")
	// Cuts on a word boundary when one is close enough.
	assert.Equal(t, "the quick brown fox…", got)
}
