package citations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evidentia-ai/evidentia/internal/models"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lowercases scheme and host",
			in:   "HTTPS://Example.COM/Path",
			want: "https://example.com/Path",
		},
		{
			name: "strips www prefix",
			in:   "https://www.example.com/a",
			want: "https://example.com/a",
		},
		{
			name: "drops fragment",
			in:   "https://example.com/a#section-2",
			want: "https://example.com/a",
		},
		{
			name: "removes tracking params but keeps real ones",
			in:   "https://example.com/a?utm_source=x&id=42&fbclid=abc",
			want: "https://example.com/a?id=42",
		},
		{
			name: "trims trailing slash",
			in:   "https://example.com/a/",
			want: "https://example.com/a",
		},
		{
			name: "already canonical is unchanged",
			in:   "https://example.com/a?id=42",
			want: "https://example.com/a?id=42",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeURLIdempotent(t *testing.T) {
	once, err := NormalizeURL("HTTPS://WWW.Example.com/a/?utm_medium=m&x=1#frag")
	require.NoError(t, err)
	twice, err := NormalizeURL(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestCanonicalKeyFallback(t *testing.T) {
	assert.Equal(t, "", CanonicalKey("   "))
	// Unparseable input falls back to a lowercased trim.
	assert.Equal(t, "::not a url::", CanonicalKey("  ::Not A Url::  "))
}

func TestDedupeFirstWriterWins(t *testing.T) {
	items := []models.Evidence{
		{SourceID: "https://a.com/1", URL: "https://a.com/1", Synopsis: "first"},
		{SourceID: "https://b.com/2", URL: "https://b.com/2", Synopsis: "other"},
		{SourceID: "https://a.com/1", URL: "https://a.com/1", Synopsis: "second"},
	}

	out := Dedupe(items)
	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].Synopsis)
	assert.Equal(t, "https://b.com/2", out[1].SourceID)

	// Idempotent: a second pass changes nothing.
	assert.Equal(t, out, Dedupe(out))
}

func TestDedupeCollapsesURLVariants(t *testing.T) {
	items := []models.Evidence{
		{URL: "https://www.example.com/study?utm_source=mail"},
		{URL: "https://example.com/study"},
	}
	out := Dedupe(items)
	assert.Len(t, out, 1)
	assert.Equal(t, "https://www.example.com/study?utm_source=mail", out[0].URL)
}

func TestPromoteOrderingAndNumbering(t *testing.T) {
	subqs := []string{"sq1", "sq2"}
	bysq := map[string][]models.Evidence{
		"sq1": {
			{SourceID: "https://a.com/1", URL: "https://a.com/1", Synopsis: "from sq1"},
			{SourceID: "https://shared.com/x", URL: "https://shared.com/x", Synopsis: "sq1 saw it first"},
		},
		"sq2": {
			{SourceID: "https://shared.com/x", URL: "https://shared.com/x", Synopsis: "sq2 duplicate"},
			{SourceID: "https://b.com/2", URL: "https://b.com/2", Synopsis: "from sq2"},
		},
	}

	out := Promote(subqs, bysq, 10)
	require.Len(t, out, 3)

	// Flattening follows subquestion order; the shared source keeps the
	// record from the earlier subquestion.
	assert.Equal(t, "https://a.com/1", out[0].SourceID)
	assert.Equal(t, "sq1 saw it first", out[1].Synopsis)
	assert.Equal(t, "https://b.com/2", out[2].SourceID)

	for i, ev := range out {
		assert.Equal(t, i+1, ev.CitationIndex)
	}

	// Partitions are left untouched.
	assert.Zero(t, bysq["sq1"][0].CitationIndex)
}

func TestPromoteCapsSources(t *testing.T) {
	bysq := map[string][]models.Evidence{
		"sq1": {
			{SourceID: "u1", URL: "https://a.com/1"},
			{SourceID: "u2", URL: "https://a.com/2"},
			{SourceID: "u3", URL: "https://a.com/3"},
		},
	}
	out := Promote([]string{"sq1"}, bysq, 2)
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].CitationIndex)
	assert.Equal(t, 2, out[1].CitationIndex)
}

func TestPromoteRenumbersEachPass(t *testing.T) {
	bysq := map[string][]models.Evidence{
		"sq1": {{SourceID: "u1", URL: "https://a.com/1", CitationIndex: 7}},
	}
	out := Promote([]string{"sq1"}, bysq, 10)
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].CitationIndex)
}

func TestFormatSources(t *testing.T) {
	promoted := []models.Evidence{
		{CitationIndex: 1, Title: "Alpha Study", URL: "https://a.com/1"},
		{CitationIndex: 2, Title: "", URL: "https://b.com/2"},
	}
	got := FormatSources(promoted)
	assert.Contains(t, got, "[1] Alpha Study")
	assert.Contains(t, got, "[2] Source")
	assert.Contains(t, got, "https://b.com/2")

	assert.Equal(t, "", FormatSources(nil))
}

func TestFormatSnippetsTruncates(t *testing.T) {
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'x'
	}
	promoted := []models.Evidence{
		{CitationIndex: 1, Synopsis: string(long)},
		{CitationIndex: 2, Synopsis: "short"},
		{CitationIndex: 3, Synopsis: "dropped by cap"},
	}
	got := FormatSnippets(promoted, 2, 10)
	assert.Contains(t, got, "[1] xxxxxxxxxx\n")
	assert.Contains(t, got, "[2] short")
	assert.NotContains(t, got, "[3]")
}

func TestExtractDomain(t *testing.T) {
	d, err := ExtractDomain("https://www.sub.example.com:8443/path")
	require.NoError(t, err)
	assert.Equal(t, "sub.example.com", d)
}
