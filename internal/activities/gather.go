package activities

import (
	"context"
	"time"

	"go.temporal.io/sdk/activity"
	"go.uber.org/zap"

	"github.com/evidentia-ai/evidentia/internal/citations"
	"github.com/evidentia-ai/evidentia/internal/llm"
	"github.com/evidentia-ai/evidentia/internal/metrics"
	"github.com/evidentia-ai/evidentia/internal/models"
	"github.com/evidentia-ai/evidentia/internal/webfetch"
)

// SearchSubquestion runs one web search and filters the results to the
// admissible domain set. Search trouble never fails the run: the
// subquestion simply proceeds with no web evidence.
func (a *Activities) SearchSubquestion(ctx context.Context, in SearchInput) (SearchOutput, error) {
	logger := activity.GetLogger(ctx)
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(metrics.StageSearch).Observe(time.Since(start).Seconds())
	}()

	results, err := a.search.Search(ctx, in.Subquestion, in.Count)
	if err != nil {
		metrics.StageErrors.WithLabelValues(metrics.StageSearch, "absorbed").Inc()
		a.logger.Warn("search failed, subquestion proceeds without web evidence",
			zap.String("subquestion", in.Subquestion),
			zap.Error(err))
		return SearchOutput{}, nil
	}

	admissible := results[:0]
	for _, r := range results {
		if a.policy.Admissible(r.URL) {
			admissible = append(admissible, r)
		}
	}

	logger.Info("Search complete",
		"subquestion", in.Subquestion,
		"results", len(admissible))
	return SearchOutput{Results: admissible}, nil
}

// FetchEvidence turns one search result into an Evidence record. It
// never returns an error: each stage of the pipeline falls through to
// a cheaper source of text, ending at the search snippet itself.
//
// The ladder is: article metadata API (for recognized article URLs),
// then a full page fetch condensed by the generator, then the raw
// extracted text truncated, then the snippet.
func (a *Activities) FetchEvidence(ctx context.Context, in FetchInput) (models.Evidence, error) {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(metrics.StageFetch).Observe(time.Since(start).Seconds())
	}()

	ev := models.Evidence{
		SourceID: citations.CanonicalKey(in.Result.URL),
		URL:      in.Result.URL,
		Title:    in.Result.Title,
	}

	if a.metadata != nil {
		if id, ok := webfetch.ArticleID(in.Result.URL); ok {
			if summary, err := a.metadata.Summary(ctx, id); err == nil {
				ev.Origin = models.OriginMetadataAPI
				ev.Synopsis = summary.Synopsis()
				if summary.Title != "" {
					ev.Title = summary.Title
				}
				metrics.FetchOutcomes.WithLabelValues(ev.Origin).Inc()
				return ev, nil
			}
		}
	}

	if synopsis, ok := a.fetchAndCondense(ctx, in); ok {
		ev.Origin = models.OriginFullFetch
		ev.Synopsis = synopsis
		metrics.FetchOutcomes.WithLabelValues(ev.Origin).Inc()
		return ev, nil
	}

	ev.Origin = models.OriginSearchSnippet
	ev.Synopsis = in.Result.Snippet
	metrics.FetchOutcomes.WithLabelValues(ev.Origin).Inc()
	return ev, nil
}

// fetchAndCondense fetches the page and produces a synopsis from its
// text. The bool is false when the caller should fall back to the
// search snippet.
func (a *Activities) fetchAndCondense(ctx context.Context, in FetchInput) (string, bool) {
	body, contentType, err := a.fetcher.Fetch(ctx, in.Result.URL)
	if err != nil {
		if fe, ok := err.(*webfetch.FetchError); ok {
			metrics.FetchFailures.WithLabelValues(fe.Kind.String()).Inc()
		}
		a.logger.Debug("page fetch failed",
			zap.String("url", in.Result.URL),
			zap.Error(err))
		return "", false
	}

	if webfetch.IsProbablyPDF(in.Result.URL, contentType) {
		return "", false
	}

	text := webfetch.ExtractText(body)
	if len(text) < a.cfg.MinUsableTextChars {
		return "", false
	}
	text = truncate(text, a.cfg.MaxContentChars)

	res, err := a.gen.GenerateWithRetry(ctx, llm.Request{
		Prompt:      condensePrompt(in.Subquestion, text),
		Temperature: 0.1,
	})
	if err != nil || res.Text == "" {
		// The page text is still better evidence than the snippet.
		return truncate(text, a.cfg.MaxSynopsisChars), true
	}
	metrics.GenerationTokens.WithLabelValues(metrics.StageFetch).Add(float64(res.TokensUsed))
	return res.Text, true
}
