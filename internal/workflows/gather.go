package workflows

import (
	"go.temporal.io/sdk/workflow"

	"github.com/evidentia-ai/evidentia/internal/activities"
	"github.com/evidentia-ai/evidentia/internal/citations"
	"github.com/evidentia-ai/evidentia/internal/config"
	"github.com/evidentia-ai/evidentia/internal/models"
)

// indexedEvidence carries a fan-out result back with its search rank so
// the partition can be reassembled in engine order.
type indexedEvidence struct {
	Index    int
	Evidence models.Evidence
}

// gatherForSubquestion searches one subquestion and fetches its results
// into Evidence records. Fetches run concurrently under a semaphore,
// but the returned partition preserves search rank order: promotion
// later relies on that order for first-writer-wins deduplication.
// Search and fetch activities absorb their own failures, so gathering
// never fails; the worst case is an empty partition.
func gatherForSubquestion(ctx workflow.Context, subq string, loop config.LoopSnapshot) []models.Evidence {
	logger := workflow.GetLogger(ctx)

	var searched activities.SearchOutput
	if err := workflow.ExecuteActivity(ctx, activitySearch, activities.SearchInput{
		Subquestion: subq,
		Count:       loop.SubquestionSearchCount,
	}).Get(ctx, &searched); err != nil {
		logger.Warn("search activity did not complete", "subquestion", subq, "error", err)
		return nil
	}
	if len(searched.Results) == 0 {
		return nil
	}

	sem := workflow.NewSemaphore(ctx, int64(loop.MaxConcurrentFetches))
	ch := workflow.NewChannel(ctx)

	for i, r := range searched.Results {
		i, r := i, r
		workflow.Go(ctx, func(gctx workflow.Context) {
			out := indexedEvidence{Index: i}
			if err := sem.Acquire(gctx, 1); err != nil {
				ch.Send(gctx, out)
				return
			}
			defer sem.Release(1)

			if err := workflow.ExecuteActivity(gctx, activityFetch, activities.FetchInput{
				Subquestion: subq,
				Result:      r,
				Rank:        i,
			}).Get(gctx, &out.Evidence); err != nil {
				// FetchEvidence never errors by contract; a worker
				// crash still yields the snippet as evidence.
				out.Evidence = models.Evidence{
					SourceID: citations.CanonicalKey(r.URL),
					URL:      r.URL,
					Title:    r.Title,
					Origin:   models.OriginSearchSnippet,
					Synopsis: r.Snippet,
				}
			}
			ch.Send(gctx, out)
		})
	}

	collected := make([]models.Evidence, len(searched.Results))
	for range searched.Results {
		var out indexedEvidence
		ch.Receive(ctx, &out)
		collected[out.Index] = out.Evidence
	}

	// Within-partition duplicates collapse here; cross-partition
	// duplicates survive until promotion.
	return citations.Dedupe(collected)
}
