package orchestrator

import (
	"context"
	"sync"

	"github.com/example/watchdeck/internal/omdb"
)

// DefaultTrendingQueries seed the trending shelf. The movie database has no
// trending endpoint, so we approximate one with a handful of evergreen
// searches.
var DefaultTrendingQueries = []string{"marvel", "star wars", "batman", "lord of the rings"}

// DefaultTrendingCap bounds the aggregated trending shelf.
const DefaultTrendingCap = 10

// FanOutTrending searches every query concurrently and merges the first pages
// into one deduplicated list, capped at limit entries. The merge is ordered by
// query position, not completion order, so the shelf is stable across runs.
// Failed queries contribute nothing; the aggregate never fails.
func FanOutTrending(ctx context.Context, api MovieAPI, queries []string, limit int) []omdb.SearchResult {
	if limit <= 0 {
		limit = DefaultTrendingCap
	}
	pages := make([][]omdb.SearchResult, len(queries))

	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			page, err := api.Search(ctx, q, 0)
			if err != nil {
				return
			}
			pages[i] = page.Results
		}()
	}
	wg.Wait()

	seen := make(map[string]struct{}, limit)
	merged := make([]omdb.SearchResult, 0, limit)
	for _, page := range pages {
		for _, r := range page {
			if _, dup := seen[r.IMDBID]; dup {
				continue
			}
			seen[r.IMDBID] = struct{}{}
			merged = append(merged, r)
			if len(merged) == limit {
				return merged
			}
		}
	}
	return merged
}

// Trending refreshes the trending shelf, superseding any in-flight refresh.
func (o *Orchestrator) Trending(ctx context.Context) ([]omdb.SearchResult, error) {
	o.mu.Lock()
	runCtx, seq := o.trending.begin(ctx, 0)
	queries := o.TrendingQueries
	o.mu.Unlock()

	merged := FanOutTrending(runCtx, o.api, queries, DefaultTrendingCap)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.trending.seq != seq {
		return nil, context.Canceled
	}
	o.trending.cancel = nil
	o.trending.phase = PhaseSettled
	if err := runCtx.Err(); err != nil {
		return nil, context.Canceled
	}
	o.trending.value = merged
	return merged, nil
}

// TrendingResults reports the current trending state.
func (o *Orchestrator) TrendingResults() ([]omdb.SearchResult, Phase) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.trending.value, o.trending.phase
}
