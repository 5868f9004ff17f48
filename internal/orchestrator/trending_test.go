package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/example/watchdeck/internal/omdb"
)

func pagesByQuery(pages map[string][]omdb.SearchResult, errs map[string]error) *stubAPI {
	return &stubAPI{searchFn: func(_ context.Context, query string, _ int) (omdb.SearchPage, error) {
		if err := errs[query]; err != nil {
			return omdb.SearchPage{}, err
		}
		return omdb.SearchPage{Results: pages[query]}, nil
	}}
}

func TestFanOutTrending_MergesInQueryOrder(t *testing.T) {
	api := pagesByQuery(map[string][]omdb.SearchResult{
		"a": {result("tt0000001"), result("tt0000002")},
		"b": {result("tt0000003")},
	}, nil)

	got := FanOutTrending(bg, api, []string{"a", "b"}, 10)
	want := []string{"tt0000001", "tt0000002", "tt0000003"}
	if len(got) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].IMDBID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, got[i].IMDBID)
		}
	}
}

func TestFanOutTrending_DeduplicatesAcrossQueries(t *testing.T) {
	api := pagesByQuery(map[string][]omdb.SearchResult{
		"a": {result("tt0000001"), result("tt0000002")},
		"b": {result("tt0000002"), result("tt0000003")},
	}, nil)

	got := FanOutTrending(bg, api, []string{"a", "b"}, 10)
	if len(got) != 3 {
		t.Fatalf("expected 3 unique results, got %d: %+v", len(got), got)
	}
}

func TestFanOutTrending_CapsResults(t *testing.T) {
	page := make([]omdb.SearchResult, 0, 8)
	for i := 0; i < 8; i++ {
		page = append(page, result("tt000000"+string(rune('1'+i))))
	}
	api := pagesByQuery(map[string][]omdb.SearchResult{"a": page}, nil)

	if got := FanOutTrending(bg, api, []string{"a"}, 5); len(got) != 5 {
		t.Fatalf("expected cap of 5, got %d", len(got))
	}
}

func TestFanOutTrending_PartialFailure(t *testing.T) {
	api := pagesByQuery(
		map[string][]omdb.SearchResult{"ok": {result("tt0000001")}},
		map[string]error{"broken": errors.New("upstream down")},
	)

	got := FanOutTrending(bg, api, []string{"broken", "ok"}, 10)
	if len(got) != 1 || got[0].IMDBID != "tt0000001" {
		t.Fatalf("expected the healthy query's results, got %+v", got)
	}
}

func TestFanOutTrending_AllFail(t *testing.T) {
	api := pagesByQuery(nil, map[string]error{"a": errors.New("down"), "b": errors.New("down")})
	if got := FanOutTrending(bg, api, []string{"a", "b"}, 10); len(got) != 0 {
		t.Fatalf("expected no results, got %+v", got)
	}
}

func TestTrending_SettlesState(t *testing.T) {
	api := pagesByQuery(map[string][]omdb.SearchResult{
		"marvel": {result("tt0000001")},
	}, nil)
	o := New(api, nil)
	o.TrendingQueries = []string{"marvel"}

	got, err := o.Trending(bg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one result, got %d", len(got))
	}
	if results, phase := o.TrendingResults(); phase != PhaseSettled || len(results) != 1 {
		t.Fatalf("unexpected state: phase=%d results=%d", phase, len(results))
	}
}
