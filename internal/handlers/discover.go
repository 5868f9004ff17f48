package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/example/watchdeck/internal/omdb"
	"github.com/example/watchdeck/internal/orchestrator"
	"github.com/example/watchdeck/internal/platform/analytics"
	"github.com/example/watchdeck/internal/platform/api"
	"github.com/example/watchdeck/internal/platform/auth"
	"github.com/example/watchdeck/internal/platform/httpserver"
)

const trendingCacheKey = "discover:trending"

// Search handles GET /v1/search?q=... An empty query is an empty result set,
// not an error.
func Search(movies orchestrator.MovieAPI, ap *analytics.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		if movies == nil {
			api.Internal(w, rid)
			return
		}

		q := r.URL.Query().Get("q")
		if q == "" {
			api.WriteJSON(w, http.StatusOK, map[string]any{"results": []omdb.SearchResult{}, "total": 0})
			return
		}
		if len(q) > 100 {
			api.BadRequest(w, "QUERY_TOO_LONG", "search query too long", rid, nil)
			return
		}

		page, err := movies.Search(r.Context(), q, 0)
		if err != nil {
			var apiErr *omdb.APIError
			if errors.As(err, &apiErr) {
				api.BadRequest(w, "UPSTREAM_REJECTED", apiErr.Message, rid, nil)
				return
			}
			api.Internal(w, rid)
			return
		}

		if uid, ok := auth.UserIDFromContext(r.Context()); ok {
			ap.Publish(analytics.SubjectSearchPerformed, "search_performed", uid, map[string]any{
				"query_len": len(q),
				"results":   len(page.Results),
			})
		}
		results := page.Results
		if results == nil {
			results = []omdb.SearchResult{}
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{"results": results, "total": page.TotalResults})
	}
}

// Trending handles GET /v1/trending. The fan-out result is cached; a cold
// cache pays for the full fan-out once per TTL.
func Trending(movies orchestrator.MovieAPI, cache Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		if movies == nil {
			api.Internal(w, rid)
			return
		}

		if cache != nil {
			if v, hit := cache.Get(trendingCacheKey); hit {
				if results, ok := v.([]omdb.SearchResult); ok {
					api.WriteJSON(w, http.StatusOK, map[string]any{"results": results})
					return
				}
			}
		}

		results := orchestrator.FanOutTrending(r.Context(), movies, orchestrator.DefaultTrendingQueries, orchestrator.DefaultTrendingCap)
		if err := r.Context().Err(); err != nil {
			return
		}
		if cache != nil && len(results) > 0 {
			cache.Set(trendingCacheKey, results)
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{"results": results})
	}
}

// RandomEpisode handles GET /v1/series/{imdb_id}/random-episode.
func RandomEpisode(movies orchestrator.MovieAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		if movies == nil {
			api.Internal(w, rid)
			return
		}

		id := chi.URLParam(r, "imdb_id")
		if !imdbIDRe.MatchString(id) {
			api.BadRequest(w, "INVALID_ID", "imdb_id must match tt followed by 7-8 digits", rid, nil)
			return
		}

		d, err := movies.Detail(r.Context(), id)
		if err != nil {
			var apiErr *omdb.APIError
			if errors.As(err, &apiErr) {
				api.NotFound(w, "NOT_FOUND", apiErr.Message, rid)
				return
			}
			api.Internal(w, rid)
			return
		}
		if d.Type != "series" {
			api.BadRequest(w, "NOT_A_SERIES", "random episode needs a series id", rid, nil)
			return
		}

		pick, err := orchestrator.PickRandomEpisode(r.Context(), movies, id, orchestrator.TotalSeasons(d), nil)
		if errors.Is(err, orchestrator.ErrNoEpisodes) {
			api.NotFound(w, "NO_EPISODES", orchestrator.ErrNoEpisodes.Error(), rid)
			return
		}
		if err != nil {
			api.Internal(w, rid)
			return
		}
		api.WriteJSON(w, http.StatusOK, pick)
	}
}
