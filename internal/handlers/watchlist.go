package handlers

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/example/watchdeck/internal/platform/analytics"
	"github.com/example/watchdeck/internal/platform/api"
	"github.com/example/watchdeck/internal/platform/auth"
	"github.com/example/watchdeck/internal/platform/httpserver"
	"github.com/example/watchdeck/internal/watchlist"
)

var imdbIDRe = regexp.MustCompile(`^tt\d{7,8}$`)

type rateRequest struct {
	Rating int `json:"rating"`
}

type statusRequest struct {
	Status watchlist.Status `json:"status"`
}

// callerID extracts and parses the authenticated user id. A missing or
// malformed id means the middleware chain is broken, so it answers 401.
func callerID(w http.ResponseWriter, r *http.Request, rid string) (uuid.UUID, bool) {
	raw, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		api.Unauthorized(w, "AUTH_MISSING", "authentication required", rid)
		return uuid.Nil, false
	}
	uid, err := uuid.Parse(raw)
	if err != nil {
		api.Unauthorized(w, "AUTH_INVALID", "malformed principal", rid)
		return uuid.Nil, false
	}
	return uid, true
}

// entryID validates the {imdb_id} path parameter.
func entryID(w http.ResponseWriter, r *http.Request, rid string) (string, bool) {
	id := chi.URLParam(r, "imdb_id")
	if !imdbIDRe.MatchString(id) {
		api.BadRequest(w, "INVALID_ID", "imdb_id must match tt followed by 7-8 digits", rid, nil)
		return "", false
	}
	return id, true
}

func listCacheKey(uid uuid.UUID) string { return "watchlist:" + uid.String() }

// ListWatchlist handles GET /v1/watchlist.
func ListWatchlist(store watchlist.Store, cache Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := callerID(w, r, rid)
		if !ok {
			return
		}

		key := listCacheKey(uid)
		if cache != nil {
			if v, hit := cache.Get(key); hit {
				if entries, ok := v.([]watchlist.Entry); ok {
					api.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
					return
				}
			}
		}

		entries, err := store.List(r.Context(), uid)
		if err != nil {
			api.Internal(w, rid)
			return
		}
		if entries == nil {
			entries = []watchlist.Entry{}
		}
		if cache != nil {
			cache.Set(key, entries)
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
	}
}

// AddToWatchlist handles POST /v1/watchlist. Re-adding a tracked title is not
// an error: the response carries already_present instead.
func AddToWatchlist(store watchlist.Store, cache Cache, ap *analytics.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := callerID(w, r, rid)
		if !ok {
			return
		}

		var req watchlist.AddParams
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		if problems := watchlist.ValidateAdd(req); problems != nil {
			api.BadRequest(w, "VALIDATION", "invalid entry", rid, problems)
			return
		}

		entry, err := store.Insert(r.Context(), watchlist.Entry{
			ID:        uuid.New(),
			UserID:    uid,
			IMDBID:    req.IMDBID,
			Title:     req.Title,
			Year:      req.Year,
			PosterURL: req.PosterURL,
			MediaType: req.MediaType,
			Status:    watchlist.StatusPlanToWatch,
		})
		if errors.Is(err, watchlist.ErrDuplicate) {
			api.WriteJSON(w, http.StatusOK, map[string]any{"already_present": true, "imdb_id": req.IMDBID})
			return
		}
		if err != nil {
			api.Internal(w, rid)
			return
		}

		if cache != nil {
			cache.Invalidate(listCacheKey(uid))
		}
		ap.Publish(analytics.SubjectWatchlistAdded, "watchlist_added", uid.String(), map[string]any{
			"imdb_id":    entry.IMDBID,
			"media_type": entry.MediaType,
		})
		api.WriteJSON(w, http.StatusCreated, entry)
	}
}

// RemoveFromWatchlist handles DELETE /v1/watchlist/{imdb_id}.
func RemoveFromWatchlist(store watchlist.Store, cache Cache, ap *analytics.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := callerID(w, r, rid)
		if !ok {
			return
		}
		id, ok := entryID(w, r, rid)
		if !ok {
			return
		}

		err := store.Delete(r.Context(), uid, id)
		if errors.Is(err, watchlist.ErrNotFound) {
			api.NotFound(w, "NOT_FOUND", "entry not found", rid)
			return
		}
		if err != nil {
			api.Internal(w, rid)
			return
		}

		if cache != nil {
			cache.Invalidate(listCacheKey(uid))
		}
		ap.Publish(analytics.SubjectWatchlistRemoved, "watchlist_removed", uid.String(), map[string]any{
			"imdb_id": id,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}

// RateEntry handles PUT /v1/watchlist/{imdb_id}/rating. Rating 0 clears.
func RateEntry(store watchlist.Store, cache Cache, ap *analytics.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := callerID(w, r, rid)
		if !ok {
			return
		}
		id, ok := entryID(w, r, rid)
		if !ok {
			return
		}

		var req rateRequest
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		rating, ok := watchlist.NormalizeRating(req.Rating)
		if !ok {
			api.BadRequest(w, "INVALID_RATING", "rating must be 1-5, or 0 to clear", rid, nil)
			return
		}

		err := store.SetRating(r.Context(), uid, id, rating)
		if errors.Is(err, watchlist.ErrNotFound) {
			api.NotFound(w, "NOT_FOUND", "entry not found", rid)
			return
		}
		if err != nil {
			api.Internal(w, rid)
			return
		}

		if cache != nil {
			cache.Invalidate(listCacheKey(uid))
		}
		props := map[string]any{"imdb_id": id}
		if rating != nil {
			props["rating"] = *rating
		}
		ap.Publish(analytics.SubjectWatchlistRated, "watchlist_rated", uid.String(), props)
		api.WriteJSON(w, http.StatusOK, map[string]any{"imdb_id": id, "rating": rating})
	}
}

// SetEntryStatus handles PUT /v1/watchlist/{imdb_id}/status.
func SetEntryStatus(store watchlist.Store, cache Cache, ap *analytics.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := callerID(w, r, rid)
		if !ok {
			return
		}
		id, ok := entryID(w, r, rid)
		if !ok {
			return
		}

		var req statusRequest
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		if !watchlist.ValidStatus(req.Status) {
			api.BadRequest(w, "INVALID_STATUS", "unknown status", rid, map[string]any{"allowed": watchlist.Statuses})
			return
		}

		err := store.SetStatus(r.Context(), uid, id, req.Status)
		if errors.Is(err, watchlist.ErrNotFound) {
			api.NotFound(w, "NOT_FOUND", "entry not found", rid)
			return
		}
		if err != nil {
			api.Internal(w, rid)
			return
		}

		if cache != nil {
			cache.Invalidate(listCacheKey(uid))
		}
		ap.Publish(analytics.SubjectWatchlistStatus, "watchlist_status_changed", uid.String(), map[string]any{
			"imdb_id": id,
			"status":  req.Status,
		})
		api.WriteJSON(w, http.StatusOK, map[string]any{"imdb_id": id, "status": req.Status})
	}
}

// WatchlistStats handles GET /v1/watchlist/stats.
func WatchlistStats(store watchlist.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := callerID(w, r, rid)
		if !ok {
			return
		}

		stats, err := store.Stats(r.Context(), uid)
		if err != nil {
			api.Internal(w, rid)
			return
		}
		api.WriteJSON(w, http.StatusOK, stats)
	}
}
