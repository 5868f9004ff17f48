// Package proxy implements the /omdb-proxy gateway: it authenticates the
// caller, validates every inbound query parameter, forwards exactly one query
// to the upstream movie database with the server-held API key, and relays the
// upstream JSON body verbatim.
package proxy

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/example/watchdeck/internal/platform/auth"
)

const maxSearchLen = 100

var (
	imdbIDRe = regexp.MustCompile(`^tt\d{7,8}$`)
	digitsRe = regexp.MustCompile(`^\d+$`)
)

// Upstream performs one keyed query against the movie database and returns
// the raw JSON body. Implemented by *omdb.Client.
type Upstream interface {
	Fetch(ctx context.Context, params url.Values) ([]byte, error)
}

// Handler is the stateless proxy endpoint. A nil Upstream means the API key
// was absent from server configuration; requests then fail with 500 instead
// of the process refusing to start.
type Handler struct {
	Log            *zap.Logger
	Verifier       auth.Verifier
	Upstream       Upstream
	AllowedOrigins []string
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	origin := writeCORS(w, r, h.AllowedOrigins)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	// Nothing past this point may leak internals to the caller.
	defer func() {
		if rec := recover(); rec != nil {
			h.Log.Error("proxy panic", zap.Any("panic", rec), zap.String("origin", origin))
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
	}()

	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	claims, err := h.Verifier.Parse(token)
	if err != nil || strings.TrimSpace(claims.Subject) == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if h.Upstream == nil {
		writeError(w, http.StatusInternalServerError, "OMDB API key not configured")
		return
	}

	q := r.URL.Query()
	search := q.Get("s")
	imdbID := q.Get("i")
	season := q.Get("Season")

	if search == "" && imdbID == "" {
		writeError(w, http.StatusBadRequest, "Missing search query or IMDB ID")
		return
	}
	if len(search) > maxSearchLen {
		writeError(w, http.StatusBadRequest, "Search query too long")
		return
	}
	if imdbID != "" && !imdbIDRe.MatchString(imdbID) {
		writeError(w, http.StatusBadRequest, "Invalid IMDB ID format")
		return
	}
	if season != "" && !validSeason(season) {
		writeError(w, http.StatusBadRequest, "Invalid season number")
		return
	}

	// Exactly one upstream query; a search wins when both params are sent.
	params := url.Values{}
	if search != "" {
		params.Set("s", strings.TrimSpace(search))
		if page := q.Get("page"); page != "" && digitsRe.MatchString(page) {
			params.Set("page", page)
		}
	} else {
		params.Set("i", strings.TrimSpace(imdbID))
		if season != "" {
			params.Set("Season", season)
		} else {
			params.Set("plot", "full")
		}
	}

	body, err := h.Upstream.Fetch(r.Context(), params)
	if err != nil {
		h.Log.Warn("proxy upstream fetch failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// Verbatim relay, logical "not found" included.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func validSeason(s string) bool {
	if !digitsRe.MatchString(s) {
		return false
	}
	n, err := strconv.Atoi(s)
	return err == nil && n >= 1 && n <= 100
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":` + strconv.Quote(msg) + `}`))
}
