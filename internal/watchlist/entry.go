// Package watchlist holds the persisted per-user title list: one row per
// (user, IMDb id) pair, with an optional 1-5 rating and a watch status.
package watchlist

import (
	"net/url"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Status is the user's progress on a tracked title.
type Status string

const (
	StatusWatching    Status = "watching"
	StatusCompleted   Status = "completed"
	StatusPlanToWatch Status = "plan_to_watch"
	StatusOnHold      Status = "on_hold"
	StatusDropped     Status = "dropped"
)

// Statuses lists every valid status, in display order.
var Statuses = []Status{StatusWatching, StatusCompleted, StatusPlanToWatch, StatusOnHold, StatusDropped}

func ValidStatus(s Status) bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// MediaTypes are the kinds the upstream database reports.
var MediaTypes = []string{"movie", "series", "episode"}

func validMediaType(t string) bool {
	for _, v := range MediaTypes {
		if v == t {
			return true
		}
	}
	return false
}

const (
	maxTitleLen  = 500
	maxPosterLen = 2000
)

var (
	imdbIDRe = regexp.MustCompile(`^tt\d{7,8}$`)
	// A year or a range; OMDb renders ranges with an en dash.
	yearRe = regexp.MustCompile(`^\d{4}(?:[-–]\d{4})?$`)
)

// Entry is one watchlist row. Ownership is implicit: every store operation is
// scoped to a user id and never crosses it.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"-"`
	IMDBID    string    `json:"imdb_id"`
	Title     string    `json:"title"`
	Year      string    `json:"year,omitempty"`
	PosterURL string    `json:"poster_url,omitempty"`
	MediaType string    `json:"media_type"`
	Rating    *int      `json:"rating,omitempty"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// AddParams is the caller-supplied shape of a new entry.
type AddParams struct {
	IMDBID    string `json:"imdb_id"`
	Title     string `json:"title"`
	Year      string `json:"year"`
	PosterURL string `json:"poster_url"`
	MediaType string `json:"media_type"`
}

// ValidateAdd checks p before any store round trip and returns per-field
// problems, empty when p is acceptable.
func ValidateAdd(p AddParams) map[string]any {
	problems := map[string]any{}
	if !imdbIDRe.MatchString(p.IMDBID) {
		problems["imdb_id"] = "must match tt followed by 7-8 digits"
	}
	if n := utf8.RuneCountInString(p.Title); n < 1 || n > maxTitleLen {
		problems["title"] = "must be 1-500 characters"
	}
	if p.Year != "" && !yearRe.MatchString(p.Year) {
		problems["year"] = "must be YYYY or YYYY-YYYY"
	}
	if p.PosterURL != "" {
		if len(p.PosterURL) > maxPosterLen {
			problems["poster_url"] = "too long"
		} else if u, err := url.Parse(p.PosterURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			problems["poster_url"] = "must be an absolute http(s) URL"
		}
	}
	if !validMediaType(p.MediaType) {
		problems["media_type"] = "must be one of movie, series, episode"
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}

// NormalizeRating maps the "cleared" rating of 0 to absent and reports
// whether the value is storable.
func NormalizeRating(rating int) (*int, bool) {
	if rating == 0 {
		return nil, true
	}
	if rating < 1 || rating > 5 {
		return nil, false
	}
	return &rating, true
}
