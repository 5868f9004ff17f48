package watchlist

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrDuplicate reports the (user, imdb id) uniqueness invariant. It is a
	// soft outcome for the caller, never a failure.
	ErrDuplicate = errors.New("already in watchlist")
	ErrNotFound  = errors.New("entry not found")
)

// Store is the row-store capability: every operation is scoped to the calling
// principal's user id. Any relational or document store can satisfy it.
type Store interface {
	// List returns the user's entries ordered by creation time, newest first.
	List(ctx context.Context, userID uuid.UUID) ([]Entry, error)
	// Insert adds a validated entry; ErrDuplicate when the title is already tracked.
	Insert(ctx context.Context, e Entry) (Entry, error)
	// Delete removes the entry for imdbID; ErrNotFound when absent.
	Delete(ctx context.Context, userID uuid.UUID, imdbID string) error
	// SetRating stores rating (nil clears). Idempotent. ErrNotFound when absent.
	SetRating(ctx context.Context, userID uuid.UUID, imdbID string, rating *int) error
	// SetStatus stores status. Idempotent. ErrNotFound when absent.
	SetStatus(ctx context.Context, userID uuid.UUID, imdbID string, status Status) error
	// Stats aggregates the user's list for the statistics view.
	Stats(ctx context.Context, userID uuid.UUID) (Stats, error)
}

// Stats mirrors the statistics page: totals, per-kind and per-status counts,
// and the rating histogram over 1-5.
type Stats struct {
	Total         int            `json:"total"`
	Movies        int            `json:"movies"`
	Series        int            `json:"series"`
	RatedCount    int            `json:"rated_count"`
	AverageRating float64        `json:"average_rating"`
	ByStatus      map[Status]int `json:"by_status"`
	RatingCounts  map[int]int    `json:"rating_counts"`
}
