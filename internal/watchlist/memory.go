package watchlist

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used in tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[uuid.UUID][]Entry // user_id -> entries
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[uuid.UUID][]Entry), now: time.Now}
}

func (s *MemoryStore) List(_ context.Context, userID uuid.UUID) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries[userID]))
	copy(out, s.entries[userID])
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Insert(_ context.Context, e Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.entries[e.UserID] {
		if cur.IMDBID == e.IMDBID {
			return Entry{}, ErrDuplicate
		}
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = StatusPlanToWatch
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	s.entries[e.UserID] = append(s.entries[e.UserID], e)
	return e, nil
}

func (s *MemoryStore) Delete(_ context.Context, userID uuid.UUID, imdbID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.entries[userID]
	for i, cur := range list {
		if cur.IMDBID == imdbID {
			s.entries[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) SetRating(_ context.Context, userID uuid.UUID, imdbID string, rating *int) error {
	return s.update(userID, imdbID, func(e *Entry) { e.Rating = rating })
}

func (s *MemoryStore) SetStatus(_ context.Context, userID uuid.UUID, imdbID string, status Status) error {
	return s.update(userID, imdbID, func(e *Entry) { e.Status = status })
}

func (s *MemoryStore) update(userID uuid.UUID, imdbID string, fn func(*Entry)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.entries[userID]
	for i := range list {
		if list[i].IMDBID == imdbID {
			fn(&list[i])
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) Stats(_ context.Context, userID uuid.UUID) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{ByStatus: map[Status]int{}, RatingCounts: map[int]int{}}
	sum := 0
	for _, e := range s.entries[userID] {
		st.Total++
		switch e.MediaType {
		case "movie":
			st.Movies++
		case "series":
			st.Series++
		}
		st.ByStatus[e.Status]++
		if e.Rating != nil {
			st.RatedCount++
			st.RatingCounts[*e.Rating]++
			sum += *e.Rating
		}
	}
	if st.RatedCount > 0 {
		st.AverageRating = float64(sum) / float64(st.RatedCount)
	}
	return st, nil
}
