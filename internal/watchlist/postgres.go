package watchlist

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the production Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the watchlist table when missing. The unique index is
// the enforcement point for the one-entry-per-(user, title) invariant.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS watchlist (
    id          uuid PRIMARY KEY,
    user_id     uuid NOT NULL,
    imdb_id     text NOT NULL,
    title       text NOT NULL,
    year        text,
    poster_url  text,
    media_type  text NOT NULL,
    rating      int CHECK (rating BETWEEN 1 AND 5),
    status      text NOT NULL DEFAULT 'plan_to_watch',
    created_at  timestamptz NOT NULL DEFAULT now(),
    UNIQUE (user_id, imdb_id)
);
CREATE INDEX IF NOT EXISTS watchlist_user_created_idx ON watchlist (user_id, created_at DESC);
`
	_, err := s.pool.Exec(ctx, ddl)
	return err
}

func (s *PostgresStore) List(ctx context.Context, userID uuid.UUID) ([]Entry, error) {
	const q = `
SELECT id, imdb_id, title, COALESCE(year, ''), COALESCE(poster_url, ''), media_type, rating, status, created_at
FROM watchlist
WHERE user_id = $1
ORDER BY created_at DESC, id DESC`
	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e := Entry{UserID: userID}
		if err := rows.Scan(&e.ID, &e.IMDBID, &e.Title, &e.Year, &e.PosterURL, &e.MediaType, &e.Rating, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Insert(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = StatusPlanToWatch
	}
	const q = `
INSERT INTO watchlist (id, user_id, imdb_id, title, year, poster_url, media_type, status)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8)
RETURNING created_at`
	err := s.pool.QueryRow(ctx, q, e.ID, e.UserID, e.IMDBID, e.Title, e.Year, e.PosterURL, e.MediaType, e.Status).Scan(&e.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Entry{}, ErrDuplicate
		}
		return Entry{}, err
	}
	return e, nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID uuid.UUID, imdbID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM watchlist WHERE user_id = $1 AND imdb_id = $2`, userID, imdbID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetRating(ctx context.Context, userID uuid.UUID, imdbID string, rating *int) error {
	tag, err := s.pool.Exec(ctx, `UPDATE watchlist SET rating = $3 WHERE user_id = $1 AND imdb_id = $2`, userID, imdbID, rating)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetStatus(ctx context.Context, userID uuid.UUID, imdbID string, status Status) error {
	tag, err := s.pool.Exec(ctx, `UPDATE watchlist SET status = $3 WHERE user_id = $1 AND imdb_id = $2`, userID, imdbID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Stats(ctx context.Context, userID uuid.UUID) (Stats, error) {
	st := Stats{ByStatus: map[Status]int{}, RatingCounts: map[int]int{}}

	const totals = `
SELECT count(*),
       count(*) FILTER (WHERE media_type = 'movie'),
       count(*) FILTER (WHERE media_type = 'series'),
       count(rating),
       COALESCE(avg(rating), 0)
FROM watchlist WHERE user_id = $1`
	if err := s.pool.QueryRow(ctx, totals, userID).Scan(&st.Total, &st.Movies, &st.Series, &st.RatedCount, &st.AverageRating); err != nil {
		return Stats{}, err
	}

	rows, err := s.pool.Query(ctx, `SELECT status, count(*) FROM watchlist WHERE user_id = $1 GROUP BY status`, userID)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var status Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return Stats{}, err
		}
		st.ByStatus[status] = n
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	rrows, err := s.pool.Query(ctx, `SELECT rating, count(*) FROM watchlist WHERE user_id = $1 AND rating IS NOT NULL GROUP BY rating`, userID)
	if err != nil {
		return Stats{}, err
	}
	defer rrows.Close()
	for rrows.Next() {
		var rating, n int
		if err := rrows.Scan(&rating, &n); err != nil {
			return Stats{}, err
		}
		st.RatingCounts[rating] = n
	}
	return st, rrows.Err()
}
