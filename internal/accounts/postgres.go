package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the production Store.
type PostgresStore struct {
	DB *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{DB: db}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS users (
    id            uuid PRIMARY KEY,
    email         text NOT NULL UNIQUE,
    username      text NOT NULL UNIQUE,
    password_hash text NOT NULL,
    created_at    timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS refresh_sessions (
    id          uuid PRIMARY KEY,
    user_id     uuid NOT NULL REFERENCES users (id) ON DELETE CASCADE,
    token_hash  text NOT NULL UNIQUE,
    expires_at  timestamptz NOT NULL,
    created_at  timestamptz NOT NULL,
    revoked_at  timestamptz,
    replaced_by uuid,
    user_agent  text
);
`
	_, err := s.DB.Exec(ctx, ddl)
	return err
}

func (s *PostgresStore) CreateUser(ctx context.Context, p CreateUserParams) (User, error) {
	id := uuid.New()
	var u User
	q := `
INSERT INTO users (id, email, username, password_hash)
VALUES ($1, $2, $3, $4)
RETURNING id::text, email, username, created_at;
`
	err := s.DB.QueryRow(ctx, q, id, p.Email, p.Username, p.PasswordHash).Scan(&u.ID, &u.Email, &u.Username, &u.CreatedAt)
	if err != nil {
		// unique violation
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrConflict
		}
		return User{}, err
	}
	return u, nil
}

func (s *PostgresStore) FindUserByLogin(ctx context.Context, login string) (UserRow, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return UserRow{}, ErrNotFound
	}

	q := `
SELECT id::text, email, username, password_hash, created_at
FROM users
WHERE lower(email) = lower($1) OR lower(username) = lower($1)
LIMIT 1;
`
	var row UserRow
	err := s.DB.QueryRow(ctx, q, login).Scan(&row.User.ID, &row.User.Email, &row.User.Username, &row.PasswordHash, &row.User.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRow{}, ErrNotFound
		}
		return UserRow{}, err
	}
	return row, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return User{}, ErrNotFound
	}
	var u User
	err = s.DB.QueryRow(ctx, `SELECT id::text, email, username, created_at FROM users WHERE id = $1`, uid).
		Scan(&u.ID, &u.Email, &u.Username, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (s *PostgresStore) CreateRefreshSession(ctx context.Context, p CreateRefreshSessionParams) error {
	q := `
INSERT INTO refresh_sessions (id, user_id, token_hash, expires_at, created_at, user_agent)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''));
`
	_, err := s.DB.Exec(ctx, q, p.SessionID, p.UserID, p.TokenHash, p.ExpiresAt, p.Now, p.UserAgent)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *PostgresStore) GetRefreshSessionByHash(ctx context.Context, tokenHash string) (RefreshSession, error) {
	var sess RefreshSession
	err := s.DB.QueryRow(ctx,
		`SELECT id, user_id, token_hash, expires_at, revoked_at FROM refresh_sessions WHERE token_hash = $1`,
		tokenHash,
	).Scan(&sess.ID, &sess.UserID, &sess.TokenHash, &sess.ExpiresAt, &sess.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RefreshSession{}, ErrNotFound
		}
		return RefreshSession{}, err
	}
	return sess, nil
}

func (s *PostgresStore) ReplaceRefreshSession(ctx context.Context, oldID, newID uuid.UUID, now time.Time) error {
	_, err := s.DB.Exec(ctx,
		`UPDATE refresh_sessions SET revoked_at = $2, replaced_by = $3 WHERE id = $1 AND revoked_at IS NULL`,
		oldID, now, newID,
	)
	return err
}

func (s *PostgresStore) RevokeRefreshSessionByHash(ctx context.Context, tokenHash string, now time.Time) error {
	_, err := s.DB.Exec(ctx,
		`UPDATE refresh_sessions SET revoked_at = $2 WHERE token_hash = $1 AND revoked_at IS NULL`,
		tokenHash, now,
	)
	return err
}
