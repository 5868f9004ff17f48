package accounts

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	emailRe    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)
)

// AuthResult is what every successful auth operation hands back.
type AuthResult struct {
	User         User   `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Service implements register/login/refresh/logout on top of a Store.
type Service struct {
	Store  Store
	Tokens Tokens
}

func (s *Service) Register(ctx context.Context, email, username, password, userAgent string) (AuthResult, error) {
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)

	if !emailRe.MatchString(email) {
		return AuthResult{}, &ValidationError{Field: "email", Message: "invalid email"}
	}
	if !usernameRe.MatchString(username) {
		return AuthResult{}, &ValidationError{Field: "username", Message: "3-32 letters, digits or underscores"}
	}
	if len(password) < 8 {
		return AuthResult{}, &ValidationError{Field: "password", Message: "minimum length 8"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResult{}, err
	}

	u, err := s.Store.CreateUser(ctx, CreateUserParams{Email: email, Username: username, PasswordHash: string(hash)})
	if err != nil {
		return AuthResult{}, err
	}
	return s.issueTokens(ctx, u, userAgent)
}

func (s *Service) Login(ctx context.Context, login, password, userAgent string) (AuthResult, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return AuthResult{}, &ValidationError{Field: "login", Message: "required"}
	}
	if password == "" {
		return AuthResult{}, &ValidationError{Field: "password", Message: "required"}
	}

	row, err := s.Store.FindUserByLogin(ctx, login)
	if err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)) != nil {
		return AuthResult{}, ErrInvalidCredentials
	}
	return s.issueTokens(ctx, row.User, userAgent)
}

func (s *Service) Refresh(ctx context.Context, rawRefresh, userAgent string) (AuthResult, error) {
	rawRefresh = strings.TrimSpace(rawRefresh)
	if rawRefresh == "" {
		return AuthResult{}, &ValidationError{Field: "refresh_token", Message: "required"}
	}

	sess, err := s.Store.GetRefreshSessionByHash(ctx, HashRefreshToken(rawRefresh))
	if err != nil {
		return AuthResult{}, ErrInvalidRefresh
	}
	now := time.Now().UTC()
	if sess.RevokedAt != nil || now.After(sess.ExpiresAt) {
		return AuthResult{}, ErrInvalidRefresh
	}

	u, err := s.Store.GetUserByID(ctx, sess.UserID.String())
	if err != nil {
		return AuthResult{}, err
	}

	access, exp, err := s.Tokens.NewAccessToken(u.ID, now)
	if err != nil {
		return AuthResult{}, err
	}
	newRaw, newHash, err := NewRefreshToken()
	if err != nil {
		return AuthResult{}, err
	}
	newID := uuid.New()
	if err := s.Store.ReplaceRefreshSession(ctx, sess.ID, newID, now); err != nil {
		return AuthResult{}, err
	}
	if err := s.Store.CreateRefreshSession(ctx, CreateRefreshSessionParams{
		SessionID: newID,
		UserID:    sess.UserID,
		TokenHash: newHash,
		ExpiresAt: now.Add(s.Tokens.RefreshTokenTTL),
		UserAgent: userAgent,
		Now:       now,
	}); err != nil {
		return AuthResult{}, err
	}

	return AuthResult{
		User:         u,
		AccessToken:  access,
		RefreshToken: newRaw,
		ExpiresIn:    int64(time.Until(exp).Seconds()),
	}, nil
}

// Logout revokes the session for rawRefresh. Unknown tokens are a no-op:
// logout never fails the caller.
func (s *Service) Logout(ctx context.Context, rawRefresh string) error {
	rawRefresh = strings.TrimSpace(rawRefresh)
	if rawRefresh == "" {
		return nil
	}
	return s.Store.RevokeRefreshSessionByHash(ctx, HashRefreshToken(rawRefresh), time.Now().UTC())
}

func (s *Service) issueTokens(ctx context.Context, u User, userAgent string) (AuthResult, error) {
	now := time.Now().UTC()
	access, exp, err := s.Tokens.NewAccessToken(u.ID, now)
	if err != nil {
		return AuthResult{}, err
	}
	raw, hash, err := NewRefreshToken()
	if err != nil {
		return AuthResult{}, err
	}
	userID, err := uuid.Parse(u.ID)
	if err != nil {
		return AuthResult{}, errors.New("malformed user id")
	}
	if err := s.Store.CreateRefreshSession(ctx, CreateRefreshSessionParams{
		SessionID: uuid.New(),
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: now.Add(s.Tokens.RefreshTokenTTL),
		UserAgent: userAgent,
		Now:       now,
	}); err != nil {
		return AuthResult{}, err
	}
	return AuthResult{
		User:         u,
		AccessToken:  access,
		RefreshToken: raw,
		ExpiresIn:    int64(time.Until(exp).Seconds()),
	}, nil
}
