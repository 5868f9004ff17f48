package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence capability the Service needs.
type Store interface {
	CreateUser(ctx context.Context, p CreateUserParams) (User, error)
	FindUserByLogin(ctx context.Context, login string) (UserRow, error)
	GetUserByID(ctx context.Context, id string) (User, error)

	CreateRefreshSession(ctx context.Context, p CreateRefreshSessionParams) error
	GetRefreshSessionByHash(ctx context.Context, tokenHash string) (RefreshSession, error)
	// ReplaceRefreshSession revokes oldID, recording newID as its successor.
	ReplaceRefreshSession(ctx context.Context, oldID, newID uuid.UUID, now time.Time) error
	RevokeRefreshSessionByHash(ctx context.Context, tokenHash string, now time.Time) error
}
