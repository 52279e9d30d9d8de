package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/go-media-identity/internal/domain/entity"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// UserRepository defines the credential store operations.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	// FindByUsernameOrEmail matches either value; an empty value is ignored.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*entity.User, error)
	UpdateProfile(ctx context.Context, id string, changes entity.ProfileChanges) (*entity.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// SetRefreshToken overwrites the stored token. An empty token clears it.
	SetRefreshToken(ctx context.Context, id, token string) error
	// SwapRefreshToken stores next only if the stored token still equals current.
	SwapRefreshToken(ctx context.Context, id, current, next string) (bool, error)
}

// ChannelRepository answers read-only aggregate queries over users, subscriptions and videos.
type ChannelRepository interface {
	GetChannelProfile(ctx context.Context, username, viewerID string) (*entity.ChannelProfile, error)
	GetWatchHistory(ctx context.Context, userID string) ([]entity.WatchedVideo, error)
}
