package application

import (
	"context"
	"time"

	"github.com/oksasatya/go-media-identity/internal/domain/entity"
	"github.com/oksasatya/go-media-identity/pkg/helpers"
)

// TokenSigner is satisfied by *helpers.JWTManager.
type TokenSigner interface {
	GenerateAccessToken(id helpers.Identity) (string, time.Time, error)
	GenerateRefreshToken(userID, sessionID string) (string, time.Time, error)
	ParseRefreshToken(token string) (*helpers.RefreshClaims, error)
}

// PasswordHasher is satisfied by helpers.BcryptHasher.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) bool
}

// MediaUploader stores staged files in object storage.
type MediaUploader interface {
	Upload(ctx context.Context, file *entity.StagedFile, folder string) (*entity.UploadedMedia, error)
	Delete(ctx context.Context, key string) error
}

// SessionCache mirrors the active session of a user, keyed by user id.
type SessionCache interface {
	Save(ctx context.Context, u *entity.User, sessionID string, ttl time.Duration) error
	Refresh(ctx context.Context, u *entity.User) error
	Delete(ctx context.Context, userID string) error
}

// UserIndexer keeps the user search index in sync.
type UserIndexer interface {
	Index(ctx context.Context, u *entity.User) error
	Search(ctx context.Context, q string, size int) ([]map[string]any, error)
}

// Notifier queues account notifications for a user.
type Notifier interface {
	Notify(ctx context.Context, kind string, u *entity.User, data map[string]string) error
}

// Notification kinds.
const (
	NotifyWelcome         = "welcome"
	NotifyLogin           = "login_notification"
	NotifyPasswordChanged = "password_changed"
	NotifyProfileUpdated  = "profile_updated"
)
