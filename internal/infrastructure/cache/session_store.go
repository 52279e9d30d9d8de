package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-media-identity/internal/domain/entity"
)

// SessionKey is the redis hash holding the active session of a user.
func SessionKey(userID string) string {
	return "user:session:" + userID
}

// SessionStore mirrors the single active session of each user in redis.
type SessionStore struct {
	rdb *redis.Client
}

func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

func nowRFC3339() string { return time.Now().UTC().Format(time.RFC3339) }

func (s *SessionStore) Save(ctx context.Context, u *entity.User, sessionID string, ttl time.Duration) error {
	key := SessionKey(u.ID)
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, map[string]any{
		"user_id":    u.ID,
		"username":   u.Username,
		"email":      u.Email,
		"fullname":   u.Fullname,
		"avatar_url": u.AvatarURL,
		"sid":        sessionID,
		"logged_in":  true,
		"created_at": nowRFC3339(),
	})
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Refresh rewrites the profile fields of an existing session and keeps its TTL.
// Users without a session are left alone.
func (s *SessionStore) Refresh(ctx context.Context, u *entity.User) error {
	key := SessionKey(u.ID)
	ttl, err := s.rdb.TTL(ctx, key).Result()
	if err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}
	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, key, map[string]any{
		"username":   u.Username,
		"email":      u.Email,
		"fullname":   u.Fullname,
		"avatar_url": u.AvatarURL,
		"updated_at": nowRFC3339(),
	})
	pipe.Expire(ctx, key, ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *SessionStore) Delete(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, SessionKey(userID)).Err()
}

// SessionID returns the sid of the active session, or "" when there is none.
func (s *SessionStore) SessionID(ctx context.Context, userID string) (string, error) {
	sid, err := s.rdb.HGet(ctx, SessionKey(userID), "sid").Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return sid, err
}
