package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-media-identity/internal/domain/entity"
	"github.com/oksasatya/go-media-identity/internal/domain/repository"
)

// Store keeps users, videos and subscriptions in process. It backs
// STORE_DRIVER=memory and the service tests.
type Store struct {
	mu            sync.RWMutex
	users         map[string]*entity.User
	videos        map[string]*entity.Video
	subscriptions []entity.Subscription
	now           func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:  make(map[string]*entity.User),
		videos: make(map[string]*entity.Video),
		now:    time.Now,
	}
}

func clone(u *entity.User) *entity.User {
	c := *u
	c.WatchHistory = append([]string(nil), u.WatchHistory...)
	return &c
}

func (s *Store) Create(_ context.Context, u *entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username || strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicate
		}
	}
	now := s.now()
	u.ID = uuid.NewString()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = clone(u)
	return nil
}

func (s *Store) GetByID(_ context.Context, id string) (*entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(u), nil
}

func (s *Store) FindByUsernameOrEmail(_ context.Context, username, email string) (*entity.User, error) {
	if username == "" && email == "" {
		return nil, repository.ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if (username != "" && u.Username == username) || (email != "" && strings.EqualFold(u.Email, email)) {
			return clone(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) UpdateProfile(_ context.Context, id string, changes entity.ProfileChanges) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if changes.Email != nil {
		for otherID, other := range s.users {
			if otherID != id && strings.EqualFold(other.Email, *changes.Email) {
				return nil, repository.ErrDuplicate
			}
		}
		u.Email = *changes.Email
	}
	if changes.Fullname != nil {
		u.Fullname = *changes.Fullname
	}
	if changes.AvatarURL != nil {
		u.AvatarURL = *changes.AvatarURL
	}
	if changes.CoverImageURL != nil {
		u.CoverImageURL = *changes.CoverImageURL
	}
	u.UpdatedAt = s.now()
	return clone(u), nil
}

func (s *Store) UpdatePassword(_ context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = s.now()
	return nil
}

func (s *Store) SetRefreshToken(_ context.Context, id, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.RefreshToken = token
	return nil
}

func (s *Store) SwapRefreshToken(_ context.Context, id, current, next string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if current == "" || u.RefreshToken != current {
		return false, nil
	}
	u.RefreshToken = next
	return true, nil
}

func (s *Store) GetChannelProfile(_ context.Context, username, viewerID string) (*entity.ChannelProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var channel *entity.User
	for _, u := range s.users {
		if u.Username == strings.ToLower(username) {
			channel = u
			break
		}
	}
	if channel == nil {
		return nil, repository.ErrNotFound
	}

	p := &entity.ChannelProfile{
		Fullname:      channel.Fullname,
		Username:      channel.Username,
		AvatarURL:     channel.AvatarURL,
		CoverImageURL: channel.CoverImageURL,
	}
	for _, sub := range s.subscriptions {
		if sub.ChannelID == channel.ID {
			p.SubscribersCount++
			if viewerID != "" && sub.SubscriberID == viewerID {
				p.IsSubscribed = true
			}
		}
		if sub.SubscriberID == channel.ID {
			p.SubscribedToCount++
		}
	}
	return p, nil
}

func (s *Store) GetWatchHistory(_ context.Context, userID string) ([]entity.WatchedVideo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := make([]entity.WatchedVideo, 0, len(u.WatchHistory))
	for _, videoID := range u.WatchHistory {
		v, ok := s.videos[videoID]
		if !ok {
			continue
		}
		entry := entity.WatchedVideo{Video: *v}
		if owner, ok := s.users[v.OwnerID]; ok {
			entry.Owner = entity.OwnerSummary{
				Fullname:  owner.Fullname,
				Username:  owner.Username,
				AvatarURL: owner.AvatarURL,
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

// AddVideo inserts a video, assigning an id when missing.
func (s *Store) AddVideo(v entity.Video) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = s.now()
	}
	s.videos[v.ID] = &v
	return v.ID
}

func (s *Store) Subscribe(subscriberID, channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range s.subscriptions {
		if sub.SubscriberID == subscriberID && sub.ChannelID == channelID {
			return
		}
	}
	s.subscriptions = append(s.subscriptions, entity.Subscription{
		ID:           uuid.NewString(),
		SubscriberID: subscriberID,
		ChannelID:    channelID,
		CreatedAt:    s.now(),
	})
}

func (s *Store) AppendWatchHistory(userID string, videoIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.WatchHistory = append(u.WatchHistory, videoIDs...)
	return nil
}

var (
	_ repository.UserRepository    = (*Store)(nil)
	_ repository.ChannelRepository = (*Store)(nil)
)
