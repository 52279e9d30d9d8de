package application

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-media-identity/internal/domain/entity"
	repo "github.com/oksasatya/go-media-identity/internal/domain/repository"
	"github.com/oksasatya/go-media-identity/pkg/apperr"
)

// ChannelService answers read-only queries over subscriptions and watch history.
type ChannelService struct {
	Channels repo.ChannelRepository
	Logger   *logrus.Logger
}

func NewChannelService(channels repo.ChannelRepository, logger *logrus.Logger) *ChannelService {
	if logger == nil {
		logger = discardLogger()
	}
	return &ChannelService{Channels: channels, Logger: logger}
}

// GetChannelProfile resolves username case-insensitively. An empty viewerID is never subscribed.
func (s *ChannelService) GetChannelProfile(ctx context.Context, username, viewerID string) (*entity.ChannelProfile, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, apperr.BadRequest("username is missing")
	}

	p, err := s.Channels.GetChannelProfile(ctx, username, viewerID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperr.NotFound("channel")
		}
		s.Logger.WithError(err).WithField("username", username).Error("channel profile query failed")
		return nil, apperr.Internal("", err)
	}
	return p, nil
}

// GetWatchHistory returns the watched videos in recorded order, duplicates included.
func (s *ChannelService) GetWatchHistory(ctx context.Context, userID string) ([]entity.WatchedVideo, error) {
	history, err := s.Channels.GetWatchHistory(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperr.NotFound("user")
		}
		s.Logger.WithError(err).WithField("user_id", userID).Error("watch history query failed")
		return nil, apperr.Internal("", err)
	}
	if history == nil {
		history = []entity.WatchedVideo{}
	}
	return history, nil
}
