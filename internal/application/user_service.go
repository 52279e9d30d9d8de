package application

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-media-identity/internal/domain/entity"
	repo "github.com/oksasatya/go-media-identity/internal/domain/repository"
	"github.com/oksasatya/go-media-identity/pkg/apperr"
	"github.com/oksasatya/go-media-identity/pkg/helpers"
)

const (
	msgAllFieldsRequired = "all fields are required"
	msgTokenGeneration   = "something went wrong while generating refresh and access token"
	msgTokenUsed         = "refresh token is expired or used"
	msgInvalidOldPwd     = "invalid old password"
)

// Service owns registration, authentication and the session lifecycle of users.
// Sessions, Index and Notifier are optional; nil disables them.
type Service struct {
	Users      repo.UserRepository
	Tokens     TokenSigner
	Hasher     PasswordHasher
	Media      MediaUploader
	Sessions   SessionCache
	Index      UserIndexer
	Notifier   Notifier
	Logger     *logrus.Logger
	SessionTTL time.Duration
}

type Option func(*Service)

func WithSessions(c SessionCache, ttl time.Duration) Option {
	return func(s *Service) { s.Sessions, s.SessionTTL = c, ttl }
}
func WithIndex(i UserIndexer) Option     { return func(s *Service) { s.Index = i } }
func WithNotifier(n Notifier) Option     { return func(s *Service) { s.Notifier = n } }
func WithLogger(l *logrus.Logger) Option { return func(s *Service) { s.Logger = l } }

func NewService(users repo.UserRepository, tokens TokenSigner, hasher PasswordHasher, media MediaUploader, opts ...Option) *Service {
	s := &Service{
		Users:      users,
		Tokens:     tokens,
		Hasher:     hasher,
		Media:      media,
		SessionTTL: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Logger == nil {
		s.Logger = discardLogger()
	}
	return s
}

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type TokenPair struct {
	AccessToken        string    `json:"accessToken"`
	AccessTokenExpiry  time.Time `json:"accessTokenExpiresAt"`
	RefreshToken       string    `json:"refreshToken"`
	RefreshTokenExpiry time.Time `json:"refreshTokenExpiresAt"`
}

type RegisterInput struct {
	Fullname   string
	Email      string
	Username   string
	Password   string
	Avatar     *entity.StagedFile
	CoverImage *entity.StagedFile
}

// Register creates a user with an uploaded avatar and optional cover image.
// Staged files are removed once the call returns.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*entity.PublicUser, error) {
	defer s.discardStaged(in.Avatar, in.CoverImage)

	fullname := strings.TrimSpace(in.Fullname)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.ToLower(strings.TrimSpace(in.Username))
	if fullname == "" || email == "" || username == "" || strings.TrimSpace(in.Password) == "" {
		return nil, apperr.BadRequest(msgAllFieldsRequired)
	}
	if in.Avatar == nil || in.Avatar.Path == "" {
		return nil, apperr.BadRequest("avatar file is required")
	}

	existing, err := s.Users.FindByUsernameOrEmail(ctx, username, email)
	switch {
	case err == nil && existing != nil:
		return nil, apperr.Conflict("user with email or username already exists")
	case err != nil && !errors.Is(err, repo.ErrNotFound):
		return nil, apperr.Internal("", err)
	}

	avatar, err := s.Media.Upload(ctx, in.Avatar, "avatars")
	if err != nil {
		return nil, apperr.Internal("error while uploading avatar", err)
	}
	var cover *entity.UploadedMedia
	if in.CoverImage != nil && in.CoverImage.Path != "" {
		cover, err = s.Media.Upload(ctx, in.CoverImage, "covers")
		if err != nil {
			s.Logger.WithError(err).WithField("username", username).Warn("cover image upload failed")
			cover = nil
		}
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		s.dropMedia(ctx, avatar, cover)
		return nil, apperr.Internal("", err)
	}

	u := &entity.User{
		Username:     username,
		Email:        email,
		Fullname:     fullname,
		AvatarURL:    avatar.URL,
		PasswordHash: hash,
	}
	if cover != nil {
		u.CoverImageURL = cover.URL
	}
	if err := s.Users.Create(ctx, u); err != nil {
		s.dropMedia(ctx, avatar, cover)
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, apperr.Conflict("user with email or username already exists")
		}
		return nil, apperr.Internal("something went wrong while registering the user", err)
	}

	created, err := s.Users.GetByID(ctx, u.ID)
	if err != nil {
		return nil, apperr.Internal("something went wrong while registering the user", err)
	}

	incr(metricRegistrations)
	s.indexUser(ctx, created)
	s.notify(ctx, NotifyWelcome, created, nil)
	return created.Public(), nil
}

type LoginInput struct {
	Username  string
	Email     string
	Password  string
	IP        string
	UserAgent string
}

type LoginResult struct {
	User   *entity.PublicUser
	Tokens TokenPair
}

func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if username == "" && email == "" {
		return nil, apperr.BadRequest("username or email is required")
	}

	u, err := s.Users.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperr.NotFound("user")
		}
		return nil, apperr.Internal("", err)
	}
	if !s.Hasher.Compare(u.PasswordHash, in.Password) {
		incr(metricLoginFailures)
		return nil, apperr.Unauthorized("invalid user credentials")
	}

	loggedIn, pair, err := s.issueTokens(ctx, u.ID, "")
	if err != nil {
		return nil, err
	}

	incr(metricLogins)
	s.notify(ctx, NotifyLogin, loggedIn, map[string]string{
		"IP":        in.IP,
		"UserAgent": in.UserAgent,
		"TimeAt":    time.Now().UTC().Format(time.RFC3339),
	})
	return &LoginResult{User: loggedIn.Public(), Tokens: pair}, nil
}

// issueTokens signs a new pair for userID and persists the refresh token.
// A non-empty previous makes the write conditional on previous still being stored.
func (s *Service) issueTokens(ctx context.Context, userID, previous string) (*entity.User, TokenPair, error) {
	log := s.Logger.WithField("user_id", userID)

	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		log.WithError(err).Error("load user for token issue failed")
		return nil, TokenPair{}, apperr.Internal(msgTokenGeneration, err)
	}

	sid := uuid.NewString()
	access, aexp, err := s.Tokens.GenerateAccessToken(helpers.Identity{
		UserID:    u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Fullname:  u.Fullname,
		SessionID: sid,
	})
	if err != nil {
		log.WithError(err).Error("generate access token failed")
		return nil, TokenPair{}, apperr.Internal(msgTokenGeneration, err)
	}
	refresh, rexp, err := s.Tokens.GenerateRefreshToken(u.ID, sid)
	if err != nil {
		log.WithError(err).Error("generate refresh token failed")
		return nil, TokenPair{}, apperr.Internal(msgTokenGeneration, err)
	}

	if previous == "" {
		err = s.Users.SetRefreshToken(ctx, u.ID, refresh)
	} else {
		var swapped bool
		swapped, err = s.Users.SwapRefreshToken(ctx, u.ID, previous, refresh)
		if err == nil && !swapped {
			incr(metricRefreshRejected)
			return nil, TokenPair{}, apperr.Unauthorized(msgTokenUsed)
		}
	}
	if err != nil {
		log.WithError(err).Error("persist refresh token failed")
		return nil, TokenPair{}, apperr.Internal(msgTokenGeneration, err)
	}
	u.RefreshToken = refresh

	if s.Sessions != nil {
		if cErr := s.Sessions.Save(ctx, u, sid, s.SessionTTL); cErr != nil {
			log.WithError(cErr).Warn("session cache save failed")
		}
	}

	return u, TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

// Logout clears the stored refresh token. Unknown users are not an error.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.Users.SetRefreshToken(ctx, userID, ""); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return apperr.Internal("", err)
	}
	if s.Sessions != nil {
		if err := s.Sessions.Delete(ctx, userID); err != nil {
			s.Logger.WithError(err).WithField("user_id", userID).Warn("session cache delete failed")
		}
	}
	incr(metricLogouts)
	return nil
}

// RefreshAccessToken exchanges the stored refresh token for a new pair.
func (s *Service) RefreshAccessToken(ctx context.Context, token string) (TokenPair, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return TokenPair{}, apperr.Unauthorized("unauthorized request")
	}

	claims, err := s.Tokens.ParseRefreshToken(token)
	if err != nil {
		incr(metricRefreshRejected)
		return TokenPair{}, apperr.Unauthorized(err.Error())
	}

	u, err := s.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			incr(metricRefreshRejected)
			return TokenPair{}, apperr.Unauthorized("invalid refresh token")
		}
		return TokenPair{}, apperr.Internal("", err)
	}
	if u.RefreshToken == "" || u.RefreshToken != token {
		incr(metricRefreshRejected)
		return TokenPair{}, apperr.Unauthorized(msgTokenUsed)
	}

	_, pair, err := s.issueTokens(ctx, u.ID, token)
	if err != nil {
		return TokenPair{}, err
	}
	incr(metricRotations)
	return pair, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return apperr.BadRequest("new password is required")
	}

	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if !s.Hasher.Compare(u.PasswordHash, oldPassword) {
		return apperr.BadRequest(msgInvalidOldPwd)
	}

	hash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return apperr.Internal("", err)
	}
	if err := s.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.NotFound("user")
		}
		return apperr.Internal("", err)
	}

	s.notify(ctx, NotifyPasswordChanged, u, nil)
	return nil
}

func (s *Service) GetCurrentUser(ctx context.Context, userID string) (*entity.PublicUser, error) {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Public(), nil
}

// UpdateProfileInput fields are optional; blank values count as absent.
type UpdateProfileInput struct {
	Fullname *string
	Email    *string
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*entity.PublicUser, error) {
	var changes entity.ProfileChanges
	diff := map[string]string{}
	if in.Fullname != nil {
		if v := strings.TrimSpace(*in.Fullname); v != "" {
			changes.Fullname = &v
			diff["fullname"] = v
		}
	}
	if in.Email != nil {
		if v := strings.ToLower(strings.TrimSpace(*in.Email)); v != "" {
			changes.Email = &v
			diff["email"] = v
		}
	}
	if changes.Empty() {
		return nil, apperr.BadRequest("fullname or email is required")
	}

	u, err := s.Users.UpdateProfile(ctx, userID, changes)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return nil, apperr.NotFound("user")
		case errors.Is(err, repo.ErrDuplicate):
			return nil, apperr.Conflict("email is already in use")
		}
		return nil, apperr.Internal("", err)
	}

	s.afterProfileChange(ctx, u)
	s.notify(ctx, NotifyProfileUpdated, u, diff)
	return u.Public(), nil
}

func (s *Service) UpdateAvatar(ctx context.Context, userID string, file *entity.StagedFile) (*entity.PublicUser, error) {
	return s.updateImage(ctx, userID, file, "avatar", "avatars", func(url string) entity.ProfileChanges {
		return entity.ProfileChanges{AvatarURL: &url}
	})
}

func (s *Service) UpdateCoverImage(ctx context.Context, userID string, file *entity.StagedFile) (*entity.PublicUser, error) {
	return s.updateImage(ctx, userID, file, "cover image", "covers", func(url string) entity.ProfileChanges {
		return entity.ProfileChanges{CoverImageURL: &url}
	})
}

// updateImage uploads file and stores its URL. The previous image is kept in storage.
func (s *Service) updateImage(ctx context.Context, userID string, file *entity.StagedFile, label, folder string, changesFor func(string) entity.ProfileChanges) (*entity.PublicUser, error) {
	defer s.discardStaged(file)

	if file == nil || file.Path == "" {
		return nil, apperr.BadRequest(label + " file is missing")
	}
	uploaded, err := s.Media.Upload(ctx, file, folder)
	if err != nil {
		return nil, apperr.Internal("error while uploading "+label, err)
	}

	u, err := s.Users.UpdateProfile(ctx, userID, changesFor(uploaded.URL))
	if err != nil {
		s.dropMedia(ctx, uploaded)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperr.NotFound("user")
		}
		return nil, apperr.Internal("", err)
	}

	s.afterProfileChange(ctx, u)
	return u.Public(), nil
}

// SearchUsers queries the user index. Without an index it returns no hits.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperr.BadRequest("search query is required")
	}
	if s.Index == nil {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	hits, err := s.Index.Search(ctx, q, size)
	if err != nil {
		return nil, apperr.Internal("search is unavailable", err)
	}
	return hits, nil
}

func (s *Service) loadUser(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperr.NotFound("user")
		}
		return nil, apperr.Internal("", err)
	}
	return u, nil
}

func (s *Service) afterProfileChange(ctx context.Context, u *entity.User) {
	if s.Sessions != nil {
		if err := s.Sessions.Refresh(ctx, u); err != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("session cache refresh failed")
		}
	}
	s.indexUser(ctx, u)
}

func (s *Service) indexUser(ctx context.Context, u *entity.User) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Index(ctx, u); err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
	}
}

func (s *Service) notify(ctx context.Context, kind string, u *entity.User, data map[string]string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Notify(ctx, kind, u, data); err != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{"user_id": u.ID, "kind": kind}).Warn("enqueue notification failed")
	}
}

// dropMedia deletes objects uploaded by an operation that did not complete.
func (s *Service) dropMedia(ctx context.Context, media ...*entity.UploadedMedia) {
	for _, m := range media {
		if m == nil || m.Key == "" {
			continue
		}
		if err := s.Media.Delete(ctx, m.Key); err != nil {
			s.Logger.WithError(err).WithField("key", m.Key).Warn("orphaned media delete failed")
		}
	}
}

func (s *Service) discardStaged(files ...*entity.StagedFile) {
	for _, f := range files {
		if f == nil || f.Path == "" {
			continue
		}
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.Logger.WithError(err).WithField("path", f.Path).Warn("remove staged file failed")
		}
	}
}
