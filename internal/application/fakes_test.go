package application_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-media-identity/internal/application"
	"github.com/oksasatya/go-media-identity/internal/domain/entity"
	"github.com/oksasatya/go-media-identity/internal/infrastructure/memory"
	"github.com/oksasatya/go-media-identity/pkg/helpers"
)

type fakeUploader struct {
	mu        sync.Mutex
	failFor   map[string]bool // folder -> fail
	uploaded  []string
	deleted   []string
	deleteErr error
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{failFor: map[string]bool{}}
}

func (f *fakeUploader) Upload(_ context.Context, file *entity.StagedFile, folder string) (*entity.UploadedMedia, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[folder] {
		return nil, errors.New("upload refused")
	}
	key := folder + "/" + file.Filename
	f.uploaded = append(f.uploaded, key)
	return &entity.UploadedMedia{URL: "https://cdn.test/" + key, Key: key}, nil
}

func (f *fakeUploader) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return f.deleteErr
}

type sentNotification struct {
	Kind   string
	UserID string
	Data   map[string]string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, kind string, u *entity.User, data map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNotification{Kind: kind, UserID: u.ID, Data: data})
	return f.err
}

func (f *fakeNotifier) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, n := range f.sent {
		out = append(out, n.Kind)
	}
	return out
}

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]string
	saveErr  error
}

func (f *fakeSessions) Save(_ context.Context, u *entity.User, sessionID string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessions == nil {
		f.sessions = map[string]string{}
	}
	f.sessions[u.ID] = sessionID
	return f.saveErr
}

func (f *fakeSessions) Refresh(context.Context, *entity.User) error { return nil }

func (f *fakeSessions) Delete(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, userID)
	return nil
}

// countingStore records profile writes and can be told to fail creates.
type countingStore struct {
	*memory.Store
	mu             sync.Mutex
	profileWrites  int
	failCreate     error
	failSetRefresh error
}

func (c *countingStore) Create(ctx context.Context, u *entity.User) error {
	if c.failCreate != nil {
		return c.failCreate
	}
	return c.Store.Create(ctx, u)
}

func (c *countingStore) UpdateProfile(ctx context.Context, id string, changes entity.ProfileChanges) (*entity.User, error) {
	c.mu.Lock()
	c.profileWrites++
	c.mu.Unlock()
	return c.Store.UpdateProfile(ctx, id, changes)
}

func (c *countingStore) SetRefreshToken(ctx context.Context, id, token string) error {
	if c.failSetRefresh != nil {
		return c.failSetRefresh
	}
	return c.Store.SetRefreshToken(ctx, id, token)
}

type harness struct {
	store    *countingStore
	uploader *fakeUploader
	notifier *fakeNotifier
	sessions *fakeSessions
	jwt      *helpers.JWTManager
	svc      *application.Service
	channels *application.ChannelService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:    &countingStore{Store: memory.NewStore()},
		uploader: newFakeUploader(),
		notifier: &fakeNotifier{},
		sessions: &fakeSessions{},
		jwt:      helpers.NewJWTManager("access-secret", "refresh-secret", 15*time.Minute, 240*time.Hour),
	}
	h.svc = application.NewService(h.store, h.jwt, helpers.NewBcryptHasher(bcrypt.MinCost), h.uploader,
		application.WithNotifier(h.notifier),
		application.WithSessions(h.sessions, time.Hour),
	)
	h.channels = application.NewChannelService(h.store, nil)
	return h
}

// stage writes a throwaway file the way the HTTP layer does before calling the service.
func stage(t *testing.T, name string) *entity.StagedFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("img"), 0o600))
	return &entity.StagedFile{Path: path, Filename: name, ContentType: "image/png"}
}

func (h *harness) register(t *testing.T, username, email, password string) *entity.PublicUser {
	t.Helper()
	u, err := h.svc.Register(context.Background(), application.RegisterInput{
		Fullname: "Full " + username,
		Email:    email,
		Username: username,
		Password: password,
		Avatar:   stage(t, username+"-avatar.png"),
	})
	require.NoError(t, err)
	return u
}
