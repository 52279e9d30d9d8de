package modules_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-media-identity/internal/application"
	"github.com/oksasatya/go-media-identity/internal/domain/entity"
	"github.com/oksasatya/go-media-identity/internal/infrastructure/memory"
	handlers "github.com/oksasatya/go-media-identity/internal/interface/http"
	"github.com/oksasatya/go-media-identity/internal/router/modules"
	"github.com/oksasatya/go-media-identity/pkg/helpers"
	"github.com/oksasatya/go-media-identity/pkg/validation"
)

type stubUploader struct{}

func (stubUploader) Upload(_ context.Context, f *entity.StagedFile, folder string) (*entity.UploadedMedia, error) {
	key := folder + "/" + f.Filename
	return &entity.UploadedMedia{URL: "https://cdn.test/" + key, Key: key}, nil
}

func (stubUploader) Delete(context.Context, string) error { return nil }

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type server struct {
	t      *testing.T
	engine *gin.Engine
	store  *memory.Store
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	store := memory.NewStore()
	jwt := helpers.NewJWTManager("access-secret", "refresh-secret", 15*time.Minute, time.Hour)
	svc := application.NewService(store, jwt, helpers.NewBcryptHasher(bcrypt.MinCost), stubUploader{})

	mod := &modules.UserModule{
		Users: handlers.NewUserHandler(svc, nil, helpers.NewCookie("", false),
			handlers.Uploads{Dir: t.TempDir(), MaxSize: 1 << 20}),
		Channels: handlers.NewChannelHandler(application.NewChannelService(store, nil), nil),
		JWT:      jwt,
	}
	engine := gin.New()
	mod.Register(engine.Group("/api"))
	return &server{t: t, engine: engine, store: store}
}

func (s *server) do(req *http.Request, token string) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	var env envelope
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func (s *server) jsonReq(method, path string, body any, token string) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	b, err := json.Marshal(body)
	require.NoError(s.t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, token)
}

func (s *server) register(username string, withAvatar bool) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range map[string]string{
		"fullname": "Name " + username,
		"email":    username + "@example.com",
		"username": username,
		"password": "secret",
	} {
		require.NoError(s.t, mw.WriteField(k, v))
	}
	if withAvatar {
		fw, err := mw.CreateFormFile("avatar", "face.PNG")
		require.NoError(s.t, err)
		_, _ = fw.Write([]byte("png"))
	}
	require.NoError(s.t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(req, "")
}

type tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (s *server) login(username string) tokens {
	s.t.Helper()
	w, env := s.jsonReq(http.MethodPost, "/api/v1/users/login", map[string]string{"username": username, "password": "secret"}, "")
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var tk tokens
	require.NoError(s.t, json.Unmarshal(env.Data, &tk))
	return tk
}

func TestUserModule_RegisterLoginAndProfile(t *testing.T) {
	s := newServer(t)

	w, env := s.register("Alice", true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "User registered successfully", env.Message)
	var created map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "alice", created["username"])
	assert.Equal(t, "https://cdn.test/avatars/face.PNG", created["avatarUrl"])
	assert.NotContains(t, created, "password")
	assert.NotContains(t, created, "refreshToken")

	w, _ = s.register("alice", true)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.register("bob", false)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	tk := s.login("alice")
	assert.NotEmpty(t, tk.AccessToken)
	assert.NotEmpty(t, tk.RefreshToken)

	w, env = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil), tk.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"username":"alice"`)

	name := "Alice Liddell"
	w, env = s.jsonReq(http.MethodPatch, "/api/v1/users/update-account", map[string]any{"fullname": name}, tk.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), name)

	w, _ = s.jsonReq(http.MethodPatch, "/api/v1/users/update-account", map[string]any{"email": "not-an-email"}, tk.AccessToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserModule_AuthRequired(t *testing.T) {
	s := newServer(t)
	w, env := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)

	w, _ = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/users/history", nil), "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserModule_RefreshRotationAndLogout(t *testing.T) {
	s := newServer(t)
	w, _ := s.register("carol", true)
	require.Equal(t, http.StatusCreated, w.Code)
	tk := s.login("carol")

	w, env := s.jsonReq(http.MethodPost, "/api/v1/users/refresh-token", map[string]string{"refreshToken": tk.RefreshToken}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rotated tokens
	require.NoError(t, json.Unmarshal(env.Data, &rotated))
	assert.NotEqual(t, tk.RefreshToken, rotated.RefreshToken)

	w, _ = s.jsonReq(http.MethodPost, "/api/v1/users/refresh-token", map[string]string{"refreshToken": tk.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil), rotated.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.jsonReq(http.MethodPost, "/api/v1/users/refresh-token", map[string]string{"refreshToken": rotated.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserModule_ChangePassword(t *testing.T) {
	s := newServer(t)
	w, _ := s.register("dave", true)
	require.Equal(t, http.StatusCreated, w.Code)
	tk := s.login("dave")

	w, env := s.jsonReq(http.MethodPost, "/api/v1/users/change-password",
		map[string]string{"oldPassword": "wrong", "newPassword": "next"}, tk.AccessToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid old password", env.Message)

	w, _ = s.jsonReq(http.MethodPost, "/api/v1/users/change-password",
		map[string]string{"oldPassword": "secret", "newPassword": "next"}, tk.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.jsonReq(http.MethodPost, "/api/v1/users/login", map[string]string{"username": "dave", "password": "secret"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = s.jsonReq(http.MethodPost, "/api/v1/users/login", map[string]string{"username": "dave", "password": "next"}, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func userID(t *testing.T, env envelope) string {
	t.Helper()
	var u struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &u))
	return u.ID
}

func TestUserModule_ChannelAndHistory(t *testing.T) {
	s := newServer(t)
	_, chEnv := s.register("studio", true)
	_, fanEnv := s.register("fan", true)
	channelID, fanID := userID(t, chEnv), userID(t, fanEnv)

	s.store.Subscribe(fanID, channelID)
	v1 := s.store.AddVideo(entity.Video{Title: "first", OwnerID: channelID})
	v2 := s.store.AddVideo(entity.Video{Title: "second", OwnerID: channelID})
	require.NoError(t, s.store.AppendWatchHistory(fanID, v2, v1))

	tk := s.login("fan")

	w, env := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/users/c/studio", nil), tk.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var profile entity.ChannelProfile
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Equal(t, int64(1), profile.SubscribersCount)
	assert.True(t, profile.IsSubscribed)

	w, _ = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/users/c/nobody", nil), tk.AccessToken)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/users/history", nil), tk.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	var history []entity.WatchedVideo
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 2)
	assert.Equal(t, "second", history[0].Title)
	assert.Equal(t, "studio", history[0].Owner.Username)
}
