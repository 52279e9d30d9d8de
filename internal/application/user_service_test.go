package application_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-media-identity/internal/application"
	"github.com/oksasatya/go-media-identity/internal/domain/repository"
	"github.com/oksasatya/go-media-identity/pkg/apperr"
)

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae, "expected *apperr.AppError, got %T: %v", err, err)
	assert.Equal(t, code, ae.Code, ae.Message)
}

func TestRegister_Success(t *testing.T) {
	h := newHarness(t)
	avatar := stage(t, "a.png")
	cover := stage(t, "c.png")

	u, err := h.svc.Register(context.Background(), application.RegisterInput{
		Fullname:   "  Alice Liddell ",
		Email:      "Alice@Example.com",
		Username:   "AliceL",
		Password:   "wonderland",
		Avatar:     avatar,
		CoverImage: cover,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alicel", u.Username)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "Alice Liddell", u.Fullname)
	assert.Equal(t, "https://cdn.test/avatars/a.png", u.AvatarURL)
	assert.Equal(t, "https://cdn.test/covers/c.png", u.CoverImageURL)

	stored, err := h.store.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.RefreshToken)
	assert.NotEqual(t, "wonderland", stored.PasswordHash)

	for _, f := range []string{avatar.Path, cover.Path} {
		_, statErr := os.Stat(f)
		assert.True(t, os.IsNotExist(statErr), "staged file %s should be removed", f)
	}
	assert.Equal(t, []string{application.NotifyWelcome}, h.notifier.kinds())
}

func TestRegister_ProjectionHasNoCredentials(t *testing.T) {
	h := newHarness(t)
	u := h.register(t, "bob", "bob@example.com", "builder1")

	raw, err := json.Marshal(u)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))

	for key := range fields {
		lower := strings.ToLower(key)
		assert.NotContains(t, lower, "password")
		assert.NotContains(t, lower, "refresh")
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   func(t *testing.T) application.RegisterInput
	}{
		{"blank fullname", func(t *testing.T) application.RegisterInput {
			return application.RegisterInput{Fullname: "  ", Email: "a@b.c", Username: "a", Password: "p", Avatar: stage(t, "a.png")}
		}},
		{"blank password", func(t *testing.T) application.RegisterInput {
			return application.RegisterInput{Fullname: "A", Email: "a@b.c", Username: "a", Password: " ", Avatar: stage(t, "a.png")}
		}},
		{"missing avatar", func(t *testing.T) application.RegisterInput {
			return application.RegisterInput{Fullname: "A", Email: "a@b.c", Username: "a", Password: "p"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.svc.Register(context.Background(), tt.in(t))
			assertCode(t, err, apperr.CodeBadRequest)
			assert.Empty(t, h.uploader.uploaded)
		})
	}
}

func TestRegister_DuplicateIsConflict(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
	}{
		{"same username different email", "carol", "other@example.com"},
		{"same email different username", "someoneelse", "carol@example.com"},
		{"same username different case", "CAROL", "third@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.register(t, "carol", "carol@example.com", "pw123456")
			uploadsBefore := len(h.uploader.uploaded)
			avatar := stage(t, "dup.png")

			_, err := h.svc.Register(context.Background(), application.RegisterInput{
				Fullname: "Dup", Email: tt.email, Username: tt.username, Password: "pw", Avatar: avatar,
			})
			assertCode(t, err, apperr.CodeConflict)
			assert.Len(t, h.uploader.uploaded, uploadsBefore)

			_, statErr := os.Stat(avatar.Path)
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestRegister_AvatarUploadFailureCreatesNothing(t *testing.T) {
	h := newHarness(t)
	h.uploader.failFor["avatars"] = true

	_, err := h.svc.Register(context.Background(), application.RegisterInput{
		Fullname: "Dan", Email: "dan@example.com", Username: "dan", Password: "pw", Avatar: stage(t, "d.png"),
	})
	assertCode(t, err, apperr.CodeInternal)

	_, findErr := h.store.FindByUsernameOrEmail(context.Background(), "dan", "")
	assert.ErrorIs(t, findErr, repository.ErrNotFound)
}

func TestRegister_CoverUploadFailureIsTolerated(t *testing.T) {
	h := newHarness(t)
	h.uploader.failFor["covers"] = true

	u, err := h.svc.Register(context.Background(), application.RegisterInput{
		Fullname: "Eve", Email: "eve@example.com", Username: "eve", Password: "pw",
		Avatar: stage(t, "e.png"), CoverImage: stage(t, "ec.png"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, u.AvatarURL)
	assert.Equal(t, "", u.CoverImageURL)
}

func TestRegister_StoreFailureDeletesUploads(t *testing.T) {
	h := newHarness(t)
	h.store.failCreate = errors.New("disk full")

	_, err := h.svc.Register(context.Background(), application.RegisterInput{
		Fullname: "Fay", Email: "fay@example.com", Username: "fay", Password: "pw",
		Avatar: stage(t, "f.png"), CoverImage: stage(t, "fc.png"),
	})
	assertCode(t, err, apperr.CodeInternal)
	assert.ElementsMatch(t, h.uploader.uploaded, h.uploader.deleted)
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	h.register(t, "gina", "gina@example.com", "correct-horse")
	ctx := context.Background()

	t.Run("by username", func(t *testing.T) {
		res, err := h.svc.Login(ctx, application.LoginInput{Username: "GINA", Password: "correct-horse", IP: "10.0.0.1"})
		require.NoError(t, err)
		assert.Equal(t, "gina", res.User.Username)
		assert.NotEmpty(t, res.Tokens.AccessToken)
		assert.NotEmpty(t, res.Tokens.RefreshToken)

		stored, err := h.store.GetByID(ctx, res.User.ID)
		require.NoError(t, err)
		assert.Equal(t, res.Tokens.RefreshToken, stored.RefreshToken)

		claims, err := h.jwt.ParseAccessToken(res.Tokens.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, res.User.ID, claims.UserID)
		assert.Equal(t, "gina@example.com", claims.Email)
		assert.Equal(t, h.sessions.sessions[res.User.ID], claims.SessionID)
	})

	t.Run("by email", func(t *testing.T) {
		_, err := h.svc.Login(ctx, application.LoginInput{Email: "gina@example.com", Password: "correct-horse"})
		require.NoError(t, err)
	})

	t.Run("no identifier", func(t *testing.T) {
		_, err := h.svc.Login(ctx, application.LoginInput{Password: "correct-horse"})
		assertCode(t, err, apperr.CodeBadRequest)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := h.svc.Login(ctx, application.LoginInput{Username: "nobody", Password: "x"})
		assertCode(t, err, apperr.CodeNotFound)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := h.svc.Login(ctx, application.LoginInput{Username: "gina", Password: "wrong"})
		assertCode(t, err, apperr.CodeUnauthorized)
	})
}

func TestLogin_PersistFailureIsInternal(t *testing.T) {
	h := newHarness(t)
	h.register(t, "hank", "hank@example.com", "pw123456")
	h.store.failSetRefresh = errors.New("write timeout")

	res, err := h.svc.Login(context.Background(), application.LoginInput{Username: "hank", Password: "pw123456"})
	assertCode(t, err, apperr.CodeInternal)
	assert.Nil(t, res)
}

func TestRefresh_RotatesExactlyOnce(t *testing.T) {
	h := newHarness(t)
	h.register(t, "ivy", "ivy@example.com", "pw123456")
	ctx := context.Background()

	res, err := h.svc.Login(ctx, application.LoginInput{Username: "ivy", Password: "pw123456"})
	require.NoError(t, err)

	pair, err := h.svc.RefreshAccessToken(ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, res.Tokens.RefreshToken, pair.RefreshToken)

	_, err = h.svc.RefreshAccessToken(ctx, res.Tokens.RefreshToken)
	assertCode(t, err, apperr.CodeUnauthorized)
	assert.Contains(t, err.Error(), "expired or used")

	_, err = h.svc.RefreshAccessToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
}

func TestRefresh_ConcurrentUseSucceedsOnce(t *testing.T) {
	h := newHarness(t)
	h.register(t, "jack", "jack@example.com", "pw123456")
	ctx := context.Background()

	res, err := h.svc.Login(ctx, application.LoginInput{Username: "jack", Password: "pw123456"})
	require.NoError(t, err)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.svc.RefreshAccessToken(ctx, res.Tokens.RefreshToken); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, success)
}

func TestRefresh_Rejections(t *testing.T) {
	h := newHarness(t)
	u := h.register(t, "kate", "kate@example.com", "pw123456")
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		_, err := h.svc.RefreshAccessToken(ctx, "  ")
		assertCode(t, err, apperr.CodeUnauthorized)
	})

	t.Run("bad signature", func(t *testing.T) {
		_, err := h.svc.RefreshAccessToken(ctx, "abc.def.ghi")
		assertCode(t, err, apperr.CodeUnauthorized)
	})

	t.Run("access token presented as refresh", func(t *testing.T) {
		res, err := h.svc.Login(ctx, application.LoginInput{Username: "kate", Password: "pw123456"})
		require.NoError(t, err)
		_, err = h.svc.RefreshAccessToken(ctx, res.Tokens.AccessToken)
		assertCode(t, err, apperr.CodeUnauthorized)
	})

	t.Run("unknown subject", func(t *testing.T) {
		tok, _, err := h.jwt.GenerateRefreshToken("00000000-0000-0000-0000-000000000000", "")
		require.NoError(t, err)
		_, err = h.svc.RefreshAccessToken(ctx, tok)
		assertCode(t, err, apperr.CodeUnauthorized)
	})

	t.Run("valid signature but never stored", func(t *testing.T) {
		tok, _, err := h.jwt.GenerateRefreshToken(u.ID, "")
		require.NoError(t, err)
		_, err = h.svc.RefreshAccessToken(ctx, tok)
		assertCode(t, err, apperr.CodeUnauthorized)
	})
}

func TestLogout_InvalidatesRefreshToken(t *testing.T) {
	h := newHarness(t)
	h.register(t, "liam", "liam@example.com", "pw123456")
	ctx := context.Background()

	res, err := h.svc.Login(ctx, application.LoginInput{Username: "liam", Password: "pw123456"})
	require.NoError(t, err)

	require.NoError(t, h.svc.Logout(ctx, res.User.ID))
	_, ok := h.sessions.sessions[res.User.ID]
	assert.False(t, ok)

	_, err = h.svc.RefreshAccessToken(ctx, res.Tokens.RefreshToken)
	assertCode(t, err, apperr.CodeUnauthorized)

	// idempotent
	require.NoError(t, h.svc.Logout(ctx, res.User.ID))
	require.NoError(t, h.svc.Logout(ctx, "missing-user"))
}

func TestChangePassword(t *testing.T) {
	h := newHarness(t)
	u := h.register(t, "mia", "mia@example.com", "old-password")
	ctx := context.Background()

	before, err := h.store.GetByID(ctx, u.ID)
	require.NoError(t, err)

	err = h.svc.ChangePassword(ctx, u.ID, "not-it", "new-password")
	assertCode(t, err, apperr.CodeBadRequest)
	assert.Contains(t, err.Error(), "invalid old password")

	after, err := h.store.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, before.PasswordHash, after.PasswordHash)

	require.NoError(t, h.svc.ChangePassword(ctx, u.ID, "old-password", "new-password"))

	_, err = h.svc.Login(ctx, application.LoginInput{Username: "mia", Password: "new-password"})
	require.NoError(t, err)
	_, err = h.svc.Login(ctx, application.LoginInput{Username: "mia", Password: "old-password"})
	assertCode(t, err, apperr.CodeUnauthorized)

	assert.Contains(t, h.notifier.kinds(), application.NotifyPasswordChanged)
}

func TestChangePassword_BlankNewPassword(t *testing.T) {
	h := newHarness(t)
	u := h.register(t, "nina", "nina@example.com", "old-password")

	err := h.svc.ChangePassword(context.Background(), u.ID, "old-password", "   ")
	assertCode(t, err, apperr.CodeBadRequest)
}

func TestGetCurrentUser(t *testing.T) {
	h := newHarness(t)
	u := h.register(t, "otto", "otto@example.com", "pw123456")

	got, err := h.svc.GetCurrentUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = h.svc.GetCurrentUser(context.Background(), "missing")
	assertCode(t, err, apperr.CodeNotFound)
}

func TestUpdateProfile(t *testing.T) {
	h := newHarness(t)
	u := h.register(t, "pia", "pia@example.com", "pw123456")
	h.register(t, "quinn", "quinn@example.com", "pw123456")
	ctx := context.Background()

	t.Run("neither field performs no write", func(t *testing.T) {
		blank := "  "
		_, err := h.svc.UpdateProfile(ctx, u.ID, application.UpdateProfileInput{Fullname: &blank})
		assertCode(t, err, apperr.CodeBadRequest)
		_, err = h.svc.UpdateProfile(ctx, u.ID, application.UpdateProfileInput{})
		assertCode(t, err, apperr.CodeBadRequest)
		assert.Equal(t, 0, h.store.profileWrites)
	})

	t.Run("only fullname", func(t *testing.T) {
		name := "Pia Updated"
		got, err := h.svc.UpdateProfile(ctx, u.ID, application.UpdateProfileInput{Fullname: &name})
		require.NoError(t, err)
		assert.Equal(t, "Pia Updated", got.Fullname)
		assert.Equal(t, "pia@example.com", got.Email)
	})

	t.Run("email taken", func(t *testing.T) {
		email := "QUINN@example.com"
		_, err := h.svc.UpdateProfile(ctx, u.ID, application.UpdateProfileInput{Email: &email})
		assertCode(t, err, apperr.CodeConflict)
	})

	t.Run("email lowercased", func(t *testing.T) {
		email := "Pia.New@Example.com"
		got, err := h.svc.UpdateProfile(ctx, u.ID, application.UpdateProfileInput{Email: &email})
		require.NoError(t, err)
		assert.Equal(t, "pia.new@example.com", got.Email)
	})
}

func TestUpdateAvatarAndCover(t *testing.T) {
	h := newHarness(t)
	u := h.register(t, "rosa", "rosa@example.com", "pw123456")
	ctx := context.Background()

	got, err := h.svc.UpdateAvatar(ctx, u.ID, stage(t, "new-avatar.png"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/avatars/new-avatar.png", got.AvatarURL)
	assert.Empty(t, h.uploader.deleted, "previous avatar stays in storage")

	got, err = h.svc.UpdateCoverImage(ctx, u.ID, stage(t, "new-cover.png"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/covers/new-cover.png", got.CoverImageURL)

	_, err = h.svc.UpdateAvatar(ctx, u.ID, nil)
	assertCode(t, err, apperr.CodeBadRequest)

	h.uploader.failFor["covers"] = true
	_, err = h.svc.UpdateCoverImage(ctx, u.ID, stage(t, "broken.png"))
	assertCode(t, err, apperr.CodeInternal)

	stored, err := h.store.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/covers/new-cover.png", stored.CoverImageURL)
}

func TestUpdateAvatar_UnknownUserDropsUpload(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.UpdateAvatar(context.Background(), "missing", stage(t, "orphan.png"))
	assertCode(t, err, apperr.CodeNotFound)
	assert.Equal(t, []string{"avatars/orphan.png"}, h.uploader.deleted)
}

func TestSearchUsers_WithoutIndex(t *testing.T) {
	h := newHarness(t)

	hits, err := h.svc.SearchUsers(context.Background(), "anyone", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = h.svc.SearchUsers(context.Background(), " ", 5)
	assertCode(t, err, apperr.CodeBadRequest)
}
