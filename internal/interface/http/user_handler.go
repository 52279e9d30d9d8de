package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-media-identity/internal/application"
	"github.com/oksasatya/go-media-identity/pkg/helpers"
	"github.com/oksasatya/go-media-identity/pkg/response"
)

type UserHandler struct {
	Svc     *application.Service
	Logger  *logrus.Logger
	Cookies *helpers.Manager
	Uploads Uploads
}

func NewUserHandler(svc *application.Service, logger *logrus.Logger, cookies *helpers.Manager, uploads Uploads) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger, Cookies: cookies, Uploads: uploads}
}

type registerForm struct {
	Fullname string `form:"fullname"`
	Email    string `form:"email"`
	Username string `form:"username"`
	Password string `form:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateAccountRequest struct {
	Fullname *string `json:"fullname"`
	Email    *string `json:"email" binding:"omitempty,email"`
}

type searchQuery struct {
	Q    string `form:"q"`
	Size int    `form:"size" binding:"omitempty,pagesize"`
}

type loginResponse struct {
	User         any    `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (h *UserHandler) Register(c *gin.Context) {
	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		respondInvalid(c, err)
		return
	}
	avatar, err := h.Uploads.Stage(c, "avatar")
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	cover, err := h.Uploads.Stage(c, "coverImage")
	if err != nil {
		discard(avatar)
		respondError(c, h.Logger, err)
		return
	}

	u, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{
		Fullname:   form.Fullname,
		Email:      form.Email,
		Username:   form.Username,
		Password:   form.Password,
		Avatar:     avatar,
		CoverImage: cover,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.JSON(c, response.Success(c, http.StatusCreated, u, "User registered successfully", nil))
}

func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}
	res, err := h.Svc.Login(c.Request.Context(), application.LoginInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		IP:        clientIP(c),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	pair := res.Tokens
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.JSON(c, response.Success(c, http.StatusOK,
		loginResponse{User: res.User, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken},
		"User logged in successfully",
		map[string]any{"access_expires_at": pair.AccessTokenExpiry, "refresh_expires_at": pair.RefreshTokenExpiry}))
}

// RefreshToken reads the token from the refreshToken cookie, falling back to the JSON body.
func (h *UserHandler) RefreshToken(c *gin.Context) {
	token, _ := c.Cookie(helpers.RefreshTokenCookie)
	if token == "" && c.Request.ContentLength != 0 {
		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			respondInvalid(c, err)
			return
		}
		token = req.RefreshToken
	}

	pair, err := h.Svc.RefreshAccessToken(c.Request.Context(), token)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.JSON(c, response.Success(c, http.StatusOK, pair, "Access token refreshed", nil))
}

func (h *UserHandler) Logout(c *gin.Context) {
	if err := h.Svc.Logout(c.Request.Context(), c.GetString("userID")); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.Cookies.Clear(c)
	response.JSON(c, response.Success(c, http.StatusOK, gin.H{}, "User logged out", nil))
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}
	if err := h.Svc.ChangePassword(c.Request.Context(), c.GetString("userID"), req.OldPassword, req.NewPassword); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.JSON(c, response.Success(c, http.StatusOK, gin.H{}, "Password changed successfully", nil))
}

func (h *UserHandler) CurrentUser(c *gin.Context) {
	u, err := h.Svc.GetCurrentUser(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.JSON(c, response.Success(c, http.StatusOK, u, "User fetched successfully", nil))
}

func (h *UserHandler) UpdateAccount(c *gin.Context) {
	var req updateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}
	u, err := h.Svc.UpdateProfile(c.Request.Context(), c.GetString("userID"), application.UpdateProfileInput{
		Fullname: req.Fullname,
		Email:    req.Email,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.JSON(c, response.Success(c, http.StatusOK, u, "Account details updated successfully", nil))
}

func (h *UserHandler) UpdateAvatar(c *gin.Context) {
	file, err := h.Uploads.Stage(c, "avatar")
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	u, err := h.Svc.UpdateAvatar(c.Request.Context(), c.GetString("userID"), file)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.JSON(c, response.Success(c, http.StatusOK, u, "Avatar image updated successfully", nil))
}

func (h *UserHandler) UpdateCoverImage(c *gin.Context) {
	file, err := h.Uploads.Stage(c, "coverImage")
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	u, err := h.Svc.UpdateCoverImage(c.Request.Context(), c.GetString("userID"), file)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.JSON(c, response.Success(c, http.StatusOK, u, "Cover image updated successfully", nil))
}

func (h *UserHandler) Search(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondInvalid(c, err)
		return
	}
	hits, err := h.Svc.SearchUsers(c.Request.Context(), q.Q, q.Size)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.JSON(c, response.Success(c, http.StatusOK, hits, "Users fetched successfully", map[string]any{"count": len(hits)}))
}
