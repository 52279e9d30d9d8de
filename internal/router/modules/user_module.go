package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-media-identity/internal/interface/http"
	"github.com/oksasatya/go-media-identity/internal/interface/middleware"
	"github.com/oksasatya/go-media-identity/pkg/helpers"
)

// UserModule wires the account and channel handlers under /v1/users.
// Public: register, login, refresh-token
// Protected: everything else, behind the Auth middleware
type UserModule struct {
	Users    *handlers.UserHandler
	Channels *handlers.ChannelHandler
	JWT      *helpers.JWTManager
	// Sessions is nil when no session cache is configured.
	Sessions middleware.SessionChecker
	RDB      *redis.Client

	AuthLimit  int
	AuthWindow time.Duration
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/v1/users")

	authLimiter := middleware.RateLimit(m.RDB, m.AuthLimit, m.AuthWindow, middleware.KeyByIPAndPath(), nil)
	users.POST("/register", authLimiter, m.Users.Register)
	users.POST("/login", authLimiter, m.Users.Login)
	users.POST("/refresh-token", authLimiter, m.Users.RefreshToken)

	auth := users.Group("")
	auth.Use(middleware.Auth(m.Sessions, m.JWT))
	auth.Use(middleware.RateLimit(m.RDB, 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.POST("/logout", m.Users.Logout)
		auth.POST("/change-password", m.Users.ChangePassword)
		auth.GET("/current-user", m.Users.CurrentUser)
		auth.PATCH("/update-account", m.Users.UpdateAccount)
		auth.PATCH("/avatar", m.Users.UpdateAvatar)
		auth.PATCH("/cover-image", m.Users.UpdateCoverImage)
		auth.GET("/search", m.Users.Search)

		auth.GET("/c/:username", m.Channels.Profile)
		auth.GET("/history", m.Channels.WatchHistory)
	}
}
