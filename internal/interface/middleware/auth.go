package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-media-identity/pkg/helpers"
	"github.com/oksasatya/go-media-identity/pkg/response"
)

// SessionChecker reports the active session id of a user, "" when there is none.
type SessionChecker interface {
	SessionID(ctx context.Context, userID string) (string, error)
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Auth validates the access token from the accessToken cookie or the
// Authorization header. With sessions set, the token's sid must match the
// cached session so logout and rotation revoke older access tokens.
// It sets userID, username and userEmail in the Gin context on success.
func Auth(sessions SessionChecker, jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(helpers.AccessTokenCookie)
		if token == "" {
			token = bearerToken(c)
		}
		if token == "" {
			response.Abort(c, response.Error[any](c, http.StatusUnauthorized, "unauthorized request", nil))
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			response.Abort(c, response.Error[any](c, http.StatusUnauthorized, "invalid access token", err.Error()))
			return
		}

		if sessions != nil {
			sid, err := sessions.SessionID(c.Request.Context(), claims.UserID)
			if err != nil || sid == "" || sid != claims.SessionID {
				response.Abort(c, response.Error[any](c, http.StatusUnauthorized, "session not found", nil))
				return
			}
		}

		c.Set("userID", claims.UserID)
		c.Set("username", claims.Username)
		c.Set("userEmail", claims.Email)
		c.Next()
	}
}
