package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-media-identity/pkg/apperr"
	"github.com/oksasatya/go-media-identity/pkg/response"
	"github.com/oksasatya/go-media-identity/pkg/validation"
)

// respondError writes err as an error envelope. Errors without a kind are
// reported as internal and logged with their cause.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	ae := apperr.As(err)
	if ae == nil {
		ae = apperr.Internal("", err)
	}
	if ae.HTTPStatus >= http.StatusInternalServerError && logger != nil {
		logger.WithError(ae.Cause).WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"path":       c.FullPath(),
		}).Error(ae.Message)
	}
	response.JSON(c, response.Error[any](c, ae.HTTPStatus, ae.Message, gin.H{"code": ae.Code}))
}

func respondInvalid(c *gin.Context, err error) {
	response.JSON(c, response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err)))
}

func clientIP(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	return c.ClientIP()
}
