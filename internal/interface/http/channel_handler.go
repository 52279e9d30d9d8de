package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-media-identity/internal/application"
	"github.com/oksasatya/go-media-identity/pkg/response"
)

type ChannelHandler struct {
	Svc    *application.ChannelService
	Logger *logrus.Logger
}

func NewChannelHandler(svc *application.ChannelService, logger *logrus.Logger) *ChannelHandler {
	return &ChannelHandler{Svc: svc, Logger: logger}
}

// Profile returns the channel named by :username as seen by the caller.
func (h *ChannelHandler) Profile(c *gin.Context) {
	p, err := h.Svc.GetChannelProfile(c.Request.Context(), c.Param("username"), c.GetString("userID"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.JSON(c, response.Success(c, http.StatusOK, p, "User channel fetched successfully", nil))
}

func (h *ChannelHandler) WatchHistory(c *gin.Context) {
	history, err := h.Svc.GetWatchHistory(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.JSON(c, response.Success(c, http.StatusOK, history, "Watch history fetched successfully", nil))
}
