package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chorus/groupware/middleware"
	"chorus/groupware/models"
	"chorus/groupware/services"
	"chorus/groupware/utils"
)

type StatusHandler struct {
	service *services.PresenceService
	logger  *utils.Logger
}

func NewStatusHandler(service *services.PresenceService, logger *utils.Logger) *StatusHandler {
	return &StatusHandler{
		service: service,
		logger:  logger,
	}
}

// Heartbeat handles POST /api/v1/status/heartbeat
func (h *StatusHandler) Heartbeat(c *gin.Context) {
	var req models.HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if _, err := h.service.Heartbeat(c.Request.Context(), middleware.UserID(c), req.Away); err != nil {
		h.logger.Error("Failed to record heartbeat", "user_id", middleware.UserID(c), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record heartbeat"})
		return
	}

	c.Status(http.StatusNoContent)
}

// GetStatus handles GET /api/v1/status
func (h *StatusHandler) GetStatus(c *gin.Context) {
	status, err := h.service.GetStatus(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.logger.Error("Failed to get status", "user_id", middleware.UserID(c), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get status"})
		return
	}

	c.JSON(http.StatusOK, status)
}

// SetStatus handles PUT /api/v1/status/type
func (h *StatusHandler) SetStatus(c *gin.Context) {
	var req models.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	status, err := h.service.SetStatus(c.Request.Context(), middleware.UserID(c), req.StatusType)
	if err != nil {
		h.writeError(c, "Failed to set status", err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// SetMessage handles PUT /api/v1/status/message
func (h *StatusHandler) SetMessage(c *gin.Context) {
	var req models.SetMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	status, err := h.service.SetMessage(c.Request.Context(), middleware.UserID(c), req.Icon, req.Message, req.ClearAt)
	if err != nil {
		h.writeError(c, "Failed to set status message", err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// ClearMessage handles DELETE /api/v1/status/message
func (h *StatusHandler) ClearMessage(c *gin.Context) {
	status, err := h.service.ClearMessage(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.writeError(c, "Failed to clear status message", err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// OnlineUsers handles GET /api/v1/status/online
func (h *StatusHandler) OnlineUsers(c *gin.Context) {
	users, err := h.service.OnlineUsers(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get online users", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get online users"})
		return
	}

	c.JSON(http.StatusOK, models.OnlineUsersResponse{
		Count: len(users),
		Users: users,
	})
}

func (h *StatusHandler) writeError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidStatus), errors.Is(err, services.ErrMessageTooLong):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   msg,
			"details": err.Error(),
		})
	default:
		h.logger.Error(msg, "user_id", middleware.UserID(c), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
