package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"questfeed/backend/internal/models"
)

// Healthz is the liveness probe.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetPresence reports whether a user holds a live connection on this
// process.
func (h *Handler) GetPresence(c *gin.Context) {
	userID := c.Param("userID")
	c.JSON(http.StatusOK, gin.H{
		"userId": userID,
		"online": h.Hub.IsOnline(userID),
	})
}

// ListOnline returns the cluster-wide best-effort online set from Redis.
func (h *Handler) ListOnline(c *gin.Context) {
	users, err := h.Storage.GetOnlineUsers()
	if err != nil {
		h.Log.Warn("online set read failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "online set unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// NotifyUser lets server-side collaborators address a direct event to one
// user. Delivery is best-effort: 202 means the event was queued for fan-out,
// not that the user received it.
func (h *Handler) NotifyUser(c *gin.Context) {
	var env models.Envelope
	if err := c.ShouldBindJSON(&env); err != nil || env.Event == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected {event, data}"})
		return
	}

	h.Hub.NotifyUser(c.Param("userID"), env)
	c.JSON(http.StatusAccepted, gin.H{"queued": true})
}

// Relay lets the posts collaborator trigger a content-interaction broadcast
// (post:new and friends) to every connection. The payload passes through
// verbatim.
func (h *Handler) Relay(c *gin.Context) {
	var env models.Envelope
	if err := c.ShouldBindJSON(&env); err != nil || env.Event == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected {event, data}"})
		return
	}

	h.Hub.Relay(env.Event, env.Data)
	c.JSON(http.StatusAccepted, gin.H{"queued": true})
}
