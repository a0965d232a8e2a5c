package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"questfeed/backend/internal/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allows connections from any origin. Tighten for production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handshakeToken extracts the bearer credential from the Authorization
// header, falling back to the token query parameter for browser websocket
// clients that cannot set headers.
func handshakeToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

// ServeWebSocket authenticates the handshake and upgrades the connection.
// A bad token is rejected before the upgrade: no client object is ever
// created for a failed handshake.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	identity, err := h.Verifier.Verify(handshakeToken(c))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Log.Warn("websocket upgrade failed", zap.String("user_id", identity.UserID), zap.Error(err))
		return
	}

	client := realtime.NewWebSocketClient(h.Hub, conn, identity, h.Log)
	h.Hub.RegisterCh <- client
	client.Run()
}
