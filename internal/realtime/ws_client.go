package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"questfeed/backend/internal/auth"
	"questfeed/backend/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// WebSocketClient implements the Client interface over gorilla/websocket.
type WebSocketClient struct {
	connID   string
	identity auth.Identity

	Conn *websocket.Conn
	Hub  *Hub
	Send chan models.Envelope

	log       *zap.Logger
	closeOnce sync.Once
}

func NewWebSocketClient(hub *Hub, conn *websocket.Conn, identity auth.Identity, log *zap.Logger) *WebSocketClient {
	return &WebSocketClient{
		connID:   uuid.NewString(),
		identity: identity,
		Conn:     conn,
		Hub:      hub,
		Send:     make(chan models.Envelope, 256),
		log:      log,
	}
}

func (c *WebSocketClient) GetConnID() string   { return c.connID }
func (c *WebSocketClient) GetUserID() string   { return c.identity.UserID }
func (c *WebSocketClient) GetUsername() string { return c.identity.Username }

func (c *WebSocketClient) GetSendChannel() chan<- models.Envelope { return c.Send }

// Run starts the read and write pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close closes the Send channel, which stops the write pump. The read pump
// stops once the connection is closed in its defer.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.UnregisterCh <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read failed",
					zap.String("user_id", c.identity.UserID),
					zap.Error(err))
			}
			break
		}

		event, err := models.DecodeClientEvent(raw)
		if err != nil {
			// Best-effort channel: malformed frames are dropped, never
			// surfaced back to the sender.
			if !errors.Is(err, models.ErrMalformedEvent) {
				c.log.Debug("undecodable client frame",
					zap.String("user_id", c.identity.UserID),
					zap.Error(err))
			}
			continue
		}

		c.Hub.IncomingCh <- Inbound{Client: c, Event: event}
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed by the hub.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(env)
			if err != nil {
				c.log.Warn("failed to encode outbound event",
					zap.String("event", env.Event),
					zap.Error(err))
				continue
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
