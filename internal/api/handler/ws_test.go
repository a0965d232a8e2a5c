package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"questfeed/backend/internal/api/handler"
	"questfeed/backend/internal/auth"
	"questfeed/backend/internal/models"
	"questfeed/backend/internal/realtime"
)

const testSecret = "handler-test-secret"

// stubStorage satisfies storage.Storage with no-ops; the handshake tests
// exercise auth and presence, not persistence.
type stubStorage struct{}

func (stubStorage) SaveUser(*models.User) error                 { return nil }
func (stubStorage) GetUserByID(string) (*models.User, error)    { return nil, nil }
func (stubStorage) TouchLastActive(string, time.Time) error     { return nil }
func (stubStorage) SaveConversation(*models.Conversation) error { return nil }
func (stubStorage) IsParticipant(string, string) (bool, error)  { return true, nil }
func (stubStorage) AddOnlineUser(string) error                  { return nil }
func (stubStorage) RemoveOnlineUser(string) error               { return nil }
func (stubStorage) GetOnlineUsers() ([]string, error)           { return nil, nil }

func newTestServer(t *testing.T) (*httptest.Server, *realtime.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := realtime.NewHub(stubStorage{}, realtime.NoopBackplane{}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	h := handler.NewHandler(hub, auth.NewVerifier(testSecret), stubStorage{}, zap.NewNop())

	r := gin.New()
	r.GET("/ws", h.ServeWebSocket)
	r.GET("/healthz", h.Healthz)
	r.GET("/api/presence/:userID", h.GetPresence)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, hub
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestServeWebSocket_RejectsMissingToken(t *testing.T) {
	srv, hub := newTestServer(t)

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, hub.IsOnline("u1"), "rejected handshake must never create a presence entry")
}

func TestServeWebSocket_RejectsInvalidToken(t *testing.T) {
	srv, hub := newTestServer(t)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv)+"/ws?token=garbage", nil)
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	require.Nil(t, conn)
	assert.False(t, hub.IsOnline("u1"))
}

func TestServeWebSocket_AcceptsValidToken(t *testing.T) {
	srv, hub := newTestServer(t)

	token, err := auth.NewIssuer(testSecret, time.Hour).Issue("u1", "alice")
	require.NoError(t, err)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv)+"/ws?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	time.Sleep(100 * time.Millisecond)
	assert.True(t, hub.IsOnline("u1"))

	conn.Close()
	time.Sleep(100 * time.Millisecond)
	assert.False(t, hub.IsOnline("u1"))
}

func TestServeWebSocket_BearerHeader(t *testing.T) {
	srv, hub := newTestServer(t)

	token, err := auth.NewIssuer(testSecret, time.Hour).Issue("u2", "bob")
	require.NoError(t, err)

	header := http.Header{"Authorization": {"Bearer " + token}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"/ws", header)
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(100 * time.Millisecond)
	assert.True(t, hub.IsOnline("u2"))
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
