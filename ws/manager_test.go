package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"paywall_backend/internal/auth"
	"paywall_backend/internal/middleware"
	"paywall_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hubFixture struct {
	manager *WebSocketManager
	server  *httptest.Server
	token   string
	cancel  context.CancelFunc
}

func newHubFixture(t *testing.T) *hubFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := auth.NewTokenManager("ws-secret", time.Hour)
	require.NoError(t, err)
	token, err := tokens.Issue("content-bot", auth.RoleService)
	require.NoError(t, err)

	manager := NewWebSocketManager()
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Run(ctx)

	router := gin.New()
	router.GET("/ws/notifications",
		middleware.AuthMiddleware(tokens),
		middleware.RequireRoles(auth.RoleService),
		NewWebSocketHandler(manager).ServeWS,
	)
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		cancel()
		server.Close()
	})
	return &hubFixture{manager: manager, server: server, token: token, cancel: cancel}
}

func (f *hubFixture) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()

	before := f.manager.GetClientCount()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/notifications?token=" + f.token + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return f.manager.GetClientCount() == before+1 },
		2*time.Second, 10*time.Millisecond)
	return conn
}

func TestNotify_WithoutSubscribers(t *testing.T) {
	f := newHubFixture(t)

	err := f.manager.Notify(context.Background(), "42", services.Notification{Kind: services.NotificationAccessGranted})

	assert.ErrorIs(t, err, ErrNoSubscribers)
}

func TestNotify_DeliversToSubscriber(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t, "")

	err := f.manager.Notify(context.Background(), "42", services.Notification{
		Kind:             services.NotificationPaymentConfirmed,
		TransactionParam: "abc123",
		Amount:           "50000",
	})
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "notification", msg.Type)
	assert.Equal(t, services.NotificationPaymentConfirmed, msg.Data.Kind)
	assert.Equal(t, "42", msg.Data.PrincipalRef)
	assert.Equal(t, "abc123", msg.Data.TransactionParam)
}

func TestNotify_PrincipalFilter(t *testing.T) {
	f := newHubFixture(t)
	mine := f.dial(t, "&principal_ref=42")
	other := f.dial(t, "&principal_ref=43")

	require.NoError(t, f.manager.Notify(context.Background(), "42", services.Notification{Kind: services.NotificationAccessRevoked}))

	require.NoError(t, mine.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, mine.ReadJSON(&msg))
	assert.Equal(t, services.NotificationAccessRevoked, msg.Data.Kind)

	require.NoError(t, other.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "чужое уведомление не доставляется")
}

func TestServeWS_RequiresToken(t *testing.T) {
	f := newHubFixture(t)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/notifications"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
	assert.Zero(t, f.manager.GetClientCount())
}

func TestRun_ShutdownClosesClients(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t, "")

	f.cancel()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "после остановки хаба соединение закрывается")

	require.Eventually(t, func() bool { return f.manager.GetClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
	err = f.manager.Notify(context.Background(), "42", services.Notification{Kind: services.NotificationAccessGranted})
	assert.ErrorIs(t, err, ErrNoSubscribers)
}
