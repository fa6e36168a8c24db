package ws

import (
	"net/http"

	"paywall_backend/internal/logger"
	"paywall_backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Клиенты - серверные коллабораторы, браузерного origin нет
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type WebSocketHandler struct {
	Manager *WebSocketManager
}

func NewWebSocketHandler(manager *WebSocketManager) *WebSocketHandler {
	return &WebSocketHandler{
		Manager: manager,
	}
}

// ServeWS поднимает поток уведомлений. Требует AuthMiddleware перед собой.
func (h *WebSocketHandler) ServeWS(c *gin.Context) {
	subject := middleware.GetSubject(c)
	if subject == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.CtxWarn(c.Request.Context(), "websocket upgrade error", "error", err)
		return
	}

	client := &Client{
		ID:           subject + ":" + uuid.NewString(),
		Subject:      subject,
		PrincipalRef: c.Query("principal_ref"),
		Conn:         conn,
		Send:         make(chan Message, sendBufferSize),
		Manager:      h.Manager,
	}

	if !h.Manager.Register(client) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
