package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/farmlink/farmlink-backend/internal/http/handlers/common"
	"github.com/farmlink/farmlink-backend/internal/logger"
	"github.com/farmlink/farmlink-backend/internal/service"
	"github.com/farmlink/farmlink-backend/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Разрешённые origin'ы контролирует CORS middleware на остальном API;
	// для WS соединение авторизуется токеном.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler апгрейдит соединение и регистрирует клиента в хабе.
type WSHandler struct {
	hub    *ws.Hub
	tokens *service.TokenManager
}

// NewWSHandler создаёт обработчик WebSocket.
func NewWSHandler(hub *ws.Hub, tokens *service.TokenManager) *WSHandler {
	return &WSHandler{hub: hub, tokens: tokens}
}

// Serve обрабатывает GET /ws?token=<access>.
// Браузерный WebSocket не умеет ставить заголовки, поэтому токен идёт в query.
func (h *WSHandler) Serve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		common.RespondUnauthorized(c, "")
		return
	}

	userID, _, err := h.tokens.ParseAccess(token)
	if err != nil || userID == uuid.Nil {
		common.RespondUnauthorized(c, "токен невалиден")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if logger.Log != nil {
			logger.Log.Warnf("ws: не удалось апгрейдить соединение: %v", err)
		}
		return
	}

	client := ws.NewClient(conn, h.hub, userID)
	h.hub.Register(client)
	client.Run(c.Request.Context())
}
