package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"ama_live/internal/service"
)

// 定義 WebSocket 升級器
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // 只在本機提供服務
	},
}

// WebSocketHandler 處理本地檢視者的 WebSocket 連接
type WebSocketHandler struct {
	hub *service.ViewHub
}

// NewWebSocketHandler 創建一個新的 WebSocketHandler 實例
func NewWebSocketHandler(hub *service.ViewHub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// HandleWebSocket 升級連線並交給 ViewHub；room_id 可省略，之後以 switch 操作進入房間
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 失敗時已經回應了錯誤
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}

	h.hub.HandleConnection(conn, c.Query("room_id"))
}
