package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ama_live/internal/api/handlers"
	"ama_live/internal/service"
)

func SetupRoutes(r *gin.Engine, services *service.Services) {
	// 初始化 handlers
	roomHandler := handlers.NewRoomHandler(services.Room)
	wsHandler := handlers.NewWebSocketHandler(services.ViewHub)

	// API 路由群組
	api := r.Group("/api")

	// 處理 404 錯誤
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "找不到該路徑",
		})
	})

	// 基本的健康檢查
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":       "ok",
			"active_rooms": len(services.Sync.Cache().Rooms()),
		})
	})

	// 即時檢視
	api.GET("/view/ws", wsHandler.HandleWebSocket)

	rooms := api.Group("/rooms")
	{
		rooms.POST("", roomHandler.CreateRoom) // 創建房間

		// 提問
		rooms.GET("/:id/messages", roomHandler.GetMessages)
		rooms.POST("/:id/messages", roomHandler.SubmitMessage)

		// 按讚
		rooms.PATCH("/:id/messages/:message_id/react", roomHandler.React)
		rooms.DELETE("/:id/messages/:message_id/react", roomHandler.RemoveReaction)

		// 回答
		rooms.GET("/:id/messages/:message_id/answer", roomHandler.GetAnswers)
		rooms.POST("/:id/messages/:message_id/answer", roomHandler.AnswerMessage)
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
