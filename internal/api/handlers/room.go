package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ama_live/internal/repository"
	"ama_live/internal/service"
)

// RoomHandler 處理房間、提問、按讚與回答的請求
type RoomHandler struct {
	roomService *service.RoomService
}

// NewRoomHandler 創建一個新的 RoomHandler 實例
func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	return &RoomHandler{roomService: roomService}
}

// CreateRoom 處理創建新房間的請求
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var input struct {
		Theme string `json:"theme" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.roomService.CreateRoom(c.Request.Context(), input.Theme)
	if err != nil {
		respondError(c, err, "創建房間失敗")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// GetMessages 取得房間的提問列表與本地按讚旗標
func (h *RoomHandler) GetMessages(c *gin.Context) {
	roomID := c.Param("id")
	st, err := h.roomService.GetMessages(c.Request.Context(), roomID)
	if err != nil {
		respondError(c, err, "無法載入房間提問")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room_id":  roomID,
		"messages": st.Values(),
		"reacted":  h.roomService.Reacted(roomID),
	})
}

// SubmitMessage 送出新提問
func (h *RoomHandler) SubmitMessage(c *gin.Context) {
	var input struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.roomService.SubmitMessage(c.Request.Context(), c.Param("id"), input.Message)
	if err != nil {
		respondError(c, err, "送出提問失敗")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// React 對提問按讚
func (h *RoomHandler) React(c *gin.Context) {
	roomID, messageID := c.Param("id"), c.Param("message_id")
	if err := h.roomService.React(c.Request.Context(), roomID, messageID); err != nil {
		respondError(c, err, "按讚失敗")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reacted": true})
}

// RemoveReaction 收回按讚
func (h *RoomHandler) RemoveReaction(c *gin.Context) {
	roomID, messageID := c.Param("id"), c.Param("message_id")
	if err := h.roomService.RemoveReaction(c.Request.Context(), roomID, messageID); err != nil {
		respondError(c, err, "收回按讚失敗")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reacted": false})
}

// GetAnswers 取得提問的回答
func (h *RoomHandler) GetAnswers(c *gin.Context) {
	answers, err := h.roomService.GetAnswers(c.Request.Context(), c.Param("id"), c.Param("message_id"))
	if err != nil {
		respondError(c, err, "無法載入回答")
		return
	}
	c.JSON(http.StatusOK, answers)
}

// AnswerMessage 回答提問
func (h *RoomHandler) AnswerMessage(c *gin.Context) {
	var input struct {
		Answer string `json:"answer" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.roomService.AnswerMessage(c.Request.Context(), c.Param("id"), c.Param("message_id"), input.Answer)
	if err != nil {
		respondError(c, err, "回答提問失敗")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// respondError 把服務層錯誤轉成 HTTP 狀態碼；上游錯誤回 502，上游 404 照樣回 404
func respondError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrMissingRoom),
		errors.Is(err, service.ErrMissingMessage),
		errors.Is(err, service.ErrEmptyText):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var httpErr *repository.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": msg})
}
