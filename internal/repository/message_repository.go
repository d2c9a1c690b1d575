package repository

import (
	"context"

	"ama_live/internal/models"
)

// MessageRepository 載入房間快照並送出新提問
type MessageRepository interface {
	FindByRoomID(ctx context.Context, roomID string) ([]models.Message, error)
	Create(ctx context.Context, roomID, text string) (string, error)
}

type messageRepository struct {
	base BaseRepository
}

func NewMessageRepository(base BaseRepository) MessageRepository {
	return &messageRepository{base: base}
}

// FindByRoomID 取得房間所有提問，並由上游格式轉換為內部格式
func (r *messageRepository) FindByRoomID(ctx context.Context, roomID string) ([]models.Message, error) {
	var wire []models.WireMessage
	if err := r.base.Find(ctx, &wire, "rooms", roomID, "messages"); err != nil {
		return nil, err
	}
	out := make([]models.Message, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.ToMessage())
	}
	return out, nil
}

func (r *messageRepository) Create(ctx context.Context, roomID, text string) (string, error) {
	var out idResponse
	err := r.base.Create(ctx, struct {
		Message string `json:"message"`
	}{Message: text}, &out, "rooms", roomID, "messages")
	return out.ID, err
}
