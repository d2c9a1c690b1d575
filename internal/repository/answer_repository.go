package repository

import (
	"context"

	"ama_live/internal/models"
)

type AnswerRepository interface {
	FindByMessageID(ctx context.Context, roomID, messageID string) ([]models.Answer, error)
	Create(ctx context.Context, roomID, messageID, text string) (string, error)
}

type answerRepository struct {
	base BaseRepository
}

func NewAnswerRepository(base BaseRepository) AnswerRepository {
	return &answerRepository{base: base}
}

func (r *answerRepository) FindByMessageID(ctx context.Context, roomID, messageID string) ([]models.Answer, error) {
	var wire []models.WireAnswer
	if err := r.base.Find(ctx, &wire, "rooms", roomID, "messages", messageID, "answer"); err != nil {
		return nil, err
	}
	out := make([]models.Answer, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.ToAnswer())
	}
	return out, nil
}

// Create 回答提問；上游同時會把提問標記為已回答並廣播 message_answered
func (r *answerRepository) Create(ctx context.Context, roomID, messageID, text string) (string, error) {
	var out idResponse
	err := r.base.Create(ctx, struct {
		Answer string `json:"answer"`
	}{Answer: text}, &out, "rooms", roomID, "messages", messageID, "answer")
	return out.ID, err
}
