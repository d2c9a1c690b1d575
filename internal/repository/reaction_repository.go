package repository

import "context"

// ReactionRepository 對提問按讚或收回。回傳的數量僅供記錄，
// 快取中的數量只由事件串流更新。
type ReactionRepository interface {
	Add(ctx context.Context, roomID, messageID string) (int64, error)
	Remove(ctx context.Context, roomID, messageID string) (int64, error)
}

type reactionRepository struct {
	base BaseRepository
}

func NewReactionRepository(base BaseRepository) ReactionRepository {
	return &reactionRepository{base: base}
}

func (r *reactionRepository) Add(ctx context.Context, roomID, messageID string) (int64, error) {
	var out countResponse
	err := r.base.Update(ctx, &out, "rooms", roomID, "messages", messageID, "react")
	return out.Count, err
}

func (r *reactionRepository) Remove(ctx context.Context, roomID, messageID string) (int64, error) {
	var out countResponse
	err := r.base.Delete(ctx, &out, "rooms", roomID, "messages", messageID, "react")
	return out.Count, err
}
