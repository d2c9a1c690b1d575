package repository

import "context"

type RoomRepository interface {
	Create(ctx context.Context, theme string) (string, error)
}

type roomRepository struct {
	base BaseRepository
}

func NewRoomRepository(base BaseRepository) RoomRepository {
	return &roomRepository{base: base}
}

// Create 建立房間，回傳伺服器核發的 ID
func (r *roomRepository) Create(ctx context.Context, theme string) (string, error) {
	var out idResponse
	err := r.base.Create(ctx, struct {
		Theme string `json:"theme"`
	}{Theme: theme}, &out, "rooms")
	return out.ID, err
}

type idResponse struct {
	ID string `json:"id"`
}

type countResponse struct {
	Count int64 `json:"count"`
}
