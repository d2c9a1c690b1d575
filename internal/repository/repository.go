package repository

import "net/http"

type Repositories struct {
	Room     RoomRepository
	Message  MessageRepository
	Answer   AnswerRepository
	Reaction ReactionRepository
}

func NewRepositories(client *http.Client, apiURL string) *Repositories {
	base := NewBaseRepository(client, apiURL)
	return &Repositories{
		Room:     NewRoomRepository(base),
		Message:  NewMessageRepository(base),
		Answer:   NewAnswerRepository(base),
		Reaction: NewReactionRepository(base),
	}
}
