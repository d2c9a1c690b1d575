package models

// WireMessage 是上游 GET /rooms/{id}/messages 回傳的原始格式（大寫欄位）
type WireMessage struct {
	ID            string
	RoomID        string `json:"RoomID,omitempty"`
	Message       string
	ReactionCount int64
	Answered      bool
}

// ToMessage 轉換為內部的提問結構
func (w WireMessage) ToMessage() Message {
	return Message{
		ID:                w.ID,
		Text:              w.Message,
		AmountOfReactions: w.ReactionCount,
		Answered:          w.Answered,
	}
}

// WireAnswer 是上游 GET .../answer 回傳的原始格式
type WireAnswer struct {
	ID            string
	MessageId     string
	Answer        string
	ReactionCount int64
}

// ToAnswer 轉換為內部的回答結構
func (w WireAnswer) ToAnswer() Answer {
	return Answer{
		ID:                w.ID,
		Text:              w.Answer,
		AmountOfReactions: w.ReactionCount,
	}
}
