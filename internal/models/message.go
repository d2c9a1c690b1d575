package models

// Message 代表房間中的一則提問
type Message struct {
	ID                string `json:"id"`
	Text              string `json:"text"`
	AmountOfReactions int64  `json:"amountOfReactions"`
	Answered          bool   `json:"answered"`
	// Pending 表示本地樂觀建立、尚未被伺服器確認的提問
	Pending bool `json:"pending,omitempty"`
}

// NewMessage 創建一則由事件或快照產生的提問
func NewMessage(id, text string) *Message {
	return &Message{ID: id, Text: text}
}

// WithAnswered 回傳標記為已回答的副本
func (m *Message) WithAnswered() *Message {
	c := *m
	c.Answered = true
	return &c
}

// WithReactions 回傳反應數被覆寫的副本
func (m *Message) WithReactions(count int64) *Message {
	c := *m
	if count < 0 {
		count = 0
	}
	c.AmountOfReactions = count
	return &c
}
