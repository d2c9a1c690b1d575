package models

// Answer 代表某則提問的回答，只在進入提問詳情時載入，不經由事件串流更新
type Answer struct {
	ID                string `json:"id"`
	Text              string `json:"text"`
	AmountOfReactions int64  `json:"amountOfReactions"`
}
