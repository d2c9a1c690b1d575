package models

// RoomMessages 是房間快取中的單一項目：依建立順序排列的提問。
//
// 已發佈的 RoomMessages（以及其中的 *Message）視為不可變，
// 任何變更都會產生新的值，未變動的提問沿用同一個指標。
type RoomMessages struct {
	Messages []*Message `json:"messages"`
}

// Len 回傳提問數量，nil 視為空
func (r *RoomMessages) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Messages)
}

// IndexOf 以線性掃描找出提問位置，找不到時回傳 -1
func (r *RoomMessages) IndexOf(id string) int {
	if r == nil {
		return -1
	}
	for i, m := range r.Messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// Find 依 ID 取得提問
func (r *RoomMessages) Find(id string) (*Message, bool) {
	i := r.IndexOf(id)
	if i < 0 {
		return nil, false
	}
	return r.Messages[i], true
}

// Values 回傳提問的值副本，供序列化或比較使用
func (r *RoomMessages) Values() []Message {
	if r == nil {
		return []Message{}
	}
	out := make([]Message, 0, len(r.Messages))
	for _, m := range r.Messages {
		out = append(out, *m)
	}
	return out
}
