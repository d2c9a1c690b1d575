package reconciler

import "ama_live/internal/models"

// FromSnapshot 由快照建立房間狀態，重複的 ID 只保留第一筆
func FromSnapshot(msgs []models.Message) *models.RoomMessages {
	out := &models.RoomMessages{Messages: make([]*models.Message, 0, len(msgs))}
	seen := make(map[string]struct{}, len(msgs))
	for i := range msgs {
		if _, ok := seen[msgs[i].ID]; ok {
			continue
		}
		seen[msgs[i].ID] = struct{}{}
		m := msgs[i]
		m.Pending = false
		out.Messages = append(out.Messages, &m)
	}
	return out
}

// CarryPending 把 prev 中尚未確認的本地提問接到新快照的尾端。
// 快照裡即使有相同內容的提問也照樣保留，等 ConfirmPending 以伺服器 ID 收尾。
func CarryPending(prev, next *models.RoomMessages) *models.RoomMessages {
	if prev == nil || next == nil {
		return next
	}
	out := next
	for _, m := range prev.Messages {
		if m.Pending && out.IndexOf(m.ID) < 0 {
			out = appendMessage(out, m)
		}
	}
	return out
}
