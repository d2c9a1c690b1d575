package reconciler

import "ama_live/internal/models"

// AddPending 加入一則本地樂觀建立的提問
func AddPending(state *models.RoomMessages, localID, text string) *models.RoomMessages {
	if state == nil || state.IndexOf(localID) >= 0 {
		return state
	}
	return appendMessage(state, &models.Message{ID: localID, Text: text, Pending: true})
}

// ConfirmPending 以伺服器核發的 ID 取代本地 ID。
// 若 message_created 事件已先到達，直接移除本地那一筆。
func ConfirmPending(state *models.RoomMessages, localID, serverID string) *models.RoomMessages {
	i := state.IndexOf(localID)
	if i < 0 {
		return state
	}
	if state.IndexOf(serverID) >= 0 {
		return removeAt(state, i)
	}
	m := *state.Messages[i]
	m.ID = serverID
	m.Pending = false
	return replaceAt(state, i, &m)
}

// DropPending 移除送出失敗的本地提問
func DropPending(state *models.RoomMessages, localID string) *models.RoomMessages {
	i := state.IndexOf(localID)
	if i < 0 || !state.Messages[i].Pending {
		return state
	}
	return removeAt(state, i)
}
