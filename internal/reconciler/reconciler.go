// Package reconciler 將事件與本地樂觀操作折疊進房間快取。
//
// 所有函式都是純函式：輸入的 *models.RoomMessages 不會被修改，
// 有變更時回傳新的值，未受影響的提問沿用原本的指標；
// 沒有變更時回傳同一個指標。
package reconciler

import (
	"ama_live/internal/events"
	"ama_live/internal/models"
)

// Apply 將單一事件套用到目前的房間狀態。
// state 為 nil（快照尚未載入）時事件被捨棄，回傳 nil。
func Apply(state *models.RoomMessages, ev events.Event) *models.RoomMessages {
	if state == nil || ev == nil {
		return state
	}
	f := &folder{state: state}
	ev.Accept(f)
	return f.state
}

// ApplyAll 依序套用多個事件
func ApplyAll(state *models.RoomMessages, evs ...events.Event) *models.RoomMessages {
	for _, ev := range evs {
		state = Apply(state, ev)
	}
	return state
}

// ApplyFrame 解碼並套用一個文字訊框。無法解碼時回傳原狀態與錯誤。
func ApplyFrame(state *models.RoomMessages, frame []byte) (*models.RoomMessages, error) {
	ev, err := events.Decode(frame)
	if err != nil {
		return state, err
	}
	return Apply(state, ev), nil
}

// folder 以 Visitor 實作各事件的套用規則
type folder struct {
	state *models.RoomMessages
}

func (f *folder) VisitMessageCreated(e events.MessageCreated) {
	if f.state.IndexOf(e.ID) >= 0 {
		return
	}
	// pending 的提問只由 ConfirmPending 依伺服器 ID 處理，不以內容比對
	f.state = appendMessage(f.state, models.NewMessage(e.ID, e.Message))
}

func (f *folder) VisitMessageAnswered(e events.MessageAnswered) {
	f.update(e.ID, func(m *models.Message) *models.Message {
		if m.Answered {
			return m
		}
		return m.WithAnswered()
	})
}

func (f *folder) VisitMessageReactionIncreased(e events.MessageReactionIncreased) {
	f.setReactions(e.ID, e.Count)
}

func (f *folder) VisitMessageReactionDecreased(e events.MessageReactionDecreased) {
	f.setReactions(e.ID, e.Count)
}

func (f *folder) setReactions(id string, count int64) {
	f.update(id, func(m *models.Message) *models.Message {
		if m.AmountOfReactions == count {
			return m
		}
		return m.WithReactions(count)
	})
}

func (f *folder) update(id string, fn func(*models.Message) *models.Message) {
	i := f.state.IndexOf(id)
	if i < 0 {
		return
	}
	next := fn(f.state.Messages[i])
	if next == f.state.Messages[i] {
		return
	}
	f.state = replaceAt(f.state, i, next)
}

func appendMessage(state *models.RoomMessages, m *models.Message) *models.RoomMessages {
	msgs := make([]*models.Message, len(state.Messages), len(state.Messages)+1)
	copy(msgs, state.Messages)
	return &models.RoomMessages{Messages: append(msgs, m)}
}

func replaceAt(state *models.RoomMessages, i int, m *models.Message) *models.RoomMessages {
	msgs := make([]*models.Message, len(state.Messages))
	copy(msgs, state.Messages)
	msgs[i] = m
	return &models.RoomMessages{Messages: msgs}
}

func removeAt(state *models.RoomMessages, i int) *models.RoomMessages {
	msgs := make([]*models.Message, 0, len(state.Messages)-1)
	msgs = append(msgs, state.Messages[:i]...)
	msgs = append(msgs, state.Messages[i+1:]...)
	return &models.RoomMessages{Messages: msgs}
}
