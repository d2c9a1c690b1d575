package service

import (
	"sort"
	"sync"
)

// ReactionState 記錄本機使用者對哪些提問按過讚。
// 這是純粹的本地 UI 狀態，不屬於房間快取，也不會被事件校正。
type ReactionState struct {
	mu    sync.Mutex
	rooms map[string]map[string]bool
}

func NewReactionState() *ReactionState {
	return &ReactionState{rooms: make(map[string]map[string]bool)}
}

// Set 設定旗標並回傳先前的值
func (r *ReactionState) Set(roomID, messageID string, reacted bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	room := r.rooms[roomID]
	prev := room[messageID]
	if reacted {
		if room == nil {
			room = make(map[string]bool)
			r.rooms[roomID] = room
		}
		room[messageID] = true
	} else if room != nil {
		delete(room, messageID)
		if len(room) == 0 {
			delete(r.rooms, roomID)
		}
	}
	return prev
}

func (r *ReactionState) Has(roomID, messageID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rooms[roomID][messageID]
}

// Reacted 回傳房間中已按讚的提問 ID（已排序）
func (r *ReactionState) Reacted(roomID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.rooms[roomID]))
	for id := range r.rooms[roomID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Forget 離開房間時清除旗標
func (r *ReactionState) Forget(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, roomID)
}
