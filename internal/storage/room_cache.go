package storage

import (
	"sync"
	"sync/atomic"

	"ama_live/internal/models"
)

// RoomCache 以房間 ID 為鍵保存提問的物化視圖。
//
// 讀取是對整個值的原子載入，不會讀到更新到一半的序列；
// 寫入一律是整個值的替換。同一房間的 Update 依序執行，
// 不同房間互不阻塞。
type RoomCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	writeMu  sync.Mutex
	state    atomic.Pointer[models.RoomMessages]
	watchMu  sync.Mutex
	watchers map[*watcher]struct{}
}

type watcher struct {
	ch chan *models.RoomMessages
}

// NewRoomCache 創建空的房間快取
func NewRoomCache() *RoomCache {
	return &RoomCache{entries: make(map[string]*entry)}
}

// Get 取得房間目前的提問序列，快照尚未載入時回傳 false
func (c *RoomCache) Get(roomID string) (*models.RoomMessages, bool) {
	e := c.lookup(roomID)
	if e == nil {
		return nil, false
	}
	s := e.state.Load()
	return s, s != nil
}

// Set 以新值取代整個房間項目，state 為 nil 時等同清空
func (c *RoomCache) Set(roomID string, state *models.RoomMessages) {
	e := c.entry(roomID)
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	e.publish(state)
}

// Update 以 fn 讀取並改寫房間項目，fn 必須是純函式。
// fn 回傳與輸入相同的指標時不發佈變更。
func (c *RoomCache) Update(roomID string, fn func(*models.RoomMessages) *models.RoomMessages) *models.RoomMessages {
	e := c.entry(roomID)
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	cur := e.state.Load()
	next := fn(cur)
	if next != cur {
		e.publish(next)
	}
	return next
}

// Delete 丟棄房間項目，並關閉所有觀察者的通道
func (c *RoomCache) Delete(roomID string) {
	c.mu.Lock()
	e, ok := c.entries[roomID]
	delete(c.entries, roomID)
	c.mu.Unlock()
	if !ok {
		return
	}

	e.writeMu.Lock()
	e.state.Store(nil)
	e.writeMu.Unlock()

	e.watchMu.Lock()
	for w := range e.watchers {
		close(w.ch)
	}
	e.watchers = nil
	e.watchMu.Unlock()
}

// Rooms 回傳目前有項目的房間 ID
func (c *RoomCache) Rooms() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.entries))
	for id, e := range c.entries {
		if e.state.Load() != nil {
			out = append(out, id)
		}
	}
	return out
}

// Watch 訂閱房間項目的變更。通道只保留最新的值，
// 慢的讀者會跳過中間狀態。房間被 Delete 時通道關閉。
func (c *RoomCache) Watch(roomID string) (<-chan *models.RoomMessages, func()) {
	e := c.entry(roomID)
	w := &watcher{ch: make(chan *models.RoomMessages, 1)}

	e.watchMu.Lock()
	if e.watchers == nil {
		e.watchers = make(map[*watcher]struct{})
	}
	e.watchers[w] = struct{}{}
	if s := e.state.Load(); s != nil {
		w.ch <- s
	}
	e.watchMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			e.watchMu.Lock()
			defer e.watchMu.Unlock()
			if _, ok := e.watchers[w]; ok {
				delete(e.watchers, w)
				close(w.ch)
			}
		})
	}
	return w.ch, cancel
}

func (c *RoomCache) lookup(roomID string) *entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[roomID]
}

func (c *RoomCache) entry(roomID string) *entry {
	if e := c.lookup(roomID); e != nil {
		return e
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[roomID]; ok {
		return e
	}
	e := &entry{}
	c.entries[roomID] = e
	return e
}

// publish 必須在持有 writeMu 時呼叫
func (e *entry) publish(state *models.RoomMessages) {
	e.state.Store(state)
	if state == nil {
		return
	}

	e.watchMu.Lock()
	defer e.watchMu.Unlock()
	for w := range e.watchers {
		select {
		case <-w.ch:
		default:
		}
		w.ch <- state
	}
}
