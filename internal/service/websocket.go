package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"ama_live/internal/models"
)

// 檢視者訊框種類
const (
	FrameLoading  = "loading"
	FrameSnapshot = "snapshot"
	FrameNotice   = "notice"
	FrameError    = "error"
)

// ViewFrame 是推送給本地檢視者的訊框
type ViewFrame struct {
	Type     string           `json:"type"`
	RoomID   string           `json:"room_id,omitempty"`
	Messages []models.Message `json:"messages,omitempty"`
	Reacted  []string         `json:"reacted,omitempty"`
	Content  string           `json:"content,omitempty"`
}

// ViewAction 是檢視者送來的操作
type ViewAction struct {
	Action    string `json:"action"` // switch / react / unreact
	RoomID    string `json:"room_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

// Reactor 是檢視者可以觸發的按讚操作
type Reactor interface {
	React(ctx context.Context, roomID, messageID string) error
	RemoveReaction(ctx context.Context, roomID, messageID string) error
	Reacted(roomID string) []string
}

// ViewOptions 檢視者連線參數
type ViewOptions struct {
	PongWait   time.Duration
	PingPeriod time.Duration
	WriteWait  time.Duration
	ReadLimit  int64
}

// Client 代表一個本地檢視者的 WebSocket 連接
type Client struct {
	ID       string
	Conn     *websocket.Conn
	Context  *RoomContext
	SendChan chan *ViewFrame // 消息發送通道，用於異步傳送消息

	done chan struct{}

	mu          sync.Mutex
	roomID      string
	cancelWatch func()
}

// ViewHub 管理所有本地檢視者，一個連線就是一個檢視情境
type ViewHub struct {
	sync    *SyncService
	reactor Reactor
	opts    ViewOptions

	clients    map[string]map[*Client]bool // roomID -> client -> bool
	all        map[*Client]bool
	clientsMux sync.RWMutex
}

// NewViewHub 創建檢視者中心
func NewViewHub(sync *SyncService, opts ViewOptions) *ViewHub {
	if opts.PongWait <= 0 {
		opts.PongWait = 60 * time.Second
	}
	if opts.PingPeriod <= 0 || opts.PingPeriod >= opts.PongWait {
		opts.PingPeriod = opts.PongWait * 9 / 10
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = 10 * time.Second
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = 4096
	}
	return &ViewHub{
		sync:    sync,
		opts:    opts,
		clients: make(map[string]map[*Client]bool),
		all:     make(map[*Client]bool),
	}
}

// SetReactor 設定按讚操作的處理者
func (h *ViewHub) SetReactor(r Reactor) { h.reactor = r }

// HandleConnection 處理新的檢視者連線，直到連線結束才返回
func (h *ViewHub) HandleConnection(conn *websocket.Conn, roomID string) {
	client := &Client{
		ID:       uuid.NewString(),
		Conn:     conn,
		Context:  h.sync.NewContext(),
		SendChan: make(chan *ViewFrame, 64),
		done:     make(chan struct{}),
	}
	slog.Info("viewer connected", "viewer", client.ID, "room", roomID)

	h.clientsMux.Lock()
	h.all[client] = true
	h.clientsMux.Unlock()

	defer func() {
		close(client.done)
		h.detach(client)
		h.clientsMux.Lock()
		delete(h.all, client)
		h.clientsMux.Unlock()
		client.Context.Close()
		conn.Close()
		slog.Info("viewer disconnected", "viewer", client.ID)
	}()

	go h.writePump(client)

	if roomID != "" {
		h.switchRoom(client, roomID)
	}
	h.readPump(client)
}

// readPump 持續監聽並處理檢視者送來的操作
func (h *ViewHub) readPump(client *Client) {
	client.Conn.SetReadLimit(h.opts.ReadLimit)
	_ = client.Conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	})

	for {
		_, data, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("viewer unexpected close", "viewer", client.ID, "err", err)
			}
			return
		}

		var action ViewAction
		if err := json.Unmarshal(data, &action); err != nil {
			h.send(client, &ViewFrame{Type: FrameError, Content: "invalid action"})
			continue
		}
		h.handleAction(client, action)
	}
}

func (h *ViewHub) handleAction(client *Client, action ViewAction) {
	switch action.Action {
	case "switch":
		if action.RoomID == "" {
			h.send(client, &ViewFrame{Type: FrameError, Content: ErrMissingRoom.Error()})
			return
		}
		h.switchRoom(client, action.RoomID)
	case "react", "unreact":
		roomID := client.currentRoom()
		if roomID == "" || h.reactor == nil {
			h.send(client, &ViewFrame{Type: FrameError, Content: ErrMissingRoom.Error()})
			return
		}
		ctx := context.Background()
		var err error
		if action.Action == "react" {
			err = h.reactor.React(ctx, roomID, action.MessageID)
		} else {
			err = h.reactor.RemoveReaction(ctx, roomID, action.MessageID)
		}
		if err != nil {
			h.send(client, &ViewFrame{Type: FrameError, RoomID: roomID, Content: err.Error()})
		}
	default:
		h.send(client, &ViewFrame{Type: FrameError, Content: "unknown action " + action.Action})
	}
}

// switchRoom 關閉舊房間的觀察，進入新房間並開始推送快照
func (h *ViewHub) switchRoom(client *Client, roomID string) {
	sess, err := client.Context.Switch(roomID)
	if err != nil {
		h.send(client, &ViewFrame{Type: FrameError, Content: err.Error()})
		return
	}

	client.mu.Lock()
	prevRoom := client.roomID
	if client.cancelWatch != nil {
		client.cancelWatch()
	}
	ch, cancel := h.sync.Cache().Watch(roomID)
	client.roomID = roomID
	client.cancelWatch = cancel
	client.mu.Unlock()

	h.clientsMux.Lock()
	if prevRoom != "" {
		h.removeLocked(prevRoom, client)
	}
	if h.clients[roomID] == nil {
		h.clients[roomID] = make(map[*Client]bool)
	}
	h.clients[roomID][client] = true
	h.clientsMux.Unlock()

	if _, ok := sess.Messages(); !ok {
		h.send(client, &ViewFrame{Type: FrameLoading, RoomID: roomID})
	}
	go h.watchPump(client, sess, ch)
}

// watchPump 把快取變更轉成快照訊框，直到觀察被取消或房間被丟棄
func (h *ViewHub) watchPump(client *Client, sess *Session, ch <-chan *models.RoomMessages) {
	roomID := sess.RoomID()
	go func() {
		select {
		case <-sess.Ready():
			if _, ok := sess.Messages(); !ok {
				if err := sess.Err(); err != nil {
					h.send(client, &ViewFrame{Type: FrameError, RoomID: roomID, Content: err.Error()})
				}
			}
		case <-client.done:
		}
	}()

	for {
		select {
		case st, ok := <-ch:
			if !ok {
				return
			}
			h.send(client, h.snapshotFrame(roomID, st))
		case <-client.done:
			return
		}
	}
}

func (h *ViewHub) snapshotFrame(roomID string, st *models.RoomMessages) *ViewFrame {
	f := &ViewFrame{Type: FrameSnapshot, RoomID: roomID, Messages: st.Values()}
	if h.reactor != nil {
		f.Reacted = h.reactor.Reacted(roomID)
	}
	return f
}

// writePump 處理向檢視者發送消息的邏輯
func (h *ViewHub) writePump(client *Client) {
	// 設置心跳檢查計時器
	ticker := time.NewTicker(h.opts.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-client.SendChan:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(h.opts.WriteWait))
			if err := client.Conn.WriteJSON(frame); err != nil {
				slog.Warn("viewer write failed", "viewer", client.ID, "err", err)
				client.Conn.Close()
				return
			}
		case <-ticker.C:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(h.opts.WriteWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				client.Conn.Close()
				return
			}
		case <-client.done:
			_ = client.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(h.opts.WriteWait))
			return
		}
	}
}

// send 把訊框放進發送隊列，隊列已滿時關閉連線
func (h *ViewHub) send(client *Client, frame *ViewFrame) {
	select {
	case client.SendChan <- frame:
	case <-client.done:
	default:
		// 檢視者跟不上，關閉連線讓它重新連線取得最新狀態
		slog.Warn("viewer send queue full, closing", "viewer", client.ID)
		client.Conn.Close()
	}
}

// BroadcastToRoom 向房間內的所有檢視者廣播訊框
func (h *ViewHub) BroadcastToRoom(roomID string, frame *ViewFrame) {
	h.clientsMux.RLock()
	clients := make([]*Client, 0, len(h.clients[roomID]))
	for c := range h.clients[roomID] {
		clients = append(clients, c)
	}
	h.clientsMux.RUnlock()

	for _, c := range clients {
		h.send(c, frame)
	}
}

// Notify 發送提示訊息到房間
func (h *ViewHub) Notify(roomID, content string) {
	h.BroadcastToRoom(roomID, &ViewFrame{Type: FrameNotice, RoomID: roomID, Content: content})
}

// Refresh 重新推送房間目前的快照（本地按讚旗標改變時）
func (h *ViewHub) Refresh(roomID string) {
	st, ok := h.sync.Cache().Get(roomID)
	if !ok {
		return
	}
	h.BroadcastToRoom(roomID, h.snapshotFrame(roomID, st))
}

// GetRoomClients 獲取指定房間的檢視者數量
func (h *ViewHub) GetRoomClients(roomID string) int {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	return len(h.clients[roomID])
}

// Close 中斷所有檢視者連線，HandleConnection 會各自清理
func (h *ViewHub) Close() {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	for c := range h.all {
		c.Conn.Close()
	}
}

func (h *ViewHub) detach(client *Client) {
	client.mu.Lock()
	roomID := client.roomID
	if client.cancelWatch != nil {
		client.cancelWatch()
		client.cancelWatch = nil
	}
	client.roomID = ""
	client.mu.Unlock()

	if roomID == "" {
		return
	}
	h.clientsMux.Lock()
	h.removeLocked(roomID, client)
	h.clientsMux.Unlock()
}

func (h *ViewHub) removeLocked(roomID string, client *Client) {
	if clients, ok := h.clients[roomID]; ok {
		delete(clients, client)
		// 如果房間空了，刪除房間
		if len(clients) == 0 {
			delete(h.clients, roomID)
		}
	}
}

func (c *Client) currentRoom() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}
