package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"ama_live/internal/events"
	"ama_live/internal/models"
	"ama_live/internal/repository"
	"ama_live/internal/storage"
)

// fakeUpstream 模擬上游 AMA 伺服器：快照、變更與 /subscribe/{room} 推送
type fakeUpstream struct {
	t   *testing.T
	srv *httptest.Server
	upg websocket.Upgrader

	mu        sync.Mutex
	messages  map[string][]models.WireMessage
	conns     map[string]map[*websocket.Conn]bool
	gate      chan struct{}
	failReact bool
	nextID    int

	snapshotCalls atomic.Int32
	connects      atomic.Int32
	reacts        atomic.Int32 // 成功的按讚請求
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	u := &fakeUpstream{
		t:        t,
		messages: make(map[string][]models.WireMessage),
		conns:    make(map[string]map[*websocket.Conn]bool),
		upg:      websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /subscribe/{room}", u.subscribe)
	mux.HandleFunc("GET /api/rooms/{room}/messages", u.getMessages)
	mux.HandleFunc("POST /api/rooms/{room}/messages", u.createMessage)
	mux.HandleFunc("PATCH /api/rooms/{room}/messages/{msg}/react", u.react)
	mux.HandleFunc("DELETE /api/rooms/{room}/messages/{msg}/react", u.react)
	u.srv = httptest.NewServer(mux)
	t.Cleanup(func() {
		u.DropConnections("")
		u.srv.Close()
	})
	return u
}

func (u *fakeUpstream) APIURL() string    { return u.srv.URL + "/api" }
func (u *fakeUpstream) StreamURL() string { return "ws" + strings.TrimPrefix(u.srv.URL, "http") }

// Seed 設定房間快照內容，不會推送事件
func (u *fakeUpstream) Seed(roomID string, msgs ...models.WireMessage) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.messages[roomID] = append(u.messages[roomID], msgs...)
}

// HoldSnapshots 讓快照請求阻塞直到回傳的函式被呼叫
func (u *fakeUpstream) HoldSnapshots() func() {
	gate := make(chan struct{})
	u.mu.Lock()
	u.gate = gate
	u.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (u *fakeUpstream) FailReactions(fail bool) {
	u.mu.Lock()
	u.failReact = fail
	u.mu.Unlock()
}

func (u *fakeUpstream) Subscribers(roomID string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.conns[roomID])
}

// Send 推送原始文字訊框給房間所有訂閱者
func (u *fakeUpstream) Send(roomID string, frame string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for c := range u.conns[roomID] {
		_ = c.WriteMessage(websocket.TextMessage, []byte(frame))
	}
}

func (u *fakeUpstream) Broadcast(roomID string, ev events.Event) {
	b, err := events.Encode(ev)
	require.NoError(u.t, err)
	u.Send(roomID, string(b))
}

// DropConnections 中斷房間（空字串為全部）的訂閱連線
func (u *fakeUpstream) DropConnections(roomID string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for room, conns := range u.conns {
		if roomID != "" && room != roomID {
			continue
		}
		for c := range conns {
			_ = c.Close()
		}
	}
}

func (u *fakeUpstream) subscribe(w http.ResponseWriter, r *http.Request) {
	room := r.PathValue("room")
	conn, err := u.upg.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	u.mu.Lock()
	if u.conns[room] == nil {
		u.conns[room] = make(map[*websocket.Conn]bool)
	}
	u.conns[room][conn] = true
	u.mu.Unlock()
	u.connects.Add(1)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	u.mu.Lock()
	delete(u.conns[room], conn)
	u.mu.Unlock()
	_ = conn.Close()
}

func (u *fakeUpstream) getMessages(w http.ResponseWriter, r *http.Request) {
	u.snapshotCalls.Add(1)
	u.mu.Lock()
	gate := u.gate
	u.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	u.mu.Lock()
	msgs := append([]models.WireMessage{}, u.messages[r.PathValue("room")]...)
	u.mu.Unlock()
	writeJSON(w, msgs)
}

func (u *fakeUpstream) createMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	room := r.PathValue("room")

	u.mu.Lock()
	u.nextID++
	id := fmt.Sprintf("srv-%d", u.nextID)
	u.messages[room] = append(u.messages[room], models.WireMessage{ID: id, Message: body.Message})
	u.mu.Unlock()

	writeJSON(w, map[string]string{"id": id})
	u.Broadcast(room, events.MessageCreated{ID: id, Message: body.Message})
}

func (u *fakeUpstream) react(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	fail := u.failReact
	u.mu.Unlock()
	if fail {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	u.reacts.Add(1)
	writeJSON(w, map[string]int64{"count": 1})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type testEnv struct {
	up    *fakeUpstream
	repos *repository.Repositories
	cache *storage.RoomCache
	sync  *SyncService
}

func newTestEnv(t *testing.T, reconnect bool) *testEnv {
	t.Helper()
	up := newFakeUpstream(t)
	repos := repository.NewRepositories(nil, up.APIURL())
	cache := storage.NewRoomCache()
	stream := NewStreamService(StreamOptions{
		BaseURL:          up.StreamURL(),
		HandshakeTimeout: time.Second,
		Reconnect:        reconnect,
		ReconnectMin:     10 * time.Millisecond,
		ReconnectMax:     50 * time.Millisecond,
	})
	svc := NewSyncService(cache, stream, repos.Message, SessionOptions{
		SnapshotTimeout: 2 * time.Second,
		PendingLimit:    16,
	})
	t.Cleanup(svc.Close)
	return &testEnv{up: up, repos: repos, cache: cache, sync: svc}
}

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func (e *testEnv) values(roomID string) []models.Message {
	st, ok := e.cache.Get(roomID)
	if !ok {
		return nil
	}
	return st.Values()
}
