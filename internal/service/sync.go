package service

import (
	"log/slog"
	"sync"

	"ama_live/internal/metrics"
	"ama_live/internal/repository"
	"ama_live/internal/storage"
)

// SyncService 管理所有正在檢視中的房間 session。
// 同一房間的多個檢視共用一個 session，最後一個離開時關閉串流並丟棄快取。
type SyncService struct {
	cache  *storage.RoomCache
	stream *StreamService
	loader repository.MessageRepository
	opts   SessionOptions

	mu        sync.Mutex
	sessions  map[string]*Session
	onRelease []func(roomID string)
}

func NewSyncService(cache *storage.RoomCache, stream *StreamService, loader repository.MessageRepository, opts SessionOptions) *SyncService {
	return &SyncService{
		cache:    cache,
		stream:   stream,
		loader:   loader,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Cache 回傳共用的房間快取
func (s *SyncService) Cache() *storage.RoomCache { return s.cache }

// OnRelease 註冊房間完全離開時的回呼
func (s *SyncService) OnRelease(fn func(roomID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRelease = append(s.onRelease, fn)
}

// Acquire 進入房間：沒有 session 時開啟串流
func (s *SyncService) Acquire(roomID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[roomID]; ok {
		sess.refs++
		return sess
	}

	sess := newSession(roomID, s.cache, s.loader, s.opts)
	sess.refs = 1
	sess.sub = s.stream.Open(roomID, sess)
	s.sessions[roomID] = sess
	metrics.ActiveSessions.Inc()
	slog.Info("room session opened", "room", roomID)
	return sess
}

// Release 離開房間。在 mu 之下關閉，避免與同房間的新 session 交錯。
func (s *SyncService) Release(sess *Session) {
	if sess == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.sessions[sess.roomID]
	if !ok || cur != sess {
		return
	}
	sess.refs--
	if sess.refs > 0 {
		return
	}
	delete(s.sessions, sess.roomID)
	sess.close()
	metrics.ActiveSessions.Dec()
	for _, fn := range s.onRelease {
		fn(sess.roomID)
	}
	slog.Info("room session closed", "room", sess.roomID)
}

// Session 取得房間目前的 session
func (s *SyncService) Session(roomID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[roomID]
	return sess, ok
}

// Close 關閉所有 session
func (s *SyncService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		delete(s.sessions, id)
		sess.close()
		metrics.ActiveSessions.Dec()
		for _, fn := range s.onRelease {
			fn(id)
		}
	}
}

// NewContext 建立一個檢視情境
func (s *SyncService) NewContext() *RoomContext {
	return &RoomContext{svc: s}
}

// RoomContext 代表一個「正在檢視某房間」的 UI 情境。
// 切換房間時先關閉舊的再開新的，不沿用舊房間的任何狀態。
type RoomContext struct {
	svc *SyncService

	mu      sync.Mutex
	current *Session
	closed  bool
}

// Switch 切換到 roomID；與目前房間相同時不做事
func (c *RoomContext) Switch(roomID string) (*Session, error) {
	if roomID == "" {
		return nil, ErrMissingRoom
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrSessionClosed
	}
	if c.current != nil && c.current.roomID == roomID {
		return c.current, nil
	}
	c.svc.Release(c.current)
	c.current = c.svc.Acquire(roomID)
	return c.current, nil
}

// Current 回傳目前的 session，尚未進入任何房間時為 nil
func (c *RoomContext) Current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Close 離開目前房間，可重複呼叫
func (c *RoomContext) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.svc.Release(c.current)
	c.current = nil
}
