package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ama_live/internal/events"
	"ama_live/internal/metrics"
	"ama_live/internal/models"
	"ama_live/internal/reconciler"
	"ama_live/internal/repository"
	"ama_live/internal/storage"
)

var (
	ErrSessionClosed = errors.New("room session closed")
	ErrRoomNotActive = errors.New("room is not being viewed")
)

// SessionOptions 房間 session 的參數
type SessionOptions struct {
	SnapshotTimeout time.Duration
	PendingLimit    int
}

// Session 是一個正在檢視中的房間：一條事件串流加上快取中的一個項目。
//
// 快照載入前到達的事件放在 pending 緩衝區，快照落地後依序重播；
// 每次（重新）連線都會重新載入快照，因此不假設串流沒有缺口。
// 所有對快取的寫入都在 mu 之下進行，同一房間的事件嚴格依到達順序套用。
type Session struct {
	roomID string
	cache  *storage.RoomCache
	loader repository.MessageRepository
	opts   SessionOptions
	sub    *Subscription

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	gen        uint64
	loading    bool
	landed     bool
	everLoaded bool
	pending    []events.Event
	closed     bool
	err        error

	ready     chan struct{}
	readyOnce sync.Once

	refs int // 由 SyncService.mu 保護
}

func newSession(roomID string, cache *storage.RoomCache, loader repository.MessageRepository, opts SessionOptions) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		roomID: roomID,
		cache:  cache,
		loader: loader,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
		ready:  make(chan struct{}),
	}
}

// RoomID 回傳 session 的房間
func (s *Session) RoomID() string { return s.roomID }

// Ready 在第一次快照載入結束（成功或失敗）或 session 關閉時關閉
func (s *Session) Ready() <-chan struct{} { return s.ready }

// Err 回傳最近一次快照載入或連線的錯誤
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Messages 讀取快取中的房間狀態
func (s *Session) Messages() (*models.RoomMessages, bool) {
	return s.cache.Get(s.roomID)
}

// Wait 等待第一次快照載入結束
func (s *Session) Wait(ctx context.Context) (*models.RoomMessages, error) {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if st, ok := s.Messages(); ok {
		return st, nil
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return nil, ErrSessionClosed
}

// Reload 手動重新載入快照，例如第一次載入失敗之後
func (s *Session) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.startLoad()
}

// Mutate 在已有快照時以 fn 改寫房間狀態，與事件套用互斥
func (s *Session) Mutate(fn func(*models.RoomMessages) *models.RoomMessages) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.everLoaded {
		return false
	}
	s.cache.Update(s.roomID, func(cur *models.RoomMessages) *models.RoomMessages {
		if cur == nil {
			return nil
		}
		return fn(cur)
	})
	return true
}

// HandleConnect 每次連線成功後重新同步：快照在連線之後讀取，之後的事件都會被收到
func (s *Session) HandleConnect(reconnect bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if reconnect {
		slog.Info("resyncing room after reconnect", "room", s.roomID)
	}
	s.startLoad()
}

// HandleEvent 套用事件；快照尚未落地時先緩衝
func (s *Session) HandleEvent(ev events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if !s.landed {
		if s.opts.PendingLimit > 0 && len(s.pending) >= s.opts.PendingLimit {
			slog.Warn("pending buffer full, dropping oldest event", "room", s.roomID, "limit", s.opts.PendingLimit)
			metrics.FramesDropped.WithLabelValues("buffer_overflow").Inc()
			s.pending = append(s.pending[:0], s.pending[1:]...)
		}
		s.pending = append(s.pending, ev)
		metrics.EventsBuffered.Inc()
		return
	}

	s.cache.Update(s.roomID, func(cur *models.RoomMessages) *models.RoomMessages {
		return reconciler.Apply(cur, ev)
	})
	metrics.EventsApplied.WithLabelValues(string(ev.Kind())).Inc()
	slog.Debug("event applied", "room", s.roomID, "kind", ev.Kind(), "id", ev.MessageID())
}

// HandleDisconnect 記錄錯誤；若還沒有任何快照，仍然載入一次讓畫面有資料
func (s *Session) HandleDisconnect(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.err = err
	if !s.everLoaded && !s.loading {
		s.startLoad()
	}
}

// startLoad 開始新一代的快照載入，必須持有 mu
func (s *Session) startLoad() {
	s.gen++
	s.loading = true
	s.landed = false
	s.pending = nil
	go s.load(s.gen)
}

func (s *Session) load(gen uint64) {
	ctx := s.ctx
	if s.opts.SnapshotTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.SnapshotTimeout)
		defer cancel()
	}
	msgs, err := s.loader.FindByRoomID(ctx, s.roomID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.gen {
		return
	}
	s.loading = false

	if err != nil {
		metrics.SnapshotLoads.WithLabelValues("error").Inc()
		s.err = fmt.Errorf("failed to load room %s: %w", s.roomID, err)
		slog.Error("snapshot load failed", "room", s.roomID, "err", err)
		if s.everLoaded {
			// 保留舊的狀態繼續套用事件
			s.landed = true
			s.replayLocked(nil)
		}
		s.markReady()
		return
	}

	s.replayLocked(reconciler.FromSnapshot(msgs))
	s.landed = true
	s.everLoaded = true
	s.err = nil
	metrics.SnapshotLoads.WithLabelValues("ok").Inc()
	slog.Info("snapshot loaded", "room", s.roomID, "messages", len(msgs))
	s.markReady()
}

// replayLocked 把緩衝的事件套用到 snapshot（nil 時套用到目前的快取）並寫回
func (s *Session) replayLocked(snapshot *models.RoomMessages) {
	pending := s.pending
	s.pending = nil
	s.cache.Update(s.roomID, func(cur *models.RoomMessages) *models.RoomMessages {
		base := cur
		if snapshot != nil {
			base = reconciler.CarryPending(cur, snapshot)
		}
		return reconciler.ApplyAll(base, pending...)
	})
	for _, ev := range pending {
		metrics.EventsApplied.WithLabelValues(string(ev.Kind())).Inc()
	}
}

func (s *Session) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// close 關閉串流後丟棄快取項目；之後不會再有任何寫入
func (s *Session) close() {
	if s.sub != nil {
		s.sub.Close()
	}
	s.mu.Lock()
	s.closed = true
	s.pending = nil
	s.cancel()
	s.mu.Unlock()

	s.cache.Delete(s.roomID)
	s.markReady()
}
