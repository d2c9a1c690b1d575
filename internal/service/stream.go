package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"ama_live/internal/events"
	"ama_live/internal/metrics"
	"ama_live/internal/utils"
)

// StreamHandler 接收單一訂閱的連線狀態與事件。
// 所有方法都在訂閱的背景 goroutine 中依序呼叫，不可在其中呼叫 Subscription.Close。
type StreamHandler interface {
	// HandleConnect 在每次成功建立連線後呼叫，reconnect 表示這不是第一次連線
	HandleConnect(reconnect bool)
	HandleEvent(ev events.Event)
	// HandleDisconnect 在連線失敗或中斷時呼叫
	HandleDisconnect(err error)
}

// StreamOptions 事件串流的連線參數
type StreamOptions struct {
	BaseURL          string
	HandshakeTimeout time.Duration
	PongWait         time.Duration
	PingPeriod       time.Duration
	WriteWait        time.Duration
	ReadLimit        int64 // 0 表示不限制訊框大小
	Reconnect        bool
	ReconnectMin     time.Duration
	ReconnectMax     time.Duration
}

func (o *StreamOptions) withDefaults() {
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.ReconnectMin <= 0 {
		o.ReconnectMin = time.Second
	}
	if o.ReconnectMax < o.ReconnectMin {
		o.ReconnectMax = o.ReconnectMin
	}
}

// StreamService 為每個房間開啟 /subscribe/{roomID} 的 WebSocket 訂閱
type StreamService struct {
	opts   StreamOptions
	dialer *websocket.Dialer
}

// NewStreamService 創建事件串流服務
func NewStreamService(opts StreamOptions) *StreamService {
	opts.withDefaults()
	return &StreamService{
		opts: opts,
		dialer: &websocket.Dialer{
			HandshakeTimeout: opts.HandshakeTimeout,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
	}
}

// Open 開啟房間的訂閱並立即回傳，連線在背景建立。
func (s *StreamService) Open(roomID string, handler StreamHandler) *Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &Subscription{
		roomID:  roomID,
		svc:     s,
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	u, err := utils.JoinURL(s.opts.BaseURL, "subscribe", roomID)
	if err != nil {
		sub.err = err
		close(sub.done)
		return sub
	}
	sub.url = u

	go sub.run()
	return sub
}

// Subscription 是單一房間的訂閱控制代碼
type Subscription struct {
	roomID  string
	url     string
	svc     *StreamService
	handler StreamHandler

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// deliverMu 保護 closed，並讓 Close 等待進行中的事件處理結束
	deliverMu sync.Mutex
	closed    bool

	connMu sync.Mutex
	conn   *websocket.Conn
	err    error

	closeOnce sync.Once
}

// RoomID 回傳訂閱的房間
func (s *Subscription) RoomID() string { return s.roomID }

// Done 在背景 goroutine 結束時關閉
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err 回傳最近一次的連線錯誤
func (s *Subscription) Err() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.err
}

// Close 終止訂閱。可重複呼叫，連線從未建立時也安全；
// 回傳後 handler 不會再被呼叫。
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.deliverMu.Lock()
		s.closed = true
		s.deliverMu.Unlock()

		s.cancel()

		s.connMu.Lock()
		if s.conn != nil {
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(s.svc.opts.WriteWait))
			_ = s.conn.Close()
		}
		s.connMu.Unlock()
	})
	<-s.done
}

func (s *Subscription) run() {
	defer close(s.done)
	opts := s.svc.opts

	// burst 為 1：第一次撥號立即進行，之後每次至少間隔 1/limit
	limiter := rate.NewLimiter(rate.Every(opts.ReconnectMin), 1)
	floor := rate.Every(opts.ReconnectMax)
	connected := false

	for {
		if err := limiter.Wait(s.ctx); err != nil {
			return
		}

		conn, _, err := s.svc.dialer.DialContext(s.ctx, s.url, nil)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			err = fmt.Errorf("failed to dial %s: %w", s.url, err)
			slog.Warn("stream dial failed", "room", s.roomID, "err", err)
			s.setErr(err)
			s.deliver(func() { s.handler.HandleDisconnect(err) })
			if !opts.Reconnect {
				return
			}
			// 連續失敗時把速率減半，直到 ReconnectMax
			if next := limiter.Limit() / 2; next > floor {
				limiter.SetLimit(next)
			} else {
				limiter.SetLimit(floor)
			}
			continue
		}

		if !s.setConn(conn) {
			_ = conn.Close()
			return
		}
		limiter.SetLimit(rate.Every(opts.ReconnectMin))

		reconnect := connected
		connected = true
		if reconnect {
			metrics.Reconnects.Inc()
		}
		slog.Info("stream connected", "room", s.roomID, "reconnect", reconnect)
		if !s.deliver(func() { s.handler.HandleConnect(reconnect) }) {
			return
		}

		err = s.serve(conn)
		s.clearConn()
		if s.ctx.Err() != nil {
			return
		}
		slog.Warn("stream dropped", "room", s.roomID, "err", err)
		s.setErr(err)
		s.deliver(func() { s.handler.HandleDisconnect(err) })
		if !opts.Reconnect {
			return
		}
	}
}

// serve 執行讀取迴圈直到連線中斷，寫入端只負責心跳
func (s *Subscription) serve(conn *websocket.Conn) error {
	opts := s.svc.opts
	defer conn.Close()

	if opts.ReadLimit > 0 {
		conn.SetReadLimit(opts.ReadLimit)
	}
	_ = conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	})

	stop := make(chan struct{})
	defer close(stop)
	go s.pingPump(conn, stop)

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return errors.New("stream closed by server")
			}
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(opts.PongWait))
		if mt != websocket.TextMessage {
			continue
		}

		ev, err := events.Decode(data)
		if err != nil {
			// 無法解析的訊框直接丟棄，連線繼續
			metrics.FramesDropped.WithLabelValues(events.DropReason(err)).Inc()
			slog.Warn("dropping stream frame", "room", s.roomID, "err", err)
			continue
		}
		if !s.deliver(func() { s.handler.HandleEvent(ev) }) {
			return nil
		}
	}
}

func (s *Subscription) pingPump(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(s.svc.opts.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.svc.opts.WriteWait)); err != nil {
				_ = conn.Close()
				return
			}
		case <-stop:
			return
		}
	}
}

// deliver 在訂閱未關閉時執行 fn，回傳是否已執行
func (s *Subscription) deliver(fn func()) bool {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if s.closed {
		return false
	}
	fn()
	return true
}

func (s *Subscription) setConn(conn *websocket.Conn) bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.ctx.Err() != nil {
		return false
	}
	s.conn = conn
	return true
}

func (s *Subscription) clearConn() {
	s.connMu.Lock()
	s.conn = nil
	s.connMu.Unlock()
}

func (s *Subscription) setErr(err error) {
	s.connMu.Lock()
	s.err = err
	s.connMu.Unlock()
}
