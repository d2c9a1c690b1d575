package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"ama_live/internal/metrics"
	"ama_live/internal/models"
	"ama_live/internal/reconciler"
	"ama_live/internal/repository"
)

var (
	ErrMissingRoom    = errors.New("room id is required")
	ErrMissingMessage = errors.New("message id is required")
	ErrEmptyText      = errors.New("text is required")
)

// Notifier 把狀態通知推給本地檢視者（相當於畫面上的提示訊息）
type Notifier interface {
	Notify(roomID, content string)
	Refresh(roomID string)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string) {}
func (nopNotifier) Refresh(string)        {}

// RoomService 處理使用者發起的操作：建立房間、提問、按讚、回答。
// 網路失敗時回傳錯誤並保持本地狀態不變。
type RoomService struct {
	repos     *repository.Repositories
	sync      *SyncService
	reactions *ReactionState
	notifier  Notifier
	timeout   time.Duration
}

func NewRoomService(repos *repository.Repositories, sync *SyncService, reactions *ReactionState, timeout time.Duration) *RoomService {
	return &RoomService{
		repos:     repos,
		sync:      sync,
		reactions: reactions,
		notifier:  nopNotifier{},
		timeout:   timeout,
	}
}

// SetNotifier 設定失敗通知的接收者
func (s *RoomService) SetNotifier(n Notifier) {
	if n == nil {
		n = nopNotifier{}
	}
	s.notifier = n
}

func (s *RoomService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *RoomService) fail(op, roomID, content string, err error) error {
	metrics.MutationErrors.WithLabelValues(op).Inc()
	slog.Error("mutation failed", "op", op, "room", roomID, "err", err)
	if roomID != "" {
		s.notifier.Notify(roomID, content)
	}
	return err
}

// CreateRoom 建立房間並回傳 ID
func (s *RoomService) CreateRoom(ctx context.Context, theme string) (string, error) {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return "", ErrEmptyText
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	id, err := s.repos.Room.Create(ctx, theme)
	if err != nil {
		return "", s.fail("create_room", "", "", err)
	}
	return id, nil
}

// GetMessages 房間在檢視中時讀取快取，否則直接載入快照（不寫入快取）
func (s *RoomService) GetMessages(ctx context.Context, roomID string) (*models.RoomMessages, error) {
	if roomID == "" {
		return nil, ErrMissingRoom
	}
	if st, ok := s.sync.Cache().Get(roomID); ok {
		return st, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	msgs, err := s.repos.Message.FindByRoomID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return reconciler.FromSnapshot(msgs), nil
}

// SubmitMessage 送出提問。房間在檢視中時先以 pending 形式樂觀地出現在快取中。
func (s *RoomService) SubmitMessage(ctx context.Context, roomID, text string) (string, error) {
	if roomID == "" {
		return "", ErrMissingRoom
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}

	sess, active := s.sync.Session(roomID)
	localID := "local-" + uuid.NewString()
	optimistic := active && sess.Mutate(func(st *models.RoomMessages) *models.RoomMessages {
		return reconciler.AddPending(st, localID, text)
	})

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	id, err := s.repos.Message.Create(ctx, roomID, text)
	if err != nil {
		if optimistic {
			sess.Mutate(func(st *models.RoomMessages) *models.RoomMessages {
				return reconciler.DropPending(st, localID)
			})
		}
		return "", s.fail("create_message", roomID, "failed to submit question", err)
	}
	if optimistic {
		sess.Mutate(func(st *models.RoomMessages) *models.RoomMessages {
			return reconciler.ConfirmPending(st, localID, id)
		})
	}
	return id, nil
}

// React 樂觀地設定本地按讚旗標，再送出請求。數量只由事件串流更新。
func (s *RoomService) React(ctx context.Context, roomID, messageID string) error {
	return s.toggleReaction(ctx, roomID, messageID, true)
}

// RemoveReaction 樂觀地清除本地按讚旗標，再送出請求
func (s *RoomService) RemoveReaction(ctx context.Context, roomID, messageID string) error {
	return s.toggleReaction(ctx, roomID, messageID, false)
}

func (s *RoomService) toggleReaction(ctx context.Context, roomID, messageID string, reacted bool) error {
	if roomID == "" {
		return ErrMissingRoom
	}
	if messageID == "" {
		return ErrMissingMessage
	}

	prev := s.reactions.Set(roomID, messageID, reacted)
	s.notifier.Refresh(roomID)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var err error
	if reacted {
		_, err = s.repos.Reaction.Add(ctx, roomID, messageID)
	} else {
		_, err = s.repos.Reaction.Remove(ctx, roomID, messageID)
	}
	if err != nil {
		s.reactions.Set(roomID, messageID, prev)
		s.notifier.Refresh(roomID)
		if reacted {
			return s.fail("react", roomID, "failed to react to question", err)
		}
		return s.fail("unreact", roomID, "failed to remove reaction", err)
	}
	return nil
}

// HasReacted 回傳本地按讚旗標
func (s *RoomService) HasReacted(roomID, messageID string) bool {
	return s.reactions.Has(roomID, messageID)
}

// Reacted 回傳房間中本地已按讚的提問
func (s *RoomService) Reacted(roomID string) []string {
	return s.reactions.Reacted(roomID)
}

// AnswerMessage 回答提問，已回答狀態由 message_answered 事件帶回
func (s *RoomService) AnswerMessage(ctx context.Context, roomID, messageID, text string) (string, error) {
	if roomID == "" {
		return "", ErrMissingRoom
	}
	if messageID == "" {
		return "", ErrMissingMessage
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	id, err := s.repos.Answer.Create(ctx, roomID, messageID, text)
	if err != nil {
		return "", s.fail("create_answer", roomID, "failed to answer question", err)
	}
	return id, nil
}

// GetAnswers 載入提問的回答，不經過快取
func (s *RoomService) GetAnswers(ctx context.Context, roomID, messageID string) ([]models.Answer, error) {
	if roomID == "" {
		return nil, ErrMissingRoom
	}
	if messageID == "" {
		return nil, ErrMissingMessage
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.repos.Answer.FindByMessageID(ctx, roomID, messageID)
}
