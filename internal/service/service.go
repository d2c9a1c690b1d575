package service

import (
	"net/http"

	"ama_live/internal/repository"
	"ama_live/internal/storage"
	"ama_live/internal/utils"
	"ama_live/pkg/config"
)

type Services struct {
	Sync    *SyncService
	Room    *RoomService
	ViewHub *ViewHub
}

func NewServices(cfg *config.Config, repos *repository.Repositories) (*Services, error) {
	streamURL := cfg.Upstream.StreamURL
	if streamURL == "" {
		u, err := utils.StreamBaseURL(cfg.Upstream.APIURL)
		if err != nil {
			return nil, err
		}
		streamURL = u
	}

	stream := NewStreamService(StreamOptions{
		BaseURL:          streamURL,
		HandshakeTimeout: cfg.Stream.HandshakeTimeout,
		PongWait:         cfg.Stream.PongWait,
		PingPeriod:       cfg.Stream.PingPeriod,
		WriteWait:        cfg.Stream.WriteWait,
		ReadLimit:        cfg.Stream.ReadLimit,
		Reconnect:        cfg.Stream.Reconnect,
		ReconnectMin:     cfg.Stream.ReconnectMin,
		ReconnectMax:     cfg.Stream.ReconnectMax,
	})

	syncService := NewSyncService(storage.NewRoomCache(), stream, repos.Message, SessionOptions{
		SnapshotTimeout: cfg.Cache.SnapshotTimeout,
		PendingLimit:    cfg.Cache.PendingLimit,
	})

	reactions := NewReactionState()
	syncService.OnRelease(reactions.Forget)

	roomService := NewRoomService(repos, syncService, reactions, cfg.Upstream.RequestTimeout)

	hub := NewViewHub(syncService, ViewOptions{
		PongWait:   cfg.Stream.PongWait,
		PingPeriod: cfg.Stream.PingPeriod,
		WriteWait:  cfg.Stream.WriteWait,
		ReadLimit:  cfg.Server.ViewReadLimit,
	})
	hub.SetReactor(roomService)
	roomService.SetNotifier(hub)

	return &Services{
		Sync:    syncService,
		Room:    roomService,
		ViewHub: hub,
	}, nil
}

// NewHTTPClient 建立呼叫上游 API 的 HTTP client。
// 不設 client 層級的 Timeout：快照與變更各自以 context 期限控制。
func NewHTTPClient() *http.Client {
	return &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}
}

// Close 中斷檢視者連線並關閉所有房間串流
func (s *Services) Close() {
	s.ViewHub.Close()
	s.Sync.Close()
}
