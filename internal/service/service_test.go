package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ama_live/internal/models"
	"ama_live/internal/repository"
	"ama_live/pkg/config"
)

func TestHTTPClientHasNoGlobalTimeout(t *testing.T) {
	assert.Zero(t, NewHTTPClient().Timeout)
}

// 快照載入只受 snapshot_timeout 限制，不會被較短的 request_timeout 截斷
func TestSnapshotTimeoutOutlivesRequestTimeout(t *testing.T) {
	up := newFakeUpstream(t)
	up.Seed("r1", models.WireMessage{ID: "m1", Message: "hi"})
	release := up.HoldSnapshots()
	defer release()

	cfg := &config.Config{}
	cfg.Upstream.APIURL = up.APIURL()
	cfg.Upstream.StreamURL = up.StreamURL()
	cfg.Upstream.RequestTimeout = 50 * time.Millisecond
	cfg.Cache.SnapshotTimeout = waitFor

	services, err := NewServices(cfg, repository.NewRepositories(NewHTTPClient(), cfg.Upstream.APIURL))
	require.NoError(t, err)
	defer services.Close()

	sess := services.Sync.Acquire("r1")
	require.Eventually(t, func() bool { return up.snapshotCalls.Load() >= 1 }, waitFor, tick)
	time.Sleep(4 * cfg.Upstream.RequestTimeout)
	release()

	st := waitReady(t, sess)
	assert.Equal(t, 1, st.Len())
}
