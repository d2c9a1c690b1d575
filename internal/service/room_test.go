package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ama_live/internal/models"
	"ama_live/internal/repository"
)

type recordingNotifier struct {
	mu        sync.Mutex
	notices   []string
	refreshes int
}

func (n *recordingNotifier) Notify(_, content string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, content)
}

func (n *recordingNotifier) Refresh(string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.refreshes++
}

func (n *recordingNotifier) Notices() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.notices...)
}

func newTestRoomService(env *testEnv, repos *repository.Repositories) (*RoomService, *recordingNotifier) {
	if repos == nil {
		repos = env.repos
	}
	svc := NewRoomService(repos, env.sync, NewReactionState(), time.Second)
	n := &recordingNotifier{}
	svc.SetNotifier(n)
	return svc, n
}

func TestReactSetsLocalFlag(t *testing.T) {
	env := newTestEnv(t, false)
	svc, n := newTestRoomService(env, nil)

	require.NoError(t, svc.React(context.Background(), "r1", "m1"))
	assert.True(t, svc.HasReacted("r1", "m1"))
	assert.Equal(t, []string{"m1"}, svc.Reacted("r1"))
	assert.Empty(t, n.Notices())

	require.NoError(t, svc.RemoveReaction(context.Background(), "r1", "m1"))
	assert.False(t, svc.HasReacted("r1", "m1"))
}

func TestReactFailureRevertsFlagAndNotifies(t *testing.T) {
	env := newTestEnv(t, false)
	env.up.Seed("r1", models.WireMessage{ID: "m1", Message: "hi", ReactionCount: 4})
	sess := env.sync.Acquire("r1")
	waitReady(t, sess)

	svc, n := newTestRoomService(env, nil)
	env.up.FailReactions(true)

	err := svc.React(context.Background(), "r1", "m1")
	require.Error(t, err)
	var httpErr *repository.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 500, httpErr.StatusCode)

	assert.False(t, svc.HasReacted("r1", "m1"))
	assert.Equal(t, []string{"failed to react to question"}, n.Notices())
	// 數量不受本地操作影響
	assert.EqualValues(t, 4, env.values("r1")[0].AmountOfReactions)

	env.up.FailReactions(false)
	require.NoError(t, svc.React(context.Background(), "r1", "m1"))
	env.up.FailReactions(true)
	require.Error(t, svc.RemoveReaction(context.Background(), "r1", "m1"))
	assert.True(t, svc.HasReacted("r1", "m1"), "failed removal keeps the flag")
	assert.Equal(t, "failed to remove reaction", n.Notices()[1])
}

func TestReactionFlagsForgottenOnRelease(t *testing.T) {
	env := newTestEnv(t, false)
	reactions := NewReactionState()
	env.sync.OnRelease(reactions.Forget)
	svc := NewRoomService(env.repos, env.sync, reactions, time.Second)

	sess := env.sync.Acquire("r1")
	require.NoError(t, svc.React(context.Background(), "r1", "m1"))
	env.sync.Release(sess)
	assert.False(t, svc.HasReacted("r1", "m1"))
}

func TestSubmitMessageConfirmsOptimisticEntry(t *testing.T) {
	env := newTestEnv(t, false)
	env.up.Seed("r1", models.WireMessage{ID: "m1", Message: "first"})
	sess := env.sync.Acquire("r1")
	waitReady(t, sess)
	env.waitSubscribed(t, "r1", 1)

	svc, _ := newTestRoomService(env, nil)
	id, err := svc.SubmitMessage(context.Background(), "r1", "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "srv-1", id)

	// 不論事件與回應誰先到，最後只留下一筆已確認的提問
	require.Eventually(t, func() bool {
		v := env.values("r1")
		return len(v) == 2 && v[1].ID == "srv-1" && !v[1].Pending
	}, waitFor, tick)
	assert.Equal(t, []models.Message{
		{ID: "m1", Text: "first"},
		{ID: "srv-1", Text: "hello"},
	}, env.values("r1"))
}

func TestSubmitMessageFailureDropsPendingEntry(t *testing.T) {
	env := newTestEnv(t, false)
	env.up.Seed("r1", models.WireMessage{ID: "m1", Message: "first"})
	sess := env.sync.Acquire("r1")
	waitReady(t, sess)

	broken := repository.NewRepositories(nil, "http://127.0.0.1:1/api")
	svc, n := newTestRoomService(env, broken)

	_, err := svc.SubmitMessage(context.Background(), "r1", "hello")
	require.Error(t, err)
	assert.Equal(t, []models.Message{{ID: "m1", Text: "first"}}, env.values("r1"))
	assert.Equal(t, []string{"failed to submit question"}, n.Notices())
}

func TestSubmitMessageWithoutActiveRoom(t *testing.T) {
	env := newTestEnv(t, false)
	svc, _ := newTestRoomService(env, nil)

	id, err := svc.SubmitMessage(context.Background(), "r9", "hello")
	require.NoError(t, err)
	assert.Equal(t, "srv-1", id)
	_, ok := env.cache.Get("r9")
	assert.False(t, ok)
}

func TestGetMessagesPrefersCache(t *testing.T) {
	env := newTestEnv(t, false)
	env.up.Seed("r1", models.WireMessage{ID: "m1", Message: "hi"})
	svc, _ := newTestRoomService(env, nil)

	st, err := svc.GetMessages(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Len())
	_, ok := env.cache.Get("r1")
	assert.False(t, ok, "reading an inactive room must not populate the cache")

	sess := env.sync.Acquire("r1")
	cached := waitReady(t, sess)
	st, err = svc.GetMessages(context.Background(), "r1")
	require.NoError(t, err)
	assert.Same(t, cached, st)
}

func TestRoomServiceValidation(t *testing.T) {
	env := newTestEnv(t, false)
	svc, _ := newTestRoomService(env, nil)
	ctx := context.Background()

	_, err := svc.CreateRoom(ctx, "   ")
	assert.ErrorIs(t, err, ErrEmptyText)
	_, err = svc.GetMessages(ctx, "")
	assert.ErrorIs(t, err, ErrMissingRoom)
	_, err = svc.SubmitMessage(ctx, "r1", "")
	assert.ErrorIs(t, err, ErrEmptyText)
	assert.ErrorIs(t, svc.React(ctx, "r1", ""), ErrMissingMessage)
	assert.ErrorIs(t, svc.RemoveReaction(ctx, "", "m1"), ErrMissingRoom)
	_, err = svc.AnswerMessage(ctx, "r1", "m1", " ")
	assert.ErrorIs(t, err, ErrEmptyText)
	_, err = svc.GetAnswers(ctx, "r1", "")
	assert.ErrorIs(t, err, ErrMissingMessage)
}
