package repository

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ama_live/internal/models"
)

func newUpstream(t *testing.T) (*Repositories, *http.ServeMux) {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewRepositories(srv.Client(), srv.URL+"/api"), mux
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestMessageFindByRoomIDTranslatesWireShape(t *testing.T) {
	repos, mux := newUpstream(t)
	mux.HandleFunc("GET /api/rooms/{room}/messages", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "r1", r.PathValue("room"))
		_, _ = io.WriteString(w, `[{"ID":"m1","RoomID":"r1","Message":"hi","ReactionCount":3,"Answered":true}]`)
	})

	msgs, err := repos.Message.FindByRoomID(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, []models.Message{{ID: "m1", Text: "hi", AmountOfReactions: 3, Answered: true}}, msgs)
}

func TestNon2xxIsHTTPError(t *testing.T) {
	repos, mux := newUpstream(t)
	mux.HandleFunc("GET /api/rooms/{room}/messages", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Room not found", http.StatusBadRequest)
	})

	_, err := repos.Message.FindByRoomID(context.Background(), "nope")
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Equal(t, "Room not found", httpErr.Body)
}

func TestMutations(t *testing.T) {
	repos, mux := newUpstream(t)
	mux.HandleFunc("POST /api/rooms", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "golang", body["theme"])
		writeJSON(w, map[string]string{"id": "r1"})
	})
	mux.HandleFunc("POST /api/rooms/{room}/messages", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "why?", body["message"])
		writeJSON(w, map[string]string{"id": "m1"})
	})
	mux.HandleFunc("PATCH /api/rooms/{room}/messages/{msg}/react", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]int64{"count": 4})
	})
	mux.HandleFunc("DELETE /api/rooms/{room}/messages/{msg}/react", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]int64{"count": 3})
	})
	mux.HandleFunc("POST /api/rooms/{room}/messages/{msg}/answer", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "because", body["answer"])
		writeJSON(w, map[string]string{"id": "a1"})
	})
	mux.HandleFunc("GET /api/rooms/{room}/messages/{msg}/answer", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"ID":"a1","MessageId":"m1","Answer":"because","ReactionCount":1}]`)
	})

	ctx := context.Background()

	id, err := repos.Room.Create(ctx, "golang")
	require.NoError(t, err)
	assert.Equal(t, "r1", id)

	id, err = repos.Message.Create(ctx, "r1", "why?")
	require.NoError(t, err)
	assert.Equal(t, "m1", id)

	n, err := repos.Reaction.Add(ctx, "r1", "m1")
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)

	n, err = repos.Reaction.Remove(ctx, "r1", "m1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	id, err = repos.Answer.Create(ctx, "r1", "m1", "because")
	require.NoError(t, err)
	assert.Equal(t, "a1", id)

	answers, err := repos.Answer.FindByMessageID(ctx, "r1", "m1")
	require.NoError(t, err)
	assert.Equal(t, []models.Answer{{ID: "a1", Text: "because", AmountOfReactions: 1}}, answers)
}

func TestTransportErrorIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	repos := NewRepositories(nil, url)
	_, err := repos.Room.Create(context.Background(), "x")
	require.Error(t, err)
	var httpErr *HTTPError
	assert.False(t, errors.As(err, &httpErr))
}
