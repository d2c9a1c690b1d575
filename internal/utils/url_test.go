package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinURL(t *testing.T) {
	got, err := JoinURL("http://localhost:8080/api", "rooms", "r 1", "messages")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api/rooms/r%201/messages", got)
}

func TestStreamBaseURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8080/api":  "ws://localhost:8080",
		"https://ama.example/api/":   "wss://ama.example",
		"http://127.0.0.1:9000":      "ws://127.0.0.1:9000",
		"ws://already.example/prefix": "ws://already.example/prefix",
	}
	for in, want := range cases {
		got, err := StreamBaseURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := StreamBaseURL("ftp://nope")
	assert.Error(t, err)
}
