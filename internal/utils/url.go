package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// JoinURL 將路徑片段接在 base 之後，片段會做路徑跳脫
func JoinURL(base string, segments ...string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	return u.JoinPath(segments...).String(), nil
}

// StreamBaseURL 由 API 位址推導事件串流位址：http(s) 換成 ws(s)，並去掉結尾的 /api
func StreamBaseURL(apiURL string) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", fmt.Errorf("invalid api url %q: %w", apiURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), "/api")
	return u.String(), nil
}
