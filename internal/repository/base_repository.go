package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ama_live/internal/utils"
)

// HTTPError 表示上游回傳非 2xx 狀態碼
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// BaseRepository 是對上游 JSON API 的基本操作
type BaseRepository interface {
	Find(ctx context.Context, out interface{}, segments ...string) error
	Create(ctx context.Context, in, out interface{}, segments ...string) error
	Update(ctx context.Context, out interface{}, segments ...string) error
	Delete(ctx context.Context, out interface{}, segments ...string) error
}

type baseRepository struct {
	client  *http.Client
	baseURL string
}

func NewBaseRepository(client *http.Client, baseURL string) BaseRepository {
	if client == nil {
		client = http.DefaultClient
	}
	return &baseRepository{client: client, baseURL: baseURL}
}

func (r *baseRepository) Find(ctx context.Context, out interface{}, segments ...string) error {
	return r.do(ctx, http.MethodGet, nil, out, segments)
}

func (r *baseRepository) Create(ctx context.Context, in, out interface{}, segments ...string) error {
	return r.do(ctx, http.MethodPost, in, out, segments)
}

func (r *baseRepository) Update(ctx context.Context, out interface{}, segments ...string) error {
	return r.do(ctx, http.MethodPatch, nil, out, segments)
}

func (r *baseRepository) Delete(ctx context.Context, out interface{}, segments ...string) error {
	return r.do(ctx, http.MethodDelete, nil, out, segments)
}

func (r *baseRepository) do(ctx context.Context, method string, in, out interface{}, segments []string) error {
	u, err := utils.JoinURL(r.baseURL, segments...)
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &HTTPError{Method: method, URL: u, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", method, u, err)
	}
	return nil
}
