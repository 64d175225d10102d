package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ent0n29/streamtasks/internal/board"
	"github.com/ent0n29/streamtasks/internal/protocol"
	"github.com/ent0n29/streamtasks/internal/reliability"
)

const maxAttempts = 3

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("http %d", e.Status)
}

type ChatResult struct {
	Handled bool   `json:"handled"`
	Reply   string `json:"reply"`
	IsError bool   `json:"is_error"`
}

type Client struct {
	base string
	http *http.Client
}

func NewClient(base string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(strings.TrimSpace(base), "/"),
		http: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Board(ctx context.Context) (board.View, error) {
	var v board.View
	err := c.do(ctx, http.MethodGet, "/v1/board", nil, &v)
	return v, err
}

func (c *Client) State(ctx context.Context) (board.Snapshot, error) {
	var snap board.Snapshot
	err := c.do(ctx, http.MethodGet, "/v1/test/state", nil, &snap)
	return snap, err
}

// Say posts a chat line as the given sender. Empty tags mean a plain viewer.
func (c *Client) Say(ctx context.Context, user, text string, mod, broadcaster bool) (ChatResult, error) {
	body := map[string]any{
		"type":        protocol.TypeChatMessage,
		"text":        text,
		"displayName": user,
		"tags":        map[string]bool{"mod": mod, "broadcaster": broadcaster},
	}
	var res ChatResult
	err := c.do(ctx, http.MethodPost, "/v1/chat/messages", body, &res)
	return res, err
}

func (c *Client) Emulate(ctx context.Context, user, text string) (ChatResult, error) {
	var res ChatResult
	err := c.do(ctx, http.MethodPost, "/v1/test/emulate", map[string]string{"user": user, "text": text}, &res)
	return res, err
}

func (c *Client) AddList(ctx context.Context, name, summary string) error {
	return c.do(ctx, http.MethodPost, "/v1/test/lists", map[string]string{"name": name, "summary": summary}, nil)
}

func (c *Client) DeleteList(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/v1/test/lists/"+url.PathEscape(name), nil, nil)
}

func (c *Client) AddTask(ctx context.Context, list, text, kind, username string) error {
	body := map[string]string{"text": text, "kind": kind, "username": username}
	return c.do(ctx, http.MethodPost, "/v1/test/lists/"+url.PathEscape(list)+"/tasks", body, nil)
}

func (c *Client) CompleteTask(ctx context.Context, list string, index int) (bool, int, error) {
	var res struct {
		Changed bool `json:"changed"`
		Points  int  `json:"progress_points"`
	}
	path := fmt.Sprintf("/v1/test/lists/%s/tasks/%d/complete", url.PathEscape(list), index)
	err := c.do(ctx, http.MethodPost, path, nil, &res)
	return res.Changed, res.Points, err
}

func (c *Client) RemoveTask(ctx context.Context, list string, index int) error {
	path := fmt.Sprintf("/v1/test/lists/%s/tasks/%d", url.PathEscape(list), index)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) SetProgress(ctx context.Context, points int) (int, error) {
	var res struct {
		Points int `json:"progress_points"`
	}
	err := c.do(ctx, http.MethodPut, "/v1/test/progress", map[string]int{"points": points}, &res)
	return res.Points, err
}

func (c *Client) AddPending(ctx context.Context, username, task string) (board.PendingResult, error) {
	var res board.PendingResult
	err := c.do(ctx, http.MethodPost, "/v1/test/pending", map[string]string{"username": username, "task": task}, &res)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
		return res, nil
	}
	return res, err
}

func (c *Client) Sweep(ctx context.Context, now time.Time) (int, error) {
	body := map[string]int64{}
	if !now.IsZero() {
		body["now_ms"] = now.UnixMilli()
	}
	var res struct {
		Marked int `json:"marked_offline"`
	}
	err := c.do(ctx, http.MethodPost, "/v1/test/sweep", body, &res)
	return res.Marked, err
}

func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/test/reset", nil, nil)
}

func (c *Client) Flush(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/test/flush", nil, nil)
}

// Watch streams board snapshots from the overlay socket until ctx ends or
// the connection drops.
func (c *Client) Watch(ctx context.Context, fn func(board.View)) error {
	wsURL, err := toWS(c.base + "/v1/overlay/ws")
	if err != nil {
		return err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial overlay: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read overlay: %w", err)
		}
		var msg protocol.BoardSnapshot
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type != protocol.TypeBoardSnapshot {
			continue
		}
		fn(msg.Board)
	}
}

// do sends one JSON request. Only idempotent methods are retried, and only
// on statuses that signal a transient server condition.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	attempts := 1
	if method == http.MethodGet || method == http.MethodPut || method == http.MethodDelete {
		attempts = maxAttempts
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(reliability.ExponentialBackoff(attempt-1, 100*time.Millisecond, time.Second)):
			}
		}
		status, err := c.once(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if status == 0 || !reliability.IsRetryableHTTPStatus(status) {
			return err
		}
	}
	return lastErr
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte, out any) (int, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return 0, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return resp.StatusCode, err
	}
	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(raw, apiErr)
		if out != nil {
			_ = json.Unmarshal(raw, out)
		}
		return resp.StatusCode, apiErr
	}
	if out == nil || len(raw) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return resp.StatusCode, nil
}

func toWS(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
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
	return u.String(), nil
}
