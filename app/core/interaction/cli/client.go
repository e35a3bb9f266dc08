package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"brainforge/app/core/task"
	"brainforge/app/core/workflow"
)

// ErrPollTimeout fires when a task is still running at the poll deadline.
var ErrPollTimeout = errors.New("timed out waiting for task to finish")

// TaskView mirrors the orchestrator's task payload.
type TaskView struct {
	TaskID string           `json:"task_id"`
	Status string           `json:"status"`
	Topic  string           `json:"topic,omitempty"`
	Result *workflow.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func (v TaskView) Terminal() bool {
	return v.Status == task.StatusCompleted || v.Status == task.StatusFailed
}

// Client talks to the orchestrator's REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Submit starts a brainstorm and returns the task id to poll.
func (c *Client) Submit(ctx context.Context, topic string) (string, error) {
	body, err := json.Marshal(map[string]string{"topic": topic})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/brainstorm", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	view, err := c.do(req)
	if err != nil {
		return "", err
	}
	if view.TaskID == "" {
		return "", errors.New("server response missing task_id")
	}
	return view.TaskID, nil
}

// Fetch reads the current state of one task.
func (c *Client) Fetch(ctx context.Context, taskID string) (TaskView, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/brainstorm/"+taskID, nil)
	if err != nil {
		return TaskView{}, err
	}
	return c.do(req)
}

// Wait polls the task until it reaches a terminal status or timeout
// elapses. The first poll happens after one interval.
func (c *Client) Wait(ctx context.Context, taskID string, interval, timeout time.Duration) (TaskView, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return TaskView{}, ctx.Err()
		case <-deadline.C:
			return TaskView{}, ErrPollTimeout
		case <-tick.C:
			view, err := c.Fetch(ctx, taskID)
			if err != nil {
				return TaskView{}, err
			}
			if view.Terminal() {
				return view, nil
			}
		}
	}
}

func (c *Client) do(req *http.Request) (TaskView, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return TaskView{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return TaskView{}, err
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = resp.Status
		}
		return TaskView{}, fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)
	}

	var view TaskView
	if err := json.Unmarshal(body, &view); err != nil {
		return TaskView{}, fmt.Errorf("invalid server response: %w", err)
	}
	return view, nil
}
