package remote

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"brainforge/app/core/comms"
)

const taskPath = "/task"

// Meta travels with the context so every call attempt can be correlated
// back to the task and workflow that triggered it.
type Meta struct {
	TaskID     string
	WorkflowID string
}

type metaKey struct{}

func WithMeta(ctx context.Context, meta Meta) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	current := GetMeta(ctx)
	if strings.TrimSpace(meta.TaskID) == "" {
		meta.TaskID = current.TaskID
	}
	if strings.TrimSpace(meta.WorkflowID) == "" {
		meta.WorkflowID = current.WorkflowID
	}
	return context.WithValue(ctx, metaKey{}, meta)
}

func GetMeta(ctx context.Context) Meta {
	if ctx == nil {
		return Meta{}
	}
	meta, _ := ctx.Value(metaKey{}).(Meta)
	return meta
}

type Options struct {
	SourceRole  string
	MaxAttempts int
	RetryBase   time.Duration
	CallTimeout time.Duration
}

// Client sends skill-envelope requests to workers with a bounded retry
// policy and reports every attempt to the comms sink.
type Client struct {
	registry    *Registry
	sink        comms.Sink
	httpClient  *http.Client
	sourceRole  string
	maxAttempts int
	retryBase   time.Duration
	callTimeout time.Duration
}

func NewClient(registry *Registry, sink comms.Sink, opts Options) *Client {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = 500 * time.Millisecond
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 60 * time.Second
	}
	if strings.TrimSpace(opts.SourceRole) == "" {
		opts.SourceRole = "orchestrator"
	}
	return &Client{
		registry:    registry,
		sink:        sink,
		httpClient:  &http.Client{},
		sourceRole:  opts.SourceRole,
		maxAttempts: opts.MaxAttempts,
		retryBase:   opts.RetryBase,
		callTimeout: opts.CallTimeout,
	}
}

// Call runs one logical call: up to maxAttempts attempts sharing a single
// request id, exponential backoff between transient failures. The returned
// result is the parsed response document.
func (c *Client) Call(ctx context.Context, role string, skill string, payload []byte) (gjson.Result, error) {
	requestID := uuid.NewString()
	meta := GetMeta(ctx)

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		start := time.Now()
		result, err := c.attempt(ctx, role, skill, payload)
		rec := comms.Record{
			Timestamp:  start,
			RequestID:  requestID,
			WorkflowID: meta.WorkflowID,
			TaskID:     meta.TaskID,
			FromRole:   c.sourceRole,
			ToRole:     role,
			Skill:      skill,
			Attempt:    attempt,
			DurationMs: time.Since(start).Milliseconds(),
		}
		if err == nil {
			rec.Status = comms.StatusSuccess
			c.sink.Append(rec)
			return result, nil
		}

		lastErr = err
		rec.Error = err.Error()
		retryable := isTransient(err) && attempt < c.maxAttempts && ctx.Err() == nil
		if retryable {
			rec.Status = comms.StatusRetry
		} else {
			rec.Status = comms.StatusError
		}
		c.sink.Append(rec)
		if !retryable {
			break
		}
		if err := c.backoff(ctx, attempt); err != nil {
			break
		}
	}
	return gjson.Result{}, &CallError{Role: role, Skill: skill, Cause: lastErr}
}

func (c *Client) attempt(ctx context.Context, role string, skill string, payload []byte) (gjson.Result, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	endpoint, err := c.registry.Resolve(attemptCtx, role)
	if err != nil {
		return gjson.Result{}, err
	}

	body, err := sjson.SetBytes([]byte(`{}`), "skill", skill)
	if err != nil {
		return gjson.Result{}, err
	}
	body, err = sjson.SetRawBytes(body, "input", payload)
	if err != nil {
		return gjson.Result{}, err
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, endpoint.URL+taskPath, bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, &statusError{code: resp.StatusCode, body: previewText(string(data), 200)}
	}
	parsed := gjson.ParseBytes(data)
	if !parsed.IsObject() {
		return gjson.Result{}, &malformedError{reason: "body is not a JSON object"}
	}
	return parsed, nil
}

func (c *Client) backoff(ctx context.Context, attempt int) error {
	delay := c.retryBase << (attempt - 1)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func previewText(s string, limit int) string {
	clean := strings.TrimSpace(s)
	clean = strings.ReplaceAll(clean, "\r\n", "\n")
	clean = strings.ReplaceAll(clean, "\n", "\\n")
	runes := []rune(clean)
	if len(runes) <= limit {
		return clean
	}
	return string(runes[:limit]) + "..."
}
