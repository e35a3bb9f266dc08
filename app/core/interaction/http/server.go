package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"brainforge/app/core/task"
	"brainforge/app/core/workflow"
	"brainforge/app/pkg/logger"
)

// Server is the submission boundary: clients POST a topic and poll the
// returned task id until it reaches a terminal status. Pipeline failures
// come back as status=failed in a 200 response; only bad submissions and
// unknown ids surface as HTTP errors.
type Server struct {
	port            int
	scheduler       *task.Scheduler
	server          *http.Server
	shutdownTimeout time.Duration
	startedUnix     atomic.Int64
}

func NewServer(port int, scheduler *task.Scheduler) *Server {
	return &Server{
		port:            port,
		scheduler:       scheduler,
		shutdownTimeout: 5 * time.Second,
	}
}

func (s *Server) SetShutdownTimeout(timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	s.shutdownTimeout = timeout
}

func (s *Server) Start(ctx context.Context) error {
	s.startedUnix.Store(time.Now().Unix())

	mux := http.NewServeMux()
	mux.HandleFunc("/api/brainstorm", s.handleBrainstorm)
	mux.HandleFunc("/api/brainstorm/", s.handleBrainstorm)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP shutdown error: %v", err)
		}
	}()

	logger.Info("HTTP listening on port %d...", s.port)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

type submitRequest struct {
	Topic string `json:"topic"`
}

type submitResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

type taskResponse struct {
	TaskID    string           `json:"task_id"`
	Status    string           `json:"status"`
	Topic     string           `json:"topic,omitempty"`
	Result    *workflow.Result `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	CreatedAt string           `json:"created_at,omitempty"`
	UpdatedAt string           `json:"updated_at,omitempty"`
}

type taskListResponse struct {
	Tasks []taskResponse `json:"tasks"`
}

type statusResponse struct {
	Service   string `json:"service"`
	Tasks     int    `json:"tasks"`
	StartedAt string `json:"started_at,omitempty"`
	UptimeSec int64  `json:"uptime_sec"`
}

func (s *Server) handleBrainstorm(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/brainstorm" {
		switch r.Method {
		case http.MethodPost:
			s.handleSubmit(w, r)
		case http.MethodGet:
			s.handleList(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id, ok := parseBrainstormPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.handleGet(w, r, id)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req submitRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	taskID, err := s.scheduler.Submit(req.Topic)
	if err != nil {
		if errors.Is(err, task.ErrInvalidTopic) {
			http.Error(w, "topic is required", http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, submitResponse{TaskID: taskID, Status: task.StatusPending})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := s.scheduler.Get(id)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(rec))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := parseListLimit(r.URL.Query().Get("limit"))
	items := s.scheduler.List(limit)

	resp := taskListResponse{Tasks: make([]taskResponse, 0, len(items))}
	for _, rec := range items {
		resp.Tasks = append(resp.Tasks, toTaskResponse(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := statusResponse{
		Service: "brainforge",
		Tasks:   len(s.scheduler.List(0)),
	}
	if started := s.startedUnix.Load(); started > 0 {
		startAt := time.Unix(started, 0).UTC()
		resp.StartedAt = startAt.Format(time.RFC3339)
		resp.UptimeSec = int64(time.Since(startAt).Seconds())
		if resp.UptimeSec < 0 {
			resp.UptimeSec = 0
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func toTaskResponse(rec task.Task) taskResponse {
	payload := taskResponse{
		TaskID:    rec.ID,
		Status:    rec.Status,
		Topic:     rec.Topic,
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt: rec.UpdatedAt.Format(time.RFC3339),
	}
	switch rec.Status {
	case task.StatusCompleted:
		payload.Result = rec.Result
	case task.StatusFailed:
		payload.Error = rec.Error
	}
	return payload
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func parseBrainstormPath(path string) (id string, ok bool) {
	if !strings.HasPrefix(path, "/api/brainstorm/") {
		return "", false
	}
	tail := strings.Trim(strings.TrimPrefix(path, "/api/brainstorm/"), "/")
	if tail == "" || strings.Contains(tail, "/") {
		return "", false
	}
	return tail, true
}

func parseListLimit(raw string) int {
	const (
		defaultLimit = 20
		maxLimit     = 100
	)
	size, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || size <= 0 {
		return defaultLimit
	}
	if size > maxLimit {
		return maxLimit
	}
	return size
}
