// Package comms records one line-delimited JSON entry per remote-call
// attempt so retries can be correlated back to a single logical call.
package comms

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	StatusSuccess = "success"
	StatusRetry   = "retry"
	StatusError   = "error"
)

// Record is write-once. Attempt is 1-based; RequestID is shared by every
// attempt of one logical call.
type Record struct {
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
	WorkflowID string    `json:"workflow_id,omitempty"`
	TaskID     string    `json:"task_id,omitempty"`
	FromRole   string    `json:"from_role"`
	ToRole     string    `json:"to_role"`
	Skill      string    `json:"skill"`
	Attempt    int       `json:"attempt"`
	Status     string    `json:"status"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

type Sink interface {
	Append(Record)
}

// FileSink appends records under <dir>/<day>/comms_<hour>.jsonl.
type FileSink struct {
	mu  sync.Mutex
	dir string
}

func NewFileSink(dir string) *FileSink {
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Join("output", "comms")
	}
	return &FileSink{dir: dir}
}

func (s *FileSink) Append(rec Record) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return
	}

	dayDir := filepath.Join(s.dir, rec.Timestamp.Format("2006-01-02"))
	if err := os.MkdirAll(dayDir, 0755); err != nil {
		return
	}
	logPath := filepath.Join(dayDir, fmt.Sprintf("comms_%s.jsonl", rec.Timestamp.Format("20060102-15")))

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.Write(append(payload, '\n'))
}

// MemorySink keeps records in memory for tests and the status endpoint.
type MemorySink struct {
	mu      sync.Mutex
	records []Record
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Append(rec Record) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

func (s *MemorySink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// ByRequestID groups the sink's records per logical call.
func (s *MemorySink) ByRequestID() map[string][]Record {
	grouped := map[string][]Record{}
	for _, rec := range s.Records() {
		grouped[rec.RequestID] = append(grouped[rec.RequestID], rec)
	}
	return grouped
}
