package task

import (
	"errors"
	"sort"
	"sync"
	"time"

	"brainforge/app/core/workflow"
)

var ErrNotFound = errors.New("task not found")

// Store is the only shared mutable state in the system: a concurrent map
// from task id to task record. Every method takes the mutex for the whole
// operation and returns snapshot copies, so a poller never observes a
// half-updated record. Records live for the process lifetime unless a
// retention window is configured explicitly.
type Store struct {
	mu      sync.Mutex
	records map[string]*Task
}

func NewStore() *Store {
	return &Store{records: map[string]*Task{}}
}

func (s *Store) Create(id string, topic string, now time.Time) Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := &Task{
		ID:        id,
		Topic:     topic,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.records[id] = rec
	return copyTask(rec)
}

// MarkRunning moves pending -> running. Reports false without mutating
// when the task is unknown or already past pending.
func (s *Store) MarkRunning(id string, now time.Time) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return Task{}, false
	}
	if rec.Status != StatusPending {
		return copyTask(rec), false
	}
	rec.Status = StatusRunning
	rec.UpdatedAt = now
	return copyTask(rec), true
}

func (s *Store) Complete(id string, now time.Time, result workflow.Result) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return Task{}, false
	}
	if rec.Status != StatusPending && rec.Status != StatusRunning {
		return copyTask(rec), false
	}
	resultCopy := result
	rec.Status = StatusCompleted
	rec.Result = &resultCopy
	rec.UpdatedAt = now
	return copyTask(rec), true
}

func (s *Store) Fail(id string, now time.Time, message string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return Task{}, false
	}
	if rec.Status != StatusPending && rec.Status != StatusRunning {
		return copyTask(rec), false
	}
	rec.Status = StatusFailed
	rec.Error = message
	rec.UpdatedAt = now
	return copyTask(rec), true
}

func (s *Store) Get(id string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	return copyTask(rec), nil
}

func (s *Store) List(limit int) []Task {
	s.mu.Lock()
	items := make([]Task, 0, len(s.records))
	for _, rec := range s.records {
		items = append(items, copyTask(rec))
	}
	s.mu.Unlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// Prune drops terminal tasks whose last update is older than maxAge.
// Pending and running tasks are never touched. A non-positive maxAge
// disables pruning entirely: tasks then live for the process lifetime,
// which is the default contract.
func (s *Store) Prune(now time.Time, maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}
	cutoff := now.Add(-maxAge)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, rec := range s.records {
		if rec.Terminal() && rec.UpdatedAt.Before(cutoff) {
			delete(s.records, id)
			removed++
		}
	}
	return removed
}

func copyTask(src *Task) Task {
	if src == nil {
		return Task{}
	}
	cp := *src
	if src.Result != nil {
		resultCopy := *src.Result
		resultCopy.PrioritizedIdeas = append([]workflow.PrioritizedIdea(nil), src.Result.PrioritizedIdeas...)
		cp.Result = &resultCopy
	}
	return cp
}
