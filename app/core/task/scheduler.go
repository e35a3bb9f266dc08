package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"brainforge/app/core/remote"
	"brainforge/app/core/workflow"
	"brainforge/app/pkg/logger"
)

var ErrInvalidTopic = errors.New("topic is required")

// Runner executes one pipeline run. Satisfied by workflow.Engine.
type Runner interface {
	Run(ctx context.Context, topic string) (workflow.Result, error)
}

// Scheduler accepts workflow submissions, records them in the store and
// runs each one in its own goroutine under the aggregate wall-clock budget.
// That goroutine is the sole writer of the task's terminal state; callers
// only ever observe it through the store.
type Scheduler struct {
	store  *Store
	runner Runner
	budget time.Duration
}

func NewScheduler(store *Store, runner Runner, budget time.Duration) *Scheduler {
	if budget <= 0 {
		budget = 120 * time.Second
	}
	return &Scheduler{store: store, runner: runner, budget: budget}
}

// Submit validates the topic, creates a pending task and schedules its
// execution. It returns immediately; callers poll Get for the outcome.
func (s *Scheduler) Submit(topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", ErrInvalidTopic
	}

	taskID := uuid.NewString()
	s.store.Create(taskID, topic, time.Now().UTC())
	logger.Info("Task %s: accepted topic %q", taskID, topic)

	go s.run(taskID, topic)
	return taskID, nil
}

func (s *Scheduler) Get(taskID string) (Task, error) {
	return s.store.Get(taskID)
}

func (s *Scheduler) List(limit int) []Task {
	return s.store.List(limit)
}

func (s *Scheduler) run(taskID string, topic string) {
	if _, moved := s.store.MarkRunning(taskID, time.Now().UTC()); !moved {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.budget)
	defer cancel()
	ctx = remote.WithMeta(ctx, remote.Meta{TaskID: taskID})

	result, err := s.runner.Run(ctx, topic)
	now := time.Now().UTC()
	if err != nil {
		message := err.Error()
		// The aggregate budget overrules per-call outcomes.
		if ctx.Err() == context.DeadlineExceeded {
			message = fmt.Sprintf("workflow timed out after %s", s.budget)
		}
		s.store.Fail(taskID, now, message)
		logger.Error("Task %s: failed: %s", taskID, message)
		return
	}
	s.store.Complete(taskID, now, result)
	logger.Info("Task %s: completed with %d prioritized ideas", taskID, len(result.PrioritizedIdeas))
}
