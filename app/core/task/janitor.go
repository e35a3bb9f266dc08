package task

import (
	"context"
	"time"

	"brainforge/app/pkg/logger"
)

// Janitor periodically prunes terminal tasks that have passed their
// retention window, keeping the in-memory store bounded on long-running
// deployments. Retention is opt-in: with a non-positive maxAge the
// janitor does nothing and every task stays retrievable until process
// restart. Active tasks are never pruned either way.
type Janitor struct {
	store    *Store
	interval time.Duration
	maxAge   time.Duration
}

func NewJanitor(store *Store, interval, maxAge time.Duration) *Janitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{store: store, interval: interval, maxAge: maxAge}
}

// Start runs the prune loop until ctx is canceled.
func (j *Janitor) Start(ctx context.Context) {
	if j.maxAge <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := j.store.Prune(time.Now(), j.maxAge); removed > 0 {
					logger.Info("Task janitor pruned %d finished tasks", removed)
				}
			}
		}
	}()
}
