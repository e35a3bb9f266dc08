// Package fanout runs independent units of work with bounded concurrency
// and joins all of them before returning.
package fanout

import (
	"context"
	"sync"
)

type Outcome[R any] struct {
	Value R
	Err   error
}

// Map applies fn to every item with at most limit concurrent workers.
// Results keep input order. This is a full join: every unit finishes
// (successfully or with an error) before Map returns.
func Map[T any, R any](ctx context.Context, items []T, limit int, fn func(context.Context, int, T) (R, error)) []Outcome[R] {
	if limit <= 0 {
		limit = 1
	}
	out := make([]Outcome[R], len(items))
	sem := make(chan struct{}, limit)

	var wg sync.WaitGroup
	for i := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := ctx.Err(); err != nil {
				out[idx] = Outcome[R]{Err: err}
				return
			}
			value, err := fn(ctx, idx, items[idx])
			out[idx] = Outcome[R]{Value: value, Err: err}
		}(i)
	}
	wg.Wait()
	return out
}
